package service

import (
	"sync"
	"time"
)

// Double-submit guard for add-items batches. The request model is
// single-process, so a process-local TTL map with a lazy sweep is enough.
//
// A batch id seen again within batchDupWindow is silently dropped (double
// click); seen again while still cached past the window it surfaces as a
// duplicate-submission error; after batchRetention the id is forgotten.
const (
	batchRetention = 60 * time.Second
	batchDupWindow = 5 * time.Second
)

type batchVerdict int

const (
	batchNew batchVerdict = iota
	batchSilentDup
	batchDup
)

type batchCache struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	lastSweep time.Time
}

func newBatchCache() *batchCache {
	return &batchCache{seen: make(map[string]time.Time)}
}

func (c *batchCache) check(batchID string) batchVerdict {
	if batchID == "" {
		return batchNew
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Sub(c.lastSweep) > batchRetention {
		for id, t := range c.seen {
			if now.Sub(t) > batchRetention {
				delete(c.seen, id)
			}
		}
		c.lastSweep = now
	}

	if t, ok := c.seen[batchID]; ok && now.Sub(t) <= batchRetention {
		if now.Sub(t) <= batchDupWindow {
			return batchSilentDup
		}
		return batchDup
	}
	c.seen[batchID] = now
	return batchNew
}
