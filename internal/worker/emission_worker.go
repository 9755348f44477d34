package worker

// emission_worker.go
// Processes fiscal emission jobs from QueueEmissao: loads the pool entry and
// attempts emission through the fiscal sidecar. The pool service owns all
// state transitions; this worker only drives attempts and the DLQ.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/infra"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/service"
)

const maxEmissionAttempts = 3

// EmissionWorker processes fiscal emission jobs from QueueEmissao.
type EmissionWorker struct {
	fiscal service.FiscalPoolService
	rdb    *redis.Client
}

func NewEmissionWorker(fiscal service.FiscalPoolService, rdb *redis.Client) *EmissionWorker {
	return &EmissionWorker{fiscal: fiscal, rdb: rdb}
}

// Process attempts emission with exponential backoff (immediate, 1s, 2s).
// A circuit-breaker rejection stops the attempts without touching the DLQ:
// the retry cron re-drives those entries once the sidecar recovers.
func (w *EmissionWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload EmissaoJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("emission_worker: invalid payload")
		return
	}
	entryID, err := uuid.Parse(payload.EntryID)
	if err != nil {
		log.Error().Str("entry_id", payload.EntryID).Msg("emission_worker: invalid entry_id")
		return
	}

	emitErr := withRetry(ctx, maxEmissionAttempts, func(attempt int) error {
		_, err := w.fiscal.Emit(ctx, entryID, "worker")
		if err != nil && !errors.Is(err, infra.ErrCircuitOpen) {
			log.Warn().Err(err).Int("attempt", attempt+1).
				Str("entry_id", payload.EntryID).
				Msg("emission_worker: attempt failed, retrying")
		}
		return err
	})
	if emitErr == nil {
		return
	}

	if errors.Is(emitErr, infra.ErrCircuitOpen) {
		log.Debug().Str("entry_id", payload.EntryID).
			Msg("emission_worker: circuit open, deferring to retry cron")
		return
	}

	SendToDLQ(ctx, w.rdb, QueueEmissao, "emissao", raw,
		fmt.Sprintf("max retries (%d) exceeded: %v", maxEmissionAttempts, emitErr),
		maxEmissionAttempts)
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = 1s, 3 = 2s.
// Returns nil if any attempt succeeds; last error otherwise. A circuit-open
// rejection aborts the remaining attempts immediately.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			if errors.Is(err, infra.ErrCircuitOpen) {
				return err
			}
			continue
		}
		return nil
	}
	return lastErr
}
