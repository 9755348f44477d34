package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/apierror"
)

// RateLimiter throttles requests per client IP using fixed windows. The
// counters live in redis under `ratelimit:<scope>:<ip>` so limits survive a
// restart; when redis is unreachable the limiter degrades to a
// process-local window instead of blocking the floor mid-service.
type RateLimiter struct {
	rdb *redis.Client

	mu    sync.Mutex
	local map[string]*localWindow
}

type localWindow struct {
	count int
	reset time.Time
}

func NewRateLimiter(rdb *redis.Client) *RateLimiter {
	return &RateLimiter{rdb: rdb, local: make(map[string]*localWindow)}
}

// API limits the whole surface per IP.
func (rl *RateLimiter) API(limit int, window time.Duration) gin.HandlerFunc {
	return rl.limit("api", limit, window, "Muitas requisições. Tente novamente em instantes.")
}

// Login throttles credential attempts much harder than the general API.
func (rl *RateLimiter) Login() gin.HandlerFunc {
	return rl.limit("login", 20, time.Minute, "Muitas tentativas de login. Tente novamente em 1 minuto.")
}

func (rl *RateLimiter) limit(scope string, limit int, window time.Duration, rejectMsg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s:%s", scope, c.ClientIP())

		count, reset, err := rl.bump(c, key, window)
		if err != nil {
			count, reset = rl.bumpLocal(key, window)
		}
		if count > limit {
			retry := int(time.Until(reset).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(rejectMsg))
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) bump(c *gin.Context, key string, window time.Duration) (int, time.Time, error) {
	if rl.rdb == nil {
		return 0, time.Time{}, redis.ErrClosed
	}
	ctx := c.Request.Context()
	count, err := rl.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, err
	}
	if count == 1 {
		if err := rl.rdb.Expire(ctx, key, window).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("rate limiter: expire falhou")
		}
	}
	ttl, err := rl.rdb.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		ttl = window
	}
	return int(count), time.Now().Add(ttl), nil
}

func (rl *RateLimiter) bumpLocal(key string, window time.Duration) (int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.local[key]
	if !ok || now.After(w.reset) {
		w = &localWindow{reset: now.Add(window)}
		rl.local[key] = w
	}
	w.count++

	// Opportunistic sweep so the fallback map cannot grow unbounded while
	// redis stays down.
	if len(rl.local) > 10000 {
		for k, v := range rl.local {
			if now.After(v.reset) {
				delete(rl.local, k)
			}
		}
	}
	return w.count, w.reset
}
