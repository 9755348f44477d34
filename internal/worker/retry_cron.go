package worker

// retry_cron.go
// Background goroutine that periodically re-attempts emission for fiscal pool
// entries stuck in status=error. Uses the Circuit Breaker to avoid hammering
// a downed sidecar; entries keep accumulating until emission succeeds or an
// operator ignores them.

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/infra"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/service"
)

const retryTickInterval = 30 * time.Second

// StartRetryCron launches a background goroutine that ticks every 30s and
// re-drives the fiscal pool while the circuit breaker is closed.
// It respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, fiscal service.FiscalPoolService, cb *infra.CircuitBreaker) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				// If CB is open, skip entirely — don't hammer a downed sidecar
				if cb != nil && cb.State() == infra.CBOpen {
					log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
					continue
				}
				fiscal.ProcessPending(ctx)
			}
		}
	}()
}
