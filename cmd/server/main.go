package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/config"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/infra"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/router"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/store"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger — dev: pretty, prod: JSON
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	st, err := store.New(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open data directory")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	fiscalCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())

	r, workers := router.New(cfg, st, rdb, fiscalCB)

	// Worker pool drains the emission and report queues; the retry cron
	// sweeps pending fiscal entries whenever the breaker is closed.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.StartWorkerPool(ctx, rdb, workers.Handlers, cfg.WorkerPoolSize)
	worker.StartRetryCron(ctx, workers.Fiscal, fiscalCB)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("Almareia backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
