package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mrwiat/internal/bootstrap"
	"mrwiat/internal/infra"
)

// The worker resolves jobs whose in-process wait timed out or whose API
// instance went away, so every job eventually records a terminal status.
func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.WithComponent(infra.NewLogger(cfg.AppEnv), "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to open store")
	}
	defer backend.Close()

	cache, closeCache, err := bootstrap.NewJobCache(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to connect redis")
	}
	defer closeCache()

	renderer, err := bootstrap.NewRenderer(ctx, cfg, backend, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure renderer client")
	}
	if !renderer.HasCredentials() {
		logger.Fatal().Msg("worker: renderer api key is required")
	}

	tr := bootstrap.NewTracker(ctx, cfg, renderer, backend.Jobs(), cache, logger)
	if err := run(ctx, tr, cfg.TrackerSweepInterval, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

type sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

func run(ctx context.Context, tr sweeper, every time.Duration, logger infra.Logger) error {
	if every <= 0 {
		every = 30 * time.Second
	}
	logger.Info().Dur("interval", every).Msg("worker: started")

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if _, err := tr.Sweep(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error().Err(err).Msg("worker: sweep failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
