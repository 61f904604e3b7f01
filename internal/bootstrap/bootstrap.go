// Package bootstrap assembles the store, renderer client and tracker from
// configuration for the api, worker and walletctl binaries.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"mrwiat/internal/adapter/repo"
	"mrwiat/internal/adapter/sqlite"
	"mrwiat/internal/domain"
	"mrwiat/internal/infra"
	"mrwiat/internal/infra/credentials"
	"mrwiat/internal/jobcache"
	"mrwiat/internal/providers/video"
	"mrwiat/internal/tracker"
)

// Backend is an opened store. Credentials is nil for SQLite, which has no
// token table.
type Backend struct {
	domain.Store
	Driver      string
	Credentials *credentials.Store
}

// OpenStore connects the configured backend and applies the schema.
func OpenStore(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*Backend, error) {
	var b *Backend
	switch cfg.StoreDriver {
	case infra.StoreDriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		b = &Backend{Store: store, Driver: cfg.StoreDriver}
	case infra.StoreDriverPostgres:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store := repo.NewStore(pool, logger)
		b = &Backend{Store: store, Driver: cfg.StoreDriver, Credentials: credentials.NewStore(store.Runner())}
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
	if err := b.Migrate(ctx); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("migrate %s: %w", b.Driver, err)
	}
	return b, nil
}

// RendererAPIKey prefers the environment and falls back to the stored key.
func RendererAPIKey(ctx context.Context, cfg *infra.Config, b *Backend, logger infra.Logger) string {
	if key := strings.TrimSpace(cfg.RendererAPIKey); key != "" {
		return key
	}
	if b == nil || b.Credentials == nil {
		return ""
	}
	key, err := b.Credentials.RendererAPIKey(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load renderer api key from store")
		return ""
	}
	return key
}

func NewRenderer(ctx context.Context, cfg *infra.Config, b *Backend, logger infra.Logger) (*video.Client, error) {
	client, err := video.NewClient(video.Options{
		APIKey:         RendererAPIKey(ctx, cfg, b, logger),
		BaseURL:        cfg.RendererBaseURL,
		Model:          cfg.RendererModel,
		APIVersion:     cfg.RendererAPIVersion,
		RequestTimeout: cfg.RendererTimeout,
		Logger:         &logger,
	})
	if err != nil {
		return nil, err
	}
	if !client.HasCredentials() {
		logger.Warn().Msg("renderer api key missing; video submissions will fail")
	}
	return client, nil
}

// NewJobCache returns a Redis cache when REDIS_URL is set and a no-op cache
// otherwise. The returned func closes the client.
func NewJobCache(ctx context.Context, cfg *infra.Config) (jobcache.Cache, func(), error) {
	rdb, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	if rdb == nil {
		return jobcache.Noop{}, func() {}, nil
	}
	return jobcache.New(rdb, cfg.JobCacheTTL), func() { _ = rdb.Close() }, nil
}

func NewTracker(ctx context.Context, cfg *infra.Config, renderer tracker.Renderer, jobs domain.JobRepository, cache jobcache.Cache, logger infra.Logger) *tracker.Tracker {
	return tracker.New(ctx, tracker.Deps{
		Renderer:     renderer,
		Jobs:         jobs,
		Cache:        cache,
		Logger:       &logger,
		MaxWait:      cfg.VideoMaxWait,
		PollInterval: cfg.VideoPollInterval,
		StaleAfter:   cfg.VideoMaxWait,
		BatchSize:    cfg.TrackerBatchSize,
	})
}
