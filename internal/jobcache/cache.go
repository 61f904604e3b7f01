// Package jobcache keeps the last observed snapshot of generation jobs close
// to the API so status reads avoid both the database and the renderer.
package jobcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"mrwiat/internal/domain"
)

// ErrMiss is returned by Get when nothing is cached for the job.
var ErrMiss = errors.New("jobcache: miss")

type Cache interface {
	Get(ctx context.Context, externalID string) (*domain.GenerationJob, error)
	Put(ctx context.Context, job domain.GenerationJob) error
}

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func key(externalID string) string {
	return "genjob:" + externalID
}

func (c *RedisCache) Get(ctx context.Context, externalID string) (*domain.GenerationJob, error) {
	raw, err := c.rdb.Get(ctx, key(externalID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	var job domain.GenerationJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *RedisCache) Put(ctx context.Context, job domain.GenerationJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key(job.ExternalID), raw, c.ttl).Err()
}

// Noop is used when no Redis is configured; every Get misses.
type Noop struct{}

func (Noop) Get(context.Context, string) (*domain.GenerationJob, error) { return nil, ErrMiss }
func (Noop) Put(context.Context, domain.GenerationJob) error            { return nil }

// New returns a Redis-backed cache, or Noop when rdb is nil.
func New(rdb *redis.Client, ttl time.Duration) Cache {
	if rdb == nil {
		return Noop{}
	}
	return NewRedisCache(rdb, ttl)
}

var (
	_ Cache = (*RedisCache)(nil)
	_ Cache = Noop{}
)
