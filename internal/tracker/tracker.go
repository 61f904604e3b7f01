// Package tracker follows submitted generation jobs to a terminal state and
// records every observation in the job repository and cache.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"mrwiat/internal/domain"
	"mrwiat/internal/infra"
	"mrwiat/internal/jobcache"
	"mrwiat/internal/providers/video"
)

// Renderer is the part of the video client the tracker needs.
type Renderer interface {
	PollOnce(ctx context.Context, taskID string) (video.Snapshot, error)
	AwaitTerminal(ctx context.Context, taskID string, maxWait, interval time.Duration) (video.AwaitResult, error)
}

type Deps struct {
	Renderer Renderer
	Jobs     domain.JobRepository
	Cache    jobcache.Cache
	Logger   *infra.Logger

	MaxWait      time.Duration
	PollInterval time.Duration
	// StaleAfter is how long an open job may go unpolled before Sweep claims it.
	StaleAfter time.Duration
	BatchSize  int
	Now        func() time.Time
}

type Tracker struct {
	ctx      context.Context
	renderer Renderer
	jobs     domain.JobRepository
	cache    jobcache.Cache
	logger   infra.Logger

	maxWait    time.Duration
	interval   time.Duration
	staleAfter time.Duration
	batchSize  int
	now        func() time.Time

	wg sync.WaitGroup
}

// New builds a tracker whose background waits stop when ctx is cancelled.
func New(ctx context.Context, deps Deps) *Tracker {
	logger := deps.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	cache := deps.Cache
	if cache == nil {
		cache = jobcache.Noop{}
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	t := &Tracker{
		ctx:        ctx,
		renderer:   deps.Renderer,
		jobs:       deps.Jobs,
		cache:      cache,
		logger:     infra.WithComponent(*logger, "tracker"),
		maxWait:    deps.MaxWait,
		interval:   deps.PollInterval,
		staleAfter: deps.StaleAfter,
		batchSize:  deps.BatchSize,
		now:        now,
	}
	if t.maxWait <= 0 {
		t.maxWait = 60 * time.Second
	}
	if t.interval <= 0 {
		t.interval = 6 * time.Second
	}
	if t.staleAfter <= 0 {
		t.staleAfter = t.maxWait
	}
	if t.batchSize <= 0 {
		t.batchSize = 20
	}
	return t
}

// Track waits for job in the background. It returns immediately.
func (t *Tracker) Track(job domain.GenerationJob) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.follow(job)
	}()
}

// Wait blocks until every tracked job has finished or given up.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

func (t *Tracker) follow(job domain.GenerationJob) {
	log := t.logger.With().Str("job_id", job.ExternalID).Int64("account_id", job.AccountID).Logger()

	res, err := t.renderer.AwaitTerminal(t.ctx, job.ExternalID, t.maxWait, t.interval)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Info().Msg("tracking stopped, sweep will resume")
			return
		}
		log.Warn().Err(err).Msg("status endpoint failed, job left for sweep")
		return
	}

	snap := res.Snapshot
	if res.TimedOut {
		snap.Status = domain.JobStatusTimedOut
		log.Info().Str("last_status", string(res.Snapshot.Status)).Msg("wait elapsed, job may still complete")
	}
	// Persisting must outlive a shutdown that races the final poll.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(t.ctx), 5*time.Second)
	defer cancel()
	if _, err := t.apply(ctx, job, snap); err != nil {
		log.Error().Err(err).Msg("persist job outcome")
	}
}

// Sweep claims open jobs that have not been polled recently and polls each
// once. It returns how many jobs were updated.
func (t *Tracker) Sweep(ctx context.Context) (int, error) {
	claimed, err := t.jobs.ClaimStale(ctx, t.now().Add(-t.staleAfter), t.batchSize)
	if err != nil {
		return 0, domain.StorageError("claim stale jobs", err)
	}
	updated := 0
	for _, job := range claimed {
		if ctx.Err() != nil {
			return updated, ctx.Err()
		}
		snap, err := t.renderer.PollOnce(ctx, job.ExternalID)
		if err != nil {
			t.logger.Warn().Err(err).Str("job_id", job.ExternalID).Msg("sweep poll failed")
			continue
		}
		if _, err := t.apply(ctx, job, snap); err != nil {
			t.logger.Error().Err(err).Str("job_id", job.ExternalID).Msg("sweep persist failed")
			continue
		}
		updated++
	}
	if len(claimed) > 0 {
		t.logger.Info().Int("claimed", len(claimed)).Int("updated", updated).Msg("sweep finished")
	}
	return updated, nil
}

// Refresh returns the freshest known state of a job, polling the renderer
// when the stored status is not terminal. On a poll failure it returns the
// stored job together with the *domain.PollError.
func (t *Tracker) Refresh(ctx context.Context, externalID string) (*domain.GenerationJob, error) {
	if cached, err := t.cache.Get(ctx, externalID); err == nil && cached.Status.Terminal() {
		return cached, nil
	}

	job, err := t.jobs.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, domain.StorageError("load job", err)
	}
	if job.Status.Terminal() {
		t.putCache(ctx, *job)
		return job, nil
	}

	snap, err := t.renderer.PollOnce(ctx, externalID)
	if err != nil {
		var pollErr *domain.PollError
		if errors.As(err, &pollErr) && pollErr.LastStatus == "" {
			pollErr.LastStatus = job.Status
		}
		return job, err
	}
	return t.apply(ctx, *job, snap)
}

func (t *Tracker) apply(ctx context.Context, job domain.GenerationJob, snap video.Snapshot) (*domain.GenerationJob, error) {
	observed := t.now()
	update := domain.JobUpdate{
		ExternalID: job.ExternalID,
		Status:     snap.Status,
		ResultURL:  snap.ResultURL,
		ObservedAt: observed,
	}
	if snap.Status == domain.JobStatusFailed || snap.Status == domain.JobStatusAborted || snap.Status == domain.JobStatusCanceled {
		update.ErrorMessage = snap.Failure
	}
	if err := t.jobs.UpdateStatus(ctx, update); err != nil {
		if errors.Is(err, domain.ErrJobTerminal) {
			return t.stored(ctx, job.ExternalID)
		}
		return nil, domain.StorageError("update job", err)
	}

	job.Status = update.Status
	if update.ResultURL != "" {
		job.ResultURL = update.ResultURL
	}
	if update.ErrorMessage != "" {
		job.ErrorMessage = update.ErrorMessage
	}
	job.PolledAt = &observed
	job.UpdatedAt = observed
	t.putCache(ctx, job)
	return &job, nil
}

// stored reloads a job another writer already finished and caches that
// outcome in place of the late observation.
func (t *Tracker) stored(ctx context.Context, externalID string) (*domain.GenerationJob, error) {
	job, err := t.jobs.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, domain.StorageError("reload job", err)
	}
	t.putCache(ctx, *job)
	return job, nil
}

func (t *Tracker) putCache(ctx context.Context, job domain.GenerationJob) {
	if err := t.cache.Put(ctx, job); err != nil {
		t.logger.Warn().Err(err).Str("job_id", job.ExternalID).Msg("job cache put failed")
	}
}
