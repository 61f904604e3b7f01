// Package billing charges an account and then starts a paid generation.
package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mrwiat/internal/domain"
	"mrwiat/internal/infra"
	"mrwiat/internal/providers/video"
)

const (
	maxPromptLength = 2000
	recordTimeout   = 5 * time.Second
)

type Wallet interface {
	Debit(ctx context.Context, accountID, amount int64) (domain.DebitResult, error)
	Credit(ctx context.Context, accountID, amount int64) (int64, error)
}

type Submitter interface {
	Submit(ctx context.Context, req video.SubmitRequest) (video.JobHandle, error)
}

type Tracker interface {
	Track(job domain.GenerationJob)
}

type Options struct {
	Prices PriceTable
	// RefundOnSubmitFailure credits the cost back when the renderer rejects
	// the request. Off by default: the debit stands.
	RefundOnSubmitFailure bool
	Logger                *infra.Logger
	Now                   func() time.Time
}

type Orchestrator struct {
	wallet    Wallet
	submitter Submitter
	jobs      domain.JobRepository
	tracker   Tracker
	prices    PriceTable
	refund    bool
	logger    infra.Logger
	now       func() time.Time
}

// Request is one paid generation.
type Request struct {
	AccountID       int64
	Prompt          string
	DurationSeconds int
	AspectRatio     string
}

// Started describes a submitted job and what it cost.
type Started struct {
	Handle  video.JobHandle
	Job     domain.GenerationJob
	Cost    int64
	Balance int64
}

func NewOrchestrator(wallet Wallet, submitter Submitter, jobs domain.JobRepository, tracker Tracker, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	prices := opts.Prices
	if len(prices.Tiers) == 0 && prices.Above == 0 {
		prices = DefaultPriceTable
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Orchestrator{
		wallet:    wallet,
		submitter: submitter,
		jobs:      jobs,
		tracker:   tracker,
		prices:    prices,
		refund:    opts.RefundOnSubmitFailure,
		logger:    infra.WithComponent(*logger, "billing"),
		now:       now,
	}
}

// Prices returns the active price table.
func (o *Orchestrator) Prices() PriceTable {
	return o.prices
}

// ChargeAndGenerate debits the cost of req and, only if that succeeds,
// submits the job and starts tracking it. Errors are
// *domain.InsufficientFundsError, *domain.SubmissionError,
// *domain.RecordError (returned with the populated Started), or wrap
// domain.ErrInvalidPrompt, domain.ErrInvalidAmount or
// domain.ErrStorageUnavailable.
func (o *Orchestrator) ChargeAndGenerate(ctx context.Context, req Request) (Started, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" || len([]rune(prompt)) > maxPromptLength {
		return Started{}, domain.ErrInvalidPrompt
	}
	if req.DurationSeconds <= 0 {
		return Started{}, fmt.Errorf("duration %d: %w", req.DurationSeconds, domain.ErrInvalidAmount)
	}

	cost := o.prices.Cost(req.DurationSeconds)
	log := o.logger.With().Int64("account_id", req.AccountID).Int64("cost", cost).Logger()

	debit, err := o.wallet.Debit(ctx, req.AccountID, cost)
	if err != nil {
		return Started{}, err
	}
	if !debit.OK {
		log.Info().Int64("balance", debit.Balance).Msg("insufficient funds")
		return Started{}, &domain.InsufficientFundsError{Required: cost, Balance: debit.Balance}
	}

	handle, err := o.submitter.Submit(ctx, video.SubmitRequest{
		Prompt:          prompt,
		DurationSeconds: req.DurationSeconds,
		AspectRatio:     req.AspectRatio,
	})
	if err != nil {
		subErr := &domain.SubmissionError{AccountID: req.AccountID, Cost: cost, Err: err}
		if o.refund {
			subErr.Refunded = o.compensate(ctx, req.AccountID, cost)
		}
		log.Warn().Err(err).Bool("refunded", subErr.Refunded).Msg("submission failed after debit")
		return Started{}, subErr
	}

	now := o.now()
	job := domain.GenerationJob{
		ExternalID:      handle.ID,
		AccountID:       req.AccountID,
		Prompt:          prompt,
		DurationSeconds: handle.DurationSeconds,
		AspectRatio:     handle.Ratio,
		Cost:            cost,
		Status:          domain.JobStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	started := Started{Handle: handle, Job: job, Cost: cost, Balance: debit.Balance}
	if err := o.record(ctx, &job); err != nil {
		log.Error().Err(err).Str("job_id", handle.ID).Msg("record job")
		return started, &domain.RecordError{JobID: handle.ID, AccountID: req.AccountID, Cost: cost, Err: err}
	}
	o.tracker.Track(job)

	log.Info().Str("job_id", handle.ID).Int64("balance", debit.Balance).Msg("generation started")
	return started, nil
}

// record stores a submitted job. The caller may already be gone, but the
// charge and the renderer task exist, so the write is detached from ctx.
func (o *Orchestrator) record(ctx context.Context, job *domain.GenerationJob) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	return o.jobs.Create(ctx, job)
}

func (o *Orchestrator) compensate(ctx context.Context, accountID, cost int64) bool {
	ctx = context.WithoutCancel(ctx)
	if _, err := o.wallet.Credit(ctx, accountID, cost); err != nil {
		o.logger.Error().Err(err).Int64("account_id", accountID).Int64("cost", cost).Msg("refund failed")
		return false
	}
	return true
}
