package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"mrwiat/internal/domain"
	"mrwiat/internal/infra"
	"mrwiat/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.GenerationJob) error {
	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.sql.Exec(ctx, sqlinline.QJobInsert,
		job.ExternalID,
		job.AccountID,
		job.Prompt,
		job.DurationSeconds,
		job.AspectRatio,
		job.Cost,
		string(job.Status),
		job.ResultURL,
		job.ErrorMessage,
		createdAt,
	)
	return err
}

// UpdateStatus records the last observed status. Empty result/error values
// keep what was stored before. A job that is already terminal is left alone
// and domain.ErrJobTerminal is returned.
func (r *JobRepositoryPG) UpdateStatus(ctx context.Context, update domain.JobUpdate) error {
	observed := update.ObservedAt
	if observed.IsZero() {
		observed = time.Now().UTC()
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QJobUpdateStatus,
		update.ExternalID,
		string(update.Status),
		update.ResultURL,
		update.ErrorMessage,
		observed,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.noUpdate(ctx, update.ExternalID)
	}
	return nil
}

// noUpdate explains an update that touched no row.
func (r *JobRepositoryPG) noUpdate(ctx context.Context, externalID string) error {
	var status string
	if err := r.sql.QueryRow(ctx, sqlinline.QJobStatus, externalID).Scan(&status); err != nil {
		if infra.IsNoRows(err) {
			return domain.ErrNotFound
		}
		return err
	}
	return domain.ErrJobTerminal
}

// GetByExternalID fetches a job by the renderer's identifier.
func (r *JobRepositoryPG) GetByExternalID(ctx context.Context, externalID string) (*domain.GenerationJob, error) {
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QJobGetByExternalID, externalID))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ClaimStale leases up to limit open jobs not polled since olderThan.
func (r *JobRepositoryPG) ClaimStale(ctx context.Context, olderThan time.Time, limit int) ([]domain.GenerationJob, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QJobClaimStale, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func scanJob(row pgx.Row) (*domain.GenerationJob, error) {
	var (
		job    domain.GenerationJob
		status string
	)
	if err := row.Scan(
		&job.ExternalID,
		&job.AccountID,
		&job.Prompt,
		&job.DurationSeconds,
		&job.AspectRatio,
		&job.Cost,
		&status,
		&job.ResultURL,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.PolledAt,
	); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
