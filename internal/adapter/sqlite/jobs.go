package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mrwiat/internal/domain"
)

const jobColumns = `external_id, account_id, prompt, duration_seconds, aspect_ratio, cost, status, result_url, error_message, created_at, updated_at, polled_at`

type jobs struct {
	s *Store
}

func (j *jobs) Create(ctx context.Context, job *domain.GenerationJob) error {
	return j.s.inTx(ctx, "create_job", func(tx *sql.Tx) error {
		now := j.s.now()
		created := job.CreatedAt
		if created.IsZero() {
			created = now
		}
		if err := ensureAccount(ctx, tx, job.AccountID, now); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO generation_jobs (external_id, account_id, prompt, duration_seconds, aspect_ratio, cost, status, result_url, error_message, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			job.ExternalID, job.AccountID, job.Prompt, job.DurationSeconds, job.AspectRatio, job.Cost,
			string(job.Status), job.ResultURL, job.ErrorMessage, created.UTC(), created.UTC())
		return err
	})
}

func (j *jobs) GetByExternalID(ctx context.Context, externalID string) (*domain.GenerationJob, error) {
	job, err := scanJob(j.s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM generation_jobs WHERE external_id = ?`, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (j *jobs) UpdateStatus(ctx context.Context, update domain.JobUpdate) error {
	observed := update.ObservedAt
	if observed.IsZero() {
		observed = j.s.now()
	}
	return j.s.inTx(ctx, "update_job", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE generation_jobs
SET status = ?,
    result_url = COALESCE(NULLIF(?, ''), result_url),
    error_message = COALESCE(NULLIF(?, ''), error_message),
    polled_at = ?,
    updated_at = ?
WHERE external_id = ?
  AND status NOT IN ('SUCCEEDED', 'FAILED', 'ABORTED', 'CANCELED')`,
			string(update.Status), update.ResultURL, update.ErrorMessage, observed.UTC(), j.s.now(), update.ExternalID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
		var status string
		err = tx.QueryRowContext(ctx, `SELECT status FROM generation_jobs WHERE external_id = ?`, update.ExternalID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		return domain.ErrJobTerminal
	})
}

func (j *jobs) ClaimStale(ctx context.Context, olderThan time.Time, limit int) ([]domain.GenerationJob, error) {
	var claimed []domain.GenerationJob
	err := j.s.inTx(ctx, "claim_stale", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
SELECT `+jobColumns+`
FROM generation_jobs
WHERE status NOT IN ('SUCCEEDED', 'FAILED', 'ABORTED', 'CANCELED')
  AND (polled_at IS NULL OR polled_at < ?)
ORDER BY COALESCE(polled_at, created_at) ASC
LIMIT ?`, olderThan.UTC(), limit)
		if err != nil {
			return err
		}
		for rows.Next() {
			job, err := scanJob(rows)
			if err != nil {
				rows.Close()
				return err
			}
			claimed = append(claimed, *job)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return err
		}

		now := j.s.now()
		for i := range claimed {
			if _, err := tx.ExecContext(ctx,
				`UPDATE generation_jobs SET polled_at = ? WHERE external_id = ?`, now, claimed[i].ExternalID); err != nil {
				return err
			}
			leased := now
			claimed[i].PolledAt = &leased
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*domain.GenerationJob, error) {
	var (
		job      domain.GenerationJob
		status   string
		polledAt sql.NullTime
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
		&polledAt,
	); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	if polledAt.Valid {
		t := polledAt.Time
		job.PolledAt = &t
	}
	return &job, nil
}
