package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"mrwiat/internal/billing"
	"mrwiat/internal/domain"

	"github.com/go-chi/chi/v5"
)

type videoGenerateRequest struct {
	Prompt      string `json:"prompt"`
	Duration    int    `json:"duration"`
	AspectRatio string `json:"aspect_ratio"`
}

type jobResponse struct {
	JobID       string     `json:"job_id"`
	Status      string     `json:"status"`
	ResultURL   string     `json:"result_url,omitempty"`
	Error       string     `json:"error,omitempty"`
	Duration    int        `json:"duration"`
	AspectRatio string     `json:"aspect_ratio"`
	Cost        int64      `json:"cost"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PolledAt    *time.Time `json:"polled_at,omitempty"`
	Note        string     `json:"note,omitempty"`
}

const stillRunningNote = "the video may still complete; check again later"

func (a *App) VideosGenerate(w http.ResponseWriter, r *http.Request) {
	accountID, ok := a.accountID(w, r)
	if !ok {
		return
	}
	var req videoGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	started, err := a.Billing.ChargeAndGenerate(r.Context(), billing.Request{
		AccountID:       accountID,
		Prompt:          req.Prompt,
		DurationSeconds: req.Duration,
		AspectRatio:     req.AspectRatio,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{
		"job_id":       started.Handle.ID,
		"status":       started.Job.Status,
		"cost":         started.Cost,
		"balance":      started.Balance,
		"duration":     started.Handle.DurationSeconds,
		"aspect_ratio": started.Handle.Ratio,
	})
}

func (a *App) VideoStatus(w http.ResponseWriter, r *http.Request) {
	accountID, ok := a.accountID(w, r)
	if !ok {
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}

	job, err := a.Jobs.Refresh(r.Context(), jobID)
	if job != nil && job.AccountID != accountID {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	var pollErr *domain.PollError
	if errors.As(err, &pollErr) && job != nil {
		a.json(w, http.StatusBadGateway, map[string]any{
			"error":       "poll_failed",
			"job_id":      job.ExternalID,
			"last_status": pollErr.LastStatus,
			"note":        stillRunningNote,
		})
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}

	resp := jobResponse{
		JobID:       job.ExternalID,
		Status:      string(job.Status),
		ResultURL:   job.ResultURL,
		Error:       job.ErrorMessage,
		Duration:    job.DurationSeconds,
		AspectRatio: job.AspectRatio,
		Cost:        job.Cost,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
		PolledAt:    job.PolledAt,
	}
	if !job.Status.Terminal() {
		resp.Note = stillRunningNote
	}
	a.json(w, http.StatusOK, resp)
}
