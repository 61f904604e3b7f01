package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"mrwiat/internal/billing"
	"mrwiat/internal/domain"
	"mrwiat/internal/infra"
	"mrwiat/internal/middleware"
)

type Balances interface {
	GetBalance(ctx context.Context, accountID int64) (int64, error)
}

type Redeemer interface {
	Redeem(ctx context.Context, code string, accountID int64) (domain.Redemption, error)
}

type Generator interface {
	ChargeAndGenerate(ctx context.Context, req billing.Request) (billing.Started, error)
	Prices() billing.PriceTable
}

type JobStatuses interface {
	Refresh(ctx context.Context, externalID string) (*domain.GenerationJob, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// App holds the services the HTTP handlers delegate to.
type App struct {
	Wallet  Balances
	Redeem  Redeemer
	Billing Generator
	Jobs    JobStatuses
	Store   Pinger
	Logger  infra.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, detail string) {
	a.json(w, code, map[string]string{"error": kind, "detail": detail})
}

func (a *App) accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
	}
	return id, ok
}

// fail maps a domain outcome onto an HTTP response.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		funds  *domain.InsufficientFundsError
		submit *domain.SubmissionError
		record *domain.RecordError
	)
	switch {
	case errors.As(err, &funds):
		a.json(w, http.StatusPaymentRequired, map[string]any{
			"error":     "insufficient_funds",
			"required":  funds.Required,
			"balance":   funds.Balance,
			"shortfall": funds.Shortfall(),
		})
	case errors.As(err, &submit):
		a.json(w, http.StatusBadGateway, map[string]any{
			"error":    "submission_failed",
			"cost":     submit.Cost,
			"refunded": submit.Refunded,
		})
	case errors.As(err, &record):
		a.Logger.Error().Err(err).Str("job_id", record.JobID).Int64("account_id", record.AccountID).Msg("job not recorded")
		a.json(w, http.StatusInternalServerError, map[string]any{
			"error":  "job_not_recorded",
			"job_id": record.JobID,
			"cost":   record.Cost,
			"detail": "the video was submitted but could not be saved; quote job_id to support",
		})
	case errors.Is(err, domain.ErrInvalidPrompt), errors.Is(err, domain.ErrInvalidAmount):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrVoucherNotFound):
		a.error(w, http.StatusNotFound, "voucher_not_found", "voucher code not recognised")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, domain.ErrAlreadyRedeemed):
		a.error(w, http.StatusConflict, "already_redeemed", "voucher has already been used")
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
	case errors.Is(err, domain.ErrPollFailed):
		a.error(w, http.StatusBadGateway, "poll_failed", "renderer status unavailable")
	case errors.Is(err, domain.ErrStorageUnavailable):
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("storage unavailable")
		a.error(w, http.StatusServiceUnavailable, "storage_unavailable", "try again later")
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
