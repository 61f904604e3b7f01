package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidPrompt      = errors.New("invalid prompt")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrVoucherNotFound    = errors.New("voucher not found")
	ErrAlreadyRedeemed    = errors.New("voucher already redeemed")
	ErrSubmissionFailed   = errors.New("submission failed")
	ErrPollFailed         = errors.New("poll failed")
	// ErrJobTerminal is returned when an update targets a job that already
	// reached a terminal status; the stored row is left as it was.
	ErrJobTerminal        = errors.New("job already terminal")
)

// StorageError converts an infrastructure failure into ErrStorageUnavailable
// while keeping the cause in the chain. Domain sentinels pass through untouched.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomainError(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

// IsDomainError reports whether err already belongs to the typed outcome taxonomy.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrNotFound,
		ErrUnauthorized,
		ErrInvalidAmount,
		ErrInvalidPrompt,
		ErrStorageUnavailable,
		ErrInsufficientFunds,
		ErrVoucherNotFound,
		ErrAlreadyRedeemed,
		ErrSubmissionFailed,
		ErrPollFailed,
		ErrJobTerminal,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// InsufficientFundsError is returned when a paid operation costs more than the balance.
type InsufficientFundsError struct {
	Required int64
	Balance  int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: need %d points, have %d (short by %d)", e.Required, e.Balance, e.Shortfall())
}

// Shortfall is the number of points missing for the operation.
func (e *InsufficientFundsError) Shortfall() int64 {
	if e.Balance >= e.Required {
		return 0
	}
	return e.Required - e.Balance
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// SubmissionError reports a renderer rejection after the account was charged.
type SubmissionError struct {
	AccountID int64
	Cost      int64
	Refunded  bool
	Err       error
}

func (e *SubmissionError) Error() string {
	if e.Refunded {
		return fmt.Sprintf("submission failed (cost %d refunded): %v", e.Cost, e.Err)
	}
	return fmt.Sprintf("submission failed (cost %d not refunded): %v", e.Cost, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

func (e *SubmissionError) Is(target error) bool {
	return target == ErrSubmissionFailed
}

// PollError reports an unreachable status endpoint together with the last known status.
type PollError struct {
	JobID      string
	LastStatus JobStatus
	Err        error
}

func (e *PollError) Error() string {
	if e.LastStatus != "" {
		return fmt.Sprintf("poll job %s (last status %s): %v", e.JobID, e.LastStatus, e.Err)
	}
	return fmt.Sprintf("poll job %s: %v", e.JobID, e.Err)
}

func (e *PollError) Unwrap() error { return e.Err }

func (e *PollError) Is(target error) bool {
	return target == ErrPollFailed
}

// RecordError reports a job that was charged and accepted by the renderer but
// could not be stored locally. JobID is what support needs to reconcile it.
type RecordError struct {
	JobID     string
	AccountID int64
	Cost      int64
	Err       error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record job %s for account %d (cost %d): %v", e.JobID, e.AccountID, e.Cost, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

func (e *RecordError) Is(target error) bool {
	return target == ErrStorageUnavailable
}
