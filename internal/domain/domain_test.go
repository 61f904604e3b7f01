package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseJobStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want JobStatus
	}{
		{"PENDING", JobStatusPending},
		{"throttled", JobStatusPending},
		{" RUNNING ", JobStatusRunning},
		{"SUCCEEDED", JobStatusSucceeded},
		{"FAILED", JobStatusFailed},
		{"ABORTED", JobStatusAborted},
		{"CANCELED", JobStatusCanceled},
		{"CANCELLED", JobStatusCanceled},
		{"something-new", JobStatusRunning},
	}
	for _, tc := range tests {
		if got := ParseJobStatus(tc.raw); got != tc.want {
			t.Fatalf("ParseJobStatus(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestJobStatusTerminal(t *testing.T) {
	terminal := []JobStatus{JobStatusSucceeded, JobStatusFailed, JobStatusAborted, JobStatusCanceled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []JobStatus{JobStatusPending, JobStatusRunning, JobStatusTimedOut} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestInsufficientFundsError(t *testing.T) {
	err := error(&InsufficientFundsError{Required: 60, Balance: 40})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected errors.Is to match ErrInsufficientFunds")
	}
	var typed *InsufficientFundsError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &typed) {
		t.Fatalf("expected errors.As to find InsufficientFundsError")
	}
	if typed.Shortfall() != 20 {
		t.Fatalf("shortfall = %d, want 20", typed.Shortfall())
	}
}

func TestStorageErrorKeepsDomainSentinels(t *testing.T) {
	if err := StorageError("redeem", ErrAlreadyRedeemed); !errors.Is(err, ErrAlreadyRedeemed) || errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("domain sentinel should pass through, got %v", err)
	}
	cause := errors.New("connection refused")
	err := StorageError("debit", cause)
	if !errors.Is(err, ErrStorageUnavailable) || !errors.Is(err, cause) {
		t.Fatalf("expected storage unavailable wrapping cause, got %v", err)
	}
	if StorageError("noop", nil) != nil {
		t.Fatalf("nil error should stay nil")
	}
}

func TestPollErrorIs(t *testing.T) {
	err := &PollError{JobID: "job-1", LastStatus: JobStatusRunning, Err: errors.New("503")}
	if !errors.Is(err, ErrPollFailed) {
		t.Fatalf("expected ErrPollFailed")
	}
	if err.Error() != "poll job job-1 (last status RUNNING): 503" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
