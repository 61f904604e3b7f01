package domain

import (
	"strings"
	"time"
)

// JobStatus enumerates the observed lifecycle of an external generation job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusAborted   JobStatus = "ABORTED"
	JobStatusCanceled  JobStatus = "CANCELED"
	JobStatusTimedOut  JobStatus = "TIMED_OUT"
)

// Terminal reports whether no further transition can happen on the renderer side.
// TimedOut is a local observation and is not terminal.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusAborted, JobStatusCanceled:
		return true
	default:
		return false
	}
}

// ParseJobStatus maps a renderer status string onto a JobStatus. Unknown
// values are reported as running so callers keep polling.
func ParseJobStatus(raw string) JobStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PENDING", "THROTTLED", "QUEUED":
		return JobStatusPending
	case "RUNNING", "PROCESSING":
		return JobStatusRunning
	case "SUCCEEDED", "SUCCESS", "COMPLETED":
		return JobStatusSucceeded
	case "FAILED", "ERROR":
		return JobStatusFailed
	case "ABORTED":
		return JobStatusAborted
	case "CANCELED", "CANCELLED":
		return JobStatusCanceled
	case "TIMED_OUT":
		return JobStatusTimedOut
	default:
		return JobStatusRunning
	}
}

// GenerationJob is the locally cached view of an asynchronous render. The
// renderer is the system of record; Status is the last observed value.
type GenerationJob struct {
	ExternalID      string
	AccountID       int64
	Prompt          string
	DurationSeconds int
	AspectRatio     string
	Cost            int64
	Status          JobStatus
	ResultURL       string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PolledAt        *time.Time
}

// JobUpdate carries an observed status change for persistence.
type JobUpdate struct {
	ExternalID   string
	Status       JobStatus
	ResultURL    string
	ErrorMessage string
	ObservedAt   time.Time
}
