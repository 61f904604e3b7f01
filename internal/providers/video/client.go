// Package video talks to the external asynchronous video renderer: submit a
// text-to-video task, poll it, and wait a bounded time for a terminal state.
package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mrwiat/internal/domain"
	"mrwiat/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("video: api key is required")

// Options configures the renderer client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	APIVersion     string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the renderer's task API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	apiVersion string
	httpClient *http.Client
	logger     *infra.Logger
}

// SubmitRequest is what a caller asks for before quantization.
type SubmitRequest struct {
	Prompt          string
	DurationSeconds int
	AspectRatio     string
}

// JobHandle identifies a submitted task and the parameters actually sent.
type JobHandle struct {
	ID              string
	DurationSeconds int
	Ratio           string
}

// Snapshot is one observation of a task.
type Snapshot struct {
	Status    domain.JobStatus
	RawStatus string
	Failure   string
	Payload   json.RawMessage
	// ResultURL is set only for succeeded tasks whose payload carries a locator.
	ResultURL string
}

// AwaitResult is the outcome of AwaitTerminal. When TimedOut is true the
// task was still open at the deadline and Snapshot holds the last status.
type AwaitResult struct {
	Snapshot Snapshot
	TimedOut bool
	Polls    int
	Elapsed  time.Duration
}

type submitPayload struct {
	Model      string `json:"model"`
	PromptText string `json:"promptText"`
	Ratio      string `json:"ratio"`
	Audio      bool   `json:"audio"`
	Duration   int    `json:"duration"`
}

type submitResponse struct {
	ID string `json:"id"`
}

type statusResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Failure     string `json:"failure"`
	FailureCode string `json:"failureCode"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.dev.runwayml.com"
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("video: invalid base url: %w", err)
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "veo3.1_fast"
	}
	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "2024-11-06"
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		apiVersion: apiVersion,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Submit quantizes the duration, maps the aspect ratio and creates the task.
// Every failure wraps domain.ErrSubmissionFailed.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (JobHandle, error) {
	if !c.HasCredentials() {
		return JobHandle{}, fmt.Errorf("%w: %w", domain.ErrSubmissionFailed, ErrMissingAPIKey)
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return JobHandle{}, fmt.Errorf("%w: %w", domain.ErrSubmissionFailed, domain.ErrInvalidPrompt)
	}
	handle := JobHandle{
		DurationSeconds: QuantizeDuration(req.DurationSeconds),
		Ratio:           RendererRatio(req.AspectRatio),
	}
	body, err := json.Marshal(submitPayload{
		Model:      c.model,
		PromptText: prompt,
		Ratio:      handle.Ratio,
		Audio:      false,
		Duration:   handle.DurationSeconds,
	})
	if err != nil {
		return JobHandle{}, fmt.Errorf("%w: encode request: %w", domain.ErrSubmissionFailed, err)
	}

	raw, status, err := c.do(ctx, http.MethodPost, "/v1/text_to_video", body)
	if err != nil {
		return JobHandle{}, fmt.Errorf("%w: %w", domain.ErrSubmissionFailed, err)
	}
	if status >= 300 {
		return JobHandle{}, fmt.Errorf("%w: %s", domain.ErrSubmissionFailed, describeFailure(status, raw))
	}
	var decoded submitResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return JobHandle{}, fmt.Errorf("%w: decode response: %w", domain.ErrSubmissionFailed, err)
	}
	handle.ID = strings.TrimSpace(decoded.ID)
	if handle.ID == "" {
		return JobHandle{}, fmt.Errorf("%w: empty task id", domain.ErrSubmissionFailed)
	}
	c.logger.Info().
		Str("task_id", handle.ID).
		Str("model", c.model).
		Int("duration", handle.DurationSeconds).
		Str("ratio", handle.Ratio).
		Msg("video: task submitted")
	return handle, nil
}

// PollOnce fetches the task status once. Errors are *domain.PollError.
func (c *Client) PollOnce(ctx context.Context, taskID string) (Snapshot, error) {
	snap, err := c.fetch(ctx, taskID)
	if err != nil {
		return Snapshot{}, &domain.PollError{JobID: taskID, Err: err}
	}
	return snap, nil
}

// AwaitTerminal polls immediately and then every interval until the task
// reaches a terminal status or maxWait elapses. Elapsing is not an error: the
// result is marked TimedOut and carries the last observed status, and the
// remote task keeps running. A failed poll ends the wait at once with a
// *domain.PollError. Cancelling ctx returns ctx.Err().
func (c *Client) AwaitTerminal(ctx context.Context, taskID string, maxWait, interval time.Duration) (AwaitResult, error) {
	if interval <= 0 {
		return AwaitResult{}, errors.New("video: poll interval must be positive")
	}
	started := time.Now()
	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		last  Snapshot
		polls int
	)
	for {
		snap, err := c.fetch(ctx, taskID)
		polls++
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return AwaitResult{Snapshot: last, Polls: polls, Elapsed: time.Since(started)}, ctxErr
			}
			return AwaitResult{Snapshot: last, Polls: polls, Elapsed: time.Since(started)},
				&domain.PollError{JobID: taskID, LastStatus: last.Status, Err: err}
		}
		last = snap
		if snap.Status.Terminal() {
			c.logger.Info().Str("task_id", taskID).Str("status", string(snap.Status)).Int("polls", polls).Msg("video: task finished")
			return AwaitResult{Snapshot: snap, Polls: polls, Elapsed: time.Since(started)}, nil
		}

		select {
		case <-ctx.Done():
			return AwaitResult{Snapshot: last, Polls: polls, Elapsed: time.Since(started)}, ctx.Err()
		case <-deadline.C:
			c.logger.Warn().Str("task_id", taskID).Str("last_status", string(last.Status)).Msg("video: wait elapsed, task may still complete")
			return AwaitResult{Snapshot: last, TimedOut: true, Polls: polls, Elapsed: time.Since(started)}, nil
		case <-ticker.C:
		}
	}
}

func (c *Client) fetch(ctx context.Context, taskID string) (Snapshot, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return Snapshot{}, errors.New("video: task id is required")
	}
	raw, status, err := c.do(ctx, http.MethodGet, "/v1/tasks/"+url.PathEscape(taskID), nil)
	if err != nil {
		return Snapshot{}, err
	}
	if status >= 300 {
		return Snapshot{}, errors.New(describeFailure(status, raw))
	}
	var decoded statusResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Snapshot{}, fmt.Errorf("video: decode status: %w", err)
	}
	snap := Snapshot{
		Status:    domain.ParseJobStatus(decoded.Status),
		RawStatus: decoded.Status,
		Failure:   strings.TrimSpace(decoded.Failure),
		Payload:   json.RawMessage(raw),
	}
	if snap.Failure == "" {
		snap.Failure = strings.TrimSpace(decoded.FailureCode)
	}
	if snap.Status == domain.JobStatusSucceeded {
		if u, ok := ExtractResultURL(raw); ok {
			snap.ResultURL = u
		} else {
			c.logger.Warn().Str("task_id", taskID).Msg("video: succeeded without a resolvable result url")
		}
	}
	c.logger.Debug().Str("task_id", taskID).Str("status", decoded.Status).Msg("video: polled task")
	return snap, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("video: build request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("X-Runway-Version", c.apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("video: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("video: read response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

func describeFailure(status int, raw []byte) string {
	var detail errorResponse
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Error != "" {
		return fmt.Sprintf("video: status %d: %s", status, detail.Error)
	}
	return fmt.Sprintf("video: status %d: %s", status, strings.TrimSpace(string(raw)))
}
