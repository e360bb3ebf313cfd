package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hatch/messaging/internal/models"
)

// State is a node in the per-delivery state machine:
// Pending → Sending → {Succeeded, RateLimited, Failed, RetriesExhausted}.
type State int

const (
	StatePending State = iota
	StateSending
	StateSucceeded
	StateRateLimited
	StateFailed
	StateRetriesExhausted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSending:
		return "sending"
	case StateSucceeded:
		return "succeeded"
	case StateRateLimited:
		return "rate_limited"
	case StateFailed:
		return "failed"
	case StateRetriesExhausted:
		return "retries_exhausted"
	}
	return "unknown"
}

// MaxAttempts bounds delivery attempts per message. Rate limits and generic
// failures share the one counter, so a rate-limit storm cannot retry forever.
const MaxAttempts = 5

// rateLimitFallback applies when a 429 carries a Retry-After we cannot read
// as seconds, e.g. an HTTP-date.
const rateLimitFallback = 60 * time.Second

// Result reports one delivery attempt. Delay is the reschedule delay and is
// only meaningful for StateRateLimited and StateFailed.
type Result struct {
	State    State
	Delay    time.Duration
	Response json.RawMessage
	Err      error
}

// SuccessEnvelope is what a completed delivery reports to the job log.
type SuccessEnvelope struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// Envelope wraps the provider's response for the job log.
func (r Result) Envelope() SuccessEnvelope {
	return SuccessEnvelope{Status: "success", Response: r.Response}
}

// Task delivers one message to one provider endpoint per invocation. It is
// stateless between invocations; the attempt counter travels in the job
// envelope.
type Task struct {
	client *http.Client
}

func NewTask() *Task {
	return &Task{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Deliver POSTs the payload to the provider endpoint and interprets the
// response. 2xx succeeds. 429 reschedules after the provider's Retry-After
// when it is numeric, a fixed fallback when it is not, or exponential
// backoff when absent. Any other status, and any transport fault including
// timeouts, is a generic failure with exponential backoff.
func (t *Task) Deliver(ctx context.Context, job models.DispatchJob) Result {
	body, err := json.Marshal(job.Payload)
	if err != nil {
		return failed(job.Attempt, fmt.Errorf("failed to encode payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.ProviderURL, bytes.NewReader(body))
	if err != nil {
		return failed(job.Attempt, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return failed(job.Attempt, fmt.Errorf("provider request failed: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return Result{
			State: StateRateLimited,
			Delay: retryAfter(resp.Header.Get("Retry-After"), job.Attempt),
			Err:   fmt.Errorf("provider rate limited (429)"),
		}
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return failed(job.Attempt, fmt.Errorf("failed to read provider response: %w", err))
		}
		return Result{State: StateSucceeded, Response: raw}
	default:
		raw, _ := io.ReadAll(resp.Body)
		return failed(job.Attempt, fmt.Errorf("provider failed with status %d: %s", resp.StatusCode, raw))
	}
}

func failed(attempt int, err error) Result {
	return Result{State: StateFailed, Delay: Backoff(attempt), Err: err}
}

// Backoff is the exponential retry delay: 2^attempt seconds.
func Backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// retryAfter interprets a Retry-After header: numeric seconds are used
// verbatim, anything else (an HTTP-date) falls back to a fixed delay, and a
// missing header falls back to exponential backoff.
func retryAfter(header string, attempt int) time.Duration {
	if header == "" {
		return Backoff(attempt)
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return rateLimitFallback
}

// Next folds an attempt outcome into the follow-up state under the bounded
// attempt ceiling. attempt is the counter of the attempt that produced r;
// the ceiling applies uniformly to rate limits and failures.
func Next(r Result, attempt int) State {
	switch r.State {
	case StateRateLimited, StateFailed:
		if attempt+1 >= MaxAttempts {
			return StateRetriesExhausted
		}
	}
	return r.State
}
