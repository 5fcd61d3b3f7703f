// Package executor defines the boundary between the orchestrator and the
// outbound channel that actually performs outreach actions. The engine ships
// a dry-run executor; a production deployment plugs in a real channel behind
// the same interface.
package executor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/outreach-agent/internal/types"
)

// ActionRequest is one dispatch handed to an executor.
type ActionRequest struct {
	CandidateID uuid.UUID
	CampaignID  uuid.UUID
	StageIndex  int
	ActionType  types.ActionType
	Content     string
}

// Outcome is the executor's verdict on one dispatch. A failed outcome with
// TimedOut set means the action's fate is unknown, not that it was rejected.
type Outcome struct {
	Success  bool
	TimedOut bool
	Error    string
	Duration time.Duration
}

// Executor performs one outreach action. Implementations must honor ctx
// cancellation and must not retry internally; retries are the orchestrator's
// responsibility.
type Executor interface {
	Execute(ctx context.Context, req ActionRequest) Outcome
}

// Func adapts a function to the Executor interface.
type Func func(ctx context.Context, req ActionRequest) Outcome

// Execute calls f.
func (f Func) Execute(ctx context.Context, req ActionRequest) Outcome {
	return f(ctx, req)
}

// DryRun is an executor that performs nothing and reports success after an
// optional simulated latency. It backs tests and the CLI's dry-run mode.
type DryRun struct {
	Latency time.Duration
	// Fail, when set, decides per-request whether the dry run reports failure.
	Fail func(req ActionRequest) bool
}

// Execute simulates a dispatch.
func (d *DryRun) Execute(ctx context.Context, req ActionRequest) Outcome {
	start := time.Now()
	if d.Latency > 0 {
		select {
		case <-time.After(d.Latency):
		case <-ctx.Done():
			return Outcome{TimedOut: true, Error: ctx.Err().Error(), Duration: time.Since(start)}
		}
	}
	if d.Fail != nil && d.Fail(req) {
		return Outcome{Error: "dry-run failure", Duration: time.Since(start)}
	}
	return Outcome{Success: true, Duration: time.Since(start)}
}

// WithTimeout wraps an executor so each dispatch runs under a deadline. A
// dispatch that outlives the deadline yields a timed-out outcome; the wrapped
// executor's eventual result is discarded.
func WithTimeout(inner Executor, timeout time.Duration) Executor {
	return Func(func(ctx context.Context, req ActionRequest) Outcome {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		start := time.Now()
		done := make(chan Outcome, 1)
		go func() {
			done <- inner.Execute(ctx, req)
		}()
		select {
		case out := <-done:
			return out
		case <-ctx.Done():
			return Outcome{TimedOut: true, Error: "dispatch timed out after " + timeout.String(), Duration: time.Since(start)}
		}
	})
}
