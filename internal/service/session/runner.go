package session

import (
	"context"
	"fmt"
	"time"

	"medmind-api/internal/config"
	"medmind-api/internal/logger"

	"github.com/sirupsen/logrus"
)

// Result is the outcome of a completed job
type Result struct {
	JobID string
	// Messages are most recent first: the assistant reply, then the submitted user turn
	Messages []Message
	Usage    Usage
}

// Runner drives a Provider through a full turn: submit, execute, poll to completion
type Runner struct {
	provider     Provider
	pollInterval time.Duration
	timeout      time.Duration
	fetchLimit   int
}

// NewRunner creates a Runner using the configured poll interval and wait window
func NewRunner(provider Provider, cfg config.ExecutionConfig) *Runner {
	r := &Runner{
		provider:     provider,
		pollInterval: cfg.PollInterval,
		timeout:      cfg.Timeout,
		fetchLimit:   cfg.FetchLimit,
	}
	if r.pollInterval <= 0 {
		r.pollInterval = time.Second
	}
	if r.timeout <= 0 {
		r.timeout = 60 * time.Second
	}
	if r.fetchLimit < 2 {
		r.fetchLimit = 10
	}
	return r
}

// OpenSession creates a new provider session
func (r *Runner) OpenSession(ctx context.Context) (string, error) {
	return r.provider.OpenSession(ctx)
}

// CloseSession closes a session; failures are logged and never returned
func (r *Runner) CloseSession(ctx context.Context, sessionID string) {
	if err := r.provider.CloseSession(ctx, sessionID); err != nil {
		logger.Log.WithError(err).WithField("session_id", sessionID).Warn("Could not close provider session, it may already be gone")
	}
}

// Exchange submits text as a user turn, runs the assistant profile and waits for the reply
func (r *Runner) Exchange(ctx context.Context, sessionID, profileID, text string) (*Result, error) {
	if _, err := r.provider.SubmitTurn(ctx, sessionID, text); err != nil {
		return nil, err
	}

	jobID, err := r.provider.StartExecution(ctx, sessionID, profileID)
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{"session_id": sessionID, "job_id": jobID}).Debug("Started execution")

	return r.WaitForCompletion(ctx, sessionID, jobID)
}

// WaitForCompletion polls jobID every poll interval until it reaches a terminal status,
// the wait window elapses, or ctx is cancelled.
func (r *Runner) WaitForCompletion(ctx context.Context, sessionID, jobID string) (*Result, error) {
	waitCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	started := time.Now()
	for attempt := 1; ; attempt++ {
		state, err := r.provider.PollJob(waitCtx, sessionID, jobID)
		if err != nil {
			if waitErr := r.waitError(ctx, waitCtx); waitErr != nil {
				return nil, waitErr
			}
			return nil, err
		}

		if state.Status == StatusCompleted {
			logger.Log.WithFields(logrus.Fields{
				"session_id": sessionID,
				"job_id":     jobID,
				"polls":      attempt,
				"elapsed_ms": time.Since(started).Milliseconds(),
			}).Debug("Execution completed")
			return r.collect(ctx, sessionID, jobID, state)
		}
		if state.Status.Terminal() {
			return nil, fmt.Errorf("%w: %s", ErrExecutionFailed, state.Status)
		}

		select {
		case <-waitCtx.Done():
			return nil, r.waitError(ctx, waitCtx)
		case <-ticker.C:
		}
	}
}

// waitError distinguishes caller cancellation from the wait window running out
func (r *Runner) waitError(ctx, waitCtx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if waitCtx.Err() != nil {
		return fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
	}
	return nil
}

func (r *Runner) collect(ctx context.Context, sessionID, jobID string, state *JobState) (*Result, error) {
	messages, err := r.provider.FetchMessages(ctx, sessionID, r.fetchLimit)
	if err != nil {
		return nil, err
	}

	result := &Result{JobID: jobID, Messages: messages}
	if state.Usage != nil {
		result.Usage = *state.Usage
	} else {
		logger.Log.WithFields(logrus.Fields{"session_id": sessionID, "job_id": jobID}).Warn("Completed job reported no usage")
	}
	return result, nil
}
