package session

import (
	"context"
	"errors"
)

var (
	// ErrProvider wraps any failure talking to the provider
	ErrProvider = errors.New("provider communication error")
	// ErrExecutionFailed is returned when a job ends failed, cancelled or expired
	ErrExecutionFailed = errors.New("execution failed")
	// ErrTimeout is returned when a job does not finish inside the wait window
	ErrTimeout = errors.New("execution timed out")
	// ErrMalformedResponse is returned when a completed job did not yield the expected turns
	ErrMalformedResponse = errors.New("malformed assistant response")
)

// Status is the normalized state of an execution job
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Terminal reports whether no further polling can change the status
func (s Status) Terminal() bool {
	return s != StatusRunning
}

// Role of a message inside a session transcript
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry
type Message struct {
	ID      string
	Role    Role
	Content string
}

// Usage is the token accounting of one job
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// JobState is the result of a single poll
type JobState struct {
	Status Status
	Usage  *Usage
}

// Provider is a stateful AI execution service. Sessions hold the transcript,
// jobs generate the next assistant turn asynchronously.
type Provider interface {
	OpenSession(ctx context.Context) (string, error)
	CloseSession(ctx context.Context, sessionID string) error
	SubmitTurn(ctx context.Context, sessionID, text string) (string, error)
	StartExecution(ctx context.Context, sessionID, profileID string) (string, error)
	PollJob(ctx context.Context, sessionID, jobID string) (*JobState, error)
	// FetchMessages returns up to limit messages, most recent first
	FetchMessages(ctx context.Context, sessionID string, limit int) ([]Message, error)
}
