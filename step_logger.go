package hitl

import (
	"context"
	"time"
)

// StepLogEntry records one step invocation
type StepLogEntry struct {
	ID           string    `json:"id"`
	ThreadID     string    `json:"thread_id"`
	WorkflowName string    `json:"workflow_name"`
	Step         string    `json:"step"`
	Next         string    `json:"next,omitempty"`
	Update       State     `json:"update,omitempty"`
	Answer       *string   `json:"answer,omitempty"`
	Question     string    `json:"question,omitempty"`
	Error        string    `json:"error,omitempty"`
	StartTime    time.Time `json:"start_time"`
	Duration     float64   `json:"duration"`
}

// StepLogger defines a simple step history interface
type StepLogger interface {
	// LogStep records a step invocation, whether it succeeded, failed or
	// suspended
	LogStep(ctx context.Context, entry *StepLogEntry) error

	// GetStepHistory retrieves the step log for a thread
	GetStepHistory(ctx context.Context, threadID string) ([]*StepLogEntry, error)
}

// NewStepLogID returns a new unique step log entry ID
func NewStepLogID() string {
	return newID("step")
}
