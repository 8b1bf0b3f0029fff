package hitl

import (
	"context"
	"errors"
	"fmt"
)

// Error type constants for classification and matching
const (
	// ErrorTypeConfig indicates bad workflow wiring: a duplicate step name or
	// a reference to a step that was never registered. Not retryable.
	ErrorTypeConfig = "config_error"

	// ErrorTypeUpstream indicates the completion service failed or returned
	// nothing. The thread is left at its last good checkpoint, so calling
	// Run or Resume again re-attempts the same step.
	ErrorTypeUpstream = "upstream_error"

	// ErrorTypeState indicates a caller usage error, e.g. resuming a thread
	// that is not suspended, or a step missing a required state field.
	ErrorTypeState = "state_error"

	// ErrorTypeStepFailed is the default for step errors that carry no
	// classification of their own.
	ErrorTypeStepFailed = "step_failed"

	// ErrorTypeCheckpoint indicates the checkpointer could not load or save.
	ErrorTypeCheckpoint = "checkpoint_error"

	// ErrorTypeCanceled matches a canceled or expired context.
	ErrorTypeCanceled = "canceled"
)

// WorkflowError represents a structured error with classification
// It supports Go's error wrapping patterns with Unwrap() method
type WorkflowError struct {
	Type    string `json:"type"`
	Cause   string `json:"cause"`
	Details any    `json:"details,omitempty"`
	Wrapped error  `json:"-"`
}

// Error implements the error interface
func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Cause)
}

// Unwrap implements the error unwrapping interface for Go's errors.Is and errors.As
func (e *WorkflowError) Unwrap() error {
	return e.Wrapped
}

// NewWorkflowError creates a new WorkflowError with the specified type and cause.
func NewWorkflowError(errorType, cause string) *WorkflowError {
	return &WorkflowError{
		Type:  errorType,
		Cause: cause,
	}
}

// NewConfigError returns a config_error with a formatted cause.
func NewConfigError(format string, args ...any) *WorkflowError {
	return NewWorkflowError(ErrorTypeConfig, fmt.Sprintf(format, args...))
}

// NewStateError returns a state_error with a formatted cause.
func NewStateError(format string, args ...any) *WorkflowError {
	return NewWorkflowError(ErrorTypeState, fmt.Sprintf(format, args...))
}

// NewUpstreamError wraps a completion service failure.
func NewUpstreamError(cause string, err error) *WorkflowError {
	if err != nil {
		cause = cause + ": " + err.Error()
	}
	return &WorkflowError{
		Type:    ErrorTypeUpstream,
		Cause:   cause,
		Wrapped: err,
	}
}

// ClassifyError attempts to classify a regular error into a WorkflowError
func ClassifyError(err error) *WorkflowError {
	var workflowError *WorkflowError
	if errors.As(err, &workflowError) {
		return workflowError
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &WorkflowError{
			Type:    ErrorTypeCanceled,
			Cause:   err.Error(),
			Wrapped: err,
		}
	}
	return &WorkflowError{
		Type:    ErrorTypeStepFailed,
		Cause:   err.Error(),
		Wrapped: err,
	}
}

// MatchesErrorType checks if an error matches a specified error type
func MatchesErrorType(err error, errorType string) bool {
	if err == nil {
		return false
	}
	return ClassifyError(err).Type == errorType
}

// IsConfigError reports whether err is a config_error.
func IsConfigError(err error) bool {
	return MatchesErrorType(err, ErrorTypeConfig)
}

// IsUpstreamError reports whether err is an upstream_error.
func IsUpstreamError(err error) bool {
	return MatchesErrorType(err, ErrorTypeUpstream)
}

// IsStateError reports whether err is a state_error.
func IsStateError(err error) bool {
	return MatchesErrorType(err, ErrorTypeState)
}
