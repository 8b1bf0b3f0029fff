package hitl

import (
	"time"

	"go.jetify.com/typeid"
)

// ThreadStatus represents the status of a thread as recorded in its checkpoint
type ThreadStatus string

const (
	ThreadStatusRunning   ThreadStatus = "running"
	ThreadStatusSuspended ThreadStatus = "suspended"
	ThreadStatusCompleted ThreadStatus = "completed"
)

// Checkpoint contains a complete snapshot of a thread's state and position.
// This struct is designed to be fully JSON serializable.
type Checkpoint struct {
	ID              string            `json:"id"`
	ThreadID        string            `json:"thread_id"`
	WorkflowName    string            `json:"workflow_name"`
	Status          ThreadStatus      `json:"status"`
	State           State             `json:"state"`
	PendingStep     string            `json:"pending_step,omitempty"`
	PendingQuestion *InterruptRequest `json:"pending_question,omitempty"`
	StepCount       int               `json:"step_count"`
	StartTime       time.Time         `json:"start_time,omitzero"`
	EndTime         time.Time         `json:"end_time,omitzero"`
	CheckpointAt    time.Time         `json:"checkpoint_at"`
}

// Suspended reports whether the thread is parked awaiting an answer.
func (c *Checkpoint) Suspended() bool {
	return c.PendingQuestion != nil
}

// Completed reports whether the thread has reached End.
func (c *Checkpoint) Completed() bool {
	return c.PendingStep == "" && c.Status == ThreadStatusCompleted
}

// Copy returns a deep copy of the checkpoint.
func (c *Checkpoint) Copy() *Checkpoint {
	copy := *c
	copy.State = c.State.Copy()
	if c.PendingQuestion != nil {
		question := *c.PendingQuestion
		copy.PendingQuestion = &question
	}
	return &copy
}

// NewCheckpointID returns a new unique checkpoint ID
func NewCheckpointID() string {
	return newID("ckpt")
}

// NewThreadID returns a new unique thread ID for callers that do not choose
// their own.
func NewThreadID() string {
	return newID("thread")
}

func newID(prefix string) string {
	id, err := typeid.WithPrefix(prefix)
	if err != nil {
		panic(err)
	}
	return id.String()
}
