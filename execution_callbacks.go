package hitl

import (
	"context"
	"time"
)

// ExecutionCallbacks defines the callback interface for thread execution events
type ExecutionCallbacks interface {
	// Run-level callbacks, fired once per Run or Resume call
	BeforeRun(ctx context.Context, event *RunEvent)
	AfterRun(ctx context.Context, event *RunEvent)

	// Step-level callbacks, fired around every step invocation
	BeforeStep(ctx context.Context, event *StepEvent)
	AfterStep(ctx context.Context, event *StepEvent)

	// OnSuspend fires after a suspended checkpoint has been saved
	OnSuspend(ctx context.Context, event *SuspendEvent)
}

// RunEvent provides context for run-level execution events
type RunEvent struct {
	ThreadID     string
	WorkflowName string
	Resumed      bool
	Status       ThreadStatus
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	State        State
	Error        error
}

// StepEvent provides context for step execution events
type StepEvent struct {
	ThreadID     string
	WorkflowName string
	StepName     string
	State        State
	Answer       string
	HasAnswer    bool
	Directive    Directive
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	Error        error
}

// SuspendEvent provides context when a thread parks on a question
type SuspendEvent struct {
	ThreadID     string
	WorkflowName string
	StepName     string
	Question     string
	State        State
}

// BaseExecutionCallbacks provides a default implementation that does nothing
type BaseExecutionCallbacks struct{}

func (n *BaseExecutionCallbacks) BeforeRun(ctx context.Context, event *RunEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) AfterRun(ctx context.Context, event *RunEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) BeforeStep(ctx context.Context, event *StepEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) AfterStep(ctx context.Context, event *StepEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) OnSuspend(ctx context.Context, event *SuspendEvent) {
	// noop
}

// NewBaseExecutionCallbacks creates a new no-op callbacks implementation.
// Embed this in your own callbacks to get a default implementation that does nothing.
func NewBaseExecutionCallbacks() ExecutionCallbacks {
	return &BaseExecutionCallbacks{}
}

// CallbackChain allows chaining multiple callback implementations
type CallbackChain struct {
	callbacks []ExecutionCallbacks
}

// NewCallbackChain creates a new callback chain
func NewCallbackChain(callbacks ...ExecutionCallbacks) *CallbackChain {
	return &CallbackChain{callbacks: callbacks}
}

// Add adds a callback to the chain
func (c *CallbackChain) Add(callback ExecutionCallbacks) {
	c.callbacks = append(c.callbacks, callback)
}

func (c *CallbackChain) BeforeRun(ctx context.Context, event *RunEvent) {
	for _, callback := range c.callbacks {
		callback.BeforeRun(ctx, event)
	}
}

func (c *CallbackChain) AfterRun(ctx context.Context, event *RunEvent) {
	for _, callback := range c.callbacks {
		callback.AfterRun(ctx, event)
	}
}

func (c *CallbackChain) BeforeStep(ctx context.Context, event *StepEvent) {
	for _, callback := range c.callbacks {
		callback.BeforeStep(ctx, event)
	}
}

func (c *CallbackChain) AfterStep(ctx context.Context, event *StepEvent) {
	for _, callback := range c.callbacks {
		callback.AfterStep(ctx, event)
	}
}

func (c *CallbackChain) OnSuspend(ctx context.Context, event *SuspendEvent) {
	for _, callback := range c.callbacks {
		callback.OnSuspend(ctx, event)
	}
}
