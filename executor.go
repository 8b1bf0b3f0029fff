package hitl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// ExecutorOptions configures an Executor
type ExecutorOptions struct {
	Workflow           *Workflow
	Checkpointer       Checkpointer
	StepLogger         StepLogger
	Logger             *slog.Logger
	ExecutionCallbacks ExecutionCallbacks
}

// Executor runs threads of a workflow. Each thread is identified by a
// caller-chosen id and its progress lives in the Checkpointer, so a thread
// suspended in one process can be resumed in another.
//
// Exactly one step runs at a time within a thread. Distinct threads are
// independent and may be driven concurrently.
type Executor struct {
	workflow     *Workflow
	checkpointer Checkpointer
	stepLogger   StepLogger
	logger       *slog.Logger
	callbacks    ExecutionCallbacks

	mutex  sync.Mutex
	active map[string]struct{}
}

// Result is returned by Run and Resume. A suspended result carries the
// pending question; a completed one carries the final state.
type Result struct {
	ThreadID    string            `json:"thread_id"`
	Status      ThreadStatus      `json:"status"`
	State       State             `json:"state"`
	PendingStep string            `json:"pending_step,omitempty"`
	Interrupt   *InterruptRequest `json:"interrupt,omitempty"`
}

// Suspended reports whether the thread is awaiting Resume.
func (r *Result) Suspended() bool {
	return r.Interrupt != nil
}

// Question returns the pending question of a suspended result.
func (r *Result) Question() string {
	if r.Interrupt == nil {
		return ""
	}
	return r.Interrupt.Question
}

// NewExecutor creates a new executor for a workflow
func NewExecutor(opts ExecutorOptions) (*Executor, error) {
	if opts.Workflow == nil {
		return nil, NewConfigError("workflow is required")
	}
	if err := opts.Workflow.Validate(); err != nil {
		return nil, err
	}
	if opts.Checkpointer == nil {
		opts.Checkpointer = NewMemoryCheckpointer()
	}
	if opts.StepLogger == nil {
		opts.StepLogger = NewNullStepLogger()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.ExecutionCallbacks == nil {
		opts.ExecutionCallbacks = &BaseExecutionCallbacks{}
	}
	return &Executor{
		workflow:     opts.Workflow,
		checkpointer: opts.Checkpointer,
		stepLogger:   opts.StepLogger,
		logger:       opts.Logger.With("workflow", opts.Workflow.Name()),
		callbacks:    opts.ExecutionCallbacks,
		active:       map[string]struct{}{},
	}, nil
}

// Workflow returns the workflow this executor runs
func (e *Executor) Workflow() *Workflow {
	return e.workflow
}

// Run starts a thread or continues one that is not awaiting an answer.
//
// A new thread starts at the entry step with a copy of initial. So does a
// thread whose first step has not yet succeeded, when initial is non-nil.
// Any other existing thread continues from its pending step with its stored
// state and initial is ignored. A suspended thread returns its pending
// question again without running any step, and a completed thread returns
// its final state.
func (e *Executor) Run(ctx context.Context, threadID string, initial State) (*Result, error) {
	release, err := e.acquire(threadID)
	if err != nil {
		return nil, err
	}
	defer release()

	logger := e.loggerFor(ctx).With("thread_id", threadID)

	checkpoint, err := e.load(ctx, threadID)
	if err != nil {
		return nil, err
	}

	switch {
	case checkpoint == nil:
		entry := e.workflow.Entry()
		checkpoint = &Checkpoint{
			ThreadID:     threadID,
			WorkflowName: e.workflow.Name(),
			Status:       ThreadStatusRunning,
			State:        initial.Copy(),
			PendingStep:  entry,
			StartTime:    time.Now(),
		}
		if err := e.save(ctx, checkpoint); err != nil {
			return nil, err
		}
		logger.Info("thread created", "entry", entry)
	case checkpoint.Suspended():
		logger.Info("thread awaiting resume", "step", checkpoint.PendingStep)
		return newResult(checkpoint), nil
	case checkpoint.PendingStep == "":
		logger.Info("thread already completed")
		return newResult(checkpoint), nil
	case checkpoint.StepCount == 0 && checkpoint.PendingStep == e.workflow.Entry():
		// no step has succeeded yet
		if initial != nil {
			checkpoint.State = initial.Copy()
		}
		logger.Info("restarting thread at entry", "entry", checkpoint.PendingStep)
	default:
		logger.Info("continuing thread from checkpoint", "step", checkpoint.PendingStep)
	}

	return e.execute(ctx, logger, checkpoint, nil)
}

// Resume supplies the answer to a suspended thread's pending question and
// continues running it. The pending step is invoked again from its start
// with the answer available through Context.Answer.
func (e *Executor) Resume(ctx context.Context, threadID, answer string) (*Result, error) {
	release, err := e.acquire(threadID)
	if err != nil {
		return nil, err
	}
	defer release()

	logger := e.loggerFor(ctx).With("thread_id", threadID)

	checkpoint, err := e.load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if checkpoint == nil {
		return nil, NewStateError("no checkpoint for thread %q", threadID)
	}
	if !checkpoint.Suspended() {
		return nil, NewStateError("thread %q is not awaiting resume; call Run instead", threadID)
	}

	logger.Info("resuming thread", "step", checkpoint.PendingStep)
	return e.execute(ctx, logger, checkpoint, &answer)
}

// GetCheckpoint returns the latest checkpoint of a thread, or nil if the
// thread does not exist.
func (e *Executor) GetCheckpoint(ctx context.Context, threadID string) (*Checkpoint, error) {
	if threadID == "" {
		return nil, NewStateError("thread id required")
	}
	return e.load(ctx, threadID)
}

// execute drives the thread from its pending step until it completes,
// suspends or fails. answer is non-nil only for the first invocation after
// a Resume.
func (e *Executor) execute(ctx context.Context, logger *slog.Logger, checkpoint *Checkpoint, answer *string) (result *Result, err error) {
	startTime := time.Now()
	e.callbacks.BeforeRun(ctx, &RunEvent{
		ThreadID:     checkpoint.ThreadID,
		WorkflowName: e.workflow.Name(),
		Resumed:      answer != nil,
		Status:       checkpoint.Status,
		StartTime:    startTime,
		State:        checkpoint.State.Copy(),
	})
	defer func() {
		endTime := time.Now()
		event := &RunEvent{
			ThreadID:     checkpoint.ThreadID,
			WorkflowName: e.workflow.Name(),
			Resumed:      answer != nil,
			StartTime:    startTime,
			EndTime:      endTime,
			Duration:     endTime.Sub(startTime),
			Error:        err,
		}
		if result != nil {
			event.Status = result.Status
			event.State = result.State.Copy()
		}
		e.callbacks.AfterRun(ctx, event)
	}()

	for {
		if err := ctx.Err(); err != nil {
			return nil, ClassifyError(err)
		}

		step, ok := e.workflow.GetStep(checkpoint.PendingStep)
		if !ok {
			return nil, NewConfigError("step %q not registered", checkpoint.PendingStep)
		}

		directive, interrupt, err := e.invokeStep(ctx, logger, checkpoint, step, answer)
		if err != nil {
			logger.Error("step failed", "step", step.Name, "error", err)
			return nil, fmt.Errorf("step %q: %w", step.Name, err)
		}

		if interrupt != nil {
			checkpoint.Status = ThreadStatusSuspended
			checkpoint.PendingQuestion = interrupt
			if err := e.save(ctx, checkpoint); err != nil {
				return nil, err
			}
			logger.Info("thread suspended", "step", step.Name, "question", interrupt.Question)
			e.callbacks.OnSuspend(ctx, &SuspendEvent{
				ThreadID:     checkpoint.ThreadID,
				WorkflowName: e.workflow.Name(),
				StepName:     step.Name,
				Question:     interrupt.Question,
				State:        checkpoint.State.Copy(),
			})
			return newResult(checkpoint), nil
		}

		next := directive.Next
		if next == "" {
			return nil, NewConfigError("step %q returned no next step", step.Name)
		}
		if next != End {
			if _, ok := e.workflow.GetStep(next); !ok {
				return nil, NewConfigError("step %q: next step %q not registered", step.Name, next)
			}
		}

		checkpoint.State = checkpoint.State.Merge(directive.Update)
		checkpoint.PendingQuestion = nil
		checkpoint.StepCount++
		answer = nil

		if next == End {
			checkpoint.PendingStep = ""
			checkpoint.Status = ThreadStatusCompleted
			checkpoint.EndTime = time.Now()
			if err := e.save(ctx, checkpoint); err != nil {
				return nil, err
			}
			logger.Info("thread completed", "steps", checkpoint.StepCount)
			return newResult(checkpoint), nil
		}

		checkpoint.PendingStep = next
		checkpoint.Status = ThreadStatusRunning
		if err := e.save(ctx, checkpoint); err != nil {
			return nil, err
		}
		logger.Debug("step completed", "step", step.Name, "next", next)
	}
}

// invokeStep runs a single step against a copy of the thread state. It
// separates an interrupt from a genuine failure and records the invocation
// in the step log.
func (e *Executor) invokeStep(ctx context.Context, logger *slog.Logger, checkpoint *Checkpoint, step *Step, answer *string) (directive Directive, interrupt *InterruptRequest, err error) {
	stepLogger := logger.With("step", step.Name)
	stepCtx := NewContext(ctx, ContextOptions{
		Logger:    stepLogger,
		ThreadID:  checkpoint.ThreadID,
		StepName:  step.Name,
		Answer:    deref(answer),
		HasAnswer: answer != nil,
	})

	startTime := time.Now()
	stepEvent := &StepEvent{
		ThreadID:     checkpoint.ThreadID,
		WorkflowName: e.workflow.Name(),
		StepName:     step.Name,
		State:        checkpoint.State.Copy(),
		Answer:       deref(answer),
		HasAnswer:    answer != nil,
		StartTime:    startTime,
	}
	e.callbacks.BeforeStep(ctx, stepEvent)

	directive, err = callStep(step, stepCtx, checkpoint.State.Copy())

	var request *InterruptRequest
	if errors.As(err, &request) {
		interrupt, err = request, nil
	} else if err == nil && directive.Suspend != nil {
		interrupt = directive.Suspend
	}
	if err != nil {
		err = ClassifyError(err)
	}

	endTime := time.Now()
	stepEvent.Directive = directive
	stepEvent.EndTime = endTime
	stepEvent.Duration = endTime.Sub(startTime)
	stepEvent.Error = err
	e.callbacks.AfterStep(ctx, stepEvent)

	entry := &StepLogEntry{
		ID:           NewStepLogID(),
		ThreadID:     checkpoint.ThreadID,
		WorkflowName: e.workflow.Name(),
		Step:         step.Name,
		Answer:       answer,
		StartTime:    startTime,
		Duration:     endTime.Sub(startTime).Seconds(),
	}
	switch {
	case err != nil:
		entry.Error = err.Error()
	case interrupt != nil:
		entry.Question = interrupt.Question
	default:
		entry.Next = directive.Next
		entry.Update = directive.Update
	}
	if logErr := e.stepLogger.LogStep(ctx, entry); logErr != nil {
		logger.Error("failed to log step", "step", step.Name, "error", logErr)
		return Directive{}, nil, &WorkflowError{
			Type:    ErrorTypeCheckpoint,
			Cause:   "failed to log step: " + logErr.Error(),
			Wrapped: logErr,
		}
	}
	return directive, interrupt, err
}

// callStep invokes the step function, turning a panic into a step error.
func callStep(step *Step, ctx Context, state State) (directive Directive, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewWorkflowError(ErrorTypeStepFailed, fmt.Sprintf("panic: %v", r))
		}
	}()
	return step.Func(ctx, state)
}

func (e *Executor) load(ctx context.Context, threadID string) (*Checkpoint, error) {
	checkpoint, err := e.checkpointer.LoadCheckpoint(ctx, threadID)
	if err != nil {
		if IsStateError(err) {
			return nil, err
		}
		return nil, &WorkflowError{
			Type:    ErrorTypeCheckpoint,
			Cause:   fmt.Sprintf("failed to load checkpoint for thread %q: %v", threadID, err),
			Wrapped: err,
		}
	}
	if checkpoint == nil {
		return nil, nil
	}
	if checkpoint.WorkflowName != "" && checkpoint.WorkflowName != e.workflow.Name() {
		return nil, NewStateError("thread %q belongs to workflow %q", threadID, checkpoint.WorkflowName)
	}
	if checkpoint.State == nil {
		checkpoint.State = State{}
	}
	return checkpoint, nil
}

func (e *Executor) save(ctx context.Context, checkpoint *Checkpoint) error {
	checkpoint.ID = NewCheckpointID()
	checkpoint.CheckpointAt = time.Now()
	if err := e.checkpointer.SaveCheckpoint(ctx, checkpoint); err != nil {
		e.logger.Error("failed to save checkpoint", "thread_id", checkpoint.ThreadID, "error", err)
		return &WorkflowError{
			Type:    ErrorTypeCheckpoint,
			Cause:   fmt.Sprintf("failed to save checkpoint for thread %q: %v", checkpoint.ThreadID, err),
			Wrapped: err,
		}
	}
	return nil
}

// acquire marks a thread as executing in this process. Concurrent Run or
// Resume calls on the same thread are a usage error and fail fast.
func (e *Executor) acquire(threadID string) (func(), error) {
	if threadID == "" {
		return nil, NewStateError("thread id required")
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	if _, busy := e.active[threadID]; busy {
		return nil, NewStateError("thread %q is already executing", threadID)
	}
	e.active[threadID] = struct{}{}
	return func() {
		e.mutex.Lock()
		defer e.mutex.Unlock()
		delete(e.active, threadID)
	}, nil
}

func (e *Executor) loggerFor(ctx context.Context) *slog.Logger {
	if logger, ok := GetLoggerFromContext(ctx); ok {
		return logger.With("workflow", e.workflow.Name())
	}
	return e.logger
}

func newResult(checkpoint *Checkpoint) *Result {
	result := &Result{
		ThreadID:    checkpoint.ThreadID,
		Status:      checkpoint.Status,
		State:       checkpoint.State.Copy(),
		PendingStep: checkpoint.PendingStep,
	}
	if checkpoint.PendingQuestion != nil {
		question := *checkpoint.PendingQuestion
		result.Interrupt = &question
	}
	return result
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
