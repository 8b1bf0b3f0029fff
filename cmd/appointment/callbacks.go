package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/deepnoodle-ai/hitl"
	"github.com/deepnoodle-ai/hitl/booking"
)

// progressCallbacks prints a line as each booking step starts.
type progressCallbacks struct {
	hitl.BaseExecutionCallbacks
	out io.Writer
}

var stepMessages = map[string]string{
	booking.StepSelectDoctor:        "Running doctor selection...",
	booking.StepScheduleAppointment: "Scheduling appointment...",
}

func (c *progressCallbacks) BeforeStep(ctx context.Context, event *hitl.StepEvent) {
	if message, ok := stepMessages[event.StepName]; ok {
		writeInfo(c.out, message)
	}
}

// loggingCallbacks records run and step timings at debug level.
type loggingCallbacks struct {
	hitl.BaseExecutionCallbacks
	logger *slog.Logger
}

func (c *loggingCallbacks) AfterStep(ctx context.Context, event *hitl.StepEvent) {
	c.logger.Debug("step finished",
		"thread_id", event.ThreadID,
		"step", event.StepName,
		"duration", event.Duration,
		"error", event.Error)
}

func (c *loggingCallbacks) AfterRun(ctx context.Context, event *hitl.RunEvent) {
	c.logger.Debug("run finished",
		"thread_id", event.ThreadID,
		"resumed", event.Resumed,
		"status", event.Status,
		"duration", event.Duration,
		"error", event.Error)
}
