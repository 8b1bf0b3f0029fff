package hitl

import (
	"context"
	"io"
	"log/slog"
)

// Context is passed to each step invocation. It carries cancellation from
// the caller of Run or Resume plus details about the current invocation.
type Context interface {
	context.Context

	// Logger returns a logger tagged with the thread and step.
	Logger() *slog.Logger

	// ThreadID returns the id of the thread being executed.
	ThreadID() string

	// StepName returns the name of the step being invoked.
	StepName() string

	// Answer returns the answer supplied by Resume, if this invocation is
	// the re-run of a suspended step.
	Answer() (string, bool)
}

// ContextOptions configures a step Context.
type ContextOptions struct {
	Logger    *slog.Logger
	ThreadID  string
	StepName  string
	Answer    string
	HasAnswer bool
}

type stepContext struct {
	context.Context
	logger    *slog.Logger
	threadID  string
	stepName  string
	answer    string
	hasAnswer bool
}

// NewContext returns a step Context wrapping ctx.
func NewContext(ctx context.Context, opts ContextOptions) Context {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &stepContext{
		Context:   ctx,
		logger:    opts.Logger,
		threadID:  opts.ThreadID,
		stepName:  opts.StepName,
		answer:    opts.Answer,
		hasAnswer: opts.HasAnswer,
	}
}

func (c *stepContext) Logger() *slog.Logger {
	return c.logger
}

func (c *stepContext) ThreadID() string {
	return c.threadID
}

func (c *stepContext) StepName() string {
	return c.stepName
}

func (c *stepContext) Answer() (string, bool) {
	return c.answer, c.hasAnswer
}

type ContextKey string

const LoggerContextKey ContextKey = "logger"

// WithLogger stores a logger on a plain context.Context. An executor called
// with such a context logs to it in place of ExecutorOptions.Logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

func GetLoggerFromContext(ctx context.Context) (*slog.Logger, bool) {
	logger, ok := ctx.Value(LoggerContextKey).(*slog.Logger)
	return logger, ok
}
