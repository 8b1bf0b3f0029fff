// Package completion defines the text completion service the booking steps
// call, and an OpenAI-backed implementation of it.
package completion

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned when the service responds without text.
var ErrEmptyCompletion = errors.New("completion returned no text")

// Client turns a rendered prompt into free text.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Func adapts an ordinary function to the Client interface.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
