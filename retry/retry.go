// Package retry retries fallible calls with exponential backoff and full
// jitter. Only errors classified as recoverable are retried.
package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseWait   = 500 * time.Millisecond
	DefaultMaxWait    = 10 * time.Second
)

type config struct {
	maxRetries int
	baseWait   time.Duration
	maxWait    time.Duration
	classify   func(error) bool
	onRetry    func(attempt int, wait time.Duration, err error)
}

// Option configures Do.
type Option func(*config)

// WithMaxRetries sets how many times a failed call is retried. The call is
// always attempted at least once.
func WithMaxRetries(n int) Option {
	return func(c *config) {
		if n < 0 {
			n = 0
		}
		c.maxRetries = n
	}
}

// WithBaseWait sets the upper bound of the first retry delay. It doubles on
// each subsequent retry.
func WithBaseWait(d time.Duration) Option {
	return func(c *config) { c.baseWait = d }
}

// WithMaxWait caps the delay between attempts.
func WithMaxWait(d time.Duration) Option {
	return func(c *config) { c.maxWait = d }
}

// WithClassifier replaces IsRecoverable as the test for retryable errors.
func WithClassifier(fn func(error) bool) Option {
	return func(c *config) { c.classify = fn }
}

// WithOnRetry registers a hook invoked before each wait.
func WithOnRetry(fn func(attempt int, wait time.Duration, err error)) Option {
	return func(c *config) { c.onRetry = fn }
}

// Do calls fn until it succeeds, returns a non-recoverable error, or the
// retries are exhausted. The last error from fn is returned unchanged. If ctx
// is canceled while waiting, ctx.Err() is returned.
func Do(ctx context.Context, fn func() error, opts ...Option) error {
	cfg := &config{
		maxRetries: DefaultMaxRetries,
		baseWait:   DefaultBaseWait,
		maxWait:    DefaultMaxWait,
		classify:   IsRecoverable,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if attempt >= cfg.maxRetries || !cfg.classify(err) {
			return err
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		wait := cfg.delay(attempt + 1)
		if cfg.onRetry != nil {
			cfg.onRetry(attempt+1, wait, err)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// delay returns a random duration in [0, min(baseWait * 2^(attempt-1), maxWait)].
func (c *config) delay(attempt int) time.Duration {
	base := float64(c.baseWait) * math.Pow(2, float64(attempt-1))
	if c.maxWait > 0 && base > float64(c.maxWait) {
		base = float64(c.maxWait)
	}
	return time.Duration(rand.Float64() * base)
}
