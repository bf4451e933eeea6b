// Package retry runs an operation with bounded exponential backoff.
package retry

import (
	"context"
	"time"
)

const defaultBaseDelay = 100 * time.Millisecond

// Do calls fn until it succeeds, maxRetries extra attempts are spent, or ctx
// is done. The delay doubles after every failed attempt.
func Do(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}

// WithTimeout wraps fn so each attempt runs under its own deadline.
func WithTimeout(timeout time.Duration, fn func(context.Context) error) func(context.Context) error {
	if timeout <= 0 {
		return fn
	}
	return func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return fn(attemptCtx)
	}
}
