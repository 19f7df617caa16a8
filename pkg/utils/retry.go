// Package utils holds small shared helpers.
package utils

import (
	"context"
	"time"
)

// RetryWithBackoff calls fn up to attempts times, sleeping between failures
// with exponential backoff starting at initialDelay. Only the caller's
// context stops the loop early: a deadline error raised by an attempt-scoped
// context inside fn counts as a transient failure and is retried like any
// other. If attempts <= 0, it defaults to 1.
func RetryWithBackoff(ctx context.Context, attempts int, initialDelay time.Duration, fn func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	delay := initialDelay
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err

		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return lastErr
}
