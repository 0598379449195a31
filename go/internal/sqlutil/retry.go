package sqlutil

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// permanentError marks an error that Retry must not re-attempt.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps an error so Retry returns it immediately. Used for expected
// races (slot taken, duplicate vote) that a retry can never resolve.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry attempts an idempotent store write up to maxRetries+1 times with a
// linear backoff. Only use with writes that are safe to re-apply; conditional
// updates and unique inserts qualify, blind increments do not.
func Retry(ctx context.Context, maxRetries int, delay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay * time.Duration(attempt)):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err
	}

	return fmt.Errorf("store write failed after %d attempts: %w", maxRetries+1, lastErr)
}
