package retry

import (
	"context"
	"fmt"
	"time"
)

type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     bool // Linear backoff: attempt * Delay

	// ShouldRetry decides whether an error is worth another attempt.
	// nil means every error is retried.
	ShouldRetry func(error) bool
}

// WithRetry runs fn until it succeeds, the attempts are used up, the error
// is not retryable, or ctx is done. The last error from fn is returned
// unwrapped when it is not retryable so callers can inspect it.
func WithRetry(ctx context.Context, config RetryConfig, fn func(ctx context.Context) error) error {
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if config.ShouldRetry != nil && !config.ShouldRetry(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		delay := config.Delay
		if config.Backoff {
			delay = time.Duration(attempt) * config.Delay
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry aborted: %w", lastErr)
		case <-time.After(delay):
		}
	}

	return &ExhaustedError{Attempts: attempts, Err: lastErr}
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }
