package utils

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig holds the parameters for the retry strategy.
//
// When MaxDelay is set, the pause between attempts is drawn uniformly from
// [MinDelay, MaxDelay]. Otherwise it starts at BaseDelay and doubles after
// every failed attempt.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MinDelay    time.Duration
	MaxDelay    time.Duration
	Logger      *Logger
}

// Do executes fn until it succeeds or MaxAttempts is exhausted. fn receives
// the 1-based attempt number. There is no pause after the final attempt.
// Cancelling ctx stops the loop and returns ctx.Err().
func (r *RetryConfig) Do(ctx context.Context, operationName string, fn func(attempt int) error) error {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := r.BaseDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt < attempts {
			wait := delay
			if r.MaxDelay > 0 {
				wait = Jitter(r.MinDelay, r.MaxDelay)
			} else {
				delay *= 2
			}
			if r.Logger != nil {
				r.Logger.Debug("[retry] %s failed (attempt %d/%d): %v, retrying in %v",
					operationName, attempt, attempts, lastErr, wait.Round(time.Millisecond))
			}
			if err := Sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, attempts, lastErr)
}
