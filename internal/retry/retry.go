// Package retry provides a shared retry-with-backoff loop for upstream
// provider calls. Embedding and completion clients both use it instead of
// carrying their own loops.
package retry

import (
	"context"
	"time"
)

// Policy controls the backoff schedule.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration
	// Multiplier scales the delay after each retried attempt. Values below 1
	// are treated as 1 (fixed delay).
	Multiplier float64
}

// Classify decides whether err is worth retrying. A non-zero wait overrides
// the computed backoff for this attempt, used when the provider supplies an
// explicit reset time.
type Classify func(err error) (retryable bool, wait time.Duration)

// Do runs fn until it succeeds, returns a non-retryable error, exhausts
// policy.MaxAttempts, or ctx is cancelled. The last error is returned on
// exhaustion.
func Do(ctx context.Context, policy Policy, classify Classify, fn func(ctx context.Context) error) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = 1
	}

	delay := policy.InitialDelay

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		retryable, override := classify(err)
		if !retryable || attempt >= policy.MaxAttempts {
			return err
		}

		wait := delay
		if override > 0 {
			wait = override
		}
		if !sleep(ctx, wait) {
			return ctx.Err()
		}
		delay = time.Duration(float64(delay) * policy.Multiplier)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
