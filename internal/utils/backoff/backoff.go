// Package backoff computes retry delays for transient store and lock failures.
package backoff

import (
	"context"
	"math/rand/v2"
	"time"
)

const maxShift = 30

// Exponential returns base * 2^attempt, capped at limit when limit is positive.
// Negative attempts are treated as 0.
func Exponential(base time.Duration, attempt int, limit time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	} else if attempt > maxShift {
		attempt = maxShift
	}

	d := base << attempt
	if d <= 0 || (limit > 0 && d > limit) {
		return limit
	}
	return d
}

// FullJitter returns a random duration in [0, delay).
func FullJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(delay)))
}

// ExponentialWithJitter combines exponential growth with full jitter.
func ExponentialWithJitter(base time.Duration, attempt int, limit time.Duration) time.Duration {
	return FullJitter(Exponential(base, attempt, limit))
}

// SleepWithContext waits for d or until ctx is done, whichever comes first.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
