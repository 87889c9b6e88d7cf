package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one admission check
type Decision struct {
	Allowed bool
	// Count is the number of requests admitted in the current window
	Count   int
	Limit   int
	ResetAt time.Time
	// FirstDenied is set on the first rejection of a key within a window
	FirstDenied bool
}

// RetryAfter is the time left until the window resets, at least one second
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait < time.Second {
		return time.Second
	}
	return wait
}

// Store holds fixed-window counters. Take must be atomic per key: a rejected
// call leaves the stored window unchanged apart from first-denial tracking.
type Store interface {
	Take(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error)
}
