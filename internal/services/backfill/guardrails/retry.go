// Package guardrails holds cross cutting safety helpers for backfill
package guardrails

import (
	"context"
	"time"
)

// Retry is a named bounded retry policy with a fixed delay between attempts
type Retry struct {
	// Attempts is the total number of tries; <=0 means 1
	Attempts int

	// Delay is the fixed pause between tries
	Delay time.Duration

	// Sleep is a seam for tests; nil means real sleeping
	Sleep func(context.Context, time.Duration) error
}

// Do runs fn up to Attempts times, pausing Delay between failures.
// Returns nil on the first success, the last error otherwise
func (r Retry) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = SleepCtx
	}

	var last error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if last = fn(ctx); last == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		if err := sleep(ctx, r.Delay); err != nil {
			return err
		}
	}
	return last
}

// SleepCtx sleeps for d or returns early when ctx is done
func SleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
