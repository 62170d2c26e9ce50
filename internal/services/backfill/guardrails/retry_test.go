package guardrails

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryFirstSuccess(t *testing.T) {
	t.Parallel()
	calls := 0
	r := Retry{Attempts: 5, Delay: time.Hour, Sleep: func(context.Context, time.Duration) error {
		t.Fatal("no sleep expected on first success")
		return nil
	}}
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	calls := 0
	slept := 0
	r := Retry{Attempts: 3, Delay: 500 * time.Millisecond, Sleep: func(_ context.Context, d time.Duration) error {
		if d != 500*time.Millisecond {
			t.Fatalf("unexpected delay %v", d)
		}
		slept++
		return nil
	}}
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected last error back, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if slept != 2 {
		t.Fatalf("expected 2 sleeps between 3 attempts, got %d", slept)
	}
}

func TestRetryRecoversMidway(t *testing.T) {
	t.Parallel()
	calls := 0
	r := Retry{Attempts: 5, Sleep: func(context.Context, time.Duration) error { return nil }}
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryZeroAttemptsMeansOne(t *testing.T) {
	t.Parallel()
	calls := 0
	err := Retry{}.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("once")
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected a single failing call, calls=%d err=%v", calls, err)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	r := Retry{Attempts: 5, Sleep: func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}}
	err := r.Do(ctx, func(context.Context) error {
		calls++
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no attempts after cancel, got %d", calls)
	}
}

func TestSleepCtxReturnsEarlyOnDone(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := SleepCtx(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("SleepCtx did not return promptly")
	}
}
