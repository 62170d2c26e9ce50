package guardrails

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPacerAdmitsOnCadence(t *testing.T) {
	t.Parallel()
	now := time.Unix(0, 0)
	var mu sync.Mutex
	var waits []time.Duration

	p := NewPacer(time.Second)
	p.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	p.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		waits = append(waits, d)
		now = now.Add(d)
		mu.Unlock()
		return nil
	}

	var started int32
	for i := 0; i < 3; i++ {
		if err := p.Go(context.Background(), func(context.Context) {
			atomic.AddInt32(&started, 1)
		}); err != nil {
			t.Fatalf("unexpected admit error: %v", err)
		}
	}
	p.Drain()

	if got := atomic.LoadInt32(&started); got != 3 {
		t.Fatalf("expected 3 units started, got %d", got)
	}
	mu.Lock()
	defer mu.Unlock()
	// first admission is immediate, the next two wait one interval each
	if len(waits) != 2 {
		t.Fatalf("expected 2 paced waits, got %v", waits)
	}
	for _, d := range waits {
		if d != time.Second {
			t.Fatalf("expected 1s waits, got %v", waits)
		}
	}
}

func TestPacerUnboundedInFlight(t *testing.T) {
	t.Parallel()
	p := NewPacer(0) // no pacing so all units start immediately

	release := make(chan struct{})
	var running int32
	for i := 0; i < 5; i++ {
		if err := p.Go(context.Background(), func(context.Context) {
			atomic.AddInt32(&running, 1)
			<-release
		}); err != nil {
			t.Fatalf("unexpected admit error: %v", err)
		}
	}

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&running) != 5 {
		select {
		case <-deadline:
			t.Fatalf("expected 5 concurrent units, got %d", atomic.LoadInt32(&running))
		default:
			time.Sleep(time.Millisecond)
		}
	}
	close(release)
	p.Drain()
}

func TestPacerStopDropsNewUnitsKeepsInFlight(t *testing.T) {
	t.Parallel()
	p := NewPacer(0)

	release := make(chan struct{})
	var finished int32
	if err := p.Go(context.Background(), func(context.Context) {
		<-release
		atomic.AddInt32(&finished, 1)
	}); err != nil {
		t.Fatalf("unexpected admit error: %v", err)
	}

	p.Stop()
	if !p.Stopped() {
		t.Fatal("expected Stopped after Stop")
	}

	var droppedRan int32
	if err := p.Go(context.Background(), func(context.Context) {
		atomic.AddInt32(&droppedRan, 1)
	}); err != nil {
		t.Fatalf("Go after Stop should drop silently, got %v", err)
	}

	close(release)
	p.Drain()

	if atomic.LoadInt32(&finished) != 1 {
		t.Fatal("in flight unit should finish after Stop")
	}
	if atomic.LoadInt32(&droppedRan) != 0 {
		t.Fatal("unit admitted after Stop must not run")
	}
}

func TestPacerAdmitHonorsCancellation(t *testing.T) {
	t.Parallel()
	p := NewPacer(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	// first admission is free
	if err := p.Go(ctx, func(context.Context) {}); err != nil {
		t.Fatalf("unexpected admit error: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- p.Go(ctx, func(context.Context) {}) }()
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected a cancellation error from the paced admit")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("admit did not observe cancellation")
	}
	p.Drain()
}
