package guardrails

import (
	"context"
	"sync"
	"time"
)

// Pacer admits at most one new unit of work per fixed interval while
// letting any number of admitted units run concurrently. Units never
// retry themselves; outcome policy belongs to the caller
type Pacer struct {
	interval time.Duration

	mu      sync.Mutex
	last    time.Time
	stopped bool

	wg    sync.WaitGroup
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewPacer creates a Pacer with the given admission interval.
// A non positive interval admits without pacing
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{
		interval: interval,
		now:      time.Now,
		sleep:    SleepCtx,
	}
}

// Go waits for the next admission slot then runs fn on its own goroutine.
// Returns the ctx error when the wait is cut short, and silently drops
// fn after Stop has been called
func (p *Pacer) Go(ctx context.Context, fn func(context.Context)) error {
	if err := p.admit(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		fn(ctx)
	}()
	return nil
}

// admit blocks until a slot opens at the configured cadence
func (p *Pacer) admit(ctx context.Context) error {
	if p.interval <= 0 {
		return ctx.Err()
	}
	for {
		p.mu.Lock()
		now := p.now()
		wait := p.interval - now.Sub(p.last)
		if wait <= 0 || p.last.IsZero() {
			p.last = now
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()
		if err := p.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Stop prevents further units from starting. In flight units keep running
func (p *Pacer) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}

// Stopped reports whether Stop has been called
func (p *Pacer) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// Drain suspends the caller until every started unit has finished
func (p *Pacer) Drain() { p.wg.Wait() }
