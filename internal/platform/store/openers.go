package store

import (
	"context"
	"fmt"
	"time"

	"threadmirror/internal/platform/store/pg"
)

// ping guardrails used while waiting for postgres to come up
const (
	pgPingAttempts = 20
	pgPingTimeout  = 3 * time.Second
	pgBackoffStart = 150 * time.Millisecond
	pgBackoffCap   = 2 * time.Second
)

// openPG opens the pool, waits for it to answer a ping, then publishes
// the sql adapter on the store
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
	}, tracer, nil)
	if err != nil {
		return nil, err
	}

	var lastErr error
	backoff := pgBackoffStart
	for i := 0; i < pgPingAttempts; i++ {
		toCtx, cancel := context.WithTimeout(ctx, pgPingTimeout)
		lastErr = p.Pool.Ping(toCtx)
		cancel()

		if lastErr == nil {
			// publish only once the pool is known healthy
			a := newPGAdapter(p)
			s.PG = a
			return a, nil
		}
		if ctx.Err() != nil {
			p.Close()
			return nil, ctx.Err()
		}

		time.Sleep(backoff)
		if backoff *= 2; backoff > pgBackoffCap {
			backoff = pgBackoffCap
		}
	}

	p.Close()
	return nil, fmt.Errorf("postgres ping failed after %d attempts: %w", pgPingAttempts, lastErr)
}
