package store

import (
	"context"
	"errors"
	"time"

	"threadmirror/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgAdapter bridges pg.PG to the RowQuerier/TxRunner surface and routes
// every statement through the configured query tracer
type pgAdapter struct {
	p *pg.PG
}

func newPGAdapter(p *pg.PG) *pgAdapter { return &pgAdapter{p: p} }

func (a *pgAdapter) Ping(ctx context.Context) error {
	if a == nil {
		return errors.New("pg: nil adapter")
	}
	var one int
	return a.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (a *pgAdapter) Close() error { a.p.Close(); return nil }

func (a *pgAdapter) trace() statementTrace {
	var tr statementTrace
	if a != nil && a.p != nil {
		tr.tracer = a.p.Tracer
		tr.slowUS = int64(a.p.SlowMs) * 1000
		if a.p.SlowMs < 0 {
			tr.slowUS = -1
		}
	}
	return tr
}

func (a *pgAdapter) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	start := time.Now()
	ct, err := a.p.Pool.Exec(ctx, sql, args...)
	a.trace().emit(ctx, sql, args, start, err)
	return cmdTag{ct}, err
}

func (a *pgAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := a.p.Pool.Query(ctx, sql, args...)
	a.trace().emit(ctx, sql, args, start, err)
	if err != nil {
		return nil, err
	}
	return rowSet{r: rs}, nil
}

func (a *pgAdapter) QueryRow(ctx context.Context, sql string, args ...any) Row {
	start := time.Now()
	r := a.p.Pool.QueryRow(ctx, sql, args...)
	tr := a.trace()
	// the row only observes its error at Scan time, so tracing is deferred
	return tracedRow{
		r: r,
		after: func(scanErr error) {
			tr.emit(ctx, sql, args, start, scanErr)
		},
	}
}

func (a *pgAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := a.p.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	q := txAdapter{tx: tx, tr: a.trace()}
	if err := fn(q); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// txAdapter satisfies RowQuerier on top of an open pgx.Tx so statements
// inside a transaction show up in the trace stream too
type txAdapter struct {
	tx pgx.Tx
	tr statementTrace
}

func (t txAdapter) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	start := time.Now()
	ct, err := t.tx.Exec(ctx, sql, args...)
	t.tr.emit(ctx, sql, args, start, err)
	return cmdTag{ct}, err
}

func (t txAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := t.tx.Query(ctx, sql, args...)
	t.tr.emit(ctx, sql, args, start, err)
	if err != nil {
		return nil, err
	}
	return rowSet{r: rs}, nil
}

func (t txAdapter) QueryRow(ctx context.Context, sql string, args ...any) Row {
	start := time.Now()
	r := t.tx.QueryRow(ctx, sql, args...)
	return tracedRow{
		r: r,
		after: func(scanErr error) {
			t.tr.emit(ctx, sql, args, start, scanErr)
		},
	}
}

// statementTrace carries the tracer plus the slow threshold in microseconds;
// a negative threshold disables the slow flag
type statementTrace struct {
	tracer pg.QueryTracer
	slowUS int64
}

func (tr statementTrace) emit(ctx context.Context, sql string, args []any, start time.Time, err error) {
	if tr.tracer == nil {
		return
	}
	elapsedUS := time.Since(start).Microseconds()
	tr.tracer.OnQuery(ctx, pg.QueryEvent{
		SQL:       sql,
		Args:      args,
		ElapsedUS: elapsedUS,
		Err:       err,
		Slow:      tr.slowUS >= 0 && elapsedUS >= tr.slowUS,
	})
}

// thin pgx wrappers behind the store's Row/Rows/CommandTag types

type tracedRow struct {
	r     pgx.Row
	after func(error)
}

func (x tracedRow) Scan(dst ...any) error {
	err := x.r.Scan(dst...)
	if x.after != nil {
		x.after(err)
	}
	return err
}

type rowSet struct{ r pgx.Rows }

func (x rowSet) Next() bool            { return x.r.Next() }
func (x rowSet) Scan(dst ...any) error { return x.r.Scan(dst...) }
func (x rowSet) Err() error            { return x.r.Err() }
func (x rowSet) Close()                { x.r.Close() }

type cmdTag struct{ t pgconn.CommandTag }

func (t cmdTag) String() string      { return t.t.String() }
func (t cmdTag) RowsAffected() int64 { return t.t.RowsAffected() }
