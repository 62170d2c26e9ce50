package module

import (
	"context"
	"testing"

	"threadmirror/internal/modkit"
	"threadmirror/internal/modkit/repokit"
)

// stubDB satisfies the TxRunner seam; nothing here runs SQL
type stubDB struct{}

func (stubDB) Exec(context.Context, string, ...any) (repokit.CommandTag, error) {
	panic("unexpected Exec")
}
func (stubDB) Query(context.Context, string, ...any) (repokit.Rows, error) {
	panic("unexpected Query")
}
func (stubDB) QueryRow(context.Context, string, ...any) repokit.Row { panic("unexpected QueryRow") }
func (stubDB) Tx(context.Context, func(q repokit.RowQuerier) error) error {
	panic("unexpected Tx")
}

func TestNewSubmitCarriesNoWorker(t *testing.T) {
	m := NewSubmit(modkit.Deps{PG: stubDB{}})

	p, ok := m.Ports().(Ports)
	if !ok {
		t.Fatalf("ports type = %T", m.Ports())
	}
	if p.Submitter == nil || p.Status == nil {
		t.Fatal("submit and status ports must be wired")
	}
	if p.Worker != nil {
		t.Fatal("the submit only module must not expose a worker")
	}
}
