// Package module provides the queue module implementation
package module

import (
	"threadmirror/internal/modkit"
	phttp "threadmirror/internal/platform/net/http"
	bfdomain "threadmirror/internal/services/backfill/domain"
	"threadmirror/internal/services/queue/domain"
	"threadmirror/internal/services/queue/repo"
	"threadmirror/internal/services/queue/service"
)

// Ports defines the queue module ports
type Ports struct {
	Submitter domain.SubmitterPort
	Status    domain.StatusPort
	Worker    domain.WorkerPort
}

// Module implements the queue module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the queue module around the backfill runner port
func New(deps modkit.Deps, runner bfdomain.RunnerPort) *Module {
	opts := FromConfig(deps.Cfg)

	svc := service.New(deps.PG, repo.NewPG(), runner, service.Config{
		PollInterval: opts.PollInterval,
		StaleAfter:   opts.StaleAfter,
	})

	m := &Module{deps: deps}
	m.ports = Ports{Submitter: svc, Status: svc, Worker: svc}
	return m
}

// NewSubmit constructs the queue module without a worker. The API binary
// mounts submit and status only; the Worker port stays nil
func NewSubmit(deps modkit.Deps) *Module {
	svc := service.NewSubmit(deps.PG, repo.NewPG())

	m := &Module{deps: deps}
	m.ports = Ports{Submitter: svc, Status: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "queue" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Prefix returns the module prefix (none)
func (m *Module) Prefix() string { return "" }

// MountRoutes is a no-op as the queue has no routes of its own
func (m *Module) MountRoutes(_ phttp.Router) {}
