// Package module wires the backfill API surface using modkit
package module

import (
	"net/http"

	modkit "threadmirror/internal/modkit"
	"threadmirror/internal/modkit/httpkit"
	str "threadmirror/internal/platform/strings"
	bfhttp "threadmirror/internal/services/api/backfill/http"
	qdomain "threadmirror/internal/services/queue/domain"
)

// Ports declares the queue ports this module consumes
type Ports struct {
	Submitter qdomain.SubmitterPort
	Status    qdomain.StatusPort
}

// Module implements the backfill API module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws      []func(http.Handler) http.Handler
	ports    Ports
	register func(httpkit.Router)
}

// New constructs the backfill API module.
// The queue ports must be injected with modkit.WithPorts
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("backfill_api"),
		modkit.WithPrefix("/backfill"),
	}, opts...)...)

	ports, ok := b.Ports.(Ports)
	if !ok || ports.Submitter == nil || ports.Status == nil {
		panic("backfill api module requires queue ports")
	}

	m := &Module{
		deps:   deps,
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		ports:  ports,
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		bfhttp.Register(r, ports.Submitter, ports.Status)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		m.register(rr)
	})
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
