// Package modkit is the assembly kit modules are built from: a Module
// surface, shared Deps, and functional options consumed by Build
package modkit

import (
	phttp "threadmirror/internal/platform/net/http"
)

// Module is what every mountable unit exposes. The surface stays small
// so modules only know each other through ports
type Module interface {
	// MountRoutes attaches the module's HTTP routes to the router seam
	MountRoutes(r phttp.Router)
	// Ports exposes the module's port bundle for cross module wiring
	Ports() any

	// Name identifies the module
	Name() string
}

// Builder is the conventional constructor shape: modules expose
// New(deps Deps, opts ...Option) Module and usually lean on Build
type Builder func(Deps, ...Option) Module
