// Package module holds the bare module contract plus the name keyed registry
package module

import (
	phttp "threadmirror/internal/platform/net/http"
)

// Module is the contract modkit builds against. It lives in its own
// package so a module exporting a ports type does not import modkit back
type Module interface {
	MountRoutes(r phttp.Router)
	Ports() any
	Name() string
}
