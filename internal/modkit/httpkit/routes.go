package httpkit

import (
	"net/http"

	phttp "threadmirror/internal/platform/net/http"
)

// Param returns a URL path parameter bound by the router, empty when absent
func Param(r *http.Request, name string) string { return phttp.Param(r, name) }

// MountUnder mounts a subrouter at prefix and applies per-module middlewares
func MountUnder(r Router, prefix string, mw []func(http.Handler) http.Handler, mount func(Router)) {
	r.Route(prefix, func(sub Router) {
		if len(mw) > 0 {
			sub.Use(mw...)
		}
		mount(sub)
	})
}
