package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
)

// Param returns a URL path parameter bound by the router, empty when absent
func Param(r *stdhttp.Request, name string) string { return chi.URLParam(r, name) }
