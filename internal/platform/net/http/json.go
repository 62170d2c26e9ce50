package http

import (
	stdhttp "net/http"

	"threadmirror/internal/platform/net/http/bind"
)

// JSONHandler adapts a typed handler that consumes a validated JSON body
func JSONHandler[T any](h func(r *stdhttp.Request, in T) Response) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		in, err := bind.ParseJSON[T](r)
		if err != nil {
			Error(err).write(w, r)
			return
		}
		h(r, in).write(w, r)
	}
}

// JSONHandlerNoBody adapts a typed handler that takes no request body
func JSONHandlerNoBody(h func(r *stdhttp.Request) Response) stdhttp.HandlerFunc {
	return Handle(h)
}
