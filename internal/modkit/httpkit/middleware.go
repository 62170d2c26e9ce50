package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	"threadmirror/internal/platform/net/middleware"
)

// CommonStack is the middleware stack every API scope mounts, ordered
// correlation first, then recovery, then the response shaping layers
func CommonStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID(),
		middleware.RealIP(),

		middleware.RecoverJSON,

		middleware.NoCache(),
		middleware.AccessLogZerolog(middleware.AccessLogOptions{}),

		// cross-origin defaults; override in main when a deployment needs more
		middleware.CORS(middleware.CORSOptions{}),
		middleware.Compress(flate.BestSpeed),
		middleware.Heartbeat("/health"),
		middleware.Timeout(30 * time.Second),
	}
}
