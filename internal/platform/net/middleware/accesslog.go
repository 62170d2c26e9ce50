// Package middleware holds adapters and in house middlewares
package middleware

import (
	"net/http"
	"time"

	"threadmirror/internal/platform/logger"
)

// AccessLogOptions tunes the access log middleware
type AccessLogOptions struct {
	// Slow promotes requests taking >= Slow to warn level; 0 leaves everything at info
	Slow time.Duration
}

// statusWriter records the status code and body size as the handler writes
type statusWriter struct {
	http.ResponseWriter
	status  int
	written int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	n, err := sw.ResponseWriter.Write(b)
	if n > 0 {
		sw.written += n
	}
	return n, err
}

// AccessLogZerolog emits one line per request with method, path, status,
// elapsed time and bytes written, via the request scoped logger
func AccessLogZerolog(opt AccessLogOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(sw, r)

			elapsed := time.Since(start)
			log := logger.C(r.Context())
			evt := log.Info()
			if opt.Slow > 0 && elapsed >= opt.Slow {
				evt = log.Warn()
			}
			evt.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Dur("elapsed", elapsed).
				Int("bytes", sw.written).
				Msg("request done")
		})
	}
}
