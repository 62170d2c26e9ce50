package discord

import (
	"io"
	"net/http"
	"strconv"
)

// parseRetryAfter reads the Retry-After header as fractional seconds
func parseRetryAfter(h http.Header) float64 {
	s := h.Get("Retry-After")
	if s == "" {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	return rc.Close()
}
