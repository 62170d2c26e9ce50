// Package raw reads environment variables during bootstrap, before the
// logger exists; it must stay dependency free to avoid import cycles
package raw

import (
	"os"
	"strings"
)

// Conf is a prefixed window over the environment ("LOG_", "PG_", ...)
type Conf struct{ prefix string }

// New returns a Conf rooted at the bare environment
func New() Conf { return Conf{} }

// Prefix narrows the Conf by another prefix segment
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) lookup(key string) string {
	return strings.TrimSpace(os.Getenv(c.prefix + key))
}

// Get returns the trimmed value, or def when the var is unset or blank
func (c Conf) Get(key, def string) string {
	if v := c.lookup(key); v != "" {
		return v
	}
	return def
}

// GetBool accepts 1, true and yes as true; anything else falls to def when blank
func (c Conf) GetBool(key string, def bool) bool {
	v := strings.ToLower(c.lookup(key))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes"
}

// GetInt parses a non-negative decimal; blank or non-numeric values give def
func (c Conf) GetInt(key string, def int) int {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	n := 0
	for _, ch := range []byte(s) {
		if ch < '0' || ch > '9' {
			return def
		}
		n = n*10 + int(ch-'0')
	}
	return n
}
