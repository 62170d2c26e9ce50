package module

import (
	"time"

	"threadmirror/internal/platform/config"
)

// Options holds configuration options for the queue worker
type Options struct {
	PollInterval time.Duration
	StaleAfter   time.Duration
}

// FromConfig reads the queue options from config with CORE_QUEUE_ prefix
func FromConfig(cfg config.Conf) Options {
	q := cfg.Prefix("CORE_QUEUE_")
	return Options{
		PollInterval: q.MayDuration("POLL_INTERVAL", time.Second),
		StaleAfter:   q.MayDuration("STALE_AFTER", 5*time.Minute),
	}
}
