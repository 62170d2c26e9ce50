package module

import (
	"time"

	"threadmirror/internal/platform/config"
)

// Options holds configuration options for the backfill service
type Options struct {
	AdmitInterval   time.Duration
	StarterAttempts int
	StarterDelay    time.Duration

	// Source platform client
	DiscordBaseURL string
	DiscordToken   string
	DiscordTimeout time.Duration
	DiscordRetries int

	// Destination content service
	ContentBaseURL string
	IntegrationURL string
	ContentAPIKey  string
	ContentTimeout time.Duration
	RegistryTTL    time.Duration
}

// FromConfig reads the backfill options from config with CORE_BACKFILL_,
// SOURCE_DISCORD_, and DEST_CONTENT_ prefixes
func FromConfig(cfg config.Conf) Options {
	bf := cfg.Prefix("CORE_BACKFILL_")
	dc := cfg.Prefix("SOURCE_DISCORD_")
	ct := cfg.Prefix("DEST_CONTENT_")
	return Options{
		AdmitInterval:   bf.MayDuration("INTERVAL", time.Second),
		StarterAttempts: bf.MayInt("STARTER_ATTEMPTS", 5),
		StarterDelay:    bf.MayDuration("STARTER_DELAY", 500*time.Millisecond),

		DiscordBaseURL: dc.MayString("BASE_URL", ""),
		DiscordToken:   dc.MustString("TOKEN"),
		DiscordTimeout: dc.MayDuration("TIMEOUT", 10*time.Second),
		DiscordRetries: dc.MayInt("RETRIES", 5),

		ContentBaseURL: ct.MustString("BASE_URL"),
		IntegrationURL: ct.MustString("INTEGRATION_URL"),
		ContentAPIKey:  ct.MustString("API_KEY"),
		ContentTimeout: ct.MayDuration("TIMEOUT", 15*time.Second),
		RegistryTTL:    ct.MayDuration("REGISTRY_TTL", 10*time.Minute),
	}
}
