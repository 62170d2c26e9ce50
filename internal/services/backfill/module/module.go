// Package module provides the backfill module implementation
package module

import (
	"threadmirror/internal/adapters/content"
	"threadmirror/internal/adapters/forum/discord"
	"threadmirror/internal/modkit"
	phttp "threadmirror/internal/platform/net/http"
	"threadmirror/internal/services/backfill/dest"
	"threadmirror/internal/services/backfill/domain"
	"threadmirror/internal/services/backfill/repo"
	"threadmirror/internal/services/backfill/service"
	"threadmirror/internal/services/backfill/source"
)

// Ports defines the backfill module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the backfill module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the backfill module.
// It wires the source and destination adapters and the orchestrator using
// config from deps.Cfg and mounts no routes
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)

	storeBinder := repo.NewPG()

	src := source.NewDiscord(discord.NewClient(discord.Options{
		BaseURL:    opts.DiscordBaseURL,
		BotToken:   opts.DiscordToken,
		Timeout:    opts.DiscordTimeout,
		MaxRetries: opts.DiscordRetries,
	}))

	factory := content.IntegrationFactory{
		ServerURL:      opts.IntegrationURL,
		APIKey:         opts.ContentAPIKey,
		ContentBaseURL: opts.ContentBaseURL,
	}
	registry := content.NewRegistry(factory.Build, content.RegistryOptions{
		TTL: opts.RegistryTTL,
	})

	svc := service.New(
		deps.PG, storeBinder,
		src, dest.NewRegistry(registry),
		service.Config{
			AdmitInterval:   opts.AdmitInterval,
			StarterAttempts: opts.StarterAttempts,
			StarterDelay:    opts.StarterDelay,
		},
	)

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "backfill" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Prefix returns the module prefix (none)
func (m *Module) Prefix() string { return "" }

// MountRoutes is a no-op as backfill has no routes
func (m *Module) MountRoutes(_ phttp.Router) {}
