package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	perr "threadmirror/internal/platform/errors"
	"threadmirror/internal/platform/logger"
)

// Writer is the destination surface the replication pipeline consumes.
// *Client satisfies it; tests substitute fakes
type Writer interface {
	ResolveAuthor(ctx context.Context, in AuthorInput) (Author, error)
	CreateEntity(ctx context.Context, in EntityInput) (Entity, error)
	CreateComment(ctx context.Context, in CommentInput) (Comment, error)
}

// Factory builds a Writer for one guild, usually by resolving the
// guild's project integration first
type Factory func(ctx context.Context, guildID string) (Writer, error)

// RegistryOptions configures the per guild client registry
type RegistryOptions struct {
	// TTL bounds how long a resolved client is reused before the
	// integration is looked up again. Zero means clients never expire
	TTL time.Duration
}

type regEntry struct {
	w       Writer
	expires time.Time
}

// Registry hands out one Writer per guild with TTL based refresh
type Registry struct {
	mu      sync.Mutex
	opts    RegistryOptions
	factory Factory
	entries map[string]regEntry
	now     func() time.Time
	log     logger.Logger
}

// NewRegistry creates a Registry around a factory
func NewRegistry(factory Factory, opts RegistryOptions) *Registry {
	if factory == nil {
		panic("content: nil factory")
	}
	return &Registry{
		opts:    opts,
		factory: factory,
		entries: make(map[string]regEntry),
		now:     time.Now,
		log:     *logger.Named("content.registry"),
	}
}

// For returns the Writer for guildID, building it on first use
// or after the cached one expires
func (r *Registry) For(ctx context.Context, guildID string) (Writer, error) {
	r.mu.Lock()
	if e, ok := r.entries[guildID]; ok {
		if e.expires.IsZero() || r.now().Before(e.expires) {
			r.mu.Unlock()
			return e.w, nil
		}
		delete(r.entries, guildID)
		r.log.Debug().Str("guild_id", guildID).Msg("content client expired, refreshing")
	}
	r.mu.Unlock()

	w, err := r.factory(ctx, guildID)
	if err != nil {
		return nil, err
	}

	var expires time.Time
	if r.opts.TTL > 0 {
		expires = r.now().Add(r.opts.TTL)
	}

	r.mu.Lock()
	r.entries[guildID] = regEntry{w: w, expires: expires}
	r.mu.Unlock()
	return w, nil
}

// Evict drops the cached client for guildID, forcing a rebuild next use
func (r *Registry) Evict(guildID string) {
	r.mu.Lock()
	delete(r.entries, guildID)
	r.mu.Unlock()
}

// IntegrationFactory resolves a guild's project id from the integration
// service and builds a real Client for it
type IntegrationFactory struct {
	// ServerURL is the integration service base URL
	ServerURL string
	// APIKey is the shared service key passed to every built client
	APIKey string
	// ContentBaseURL is the content service base URL for built clients
	ContentBaseURL string

	HTTP *http.Client
}

// Build satisfies Factory
func (f IntegrationFactory) Build(ctx context.Context, guildID string) (Writer, error) {
	projectID, err := f.findProjectID(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if projectID == "" {
		return nil, perr.NotFoundf("no project integration linked for guild %s", guildID)
	}
	return NewClient(Options{
		BaseURL:   f.ContentBaseURL,
		ProjectID: projectID,
		APIKey:    f.APIKey,
	}), nil
}

func (f IntegrationFactory) findProjectID(ctx context.Context, guildID string) (string, error) {
	hc := f.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	u := fmt.Sprintf("%s/discord-bot/find-integration-by-server-id?serverId=%s",
		f.ServerURL, url.QueryEscape(guildID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnknown, "integration request failed")
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnavailable, "integration lookup failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", perr.Newf(perr.ErrorCodeUnknown, "integration lookup status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", err
	}
	// the integration service returns either a bare project id string
	// or an object carrying it
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return s, nil
	}
	var obj struct {
		ProjectID string `json:"projectId"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeJSON, "integration decode failed")
	}
	return obj.ProjectID, nil
}
