package internal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/notebase/internal/activities"
	"github.com/starford/notebase/internal/content"
	"github.com/starford/notebase/internal/filterstore"
	"github.com/starford/notebase/internal/querycache"
)

// ClientStack is the client side of notebase: a cached content client, the
// activities service built on it and the persisted filter state.
type ClientStack struct {
	Cached     *querycache.CachedClient
	Activities *activities.Service
	Filters    *filterstore.Store
}

// Close stops pending feed reloads.
func (s *ClientStack) Close() {
	s.Activities.Close()
}

// NewContentClient selects the content client adapter named by
// cfg.Client.Backend. A live client with credentials is logged in before it
// is returned.
func NewContentClient(ctx context.Context, cfg *Config, logger *slog.Logger) (content.Client, error) {
	switch cfg.Client.Backend {
	case BackendMock:
		return content.NewMemory(
			content.WithMemoryLogger(logger),
			content.WithRecords(content.DemoRecords()...),
		), nil

	case BackendLive, "":
		c, err := content.NewHTTPClient(cfg.Client.BaseURL,
			content.WithTimeout(cfg.Client.Timeout),
			content.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if cfg.Client.Email != "" {
			if _, err := c.Authenticate(ctx, cfg.Client.Email, cfg.Client.Password); err != nil {
				return nil, fmt.Errorf("login as %s: %w", cfg.Client.Email, err)
			}
			logger.Debug("content client authenticated", slog.String("email", cfg.Client.Email))
		}
		return c, nil

	default:
		return nil, fmt.Errorf("unknown client backend %q", cfg.Client.Backend)
	}
}

// OpenClient builds the client stack for cfg. ctx bounds the login and the
// debounced feed reloads.
func OpenClient(ctx context.Context, cfg *Config, logger *slog.Logger) (*ClientStack, error) {
	client, err := NewContentClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	filters, err := filterstore.Open(cfg.Filters.Path, logger)
	if err != nil {
		return nil, err
	}

	cached := querycache.NewCachedClient(client, querycache.Policy{
		StaleTime: cfg.Cache.StaleTime,
		GCTime:    cfg.Cache.GCTime,
	})
	acts := activities.New(cached,
		activities.WithLogger(logger),
		activities.WithDebounce(cfg.Cache.Debounce),
		activities.WithContext(ctx),
	)
	return &ClientStack{Cached: cached, Activities: acts, Filters: filters}, nil
}
