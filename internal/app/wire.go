package service

import (
	"fmt"
	"net/http"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/backend"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/fallback"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/config"
	"github.com/DhanushPadarthi/trailhead-leaderboard/pkg/logger"
)

// Components are the adapters built from configuration.
type Components struct {
	Backend  *backend.Client
	Fallback fallback.Source
	// Publisher writes snapshots where Fallback reads them.
	Publisher fallback.Publisher
	closers   []func() error
}

// Close releases connections held by the components.
func (c *Components) Close() error {
	var first error
	for _, fn := range c.closers {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// BuildComponents creates the backend client and picks the fallback source:
// redis when an address is set, else the URL, else the file.
func BuildComponents(cfg *config.Config) (*Components, error) {
	clientCfg := backend.DefaultClientConfig(cfg.BackendURL)
	clientCfg.Timeout = cfg.BackendTimeout()
	client, err := backend.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("build backend client: %w", err)
	}

	c := &Components{Backend: client}
	switch {
	case cfg.FallbackRedisAddr != "":
		redisCfg := fallback.DefaultRedisConfig(cfg.FallbackRedisAddr)
		redisCfg.Password = cfg.FallbackRedisPassword
		redisCfg.DB = cfg.FallbackRedisDB
		rdb := fallback.NewRedisClient(redisCfg)
		c.Fallback = fallback.NewRedisSource(rdb, cfg.FallbackRedisKey)
		c.Publisher = fallback.NewRedisPublisher(rdb, cfg.FallbackRedisKey, 0)
		c.closers = append(c.closers, rdb.Close)
	case cfg.FallbackURL != "":
		c.Fallback = fallback.NewHTTPSource(cfg.FallbackURL, &http.Client{Timeout: cfg.BackendTimeout()})
	case cfg.FallbackPath != "":
		c.Fallback = fallback.NewFileSource(cfg.FallbackPath)
		c.Publisher = fallback.NewFilePublisher(cfg.FallbackPath)
	}
	return c, nil
}

// ConfigOptions translates configuration into service options. Auto-refresh
// stays off in production.
func ConfigOptions(cfg *config.Config, c *Components) []Option {
	opts := []Option{
		WithSyncDwell(cfg.SyncDwell()),
		WithBulkSyncDwell(cfg.BulkSyncDwell()),
		WithRefreshInterval(cfg.AutoRefreshInterval()),
		WithQueueSize(cfg.SyncQueueSize),
		WithWorkerCount(cfg.SyncWorkerCount),
		WithJobTimeout(cfg.BackendTimeout()),
		WithLoadTimeout(2 * cfg.BackendTimeout()),
		WithFailureLogSize(cfg.FailureLogSize),
		WithLogger(logger.Get().Named("service")),
	}
	if c != nil && c.Fallback != nil {
		opts = append(opts, WithFallback(c.Fallback))
	}
	return opts
}
