// Package config defines service configuration and its defaults.
//
// Conventions:
//   - Durations are integer milliseconds so YAML and env values stay flat.
//   - New returns defaults; Load layers file and environment on top.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Environment names recognised by the service.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects "text" or "json" log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Environment is "development" or "production". Auto-refresh only runs outside production.
	Environment string `koanf:"environment"`

	// BackendURL is the base URL of the scraper backend.
	BackendURL string `koanf:"backend_url"`

	// BackendTimeoutMS bounds every request to the backend.
	BackendTimeoutMS int `koanf:"backend_timeout_ms"`

	// FallbackPath names a static snapshot JSON file.
	FallbackPath string `koanf:"fallback_path"`

	// FallbackURL, when set, is fetched instead of FallbackPath.
	FallbackURL string `koanf:"fallback_url"`

	// FallbackRedisAddr and FallbackRedisKey, when set, take precedence over file and URL.
	FallbackRedisAddr     string `koanf:"fallback_redis_addr"`
	FallbackRedisPassword string `koanf:"fallback_redis_password"`
	FallbackRedisDB       int    `koanf:"fallback_redis_db"`
	FallbackRedisKey      string `koanf:"fallback_redis_key"`

	// RefreshIntervalMS is the auto-refresh period; 0 disables it.
	RefreshIntervalMS int `koanf:"refresh_interval_ms"`

	// SyncDwellMS is the minimum time a single participant stays pending.
	SyncDwellMS int `koanf:"sync_dwell_ms"`

	// BulkSyncDwellMS is the minimum time a bulk refresh stays pending.
	BulkSyncDwellMS int `koanf:"bulk_sync_dwell_ms"`

	// SyncWaitMS is how long the API waits for a trigger outcome before answering "pending".
	SyncWaitMS int `koanf:"sync_wait_ms"`

	// SyncQueueSize bounds the trigger dispatch queue.
	SyncQueueSize int `koanf:"sync_queue_size"`

	// SyncWorkerCount bounds concurrent triggers against the backend.
	SyncWorkerCount int `koanf:"sync_worker_count"`

	// FailureLogSize is how many late trigger failures are retained.
	FailureLogSize int `koanf:"failure_log_size"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		Environment:       EnvDevelopment,
		BackendURL:        "http://localhost:8000",
		BackendTimeoutMS:  15_000,
		FallbackPath:      "static-data.json",
		FallbackRedisKey:  "trailblaze:snapshot",
		RefreshIntervalMS: 10_000,
		SyncDwellMS:       1_000,
		BulkSyncDwellMS:   3_000,
		SyncWaitMS:        2_000,
		SyncQueueSize:     256,
		SyncWorkerCount:   5,
		FailureLogSize:    50,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.BackendURL == "":
		return fmt.Errorf("%w: backend_url must not be empty", ErrInvalidConfig)
	case c.BackendTimeoutMS <= 0:
		return fmt.Errorf("%w: backend_timeout_ms must be positive", ErrInvalidConfig)
	case c.RefreshIntervalMS < 0:
		return fmt.Errorf("%w: refresh_interval_ms must not be negative", ErrInvalidConfig)
	case c.SyncDwellMS < 0 || c.BulkSyncDwellMS < 0 || c.SyncWaitMS < 0:
		return fmt.Errorf("%w: dwell and wait durations must not be negative", ErrInvalidConfig)
	case c.SyncQueueSize <= 0:
		return fmt.Errorf("%w: sync_queue_size must be positive", ErrInvalidConfig)
	case c.SyncWorkerCount <= 0:
		return fmt.Errorf("%w: sync_worker_count must be positive", ErrInvalidConfig)
	case c.FailureLogSize <= 0:
		return fmt.Errorf("%w: failure_log_size must be positive", ErrInvalidConfig)
	}
	switch c.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("%w: environment must be %q or %q", ErrInvalidConfig, EnvDevelopment, EnvProduction)
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvProduction)
}

// AutoRefreshInterval returns the polling period, or 0 when polling is disabled.
func (c *Config) AutoRefreshInterval() time.Duration {
	if c.IsProduction() {
		return 0
	}
	return ms(c.RefreshIntervalMS)
}

// BackendTimeout returns BackendTimeoutMS as a duration.
func (c *Config) BackendTimeout() time.Duration { return ms(c.BackendTimeoutMS) }

// SyncDwell returns SyncDwellMS as a duration.
func (c *Config) SyncDwell() time.Duration { return ms(c.SyncDwellMS) }

// BulkSyncDwell returns BulkSyncDwellMS as a duration.
func (c *Config) BulkSyncDwell() time.Duration { return ms(c.BulkSyncDwellMS) }

// SyncWait returns SyncWaitMS as a duration.
func (c *Config) SyncWait() time.Duration { return ms(c.SyncWaitMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
