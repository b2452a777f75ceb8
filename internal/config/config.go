// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from environment variables
// and config files.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via environment variables
//
// Configuration Categories:
//
//  1. Server: HTTP listener, timeouts, CORS, rate limiting
//  2. Feed: Assembly limits, fan-out timeouts, ranking and diversity knobs
//  3. Cache: Backend selection (memory or redis) and retention
//  4. Geocode: Optional forward-geocoding client for city filters
//  5. Logging: Log levels and output formats
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access from
// multiple goroutines.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Feed     FeedConfig     `koanf:"feed"`
	Cache    CacheConfig    `koanf:"cache"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Geocode  GeocodeConfig  `koanf:"geocode"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST: Listen address (default: 0.0.0.0)
//   - HTTP_PORT: Listen port (default: 8460)
//   - HTTP_TIMEOUT: Request timeout (default: 30s)
//   - SHUTDOWN_TIMEOUT: Graceful shutdown deadline (default: 15s)
//   - CORS_ORIGINS: Comma-separated allowed origins (default: *)
//   - RATE_LIMIT_REQUESTS / RATE_LIMIT_WINDOW: Per-IP request budget
//   - ENVIRONMENT: development or production
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	Environment     string        `koanf:"environment"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FeedConfig holds feed assembly settings.
//
// TieThreshold is the score gap under which two items count as effectively
// tied, letting recency decide their order. MaxPerArtist caps how many event
// items a single artist may occupy in one response.
type FeedConfig struct {
	DefaultLimit       int           `koanf:"default_limit"`
	MaxLimit           int           `koanf:"max_limit"`
	OwnReviewsLimit    int           `koanf:"own_reviews_limit"`
	FetchTimeout       time.Duration `koanf:"fetch_timeout"`
	TieThreshold       float64       `koanf:"tie_threshold"`
	MaxPerArtist       int           `koanf:"max_per_artist"`
	DefaultRadiusMiles float64       `koanf:"default_radius_miles"`

	// Circuit breaker settings for the primary aggregate sources.
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerInterval    time.Duration `koanf:"breaker_interval"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// CacheConfig holds cache backend settings.
//
// Backend selects the store implementation:
//   - "memory": In-process bounded store (default, single instance)
//   - "redis": Shared Redis store for multi-instance deployments
type CacheConfig struct {
	Backend       string        `koanf:"backend"`
	MaxEntries    int           `koanf:"max_entries"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
}

// UpstreamConfig holds the connection settings for the data gateway that
// serves the aggregate feed queries (reviews, connections, events, activity).
// The gateway speaks a PostgREST-style HTTP interface: table reads under
// /rows/{table} and aggregate functions under /rpc/{function}.
//
// Environment Variables:
//   - UPSTREAM_BASE_URL: Gateway base URL (required)
//   - UPSTREAM_API_KEY: Bearer token sent with every request
//   - UPSTREAM_TIMEOUT: Per-request timeout (default: 10s)
type UpstreamConfig struct {
	BaseURL string        `koanf:"base_url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

// GeocodeConfig holds the optional forward-geocoding client settings used to
// resolve city filters to coordinates.
type GeocodeConfig struct {
	Enabled       bool          `koanf:"enabled"`
	BaseURL       string        `koanf:"base_url"`
	RatePerSecond float64       `koanf:"rate_per_second"`
	Timeout       time.Duration `koanf:"timeout"`
}

// LoggingConfig holds logging settings.
//
// Environment Variables:
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
