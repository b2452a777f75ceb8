// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package config

import (
	"fmt"
	"strings"
)

// validCacheBackends lists the supported cache store implementations.
var validCacheBackends = map[string]bool{
	"memory": true,
	"redis":  true,
}

// Validate checks the configuration for invalid or inconsistent values.
// It runs every section validator and returns the first error encountered.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateFeed,
		c.validateCache,
		c.validateUpstream,
		c.validateGeocode,
		c.validateLogging,
	}

	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}
	if c.Server.RateLimitReqs < 0 {
		return fmt.Errorf("server.rate_limit_reqs must not be negative, got %d", c.Server.RateLimitReqs)
	}
	switch c.Server.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("server.environment must be 'development' or 'production', got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateFeed() error {
	if c.Feed.DefaultLimit < 1 {
		return fmt.Errorf("feed.default_limit must be at least 1, got %d", c.Feed.DefaultLimit)
	}
	if c.Feed.MaxLimit < c.Feed.DefaultLimit {
		return fmt.Errorf("feed.max_limit (%d) must not be below feed.default_limit (%d)",
			c.Feed.MaxLimit, c.Feed.DefaultLimit)
	}
	if c.Feed.OwnReviewsLimit < 1 {
		return fmt.Errorf("feed.own_reviews_limit must be at least 1, got %d", c.Feed.OwnReviewsLimit)
	}
	if c.Feed.FetchTimeout <= 0 {
		return fmt.Errorf("feed.fetch_timeout must be positive, got %s", c.Feed.FetchTimeout)
	}
	if c.Feed.TieThreshold < 0 || c.Feed.TieThreshold > 1 {
		return fmt.Errorf("feed.tie_threshold must be within [0, 1], got %g", c.Feed.TieThreshold)
	}
	if c.Feed.MaxPerArtist < 1 {
		return fmt.Errorf("feed.max_per_artist must be at least 1, got %d", c.Feed.MaxPerArtist)
	}
	if c.Feed.DefaultRadiusMiles <= 0 {
		return fmt.Errorf("feed.default_radius_miles must be positive, got %g", c.Feed.DefaultRadiusMiles)
	}
	return nil
}

func (c *Config) validateCache() error {
	backend := strings.ToLower(c.Cache.Backend)
	if !validCacheBackends[backend] {
		return fmt.Errorf("cache.backend must be 'memory' or 'redis', got %q", c.Cache.Backend)
	}
	if backend == "memory" && c.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache.max_entries must be at least 1, got %d", c.Cache.MaxEntries)
	}
	if backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required when cache.backend is 'redis'")
	}
	if c.Cache.SweepInterval <= 0 {
		return fmt.Errorf("cache.sweep_interval must be positive, got %s", c.Cache.SweepInterval)
	}
	return nil
}

func (c *Config) validateUpstream() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	if !strings.HasPrefix(c.Upstream.BaseURL, "http://") && !strings.HasPrefix(c.Upstream.BaseURL, "https://") {
		return fmt.Errorf("upstream.base_url must start with http:// or https://, got %q", c.Upstream.BaseURL)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive, got %s", c.Upstream.Timeout)
	}
	return nil
}

func (c *Config) validateGeocode() error {
	if !c.Geocode.Enabled {
		return nil
	}
	if c.Geocode.BaseURL == "" {
		return fmt.Errorf("geocode.base_url is required when geocoding is enabled")
	}
	if !strings.HasPrefix(c.Geocode.BaseURL, "http://") && !strings.HasPrefix(c.Geocode.BaseURL, "https://") {
		return fmt.Errorf("geocode.base_url must start with http:// or https://, got %q", c.Geocode.BaseURL)
	}
	if c.Geocode.RatePerSecond <= 0 {
		return fmt.Errorf("geocode.rate_per_second must be positive, got %g", c.Geocode.RatePerSecond)
	}
	if c.Geocode.Timeout <= 0 {
		return fmt.Errorf("geocode.timeout must be positive, got %s", c.Geocode.Timeout)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("logging.level must be a valid log level, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	return nil
}
