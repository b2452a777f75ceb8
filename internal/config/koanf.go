// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/feedengine/config.yaml",
	"/etc/feedengine/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8460,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: 1 * time.Minute,
			Environment:     "development",
		},
		Feed: FeedConfig{
			DefaultLimit:       20,
			MaxLimit:           100,
			OwnReviewsLimit:    20,
			FetchTimeout:       8 * time.Second,
			TieThreshold:       0.1,
			MaxPerArtist:       1,
			DefaultRadiusMiles: 50,
			BreakerMaxFailures: 5,
			BreakerInterval:    1 * time.Minute,
			BreakerTimeout:     30 * time.Second,
		},
		Cache: CacheConfig{
			Backend:       "memory",
			MaxEntries:    10000,
			SweepInterval: 1 * time.Minute,
			RedisAddr:     "127.0.0.1:6379",
			RedisPassword: "",
			RedisDB:       0,
		},
		Upstream: UpstreamConfig{
			BaseURL: "http://127.0.0.1:3000",
			APIKey:  "",
			Timeout: 10 * time.Second,
		},
		Geocode: GeocodeConfig{
			Enabled:       false,
			BaseURL:       "https://nominatim.openstreetmap.org",
			RatePerSecond: 1,
			Timeout:       10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// This function provides:
//   - Type-safe configuration unmarshaling
//   - Clear precedence: ENV > File > Defaults
//   - Support for nested configuration via koanf struct tags
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// Transform environment variable names to koanf paths:
	// HTTP_PORT -> server.port
	// CACHE_BACKEND -> cache.backend
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// This is necessary because env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file): skip
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - CACHE_BACKEND -> cache.backend
//   - FEED_FETCH_TIMEOUT -> feed.fetch_timeout
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server mappings
		"http_host":           "server.host",
		"http_port":           "server.port",
		"http_timeout":        "server.timeout",
		"shutdown_timeout":    "server.shutdown_timeout",
		"cors_origins":        "server.cors_origins",
		"rate_limit_requests": "server.rate_limit_reqs",
		"rate_limit_window":   "server.rate_limit_window",
		"environment":         "server.environment",

		// Feed mappings
		"feed_default_limit":        "feed.default_limit",
		"feed_max_limit":            "feed.max_limit",
		"feed_own_reviews_limit":    "feed.own_reviews_limit",
		"feed_fetch_timeout":        "feed.fetch_timeout",
		"feed_tie_threshold":        "feed.tie_threshold",
		"feed_max_per_artist":       "feed.max_per_artist",
		"feed_default_radius_miles": "feed.default_radius_miles",
		"feed_breaker_max_failures": "feed.breaker_max_failures",
		"feed_breaker_interval":     "feed.breaker_interval",
		"feed_breaker_timeout":      "feed.breaker_timeout",

		// Cache mappings
		"cache_backend":        "cache.backend",
		"cache_max_entries":    "cache.max_entries",
		"cache_sweep_interval": "cache.sweep_interval",
		"redis_addr":           "cache.redis_addr",
		"redis_password":       "cache.redis_password",
		"redis_db":             "cache.redis_db",

		// Upstream mappings
		"upstream_base_url": "upstream.base_url",
		"upstream_api_key":  "upstream.api_key",
		"upstream_timeout":  "upstream.timeout",

		// Geocode mappings
		"geocode_enabled":  "geocode.enabled",
		"geocode_base_url": "geocode.base_url",
		"geocode_rate":     "geocode.rate_per_second",
		"geocode_timeout":  "geocode.timeout",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them.
	// This prevents random environment variables from polluting config.
	return ""
}

// WatchConfigFile sets up a file watcher for hot-reload capability.
// Note: The caller is responsible for mutex protection when accessing
// configuration during reloads.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
