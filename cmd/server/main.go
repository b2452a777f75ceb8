// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

// Package main is the entry point for the feed engine server.
//
// The server initializes components in the following order:
//
//  1. Configuration: layered Koanf v2 loading (defaults, YAML file, env vars)
//  2. Logging: zerolog, JSON or console per LOG_FORMAT
//  3. Cache: in-process memory store or shared Redis per CACHE_BACKEND
//  4. Upstream: HTTP client for the data gateway backing every source
//  5. Engine: source fetchers with fallback chains piped into the
//     normalize/dedupe/rank/diversity pipeline
//  6. HTTP server: Chi routes with graceful shutdown on SIGINT/SIGTERM
//
// See internal/config for the full list of environment variables.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/encorelive/feedengine/internal/api"
	"github.com/encorelive/feedengine/internal/cache"
	"github.com/encorelive/feedengine/internal/config"
	"github.com/encorelive/feedengine/internal/feed"
	"github.com/encorelive/feedengine/internal/geo"
	"github.com/encorelive/feedengine/internal/logging"
	"github.com/encorelive/feedengine/internal/sources"
	"github.com/encorelive/feedengine/internal/upstream"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Feed engine exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("cache_backend", cfg.Cache.Backend).
		Msg("Starting feed engine")

	store, closeStore := buildCache(cfg.Cache)
	defer closeStore()

	gateway := upstream.NewClient(cfg.Upstream)

	var geocoder geo.Geocoder = geo.StaticGeocoder{}
	if cfg.Geocode.Enabled {
		geocoder = geo.NewClient(cfg.Geocode)
		logging.Info().Str("base_url", cfg.Geocode.BaseURL).Msg("Remote geocoding enabled")
	}

	engine := feed.NewEngine(
		sources.NewOwnReviewsFetcher(gateway, cfg.Feed),
		sources.NewNetworkReviewsFetcher(gateway, gateway, store, cfg.Feed),
		sources.NewPublicReviewsFetcher(gateway),
		sources.NewPersonalizedEventsFetcher(gateway, gateway, gateway, geocoder, store, cfg.Feed),
		sources.NewFriendActivityFetcher(gateway),
		cfg.Feed,
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.New(engine, store, cfg).Routes(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logging.Info().Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("Server shutdown did not finish cleanly")
	}

	logging.Info().Msg("Feed engine stopped gracefully")
	return nil
}

// buildCache constructs the configured cache store and returns it with its
// cleanup function.
func buildCache(cfg config.CacheConfig) (cache.Store, func()) {
	if cfg.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		logging.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis cache")
		return cache.NewRedis(client, "feedengine"), func() {
			if err := client.Close(); err != nil {
				logging.Warn().Err(err).Msg("Redis close failed")
			}
		}
	}

	mem := cache.NewMemory(cfg.MaxEntries, cfg.SweepInterval)
	return mem, mem.Close
}
