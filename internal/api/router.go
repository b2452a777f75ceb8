// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/encorelive/feedengine/internal/cache"
	"github.com/encorelive/feedengine/internal/config"
	"github.com/encorelive/feedengine/internal/feed"
)

// Router wires the feed engine to its HTTP routes.
type Router struct {
	engine *feed.Engine
	cache  cache.Store
	cfg    *config.Config
}

// New creates a Router over the given engine and cache store.
func New(engine *feed.Engine, c cache.Store, cfg *config.Config) *Router {
	return &Router{engine: engine, cache: c, cfg: cfg}
}

// Routes builds the Chi handler tree.
//
// Global middleware: request ID, real IP, panic recovery, CORS and the
// structured request log. Rate limiting and Prometheus instrumentation apply
// to the feed route only; health and metrics stay unthrottled so probes and
// scrapes never get rejected.
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsHandler(rt.cfg.Server.CORSOrigins))
	r.Use(requestLogger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/health", func(r chi.Router) {
			r.Get("/live", rt.handleLive)
			r.Get("/ready", rt.handleReady)
		})

		r.Group(func(r chi.Router) {
			r.Use(rateLimiter(rt.cfg.Server.RateLimitReqs, rt.cfg.Server.RateLimitWindow))
			r.Use(prometheusMetrics)
			r.Get("/feed", rt.handleFeed)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed", nil)
	})

	return r
}
