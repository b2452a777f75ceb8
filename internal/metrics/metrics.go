// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

// Package metrics provides Prometheus instrumentation for production
// observability:
//   - Feed assembly latency and throughput per mode
//   - Per-source fetch performance and fallback activations
//   - API endpoint latency and throughput
//   - Cache efficiency
//   - Circuit breaker state
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Feed Assembly Metrics
	FeedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_requests_total",
			Help: "Total number of feed assembly requests",
		},
		[]string{"mode"},
	)

	FeedAssemblyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_assembly_duration_seconds",
			Help:    "End-to-end feed assembly duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"mode"},
	)

	FeedItemsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feed_items_returned",
			Help:    "Number of items returned per feed page",
			Buckets: []float64{0, 5, 10, 20, 50, 100},
		},
	)

	FeedItemsDeduplicated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_items_deduplicated_total",
			Help: "Total number of items dropped by deduplication",
		},
		[]string{"match"}, // "exact", "fuzzy"
	)

	FeedItemsDiversityCapped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_items_diversity_capped_total",
			Help: "Total number of event items dropped by the per-artist cap",
		},
	)

	// Source Fetch Metrics
	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_fetch_duration_seconds",
			Help:    "Duration of per-source candidate fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source", "strategy"}, // strategy: "primary", "fallback"
	)

	SourceFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetch_errors_total",
			Help: "Total number of per-source fetch failures",
		},
		[]string{"source", "strategy"},
	)

	SourceFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fallbacks_total",
			Help: "Total number of fallback strategy activations",
		},
		[]string{"source"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "network_reviews", "personalized_events", "profile", ...
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions (TTL expiry or capacity)",
		},
		[]string{"cache_type"},
	)

	// Geocoding Metrics
	GeocodeCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_calls_total",
			Help: "Total number of forward-geocoding API calls",
		},
		[]string{"result"}, // "success", "error"
	)

	GeocodeCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "geocode_call_duration_seconds",
			Help:    "Duration of forward-geocoding API calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordFeedRequest records a completed feed assembly.
func RecordFeedRequest(mode string, duration time.Duration, itemCount int) {
	FeedRequestsTotal.WithLabelValues(mode).Inc()
	FeedAssemblyDuration.WithLabelValues(mode).Observe(duration.Seconds())
	FeedItemsReturned.Observe(float64(itemCount))
}

// RecordSourceFetch records a per-source fetch attempt.
func RecordSourceFetch(source, strategy string, duration time.Duration, err error) {
	SourceFetchDuration.WithLabelValues(source, strategy).Observe(duration.Seconds())
	if err != nil {
		SourceFetchErrors.WithLabelValues(source, strategy).Inc()
	}
}

// RecordFallback records a fallback strategy activation for a source.
func RecordFallback(source string) {
	SourceFallbacks.WithLabelValues(source).Inc()
}

// RecordAPIRequest records a completed HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCacheHit records a cache hit for the given cache type.
func RecordCacheHit(cacheType string) {
	CacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss for the given cache type.
func RecordCacheMiss(cacheType string) {
	CacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordGeocodeCall records a forward-geocoding API call.
func RecordGeocodeCall(duration time.Duration, err error) {
	GeocodeCallDuration.Observe(duration.Seconds())
	if err != nil {
		GeocodeCalls.WithLabelValues("error").Inc()
		return
	}
	GeocodeCalls.WithLabelValues("success").Inc()
}
