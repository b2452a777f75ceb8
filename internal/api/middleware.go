// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/encorelive/feedengine/internal/logging"
	"github.com/encorelive/feedengine/internal/metrics"
)

// requestID propagates an upstream X-Request-ID or generates one, echoes it
// on the response, and threads it through the logging context so every log
// line for the request carries the same id.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = logging.GenerateRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := logging.ContextWithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger emits one structured log line per request with method, path,
// status and latency.
func requestLogger(next http.Handler) http.Handler {
	logger := logging.WithComponent("api")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		logger.Info().
			Str("request_id", logging.RequestIDFromContext(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// prometheusMetrics records request counts, latency and the active-request
// gauge for every instrumented route.
func prometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		metrics.RecordAPIRequest(r.Method, r.URL.Path, strconv.Itoa(sw.status), time.Since(start))
	})
}

// corsHandler builds the CORS middleware from the configured origins.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         86400,
	})
}

// rateLimiter builds a per-IP limiter. Rejections are counted per endpoint
// and answered with the standard error envelope.
func rateLimiter(requests int, window time.Duration) func(http.Handler) http.Handler {
	if requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.APIRateLimitHits.WithLabelValues(r.URL.Path).Inc()
			respondError(w, r, http.StatusTooManyRequests, ErrCodeRateLimited,
				"rate limit exceeded, retry later", nil)
		}),
	)
}

// statusWriter captures the response status code for logging and metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
