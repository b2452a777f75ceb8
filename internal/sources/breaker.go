// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package sources

import (
	"errors"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/encorelive/feedengine/internal/config"
	"github.com/encorelive/feedengine/internal/logging"
	"github.com/encorelive/feedengine/internal/metrics"
)

// newBreaker builds the circuit breaker guarding one primary aggregate
// call. Only primaries are guarded: fallback queries are cheap basic
// queries and a tripped breaker must route traffic to them, not block it.
//
// The breaker uses real time for its interval and timeout, which is
// intentional for production recovery behavior; tests exercise the
// wrapped stores directly.
func newBreaker[T any](name string, cfg config.FeedConfig) *gobreaker.CircuitBreaker[[]T] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[[]T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := breakerStateString(from), breakerStateString(to)
			logging.Info().
				Str("breaker", name).
				Str("from", fromStr).
				Str("to", toStr).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})
}

// executeBreaker runs fn through the breaker and records the outcome. A
// rejected call (open circuit) is reported to the caller as a failure of
// the primary, which sends the chain to its fallback.
func executeBreaker[T any](cb *gobreaker.CircuitBreaker[[]T], fn func() ([]T, error)) ([]T, error) {
	rows, err := cb.Execute(fn)
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(cb.Name(), "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(cb.Name(), "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(cb.Name(), "failure").Inc()
	}
	return rows, err
}

func breakerStateString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	}
	return "unknown"
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}
