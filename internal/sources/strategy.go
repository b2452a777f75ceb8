// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package sources

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/encorelive/feedengine/internal/metrics"
)

// strategy is one rung of a fetcher's degradation chain. Strategies run
// strictly in order, never speculatively in parallel, so a fallback adds
// no load while the primary is healthy.
type strategy[T any] struct {
	// name labels the strategy in logs and metrics ("aggregate",
	// "degree_sets", "basic_query").
	name string

	run func(ctx context.Context) ([]T, error)

	// fallbackOn decides whether a failure of this strategy hands off to
	// the next one. Nil means any failure does.
	fallbackOn func(error) bool
}

// runChain executes the chain for one request. The first strategy to
// succeed wins. A failure that fallbackOn rejects, or a failure of the
// last strategy, is returned to the fetcher, which converts it into an
// empty contribution.
func runChain[T any](ctx context.Context, source string, logger zerolog.Logger, chain []strategy[T]) ([]T, error) {
	var lastErr error
	for i, s := range chain {
		start := time.Now()
		rows, err := s.run(ctx)
		metrics.RecordSourceFetch(source, s.name, time.Since(start), err)
		if err == nil {
			return rows, nil
		}
		lastErr = err

		last := i == len(chain)-1
		canFallback := !last && (s.fallbackOn == nil || s.fallbackOn(err))
		if !canFallback {
			logger.Error().Err(err).Str("strategy", s.name).Msg("Source fetch failed")
			return nil, err
		}

		metrics.RecordFallback(source)
		logger.Warn().Err(err).
			Str("strategy", s.name).
			Str("next", chain[i+1].name).
			Msg("Source strategy failed, falling back")
	}
	return nil, lastErr
}
