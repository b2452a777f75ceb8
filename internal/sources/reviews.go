// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package sources

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/encorelive/feedengine/internal/config"
	"github.com/encorelive/feedengine/internal/logging"
	"github.com/encorelive/feedengine/internal/metrics"
	"github.com/encorelive/feedengine/internal/models"
)

// OwnReviewsFetcher returns the viewer's own published reviews, newest
// first, capped independently of the requested page size so a prolific
// reviewer cannot flood their own feed.
type OwnReviewsFetcher struct {
	store  ReviewStore
	limit  int
	logger zerolog.Logger
}

// NewOwnReviewsFetcher wires the fetcher. The cap comes from
// feed.own_reviews_limit.
func NewOwnReviewsFetcher(store ReviewStore, cfg config.FeedConfig) *OwnReviewsFetcher {
	return &OwnReviewsFetcher{
		store:  store,
		limit:  cfg.OwnReviewsLimit,
		logger: logging.WithComponent("sources.own_reviews"),
	}
}

// Fetch returns the viewer's reviews. Failures are returned to the engine,
// which treats the contribution as empty.
func (f *OwnReviewsFetcher) Fetch(ctx context.Context, viewerID string) ([]models.ReviewRecord, error) {
	start := time.Now()
	rows, err := f.store.OwnReviews(ctx, viewerID, f.limit)
	metrics.RecordSourceFetch("own_reviews", "basic_query", time.Since(start), err)
	if err != nil {
		f.logger.Error().Err(err).Str("viewer_id", viewerID).Msg("Own reviews fetch failed")
		return nil, err
	}

	rows = filterReviewable(rows)
	for i := range rows {
		rows[i].OwnedByViewer = true
	}
	if len(rows) > f.limit {
		rows = rows[:f.limit]
	}
	return rows, nil
}

// PublicReviewsFetcher returns other users' public reviews, newest first.
// It serves the public_only mode and doubles as the secondary fallback
// when the network-review fetch fails outright.
type PublicReviewsFetcher struct {
	store  ReviewStore
	logger zerolog.Logger
}

func NewPublicReviewsFetcher(store ReviewStore) *PublicReviewsFetcher {
	return &PublicReviewsFetcher{
		store:  store,
		logger: logging.WithComponent("sources.public_reviews"),
	}
}

// Fetch returns public reviews excluding the viewer's own.
func (f *PublicReviewsFetcher) Fetch(ctx context.Context, viewerID string, limit, offset int) ([]models.ReviewRecord, error) {
	start := time.Now()
	rows, err := f.store.PublicReviews(ctx, viewerID, limit, offset)
	metrics.RecordSourceFetch("public_reviews", "basic_query", time.Since(start), err)
	if err != nil {
		f.logger.Error().Err(err).Str("viewer_id", viewerID).Msg("Public reviews fetch failed")
		return nil, err
	}

	rows = filterReviewable(rows)
	out := rows[:0:0]
	for _, r := range rows {
		if r.AuthorID == viewerID {
			continue
		}
		if !r.IsPublic {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
