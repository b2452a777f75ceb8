// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package sources

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/encorelive/feedengine/internal/logging"
	"github.com/encorelive/feedengine/internal/metrics"
	"github.com/encorelive/feedengine/internal/models"
)

// FriendActivityFetcher returns recent social notices for the viewer's
// network: new friendships and connections marking interest in events.
type FriendActivityFetcher struct {
	source ActivitySource
	logger zerolog.Logger
}

func NewFriendActivityFetcher(source ActivitySource) *FriendActivityFetcher {
	return &FriendActivityFetcher{
		source: source,
		logger: logging.WithComponent("sources.friend_activity"),
	}
}

// Fetch returns up to limit recent notices, newest first.
func (f *FriendActivityFetcher) Fetch(ctx context.Context, viewerID string, limit int) ([]models.FriendActivityRecord, error) {
	start := time.Now()
	rows, err := f.source.RecentFriendActivity(ctx, viewerID, limit)
	metrics.RecordSourceFetch("friend_activity", "basic_query", time.Since(start), err)
	if err != nil {
		f.logger.Error().Err(err).Str("viewer_id", viewerID).Msg("Friend activity fetch failed")
		return nil, err
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}
