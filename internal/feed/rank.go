// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package feed

import (
	"math"
	"sort"

	"github.com/encorelive/feedengine/internal/models"
)

// Rank orders items by relevance score descending. Scores within
// tieThreshold of each other are effectively tied and recency decides,
// newest first. The sort is stable, so equal items keep their merge
// order and output is deterministic for a fixed input set.
func Rank(items []models.UnifiedFeedItem, tieThreshold float64) {
	sort.SliceStable(items, func(i, j int) bool {
		diff := items[i].RelevanceScore - items[j].RelevanceScore
		if math.Abs(diff) > tieThreshold {
			return diff > 0
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

// Page slices the [offset, offset+limit) window, clamped to the list.
func Page(items []models.UnifiedFeedItem, limit, offset int) []models.UnifiedFeedItem {
	if offset >= len(items) || offset < 0 {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
