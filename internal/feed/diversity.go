// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package feed

import (
	"github.com/encorelive/feedengine/internal/metrics"
	"github.com/encorelive/feedengine/internal/models"
)

// CapByArtist drops every item beyond the first maxPerArtist occurrences
// of each normalized artist, preserving order. Run after ranking over the
// full merged list, so the survivors are the globally highest-ranked
// items for each artist and the cap holds across pages, not per page.
// Items with no resolvable artist always pass. Dropped items are gone for
// good, never swapped back in by pagination.
func CapByArtist(items []models.UnifiedFeedItem, maxPerArtist int) []models.UnifiedFeedItem {
	if maxPerArtist <= 0 {
		return items
	}

	counts := make(map[string]int)
	out := make([]models.UnifiedFeedItem, 0, len(items))

	for _, item := range items {
		key := fuzzyNormalize(item.ArtistName(), nil)
		if key == "" {
			out = append(out, item)
			continue
		}
		if counts[key] >= maxPerArtist {
			metrics.FeedItemsDiversityCapped.Inc()
			continue
		}
		counts[key]++
		out = append(out, item)
	}
	return out
}
