// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package feed

import (
	"regexp"
	"strings"

	"github.com/encorelive/feedengine/internal/metrics"
	"github.com/encorelive/feedengine/internal/models"
)

// The same real-world event often enters the merge twice: once as a
// standalone event item and once embedded in a review of that event.
// Dedupe collapses them without requiring a shared surrogate key across
// sources: an exact event id when both sides carry one, otherwise a
// fuzzy (artist, venue, calendar date) composite.

var (
	fuzzySpace = regexp.MustCompile(`\s+`)
	fuzzyPunct = regexp.MustCompile(`[^\w\s]`)
)

// venueStopWords are dropped from the venue component of the fuzzy key,
// so "The O2 Arena" and "O2 Arena" collide.
var venueStopWords = map[string]bool{
	"the": true,
	"o2":  true,
}

// Dedupe removes duplicate event references, keeping the first item seen
// for each key. Order is preserved; items with no computable key always
// pass. Idempotent: running it on its own output removes nothing more.
func Dedupe(items []models.UnifiedFeedItem) []models.UnifiedFeedItem {
	seen := make(map[string]bool, len(items))
	out := make([]models.UnifiedFeedItem, 0, len(items))

	for _, item := range items {
		key, match := eventKey(&item)
		if key == "" {
			out = append(out, item)
			continue
		}
		if seen[key] {
			metrics.FeedItemsDeduplicated.WithLabelValues(match).Inc()
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

// eventKey derives the dedup key for an item and names which matching
// tier produced it ("exact_id" or "fuzzy"). Empty key means the item does
// not reference a distinct real-world event.
func eventKey(item *models.UnifiedFeedItem) (key, match string) {
	if id := referencedEventID(item); id != "" {
		return "id:" + id, "exact_id"
	}
	if fuzzy := fuzzyEventKey(item); fuzzy != "" {
		return "fuzzy:" + fuzzy, "fuzzy"
	}
	return "", ""
}

// referencedEventID returns the cross-source event identifier, from the
// full event payload or the review's joined reference.
func referencedEventID(item *models.UnifiedFeedItem) string {
	if item.EventData != nil && item.EventData.ID != "" {
		return item.EventData.ID
	}
	if item.EventInfo != nil && item.EventInfo.EventID != "" {
		return item.EventInfo.EventID
	}
	return ""
}

// fuzzyEventKey builds the (artist, venue, date) composite. All three
// components must resolve from real source data; reviews unattached to an
// event and activity notices produce no key. The display fallbacks
// normalization fabricates never feed the key, or two reviews of different
// unknown-venue events would falsely collapse.
func fuzzyEventKey(item *models.UnifiedFeedItem) string {
	info := item.EventInfo
	if info == nil {
		return ""
	}
	if info.ArtistName == unknownArtist || info.VenueName == unknownVenue {
		return ""
	}

	artist := fuzzyNormalize(info.ArtistName, nil)
	venue := fuzzyNormalize(info.VenueName, venueStopWords)
	if artist == "" || venue == "" || info.EventDate == nil {
		return ""
	}

	return artist + "|" + venue + "|" + info.EventDate.Format("2006-01-02")
}

// fuzzyNormalize lowercases, strips punctuation, collapses whitespace,
// and drops stop words.
func fuzzyNormalize(s string, stopWords map[string]bool) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	s = fuzzyPunct.ReplaceAllString(s, "")
	s = fuzzySpace.ReplaceAllString(s, " ")

	if len(stopWords) == 0 {
		return strings.TrimSpace(s)
	}
	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		if !stopWords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}
