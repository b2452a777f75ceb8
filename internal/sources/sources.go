// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

// Package sources implements the retrieval side of the feed engine: one
// fetcher per content source, each wrapping its backing store behind an
// ordered strategy chain (primary aggregate call, then a simpler fallback
// query) so that an unavailable aggregate degrades the feed instead of
// failing it. Fetchers consult the shared cache for first-page requests
// and report per-strategy latency and fallback activations to metrics.
//
// The backing stores are narrow interfaces; production wiring points them
// at the relational store and the social-graph service, tests at hand
// rolled fakes.
package sources

import (
	"context"
	"strings"

	"github.com/encorelive/feedengine/internal/models"
)

// SocialGraph resolves the viewer's connection id sets. Degree 1 is a
// direct connection, 2 a mutual-friend connection, 3 a curated extended
// set. Implementations may return an empty slice for degrees they do not
// compute.
type SocialGraph interface {
	ConnectionsByDegree(ctx context.Context, viewerID string, degree int) ([]string, error)
}

// ReviewStore is the relational-store surface the review fetchers need.
//
// NetworkReviews is the aggregate path: a single backend call returning
// pre-joined rows already tagged with connection_degree. The remaining
// methods are basic queries used directly or as fallback building blocks.
type ReviewStore interface {
	OwnReviews(ctx context.Context, viewerID string, limit int) ([]models.ReviewRecord, error)
	PublicReviews(ctx context.Context, viewerID string, limit, offset int) ([]models.ReviewRecord, error)
	NetworkReviews(ctx context.Context, viewerID string, limit, offset int) ([]models.ReviewRecord, error)
	ReviewsByAuthors(ctx context.Context, authorIDs []string, limit int) ([]models.ReviewRecord, error)
}

// EventStore serves the basic future-events query used by the
// personalization fallback. Filters beyond the horizon and row cap are
// applied client-side by the fetcher.
type EventStore interface {
	UpcomingEvents(ctx context.Context, limit int) ([]models.EventRecord, error)
}

// PersonalizationSource is the aggregate personalization call: pre-scored,
// pre-joined event rows for the viewer. RawScore is an opaque 0-100 blend
// computed upstream; this engine never reproduces it, only normalizes.
// The source must degrade with an error, not a hang, when unavailable.
type PersonalizationSource interface {
	PersonalizedEvents(ctx context.Context, viewerID string, limit, offset int, center *models.GeoPoint, radiusMiles float64) ([]models.ScoredEventRow, error)
}

// ActivitySource returns recent social notices for the viewer's network.
type ActivitySource interface {
	RecentFriendActivity(ctx context.Context, viewerID string, limit int) ([]models.FriendActivityRecord, error)
}

// ArtistFollows returns the viewer's followed-artist identifier sets,
// consumed only by the fallback "following only" filter.
type ArtistFollows interface {
	FollowedArtists(ctx context.Context, viewerID string) (FollowedArtists, error)
}

// FollowedArtists carries the three identifier spaces an event's artist
// may be known by. Name matching is case-insensitive exact.
type FollowedArtists struct {
	UUIDs       []string
	ExternalIDs []string
	Names       []string
}

// Contains reports whether the event's artist appears in any of the
// followed identifier sets.
func (f FollowedArtists) Contains(e models.EventData) bool {
	for _, id := range f.UUIDs {
		if id != "" && id == e.ArtistID {
			return true
		}
	}
	for _, id := range f.ExternalIDs {
		if id != "" && id == e.ExternalID {
			return true
		}
	}
	for _, name := range f.Names {
		if name != "" && strings.EqualFold(name, e.ArtistName) {
			return true
		}
	}
	return false
}

// attendanceMarker is the review-text sentinel for "I was there" records.
// Attendance markers are not reviews and no fetcher surfaces them.
const attendanceMarker = "ATTENDANCE_ONLY"

// reviewable reports whether a review row belongs in a feed: published,
// with real text.
func reviewable(r models.ReviewRecord) bool {
	if r.IsDraft {
		return false
	}
	text := strings.TrimSpace(r.Text)
	return text != "" && text != attendanceMarker
}

// filterReviewable drops drafts, empty reviews, and attendance markers
// in place-order.
func filterReviewable(rows []models.ReviewRecord) []models.ReviewRecord {
	out := rows[:0:0]
	for _, r := range rows {
		if reviewable(r) {
			out = append(out, r)
		}
	}
	return out
}
