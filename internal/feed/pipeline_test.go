// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package feed

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/encorelive/feedengine/internal/models"
)

var pipelineNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func scoreNear(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func reviewItem(id string, score float64, createdAt time.Time) models.UnifiedFeedItem {
	return models.UnifiedFeedItem{
		ID:             "review-" + id,
		Type:           models.TypeReview,
		CreatedAt:      createdAt,
		RelevanceScore: score,
	}
}

func eventItem(id, artist string, score float64) models.UnifiedFeedItem {
	return models.UnifiedFeedItem{
		ID:   "event-" + id,
		Type: models.TypeEvent,
		EventData: &models.EventData{
			ID:         id,
			ArtistName: artist,
		},
		EventInfo: &models.EventInfo{
			EventID:    id,
			ArtistName: artist,
		},
		CreatedAt:      pipelineNow,
		RelevanceScore: score,
	}
}

func TestNormalizeReview(t *testing.T) {
	created := pipelineNow.Add(-2 * time.Hour)

	t.Run("own private review", func(t *testing.T) {
		item := Normalize(models.ReviewRecord{
			ID:            "r1",
			AuthorID:      "viewer",
			Text:          "What a night",
			OwnedByViewer: true,
			CreatedAt:     created,
		}, nil, pipelineNow)

		if item.ID != "review-r1" {
			t.Errorf("id = %q", item.ID)
		}
		if item.Type != models.TypeReview {
			t.Errorf("type = %q", item.Type)
		}
		if item.Title != "Your Private Review" {
			t.Errorf("title = %q", item.Title)
		}
		if item.EventInfo == nil || item.EventInfo.VenueName != "Unknown Venue" {
			t.Errorf("expected venue fallback, got %+v", item.EventInfo)
		}
		// 0.9 base + 0.3 recency, clamped.
		if item.RelevanceScore != 1.0 {
			t.Errorf("score = %v", item.RelevanceScore)
		}
	})

	t.Run("anonymous author fallback", func(t *testing.T) {
		item := Normalize(models.ReviewRecord{
			ID:        "r2",
			AuthorID:  "u2",
			Text:      "Decent set",
			CreatedAt: created,
		}, nil, pipelineNow)

		if item.Author == nil || item.Author.Name != "Anonymous" {
			t.Errorf("author = %+v", item.Author)
		}
	})

	t.Run("connection review keeps degree and label", func(t *testing.T) {
		item := Normalize(models.ReviewRecord{
			ID:               "r3",
			AuthorID:         "friend",
			AuthorName:       "Sam",
			Text:             "Front row",
			CreatedAt:        created,
			ConnectionDegree: 1,
			ConnectionLabel:  "Friend",
		}, nil, pipelineNow)

		if item.ConnectionDegree != 1 || item.ConnectionLabel != "Friend" {
			t.Errorf("degree=%d label=%q", item.ConnectionDegree, item.ConnectionLabel)
		}
		if item.Title != "Sam's Review" {
			t.Errorf("title = %q", item.Title)
		}
		// Direct-connection tier bonus applies: 0.5 + 0.4 + 0.3 recency.
		if item.RelevanceScore != 1.0 {
			t.Errorf("score = %v", item.RelevanceScore)
		}
	})

	t.Run("joined event projected into event_info", func(t *testing.T) {
		eventDate := pipelineNow.Add(24 * time.Hour)
		item := Normalize(models.ReviewRecord{
			ID:        "r4",
			AuthorID:  "u4",
			Text:      "Setlist of dreams",
			CreatedAt: created,
			Event: models.JoinedEvent{
				ID:         "E1",
				Title:      "Radiohead at MSG",
				ArtistName: "Radiohead",
				VenueName:  "Madison Square Garden",
				EventDate:  &eventDate,
			},
		}, nil, pipelineNow)

		info := item.EventInfo
		if info == nil || info.EventID != "E1" || info.ArtistName != "Radiohead" {
			t.Fatalf("event_info = %+v", info)
		}
	})
}

func TestNormalizeEvent(t *testing.T) {
	lat, lng := 40.7505, -73.9934

	t.Run("scored row uses upstream score", func(t *testing.T) {
		item := Normalize(models.ScoredEventRow{
			EventRecord: models.EventRecord{EventData: models.EventData{
				ID:         "e1",
				Title:      "Radiohead Live",
				ArtistName: "Radiohead",
				VenueName:  "MSG",
				EventDate:  pipelineNow.Add(48 * time.Hour),
			}},
			RawScore: 85,
		}, nil, pipelineNow)

		if item.ID != "event-e1" || item.Type != models.TypeEvent {
			t.Errorf("id=%q type=%q", item.ID, item.Type)
		}
		if !scoreNear(item.RelevanceScore, 0.85) {
			t.Errorf("score = %v, want normalized 0.85", item.RelevanceScore)
		}
	})

	t.Run("plain event scored from fields", func(t *testing.T) {
		item := Normalize(models.EventRecord{EventData: models.EventData{
			ID:              "e2",
			Title:           "Wilco Live",
			ArtistName:      "Wilco",
			VenueName:       "The Vic",
			EventDate:       pipelineNow.Add(5 * 24 * time.Hour),
			TicketAvailable: true,
		}}, nil, pipelineNow)

		// 0.6 base + 0.3 soon + 0.1 tickets.
		if !scoreNear(item.RelevanceScore, 1.0) {
			t.Errorf("score = %v", item.RelevanceScore)
		}
		if item.Author == nil || item.Author.ID != "system" {
			t.Errorf("author = %+v", item.Author)
		}
	})

	t.Run("distance populated when both locations known", func(t *testing.T) {
		item := Normalize(models.EventRecord{EventData: models.EventData{
			ID:         "e3",
			Title:      "Interpol Live",
			ArtistName: "Interpol",
			VenueName:  "MSG",
			EventDate:  pipelineNow.Add(24 * time.Hour),
			Latitude:   &lat,
			Longitude:  &lng,
		}}, &models.GeoPoint{Lat: 40.7128, Lng: -74.0060}, pipelineNow)

		if item.DistanceMiles == nil {
			t.Fatal("expected distance to be set")
		}
		if *item.DistanceMiles <= 0 || *item.DistanceMiles > 10 {
			t.Errorf("distance = %v, expected a few miles", *item.DistanceMiles)
		}
	})

	t.Run("no fabricated distance without viewer location", func(t *testing.T) {
		item := Normalize(models.EventRecord{EventData: models.EventData{
			ID:        "e4",
			Title:     "No Coords",
			EventDate: pipelineNow.Add(24 * time.Hour),
			Latitude:  &lat,
			Longitude: &lng,
		}}, nil, pipelineNow)

		if item.DistanceMiles != nil {
			t.Errorf("distance = %v, want nil", *item.DistanceMiles)
		}
	})
}

func TestNormalizeFriendActivity(t *testing.T) {
	item := Normalize(models.FriendActivityRecord{
		ID:              "a1",
		ActorID:         "friend",
		ActorName:       "Sam",
		Title:           "You're now friends with Sam!",
		CreatedAt:       pipelineNow.Add(-2 * time.Hour),
		InterestedCount: 3,
	}, nil, pipelineNow)

	if item.ID != "friend-activity-a1" || item.Type != models.TypeFriendActivity {
		t.Errorf("id=%q type=%q", item.ID, item.Type)
	}
	if item.InterestedCount != 3 {
		t.Errorf("interested_count = %d", item.InterestedCount)
	}
	// 0.7 base + 0.2 fresh.
	if !scoreNear(item.RelevanceScore, 0.9) {
		t.Errorf("score = %v", item.RelevanceScore)
	}
}

func TestDedupeExactID(t *testing.T) {
	eventDate := pipelineNow.Add(24 * time.Hour)
	event := eventItem("E1", "Radiohead", 0.8)
	review := models.UnifiedFeedItem{
		ID:   "review-r1",
		Type: models.TypeReview,
		EventInfo: &models.EventInfo{
			EventID:    "E1",
			ArtistName: "Radiohead",
			VenueName:  "MSG",
			EventDate:  &eventDate,
		},
		CreatedAt:      pipelineNow,
		RelevanceScore: 0.7,
	}

	out := Dedupe([]models.UnifiedFeedItem{event, review})
	if len(out) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(out))
	}
	if out[0].ID != "event-E1" {
		t.Errorf("first-seen item should win, got %q", out[0].ID)
	}
}

func TestDedupeFuzzy(t *testing.T) {
	date := pipelineNow.Add(24 * time.Hour)
	sameDayLater := date.Add(3 * time.Hour) // same calendar date

	a := models.UnifiedFeedItem{
		ID:   "review-r1",
		Type: models.TypeReview,
		EventInfo: &models.EventInfo{
			ArtistName: "Radiohead",
			VenueName:  "The O2 Arena",
			EventDate:  &date,
		},
		CreatedAt: pipelineNow,
	}
	b := models.UnifiedFeedItem{
		ID:   "review-r2",
		Type: models.TypeReview,
		EventInfo: &models.EventInfo{
			ArtistName: "RADIOHEAD",
			VenueName:  "O2 Arena!",
			EventDate:  &sameDayLater,
		},
		CreatedAt: pipelineNow,
	}

	out := Dedupe([]models.UnifiedFeedItem{a, b})
	if len(out) != 1 || out[0].ID != "review-r1" {
		t.Fatalf("expected fuzzy collapse to first item, got %+v", out)
	}
}

func TestDedupeIgnoresFabricatedVenue(t *testing.T) {
	created := pipelineNow.Add(-2 * time.Hour)

	// Same artist, same day, but neither review's joined event carries a
	// venue or an id. Normalization fills in display fallbacks; those must
	// not make two distinct events look identical.
	a := Normalize(models.ReviewRecord{
		ID:        "r1",
		AuthorID:  "u1",
		Text:      "Opening night",
		CreatedAt: created,
		Event:     models.JoinedEvent{ArtistName: "Phish"},
	}, nil, pipelineNow)
	b := Normalize(models.ReviewRecord{
		ID:        "r2",
		AuthorID:  "u2",
		Text:      "Secret warehouse set",
		CreatedAt: created.Add(time.Hour),
		Event:     models.JoinedEvent{ArtistName: "Phish"},
	}, nil, pipelineNow)

	if a.EventInfo.VenueName != "Unknown Venue" {
		t.Fatalf("venue fallback = %q", a.EventInfo.VenueName)
	}
	out := Dedupe([]models.UnifiedFeedItem{a, b})
	if len(out) != 2 {
		t.Fatalf("distinct unknown-venue reviews must both survive, got %d", len(out))
	}
}

func TestDedupePassThrough(t *testing.T) {
	items := []models.UnifiedFeedItem{
		reviewItem("r1", 0.9, pipelineNow),
		reviewItem("r2", 0.8, pipelineNow),
		{ID: "friend-activity-a1", Type: models.TypeFriendActivity, CreatedAt: pipelineNow},
	}

	out := Dedupe(items)
	if len(out) != 3 {
		t.Errorf("keyless items must pass through, got %d of 3", len(out))
	}
}

func TestDedupeIdempotent(t *testing.T) {
	date := pipelineNow.Add(24 * time.Hour)
	items := []models.UnifiedFeedItem{
		eventItem("E1", "Radiohead", 0.9),
		eventItem("E1", "Radiohead", 0.8),
		{
			ID:        "review-r1",
			Type:      models.TypeReview,
			EventInfo: &models.EventInfo{ArtistName: "Wilco", VenueName: "The Vic", EventDate: &date},
			CreatedAt: pipelineNow,
		},
		reviewItem("r2", 0.5, pipelineNow),
	}

	once := Dedupe(items)
	twice := Dedupe(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("dedupe not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestCapByArtist(t *testing.T) {
	items := []models.UnifiedFeedItem{
		eventItem("e1", "Radiohead", 0.9),
		eventItem("e2", " radiohead ", 0.8),
		eventItem("e3", "RADIOHEAD", 0.7),
		eventItem("e4", "Radiohead", 0.6),
		eventItem("e5", "radiohead", 0.5),
	}

	out := CapByArtist(items, 1)
	if len(out) != 1 {
		t.Fatalf("expected exactly one Radiohead item, got %d", len(out))
	}
	if out[0].RelevanceScore != 0.9 {
		t.Errorf("survivor score = %v, want the top-ranked 0.9", out[0].RelevanceScore)
	}
}

func TestCapByArtistPassThrough(t *testing.T) {
	items := []models.UnifiedFeedItem{
		reviewItem("r1", 0.9, pipelineNow),
		reviewItem("r2", 0.8, pipelineNow),
		{ID: "friend-activity-a1", Type: models.TypeFriendActivity, CreatedAt: pipelineNow},
	}

	out := CapByArtist(items, 1)
	if len(out) != 3 {
		t.Errorf("artist-less items must pass, got %d of 3", len(out))
	}
}

func TestCapByArtistHigherCap(t *testing.T) {
	items := []models.UnifiedFeedItem{
		eventItem("e1", "Wilco", 0.9),
		eventItem("e2", "Wilco", 0.8),
		eventItem("e3", "Wilco", 0.7),
	}

	out := CapByArtist(items, 2)
	if len(out) != 2 {
		t.Errorf("expected 2 survivors with cap 2, got %d", len(out))
	}
}

func TestRank(t *testing.T) {
	older := pipelineNow.Add(-48 * time.Hour)

	t.Run("clear score gap wins", func(t *testing.T) {
		items := []models.UnifiedFeedItem{
			reviewItem("low", 0.4, pipelineNow),
			reviewItem("high", 0.9, older),
		}
		Rank(items, 0.1)
		if items[0].ID != "review-high" {
			t.Errorf("order: %s, %s", items[0].ID, items[1].ID)
		}
	})

	t.Run("near tie decided by recency", func(t *testing.T) {
		items := []models.UnifiedFeedItem{
			reviewItem("older", 0.85, older),
			reviewItem("newer", 0.80, pipelineNow),
		}
		Rank(items, 0.1)
		if items[0].ID != "review-newer" {
			t.Errorf("recency should break the tie, got %s first", items[0].ID)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		build := func() []models.UnifiedFeedItem {
			return []models.UnifiedFeedItem{
				reviewItem("a", 0.8, pipelineNow.Add(-time.Hour)),
				reviewItem("b", 0.8, pipelineNow.Add(-time.Hour)),
				reviewItem("c", 0.75, pipelineNow),
				reviewItem("d", 0.3, pipelineNow),
			}
		}
		first := build()
		second := build()
		Rank(first, 0.1)
		Rank(second, 0.1)
		if !reflect.DeepEqual(first, second) {
			t.Error("identical inputs ranked differently")
		}
	})
}

func TestPage(t *testing.T) {
	items := []models.UnifiedFeedItem{
		reviewItem("a", 0.9, pipelineNow),
		reviewItem("b", 0.8, pipelineNow),
		reviewItem("c", 0.7, pipelineNow),
	}

	if got := Page(items, 2, 0); len(got) != 2 || got[0].ID != "review-a" {
		t.Errorf("first page wrong: %+v", got)
	}
	if got := Page(items, 2, 2); len(got) != 1 || got[0].ID != "review-c" {
		t.Errorf("second page wrong: %+v", got)
	}
	if got := Page(items, 2, 5); got != nil {
		t.Errorf("out-of-range page should be empty, got %+v", got)
	}
}
