// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

// testJSONRoundTrip is a generic helper that tests JSON marshal/unmarshal for any type.
// It marshals the input, unmarshals it back, and calls the verification function.
func testJSONRoundTrip[T any](t *testing.T, name string, input T, verify func(t *testing.T, decoded T)) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		data, err := json.Marshal(input)
		if err != nil {
			t.Fatalf("Failed to marshal %s: %v", name, err)
		}

		var decoded T
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Failed to unmarshal %s: %v", name, err)
		}

		if verify != nil {
			verify(t, decoded)
		}
	})
}

func TestJSONMarshaling(t *testing.T) {
	t.Parallel()

	rating := 5.0
	item := UnifiedFeedItem{
		ID:      "review-abc123",
		Type:    TypeReview,
		Title:   "Radiohead at Madison Square Garden",
		Content: "Incredible show, they played the whole of In Rainbows.",
		Author: &Author{
			ID:   "user-1",
			Name: "Jess",
		},
		CreatedAt:      time.Date(2026, 8, 20, 21, 0, 0, 0, time.UTC),
		Rating:         &rating,
		RelevanceScore: 0.85,
	}
	testJSONRoundTrip(t, "UnifiedFeedItem", item, func(t *testing.T, decoded UnifiedFeedItem) {
		if decoded.ID != "review-abc123" {
			t.Errorf("Expected ID 'review-abc123', got '%s'", decoded.ID)
		}
		if decoded.Type != TypeReview {
			t.Errorf("Expected type %q, got %q", TypeReview, decoded.Type)
		}
		if decoded.Rating == nil || *decoded.Rating != 5.0 {
			t.Error("Rating not properly marshaled/unmarshaled")
		}
		if decoded.Author == nil || decoded.Author.Name != "Jess" {
			t.Error("Author not properly marshaled/unmarshaled")
		}
		if decoded.RelevanceScore != 0.85 {
			t.Errorf("Expected relevance score 0.85, got %f", decoded.RelevanceScore)
		}
	})

	testJSONRoundTrip(t, "APIResponse", APIResponse{
		Status:   "success",
		Data:     map[string]interface{}{"items": []interface{}{}},
		Metadata: Metadata{Timestamp: time.Now().UTC(), QueryTimeMS: 12},
	}, func(t *testing.T, decoded APIResponse) {
		if decoded.Status != "success" {
			t.Errorf("Expected status 'success', got '%s'", decoded.Status)
		}
		if decoded.Error != nil {
			t.Error("Expected error to be nil")
		}
	})

	testJSONRoundTrip(t, "APIError", APIError{
		Code:    "VALIDATION_ERROR",
		Message: "Invalid input",
		Details: map[string]interface{}{"field": "mode"},
	}, func(t *testing.T, decoded APIError) {
		if decoded.Code != "VALIDATION_ERROR" {
			t.Errorf("Expected code 'VALIDATION_ERROR', got '%s'", decoded.Code)
		}
		if decoded.Message != "Invalid input" {
			t.Errorf("Expected message 'Invalid input', got '%s'", decoded.Message)
		}
	})
}

func TestParseFeedMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  FeedMode
	}{
		{"all", ModeAll},
		{"friends", ModeFriends},
		{"friends_plus_one", ModeFriendsPlusOne},
		{"public_only", ModePublicOnly},
		{"", ModeAll},
		{"bogus", ModeAll},
		{"ALL", ModeAll},
	}
	for _, tc := range tests {
		if got := ParseFeedMode(tc.input); got != tc.want {
			t.Errorf("ParseFeedMode(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}

	if !ModeFriends.Valid() {
		t.Error("Expected ModeFriends to be valid")
	}
	if FeedMode("nonsense").Valid() {
		t.Error("Expected unknown mode to be invalid")
	}
}

func TestJoinedEventUnmarshal(t *testing.T) {
	t.Parallel()

	t.Run("object form", func(t *testing.T) {
		var je JoinedEvent
		raw := []byte(`{"id":"ev-1","title":"Summer Tour","artist_name":"Radiohead","venue_name":"The O2","venue_city":"London"}`)
		if err := json.Unmarshal(raw, &je); err != nil {
			t.Fatalf("Unmarshal object form: %v", err)
		}
		if je.ID != "ev-1" || je.ArtistName != "Radiohead" {
			t.Errorf("Unexpected decode: %+v", je)
		}
		if je.IsZero() {
			t.Error("Expected non-zero JoinedEvent")
		}
	})

	t.Run("array-of-one form", func(t *testing.T) {
		var je JoinedEvent
		raw := []byte(`[{"id":"ev-2","title":"Homecoming","venue_name":"Red Rocks"}]`)
		if err := json.Unmarshal(raw, &je); err != nil {
			t.Fatalf("Unmarshal array form: %v", err)
		}
		if je.ID != "ev-2" || je.VenueName != "Red Rocks" {
			t.Errorf("Unexpected decode: %+v", je)
		}
	})

	t.Run("empty array", func(t *testing.T) {
		var je JoinedEvent
		if err := json.Unmarshal([]byte(`[]`), &je); err != nil {
			t.Fatalf("Unmarshal empty array: %v", err)
		}
		if !je.IsZero() {
			t.Errorf("Expected zero JoinedEvent, got %+v", je)
		}
	})

	t.Run("null", func(t *testing.T) {
		var je JoinedEvent
		if err := json.Unmarshal([]byte(`null`), &je); err != nil {
			t.Fatalf("Unmarshal null: %v", err)
		}
		if !je.IsZero() {
			t.Errorf("Expected zero JoinedEvent, got %+v", je)
		}
	})
}

func TestFeedFiltersEmpty(t *testing.T) {
	t.Parallel()

	if !(&FeedFilters{}).Empty() {
		t.Error("Expected zero-value filters to be empty")
	}
	if !(&FeedFilters{RadiusMiles: 50}).Empty() {
		t.Error("Radius alone should not count as an active filter")
	}
	if (&FeedFilters{Genres: []string{"rock"}}).Empty() {
		t.Error("Expected genre filter to be non-empty")
	}
	now := time.Now()
	if (&FeedFilters{DateFrom: &now}).Empty() {
		t.Error("Expected date filter to be non-empty")
	}
	if (&FeedFilters{FollowingOnly: true}).Empty() {
		t.Error("Expected following-only filter to be non-empty")
	}
}

func TestArtistNameFallback(t *testing.T) {
	t.Parallel()

	item := UnifiedFeedItem{
		EventInfo: &EventInfo{ArtistName: "Bon Iver"},
	}
	if got := item.ArtistName(); got != "Bon Iver" {
		t.Errorf("Expected 'Bon Iver', got '%s'", got)
	}

	item.EventData = &EventData{ArtistName: "Big Thief"}
	if got := item.ArtistName(); got != "Big Thief" {
		t.Errorf("EventData should take precedence, got '%s'", got)
	}

	var empty UnifiedFeedItem
	if got := empty.ArtistName(); got != "" {
		t.Errorf("Expected empty artist name, got '%s'", got)
	}
}
