// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package models

import (
	"bytes"
	"time"

	"github.com/goccy/go-json"
)

// Candidate is a raw record from one source before normalization into a
// UnifiedFeedItem. The set of implementations is closed: ReviewRecord,
// EventRecord, FriendActivityRecord, and ScoredEventRow. The normalizer
// is the single place that matches over the variants.
type Candidate interface {
	feedCandidate()
}

// ReviewRecord is a source-native review row, optionally joined with the
// event it references and the author profile.
type ReviewRecord struct {
	ID              string             `json:"id"`
	AuthorID        string             `json:"author_id"`
	AuthorName      string             `json:"author_name,omitempty"`
	AuthorAvatarURL string             `json:"author_avatar_url,omitempty"`
	Rating          *float64           `json:"rating,omitempty"`
	Text            string             `json:"text,omitempty"`
	Photos          []string           `json:"photos,omitempty"`
	Setlist         []string           `json:"setlist,omitempty"`
	SubRatings      map[string]float64 `json:"sub_ratings,omitempty"`
	IsPublic        bool               `json:"is_public"`
	IsDraft         bool               `json:"is_draft"`
	LikesCount      int                `json:"likes_count,omitempty"`
	CommentsCount   int                `json:"comments_count,omitempty"`
	SharesCount     int                `json:"shares_count,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       *time.Time         `json:"updated_at,omitempty"`

	// Event is the joined event reference; absent when the review is not
	// attached to a known event.
	Event JoinedEvent `json:"event,omitempty"`

	// OwnedByViewer marks the viewer's own reviews for scoring.
	OwnedByViewer bool `json:"-"`

	// ConnectionDegree is set by the network fetchers: 1, 2, or 3.
	// Zero for own and public reviews.
	ConnectionDegree int    `json:"connection_degree,omitempty"`
	ConnectionLabel  string `json:"connection_label,omitempty"`
}

func (ReviewRecord) feedCandidate() {}

// EventRecord is a source-native upcoming event row.
type EventRecord struct {
	EventData
}

func (EventRecord) feedCandidate() {}

// ScoredEventRow is a pre-scored row from the personalization aggregate
// source. RawScore is an opaque 0-100 value computed upstream; the engine
// only normalizes it, it never recomputes the blend.
type ScoredEventRow struct {
	EventRecord
	RawScore float64 `json:"relevance_score"`
}

func (ScoredEventRow) feedCandidate() {}

// FriendActivityRecord is a social notice such as a new friendship or a
// connection marking interest in an event.
type FriendActivityRecord struct {
	ID              string    `json:"id"`
	ActorID         string    `json:"actor_id"`
	ActorName       string    `json:"actor_name,omitempty"`
	ActorAvatarURL  string    `json:"actor_avatar_url,omitempty"`
	Title           string    `json:"title"`
	Message         string    `json:"message,omitempty"`
	EventID         string    `json:"event_id,omitempty"`
	InterestedCount int       `json:"interested_count,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func (FriendActivityRecord) feedCandidate() {}

// JoinedEvent is an embedded event reference inside a review row. The
// query layer returns the join sometimes as an object and sometimes as a
// one-element array; UnmarshalJSON coerces both shapes so no downstream
// component has to handle the ambiguity again.
type JoinedEvent struct {
	ID         string     `json:"id,omitempty"`
	Title      string     `json:"title,omitempty"`
	ArtistID   string     `json:"artist_id,omitempty"`
	ArtistName string     `json:"artist_name,omitempty"`
	VenueID    string     `json:"venue_id,omitempty"`
	VenueName  string     `json:"venue_name,omitempty"`
	VenueCity  string     `json:"venue_city,omitempty"`
	EventDate  *time.Time `json:"event_date,omitempty"`
}

// IsZero reports whether no join was present on the source row.
func (j JoinedEvent) IsZero() bool {
	return j == JoinedEvent{}
}

// joinedEventAlias avoids UnmarshalJSON recursion.
type joinedEventAlias JoinedEvent

// UnmarshalJSON accepts null, an object, or an array whose first element
// is the joined object.
func (j *JoinedEvent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*j = JoinedEvent{}
		return nil
	}
	if data[0] == '[' {
		var arr []joinedEventAlias
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		if len(arr) == 0 {
			*j = JoinedEvent{}
			return nil
		}
		*j = JoinedEvent(arr[0])
		return nil
	}
	var obj joinedEventAlias
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*j = JoinedEvent(obj)
	return nil
}
