// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package models

import (
	"strings"
	"time"
)

// FeedMode selects which sources contribute to a feed response.
type FeedMode string

const (
	// ModeAll merges every source: own reviews, network reviews,
	// upcoming events, and friend activity.
	ModeAll FeedMode = "all"

	// ModeFriends returns a review timeline from direct connections only.
	ModeFriends FeedMode = "friends"

	// ModeFriendsPlusOne returns a review timeline from first and
	// second degree connections.
	ModeFriendsPlusOne FeedMode = "friends_plus_one"

	// ModePublicOnly returns public community reviews only.
	ModePublicOnly FeedMode = "public_only"
)

// Valid reports whether the mode is one of the supported feed modes.
func (m FeedMode) Valid() bool {
	switch m {
	case ModeAll, ModeFriends, ModeFriendsPlusOne, ModePublicOnly:
		return true
	}
	return false
}

// ParseFeedMode maps a request string to a FeedMode, defaulting to ModeAll
// for empty or unrecognized input.
func ParseFeedMode(s string) FeedMode {
	m := FeedMode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return ModeAll
	}
	return m
}

// ItemType identifies the payload variant of a UnifiedFeedItem.
type ItemType string

const (
	TypeReview         ItemType = "review"
	TypeEvent          ItemType = "event"
	TypeFriendActivity ItemType = "friend_activity"
	TypeSystemNews     ItemType = "system_news"
	TypeGroupChat      ItemType = "group_chat"
)

// Author identifies the user (or system actor) an item is attributed to.
type Author struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Verified    bool   `json:"verified,omitempty"`
	AccountTier string `json:"account_tier,omitempty"`
}

// EventInfo is the flat provenance sub-shape carried by review items that
// reference a real-world event. The deduplicator and diversity enforcer
// key off these fields, so they are preserved through normalization even
// when the source nests them inside a joined record.
type EventInfo struct {
	EventID    string     `json:"event_id,omitempty"`
	EventName  string     `json:"event_name,omitempty"`
	ArtistID   string     `json:"artist_id,omitempty"`
	ArtistName string     `json:"artist_name,omitempty"`
	VenueName  string     `json:"venue_name,omitempty"`
	EventDate  *time.Time `json:"event_date,omitempty"`
}

// EventData is the full payload carried by event items.
type EventData struct {
	ID              string     `json:"id"`
	ExternalID      string     `json:"external_id,omitempty"`
	Title           string     `json:"title"`
	ArtistID        string     `json:"artist_id,omitempty"`
	ArtistName      string     `json:"artist_name"`
	VenueID         string     `json:"venue_id,omitempty"`
	VenueName       string     `json:"venue_name"`
	VenueAddress    string     `json:"venue_address,omitempty"`
	VenueCity       string     `json:"venue_city,omitempty"`
	VenueState      string     `json:"venue_state,omitempty"`
	EventDate       time.Time  `json:"event_date"`
	DoorsTime       string     `json:"doors_time,omitempty"`
	Description     string     `json:"description,omitempty"`
	Genres          []string   `json:"genres,omitempty"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	TicketAvailable bool       `json:"ticket_available,omitempty"`
	PriceRange      string     `json:"price_range,omitempty"`
	TicketURLs      []string   `json:"ticket_urls,omitempty"`
	Setlist         []string   `json:"setlist,omitempty"`
	TourName        string     `json:"tour_name,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// Location is the geographic position of an item, populated when the
// source row carries coordinates.
type Location struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	VenueName    string  `json:"venue_name,omitempty"`
	VenueAddress string  `json:"venue_address,omitempty"`
}

// UnifiedFeedItem is the canonical output unit of the feed engine. Every
// source candidate is normalized into this shape before merging.
//
// Invariants:
//   - ID is non-empty and unique within one response batch.
//   - RelevanceScore is always defined and within [0, 1].
//   - Type determines which payload fields are populated; fields belonging
//     to other types are left at their zero value, never fabricated.
type UnifiedFeedItem struct {
	ID      string   `json:"id"`
	Type    ItemType `json:"type"`
	Title   string   `json:"title"`
	Content string   `json:"content,omitempty"`

	// Author is nil for system-originated items.
	Author *Author `json:"author,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Review payload.
	Rating     *float64           `json:"rating,omitempty"`
	IsPublic   *bool              `json:"is_public,omitempty"`
	Photos     []string           `json:"photos,omitempty"`
	Setlist    []string           `json:"setlist,omitempty"`
	SubRatings map[string]float64 `json:"sub_ratings,omitempty"`
	EventInfo  *EventInfo         `json:"event_info,omitempty"`

	// Event payload.
	EventData *EventData `json:"event_data,omitempty"`
	Location  *Location  `json:"location,omitempty"`

	// Engagement counters.
	LikesCount    int `json:"likes_count,omitempty"`
	CommentsCount int `json:"comments_count,omitempty"`
	SharesCount   int `json:"shares_count,omitempty"`

	// RelevanceScore is the only field every item must carry; always in
	// [0, 1] so cross-source sorting compares on the same scale.
	RelevanceScore float64 `json:"relevance_score"`

	// ConnectionDegree is 1 for direct connections, 2 for second degree,
	// 3 for the curated extended set; 0 when not applicable.
	ConnectionDegree int    `json:"connection_degree,omitempty"`
	ConnectionLabel  string `json:"connection_label,omitempty"`

	// DistanceMiles is populated only when both viewer location and item
	// location are known.
	DistanceMiles *float64 `json:"distance_miles,omitempty"`

	// InterestedCount is the number of connections attached to the same
	// event, populated on friend-activity items.
	InterestedCount int `json:"interested_count,omitempty"`
}

// ArtistName returns the artist attributable to the item, from whichever
// payload carries one. Empty when the item has no resolvable artist.
func (it *UnifiedFeedItem) ArtistName() string {
	if it.EventData != nil && it.EventData.ArtistName != "" {
		return it.EventData.ArtistName
	}
	if it.EventInfo != nil {
		return it.EventInfo.ArtistName
	}
	return ""
}

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// FeedFilters narrows the event portion of a feed request.
type FeedFilters struct {
	Genres        []string       `json:"genres,omitempty"`
	Cities        []string       `json:"cities,omitempty"`
	DateFrom      *time.Time     `json:"date_from,omitempty"`
	DateTo        *time.Time     `json:"date_to,omitempty"`
	DaysOfWeek    []time.Weekday `json:"days_of_week,omitempty"`
	FollowingOnly bool           `json:"following_only,omitempty"`
	RadiusMiles   float64        `json:"radius_miles,omitempty"`
}

// Empty reports whether no filter dimension is set. Radius alone does not
// count: it only takes effect combined with a viewer location.
func (f *FeedFilters) Empty() bool {
	if f == nil {
		return true
	}
	return len(f.Genres) == 0 && len(f.Cities) == 0 &&
		f.DateFrom == nil && f.DateTo == nil &&
		len(f.DaysOfWeek) == 0 && !f.FollowingOnly
}

// FeedRequest is the input to Engine.GetFeed.
type FeedRequest struct {
	ViewerID string       `json:"viewer_id"`
	Mode     FeedMode     `json:"mode"`
	Limit    int          `json:"limit"`
	Offset   int          `json:"offset"`
	Location *GeoPoint    `json:"location,omitempty"`
	Filters  *FeedFilters `json:"filters,omitempty"`
}
