// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package feed

import (
	"fmt"
	"time"

	"github.com/encorelive/feedengine/internal/geo"
	"github.com/encorelive/feedengine/internal/models"
	"github.com/encorelive/feedengine/internal/scoring"
)

// Display fallbacks, the only fabricated values normalization may
// introduce. Everything else absent at the source stays absent.
const (
	unknownVenue    = "Unknown Venue"
	unknownArtist   = "Unknown Artist"
	anonymousAuthor = "Anonymous"
	systemAuthorID  = "system"
	systemAuthor    = "Encore Events"
)

// Normalize maps one source candidate into the canonical feed item shape
// and assigns its relevance score. The viewer location, when known, also
// yields a distance for geo-located items.
func Normalize(c models.Candidate, viewerLoc *models.GeoPoint, now time.Time) models.UnifiedFeedItem {
	switch v := c.(type) {
	case models.ReviewRecord:
		return normalizeReview(v, now)
	case models.ScoredEventRow:
		item := normalizeEvent(v.EventData, viewerLoc)
		item.RelevanceScore = scoring.Personalized(v.RawScore)
		return item
	case models.EventRecord:
		item := normalizeEvent(v.EventData, viewerLoc)
		item.RelevanceScore = scoring.Event(v.EventData, now)
		return item
	case models.FriendActivityRecord:
		return normalizeFriendActivity(v, now)
	}
	// The candidate set is closed; an unknown variant is a programming
	// error surfaced as an inert zero-score item rather than a panic.
	return models.UnifiedFeedItem{Type: models.TypeSystemNews, CreatedAt: now}
}

func normalizeReview(r models.ReviewRecord, now time.Time) models.UnifiedFeedItem {
	item := models.UnifiedFeedItem{
		ID:               "review-" + r.ID,
		Type:             models.TypeReview,
		Title:            reviewTitle(r),
		Content:          r.Text,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		Rating:           r.Rating,
		IsPublic:         boolPtr(r.IsPublic),
		Photos:           r.Photos,
		Setlist:          r.Setlist,
		SubRatings:       r.SubRatings,
		LikesCount:       r.LikesCount,
		CommentsCount:    r.CommentsCount,
		SharesCount:      r.SharesCount,
		ConnectionDegree: r.ConnectionDegree,
		ConnectionLabel:  r.ConnectionLabel,
	}

	item.Author = &models.Author{
		ID:        r.AuthorID,
		Name:      r.AuthorName,
		AvatarURL: r.AuthorAvatarURL,
	}
	if item.Author.Name == "" {
		item.Author.Name = anonymousAuthor
	}

	item.EventInfo = reviewEventInfo(r)

	if r.ConnectionDegree > 0 {
		item.RelevanceScore = scoring.ConnectionReview(r, now)
	} else {
		item.RelevanceScore = scoring.Review(r, now)
	}
	return item
}

// reviewEventInfo projects the joined event reference into the flat
// provenance shape, tolerating a missing join.
func reviewEventInfo(r models.ReviewRecord) *models.EventInfo {
	info := &models.EventInfo{
		EventID:    r.Event.ID,
		EventName:  r.Event.Title,
		ArtistID:   r.Event.ArtistID,
		ArtistName: r.Event.ArtistName,
		VenueName:  r.Event.VenueName,
		EventDate:  r.Event.EventDate,
	}
	if info.EventName == "" {
		info.EventName = "Concert Review"
	}
	if info.VenueName == "" {
		info.VenueName = unknownVenue
	}
	if info.EventDate == nil {
		created := r.CreatedAt
		info.EventDate = &created
	}
	return info
}

func reviewTitle(r models.ReviewRecord) string {
	if r.OwnedByViewer {
		if r.IsPublic {
			return "Your Public Review"
		}
		return "Your Private Review"
	}
	name := r.AuthorName
	if name == "" {
		name = "Someone"
	}
	return fmt.Sprintf("%s's Review", name)
}

func normalizeEvent(e models.EventData, viewerLoc *models.GeoPoint) models.UnifiedFeedItem {
	artist := e.ArtistName
	if artist == "" {
		artist = unknownArtist
	}
	venue := e.VenueName
	if venue == "" {
		venue = unknownVenue
	}

	content := e.Description
	if content == "" {
		content = fmt.Sprintf("%s is performing at %s", artist, venue)
	}

	createdAt := e.EventDate
	if e.CreatedAt != nil {
		createdAt = *e.CreatedAt
	}

	eventDate := e.EventDate
	data := e
	item := models.UnifiedFeedItem{
		ID:        "event-" + e.ID,
		Type:      models.TypeEvent,
		Title:     "New Event: " + e.Title,
		Content:   content,
		Author:    &models.Author{ID: systemAuthorID, Name: systemAuthor},
		CreatedAt: createdAt,
		UpdatedAt: e.UpdatedAt,
		EventData: &data,
		EventInfo: &models.EventInfo{
			EventID:    e.ID,
			EventName:  e.Title,
			ArtistID:   e.ArtistID,
			ArtistName: e.ArtistName,
			VenueName:  venue,
			EventDate:  &eventDate,
		},
	}

	if e.Latitude != nil && e.Longitude != nil {
		item.Location = &models.Location{
			Lat:          *e.Latitude,
			Lng:          *e.Longitude,
			VenueName:    e.VenueName,
			VenueAddress: e.VenueAddress,
		}
		if viewerLoc != nil {
			d := geo.DistanceMiles(viewerLoc.Lat, viewerLoc.Lng, *e.Latitude, *e.Longitude)
			item.DistanceMiles = &d
		}
	}
	return item
}

func normalizeFriendActivity(a models.FriendActivityRecord, now time.Time) models.UnifiedFeedItem {
	name := a.ActorName
	if name == "" {
		name = anonymousAuthor
	}

	title := a.Title
	if title == "" {
		title = fmt.Sprintf("You're now friends with %s!", name)
	}
	content := a.Message
	if content == "" {
		content = "Start chatting and discover concerts together."
	}

	return models.UnifiedFeedItem{
		ID:      "friend-activity-" + a.ID,
		Type:    models.TypeFriendActivity,
		Title:   title,
		Content: content,
		Author: &models.Author{
			ID:        a.ActorID,
			Name:      name,
			AvatarURL: a.ActorAvatarURL,
		},
		CreatedAt:       a.CreatedAt,
		InterestedCount: a.InterestedCount,
		RelevanceScore:  scoring.FriendActivity(a, now),
	}
}

func boolPtr(b bool) *bool { return &b }
