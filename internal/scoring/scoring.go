// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

// Package scoring computes relevance scores for feed candidates. Every
// scorer is a pure function of the candidate and a caller-supplied clock
// instant, and every scorer returns a value in [0, 1]. Scores only need
// to be locally monotonic within a candidate kind; the ranker breaks near
// ties on recency, so small cross-kind calibration drift is acceptable.
package scoring

import (
	"time"

	"github.com/encorelive/feedengine/internal/models"
)

const day = 24 * time.Hour

// Review base scores and bonuses.
const (
	reviewOwnBase         = 0.9
	reviewOtherBase       = 0.5
	reviewPublicBonus     = 0.2
	reviewRecency1d       = 0.3
	reviewRecency7d       = 0.2
	reviewRecency30d      = 0.1
	reviewEngagementUnit  = 0.05
	reviewEngagementCap   = 0.3
	reviewTextBonus       = 0.1
	reviewPhotoBonus      = 0.1
	reviewRatingBonus     = 0.1
	reviewTextBonusMinLen = 50
	reviewRatingThreshold = 4.0
)

// Connection-degree bonuses for reviews surfaced through the social graph.
const (
	connectionDirectBonus = 0.4
	connectionSecondBonus = 0.2
)

// Event base score and bonuses.
const (
	eventBase        = 0.6
	eventSoonBonus   = 0.3 // 0-30 days out
	eventLaterBonus  = 0.2 // 31-90 days out
	eventGeoBonus    = 0.1
	eventTicketBonus = 0.1
)

// Friend-activity base score and bonuses.
const (
	friendActivityBase      = 0.7
	friendActivityRecency1d = 0.2
	friendActivityRecency7d = 0.1
)

// personalizedScale maps the aggregate source's 0-100 raw score into the
// shared [0, 1] band.
const personalizedScale = 100.0

// Clamp01 clamps v into [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Review scores a review candidate. Own reviews start high; reviews by
// others start at 0.5 and earn a visibility bonus when public. Recency
// bonuses are mutually exclusive, largest applicable window wins.
func Review(r models.ReviewRecord, now time.Time) float64 {
	var score float64
	if r.OwnedByViewer {
		score = reviewOwnBase
	} else {
		score = reviewOtherBase
		if r.IsPublic {
			score += reviewPublicBonus
		}
	}

	score += recencyBonus(now.Sub(r.CreatedAt),
		reviewRecency1d, reviewRecency7d, reviewRecency30d)
	score += engagementBonus(r.LikesCount + r.CommentsCount)

	return Clamp01(score)
}

// ConnectionReview scores a review surfaced through the viewer's social
// graph. On top of the plain review terms it rewards closeness of the
// connection and richness of the review itself: substantial text, photos,
// and a positive rating.
func ConnectionReview(r models.ReviewRecord, now time.Time) float64 {
	score := Review(r, now)

	switch r.ConnectionDegree {
	case 1:
		score += connectionDirectBonus
	case 2:
		score += connectionSecondBonus
	}

	if len(r.Text) > reviewTextBonusMinLen {
		score += reviewTextBonus
	}
	if len(r.Photos) > 0 {
		score += reviewPhotoBonus
	}
	if r.Rating != nil && *r.Rating >= reviewRatingThreshold {
		score += reviewRatingBonus
	}

	return Clamp01(score)
}

// Event scores an upcoming-event candidate. Events inside the next 30
// days rank ahead of those 31-90 days out; past events and events beyond
// 90 days get no date bonus.
func Event(e models.EventData, now time.Time) float64 {
	score := eventBase

	until := e.EventDate.Sub(now)
	switch {
	case until >= 0 && until <= 30*day:
		score += eventSoonBonus
	case until > 30*day && until <= 90*day:
		score += eventLaterBonus
	}

	if e.Latitude != nil && e.Longitude != nil {
		score += eventGeoBonus
	}
	if e.TicketAvailable {
		score += eventTicketBonus
	}

	return Clamp01(score)
}

// FriendActivity scores a social notice such as a new friendship.
func FriendActivity(a models.FriendActivityRecord, now time.Time) float64 {
	score := friendActivityBase
	score += recencyBonus(now.Sub(a.CreatedAt),
		friendActivityRecency1d, friendActivityRecency7d, 0)
	return Clamp01(score)
}

// Personalized normalizes a 0-100 raw score from the personalization
// aggregate into [0, 1]. This is the one scorer that does not compute
// from candidate fields: the blend is opaque to the engine and only its
// units are adjusted.
func Personalized(raw float64) float64 {
	return Clamp01(raw / personalizedScale)
}

// recencyBonus returns the largest applicable recency bonus for the given
// age. A zero bonus disables that window; future timestamps count as age
// zero and take the freshest window.
func recencyBonus(age time.Duration, under1d, under7d, under30d float64) float64 {
	switch {
	case age < day:
		return under1d
	case age < 7*day:
		return under7d
	case age < 30*day:
		return under30d
	}
	return 0
}

// engagementBonus rewards likes and comments linearly up to a cap so a
// single viral review cannot crowd out everything else.
func engagementBonus(interactions int) float64 {
	bonus := float64(interactions) * reviewEngagementUnit
	if bonus > reviewEngagementCap {
		return reviewEngagementCap
	}
	return bonus
}
