// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package sources

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/encorelive/feedengine/internal/cache"
	"github.com/encorelive/feedengine/internal/config"
	"github.com/encorelive/feedengine/internal/geo"
	"github.com/encorelive/feedengine/internal/logging"
	"github.com/encorelive/feedengine/internal/metrics"
	"github.com/encorelive/feedengine/internal/models"
)

// PersonalizedEventsFetcher returns upcoming events ranked for the
// viewer.
//
// Primary path: the aggregate personalization call, which returns rows
// pre-scored 0-100 by an upstream blend this engine treats as opaque.
// Fallback path, taken when the aggregate is missing or its breaker is
// open: a basic future-events query with the requested filters applied
// here (genre overlap, approximate city matching, date range, day of
// week, radius, following-only). Fallback rows carry no upstream score
// and are scored like any other event downstream.
type PersonalizedEventsFetcher struct {
	personalization PersonalizationSource
	events          EventStore
	follows         ArtistFollows
	geocoder        geo.Geocoder
	cache           cache.Store
	breaker         *gobreaker.CircuitBreaker[[]models.ScoredEventRow]
	defaultRadius   float64
	logger          zerolog.Logger
}

func NewPersonalizedEventsFetcher(
	personalization PersonalizationSource,
	events EventStore,
	follows ArtistFollows,
	geocoder geo.Geocoder,
	c cache.Store,
	cfg config.FeedConfig,
) *PersonalizedEventsFetcher {
	return &PersonalizedEventsFetcher{
		personalization: personalization,
		events:          events,
		follows:         follows,
		geocoder:        geocoder,
		cache:           c,
		breaker:         newBreaker[models.ScoredEventRow]("personalized-events", cfg),
		defaultRadius:   cfg.DefaultRadiusMiles,
		logger:          logging.WithComponent("sources.personalized_events"),
	}
}

// Fetch returns event candidates for one page. The returned slice holds
// ScoredEventRow values from the aggregate path or EventRecord values
// from the fallback; the normalizer handles both.
func (f *PersonalizedEventsFetcher) Fetch(ctx context.Context, viewerID string, limit, offset int, loc *models.GeoPoint, filters *models.FeedFilters) ([]models.Candidate, error) {
	center, radius := f.searchArea(ctx, loc, filters)

	cacheable := offset == 0 && filters.Empty() && loc == nil
	key := f.cacheKey(viewerID, limit)
	if cacheable {
		if rows, ok := cache.GetTyped[[]models.ScoredEventRow](ctx, f.cache, key); ok {
			metrics.RecordCacheHit("personalized_events")
			return scoredToCandidates(rows), nil
		}
		metrics.RecordCacheMiss("personalized_events")
	}

	rows, err := runChain(ctx, "personalized_events", f.logger, []strategy[models.Candidate]{
		{
			name:       "aggregate",
			fallbackOn: personalizationFallback,
			run: func(ctx context.Context) ([]models.Candidate, error) {
				scored, err := executeBreaker(f.breaker, func() ([]models.ScoredEventRow, error) {
					return f.personalization.PersonalizedEvents(ctx, viewerID, limit, offset, center, radius)
				})
				if err != nil {
					return nil, err
				}
				if cacheable {
					f.cache.Set(ctx, key, scored, cache.TTLPersonalizedEvents)
				}
				return scoredToCandidates(scored), nil
			},
		},
		{
			name: "basic_query",
			run: func(ctx context.Context) ([]models.Candidate, error) {
				return f.fetchBasic(ctx, viewerID, limit, offset, center, radius, filters)
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// personalizationFallback routes to the basic query when the aggregate
// is absent on the backend or its circuit is not accepting calls. Other
// failures surface as an empty contribution rather than doubling load on
// the store.
func personalizationFallback(err error) bool {
	return IsUnavailable(err) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests)
}

// fetchBasic is the degraded path: plain future events filtered here.
func (f *PersonalizedEventsFetcher) fetchBasic(ctx context.Context, viewerID string, limit, offset int, center *models.GeoPoint, radius float64, filters *models.FeedFilters) ([]models.Candidate, error) {
	// Over-fetch so client-side filtering still fills the page.
	rows, err := f.events.UpcomingEvents(ctx, (offset+limit)*3)
	if err != nil {
		return nil, err
	}

	var followed *FollowedArtists
	if filters != nil && filters.FollowingOnly && f.follows != nil {
		fa, err := f.follows.FollowedArtists(ctx, viewerID)
		if err != nil {
			f.logger.Warn().Err(err).Msg("Followed-artist set unavailable, skipping following-only filter")
		} else {
			followed = &fa
		}
	}

	var box *geo.BoundingBox
	if center != nil && radius > 0 {
		b := geo.BoxAround(center.Lat, center.Lng, radius)
		box = &b
	}

	now := time.Now()
	kept := make([]models.Candidate, 0, limit)
	skipped := 0
	for _, row := range rows {
		if !f.matches(row.EventData, now, center, radius, box, filters, followed) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		kept = append(kept, row)
		if len(kept) == limit {
			break
		}
	}
	return kept, nil
}

// matches applies every requested filter to one event row.
func (f *PersonalizedEventsFetcher) matches(e models.EventData, now time.Time, center *models.GeoPoint, radius float64, box *geo.BoundingBox, filters *models.FeedFilters, followed *FollowedArtists) bool {
	if !e.EventDate.After(now) {
		return false
	}

	if filters != nil {
		if filters.DateFrom != nil && e.EventDate.Before(*filters.DateFrom) {
			return false
		}
		if filters.DateTo != nil && e.EventDate.After(*filters.DateTo) {
			return false
		}
		if len(filters.DaysOfWeek) > 0 && !weekdayIn(e.EventDate.Weekday(), filters.DaysOfWeek) {
			return false
		}
		if len(filters.Genres) > 0 && !genresOverlap(e.Genres, filters.Genres) {
			return false
		}
		if len(filters.Cities) > 0 && !cityIn(e.VenueCity, filters.Cities) {
			return false
		}
	}

	if followed != nil && !followed.Contains(e) {
		return false
	}

	if box != nil {
		// Events without coordinates cannot satisfy a radius filter.
		if e.Latitude == nil || e.Longitude == nil {
			return false
		}
		if !box.Contains(*e.Latitude, *e.Longitude) {
			return false
		}
		if geo.DistanceMiles(center.Lat, center.Lng, *e.Latitude, *e.Longitude) > radius {
			return false
		}
	}

	return true
}

// searchArea resolves the geographic center and radius for the request:
// the viewer's location when present, otherwise the first filter city
// the geocoder recognizes. No center means no radius constraint.
func (f *PersonalizedEventsFetcher) searchArea(ctx context.Context, loc *models.GeoPoint, filters *models.FeedFilters) (*models.GeoPoint, float64) {
	radius := f.defaultRadius
	if filters != nil && filters.RadiusMiles > 0 {
		radius = filters.RadiusMiles
	}

	if loc != nil {
		return loc, radius
	}

	if filters != nil && len(filters.Cities) > 0 && f.geocoder != nil {
		for _, name := range filters.Cities {
			city, err := f.geocoder.Geocode(ctx, name)
			if err != nil {
				continue
			}
			return &models.GeoPoint{Lat: city.Lat, Lng: city.Lng}, radius
		}
	}

	return nil, 0
}

func (f *PersonalizedEventsFetcher) cacheKey(viewerID string, limit int) string {
	return cache.GenerateKey("personalized_events", struct {
		ViewerID string `json:"viewer_id"`
		Limit    int    `json:"limit"`
	}{viewerID, limit})
}

func scoredToCandidates(rows []models.ScoredEventRow) []models.Candidate {
	out := make([]models.Candidate, len(rows))
	for i, row := range rows {
		out[i] = row
	}
	return out
}

func weekdayIn(day time.Weekday, days []time.Weekday) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

func genresOverlap(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(strings.TrimSpace(w), strings.TrimSpace(h)) {
				return true
			}
		}
	}
	return false
}

func cityIn(venueCity string, cities []string) bool {
	for _, c := range cities {
		if geo.CityMatches(c, venueCity) {
			return true
		}
	}
	return false
}
