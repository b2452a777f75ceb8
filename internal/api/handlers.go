// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/encorelive/feedengine/internal/feed"
	"github.com/encorelive/feedengine/internal/logging"
	"github.com/encorelive/feedengine/internal/models"
	"github.com/encorelive/feedengine/internal/validation"
)

// feedQuery mirrors the /api/v1/feed query parameters for validation.
type feedQuery struct {
	ViewerID string  `validate:"required,uuid"`
	Mode     string  `validate:"omitempty,oneof=all friends friends_plus_one public_only"`
	Limit    int     `validate:"min=1,max=100"`
	Offset   int     `validate:"min=0"`
	Lat      float64 `validate:"omitempty,latitude"`
	Lng      float64 `validate:"omitempty,longitude"`
}

// handleFeed serves GET /api/v1/feed.
func (rt *Router) handleFeed(w http.ResponseWriter, r *http.Request) {
	req, err := parseFeedRequest(r, rt.cfg.Feed.DefaultLimit)
	if err != nil {
		var ve *validation.RequestValidationError
		if errors.As(err, &ve) {
			apiErr := ve.ToAPIError()
			respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
			return
		}
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
		return
	}

	start := time.Now()
	resp, err := rt.engine.GetFeed(r.Context(), *req)
	if err != nil {
		if errors.Is(err, feed.ErrInvalidViewer) {
			respondError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("feed assembly failed")
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal,
			"failed to assemble feed", nil)
		return
	}
	respondJSON(w, r, http.StatusOK, resp, time.Since(start))
}

// handleLive serves GET /api/v1/health/live.
func (rt *Router) handleLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "alive"}, 0)
}

// handleReady serves GET /api/v1/health/ready. The engine has no hard
// external dependency at startup; readiness reports the cache backend.
func (rt *Router) handleReady(w http.ResponseWriter, r *http.Request) {
	stats := rt.cache.Stats()
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":         "ready",
		"cache_keys":     stats.TotalKeys,
		"cache_hit_rate": stats.HitRate(),
	}, 0)
}

// parseFeedRequest decodes and validates the feed query parameters.
func parseFeedRequest(r *http.Request, defaultLimit int) (*models.FeedRequest, error) {
	q := r.URL.Query()

	limit := defaultLimit
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("limit must be an integer")
		}
		limit = v
	}
	offset := 0
	if raw := q.Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("offset must be an integer")
		}
		offset = v
	}

	var loc *models.GeoPoint
	latRaw, lngRaw := q.Get("lat"), q.Get("lng")
	if latRaw != "" || lngRaw != "" {
		if latRaw == "" || lngRaw == "" {
			return nil, fmt.Errorf("lat and lng must be provided together")
		}
		lat, err := strconv.ParseFloat(latRaw, 64)
		if err != nil {
			return nil, fmt.Errorf("lat must be a number")
		}
		lng, err := strconv.ParseFloat(lngRaw, 64)
		if err != nil {
			return nil, fmt.Errorf("lng must be a number")
		}
		loc = &models.GeoPoint{Lat: lat, Lng: lng}
	}

	fq := feedQuery{
		ViewerID: q.Get("viewer_id"),
		Mode:     q.Get("mode"),
		Limit:    limit,
		Offset:   offset,
	}
	if loc != nil {
		fq.Lat, fq.Lng = loc.Lat, loc.Lng
	}
	if verr := validation.ValidateStruct(&fq); verr != nil {
		return nil, verr
	}

	filters, err := parseFilters(q.Get("genres"), q.Get("cities"), q.Get("date_from"),
		q.Get("date_to"), q.Get("days_of_week"), q.Get("following_only"), q.Get("radius_miles"))
	if err != nil {
		return nil, err
	}

	return &models.FeedRequest{
		ViewerID: fq.ViewerID,
		Mode:     models.ParseFeedMode(fq.Mode),
		Limit:    limit,
		Offset:   offset,
		Location: loc,
		Filters:  filters,
	}, nil
}

// parseFilters builds FeedFilters from the raw query values. Returns nil when
// no filter dimension is present so the cacheable first-page path stays hot.
func parseFilters(genres, cities, dateFrom, dateTo, days, followingOnly, radius string) (*models.FeedFilters, error) {
	f := &models.FeedFilters{
		Genres: splitList(genres),
		Cities: splitList(cities),
	}

	if dateFrom != "" {
		t, err := parseDate(dateFrom)
		if err != nil {
			return nil, fmt.Errorf("date_from: %w", err)
		}
		f.DateFrom = &t
	}
	if dateTo != "" {
		t, err := parseDate(dateTo)
		if err != nil {
			return nil, fmt.Errorf("date_to: %w", err)
		}
		f.DateTo = &t
	}

	for _, name := range splitList(days) {
		day, err := parseWeekday(name)
		if err != nil {
			return nil, err
		}
		f.DaysOfWeek = append(f.DaysOfWeek, day)
	}

	if followingOnly != "" {
		v, err := strconv.ParseBool(followingOnly)
		if err != nil {
			return nil, fmt.Errorf("following_only must be a boolean")
		}
		f.FollowingOnly = v
	}
	if radius != "" {
		v, err := strconv.ParseFloat(radius, 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("radius_miles must be a non-negative number")
		}
		f.RadiusMiles = v
	}

	if f.Empty() && f.RadiusMiles == 0 {
		return nil, nil
	}
	return f, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDate accepts RFC 3339 timestamps or bare dates.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("must be RFC 3339 or YYYY-MM-DD")
	}
	return t, nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

func parseWeekday(raw string) (time.Weekday, error) {
	if day, ok := weekdayNames[strings.ToLower(raw)]; ok {
		return day, nil
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 0 && n <= 6 {
		return time.Weekday(n), nil
	}
	return 0, fmt.Errorf("days_of_week: %q is not a weekday", raw)
}
