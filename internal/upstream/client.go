// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

// Package upstream implements the source interfaces over the data gateway.
//
// The gateway speaks a PostgREST-style HTTP interface: table reads live
// under /rows/{table} with query-parameter filters, and the aggregate
// functions (network feed, personalized feed, friend activity, connection
// degrees) live under /rpc/{function}. A single Client satisfies every
// interface the feed engine consumes, so one gateway connection backs the
// whole pipeline.
package upstream

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/encorelive/feedengine/internal/config"
	"github.com/encorelive/feedengine/internal/logging"
	"github.com/encorelive/feedengine/internal/models"
	"github.com/encorelive/feedengine/internal/sources"
)

// Client is an HTTP client for the feed data gateway. It implements
// sources.ReviewStore, sources.SocialGraph, sources.EventStore,
// sources.PersonalizationSource, sources.ActivitySource and
// sources.ArtistFollows.
type Client struct {
	http   *resty.Client
	logger zerolog.Logger
}

// NewClient builds a gateway client from configuration. The client makes
// exactly one attempt per call; failure handling lives in the fetcher
// strategy chains, never in the transport.
func NewClient(cfg config.UpstreamConfig) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "feedengine/1.0").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		httpClient.SetAuthToken(cfg.APIKey)
	}

	return &Client{
		http:   httpClient,
		logger: logging.WithComponent("upstream"),
	}
}

// gatewayError is the JSON error body the gateway emits.
type gatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// unavailableCodes are the gateway error codes for a missing relation or
// function, the condition that routes fetchers onto their fallback path.
var unavailableCodes = map[string]bool{
	"PGRST202": true, // function not found in schema cache
	"PGRST205": true, // table not found in schema cache
	"42P01":    true, // undefined table
	"42883":    true, // undefined function
}

// classify turns a non-2xx gateway response into an error, wrapping
// sources.ErrSourceUnavailable for the missing-aggregate class.
func classify(resp *resty.Response, gerr gatewayError, what string) error {
	msg := gerr.Message
	if msg == "" {
		msg = resp.Status()
	}
	if unavailableCodes[gerr.Code] || resp.StatusCode() == 404 {
		return fmt.Errorf("%w: %s: %s", sources.ErrSourceUnavailable, what, msg)
	}
	return fmt.Errorf("upstream %s: %s (code %s)", what, msg, gerr.Code)
}

// rows performs a filtered table read.
func rows[T any](ctx context.Context, c *Client, table string, params map[string]string) ([]T, error) {
	var (
		out  []T
		gerr gatewayError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		SetError(&gerr).
		Get("/rows/" + table)
	if err != nil {
		return nil, fmt.Errorf("upstream read %s: %w", table, err)
	}
	if resp.IsError() {
		return nil, classify(resp, gerr, "read "+table)
	}
	return out, nil
}

// rpc invokes a gateway aggregate function.
func rpc[T any](ctx context.Context, c *Client, fn string, payload interface{}) ([]T, error) {
	var (
		out  []T
		gerr gatewayError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&out).
		SetError(&gerr).
		Post("/rpc/" + fn)
	if err != nil {
		return nil, fmt.Errorf("upstream rpc %s: %w", fn, err)
	}
	if resp.IsError() {
		return nil, classify(resp, gerr, "rpc "+fn)
	}
	return out, nil
}

// OwnReviews returns the viewer's most recent reviews, drafts included;
// the fetcher filters them.
func (c *Client) OwnReviews(ctx context.Context, viewerID string, limit int) ([]models.ReviewRecord, error) {
	return rows[models.ReviewRecord](ctx, c, "reviews", map[string]string{
		"author_id": "eq." + viewerID,
		"order":     "created_at.desc",
		"limit":     strconv.Itoa(limit),
	})
}

// PublicReviews returns recent public reviews from the whole community.
func (c *Client) PublicReviews(ctx context.Context, viewerID string, limit, offset int) ([]models.ReviewRecord, error) {
	return rows[models.ReviewRecord](ctx, c, "reviews", map[string]string{
		"is_public": "eq.true",
		"author_id": "neq." + viewerID,
		"order":     "created_at.desc",
		"limit":     strconv.Itoa(limit),
		"offset":    strconv.Itoa(offset),
	})
}

// NetworkReviews calls the aggregate that joins the connection graph to
// reviews server-side, returning rows already tagged with degree.
func (c *Client) NetworkReviews(ctx context.Context, viewerID string, limit, offset int) ([]models.ReviewRecord, error) {
	return rpc[models.ReviewRecord](ctx, c, "get_network_reviews", map[string]interface{}{
		"viewer_id": viewerID,
		"limit":     limit,
		"offset":    offset,
	})
}

// ReviewsByAuthors returns recent reviews authored by any of the given users.
func (c *Client) ReviewsByAuthors(ctx context.Context, authorIDs []string, limit int) ([]models.ReviewRecord, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}
	return rows[models.ReviewRecord](ctx, c, "reviews", map[string]string{
		"author_id": "in.(" + strings.Join(authorIDs, ",") + ")",
		"order":     "created_at.desc",
		"limit":     strconv.Itoa(limit),
	})
}

// connectionRow is one row of the connection-degree aggregate.
type connectionRow struct {
	UserID string `json:"user_id"`
}

// ConnectionsByDegree returns the user ids at exactly the given degree
// from the viewer.
func (c *Client) ConnectionsByDegree(ctx context.Context, viewerID string, degree int) ([]string, error) {
	out, err := rpc[connectionRow](ctx, c, "get_connections_by_degree", map[string]interface{}{
		"viewer_id": viewerID,
		"degree":    degree,
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(out))
	for _, row := range out {
		if row.UserID != "" {
			ids = append(ids, row.UserID)
		}
	}
	return ids, nil
}

// UpcomingEvents returns future events ordered soonest first.
func (c *Client) UpcomingEvents(ctx context.Context, limit int) ([]models.EventRecord, error) {
	return rows[models.EventRecord](ctx, c, "events", map[string]string{
		"event_date": "gte." + time.Now().UTC().Format(time.RFC3339),
		"order":      "event_date.asc",
		"limit":      strconv.Itoa(limit),
	})
}

// PersonalizedEvents calls the personalization aggregate, which blends
// taste, follows and geography into an opaque 0-100 score per event.
func (c *Client) PersonalizedEvents(ctx context.Context, viewerID string, limit, offset int, center *models.GeoPoint, radiusMiles float64) ([]models.ScoredEventRow, error) {
	payload := map[string]interface{}{
		"viewer_id": viewerID,
		"limit":     limit,
		"offset":    offset,
	}
	if center != nil {
		payload["lat"] = center.Lat
		payload["lng"] = center.Lng
		payload["radius_miles"] = radiusMiles
	}
	return rpc[models.ScoredEventRow](ctx, c, "get_personalized_events", payload)
}

// RecentFriendActivity returns the viewer's latest friend-activity notices.
func (c *Client) RecentFriendActivity(ctx context.Context, viewerID string, limit int) ([]models.FriendActivityRecord, error) {
	return rpc[models.FriendActivityRecord](ctx, c, "get_friend_activity", map[string]interface{}{
		"viewer_id": viewerID,
		"limit":     limit,
	})
}

// followRow is one row of the artist-follows table.
type followRow struct {
	ArtistID   string `json:"artist_id,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
	ArtistName string `json:"artist_name,omitempty"`
}

// FollowedArtists returns the identity set of artists the viewer follows.
func (c *Client) FollowedArtists(ctx context.Context, viewerID string) (sources.FollowedArtists, error) {
	out, err := rows[followRow](ctx, c, "artist_follows", map[string]string{
		"user_id": "eq." + viewerID,
	})
	if err != nil {
		return sources.FollowedArtists{}, err
	}
	var followed sources.FollowedArtists
	for _, row := range out {
		if row.ArtistID != "" {
			followed.UUIDs = append(followed.UUIDs, row.ArtistID)
		}
		if row.ExternalID != "" {
			followed.ExternalIDs = append(followed.ExternalIDs, row.ExternalID)
		}
		if row.ArtistName != "" {
			followed.Names = append(followed.Names, row.ArtistName)
		}
	}
	return followed, nil
}
