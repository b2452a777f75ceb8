// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

// Package feed assembles the unified feed: it fans out to the source
// fetchers, scores and normalizes their candidates, collapses duplicate
// event references, ranks, enforces artist diversity, and slices the
// requested page. Everything after the fetch joins is pure and
// request-local.
package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/encorelive/feedengine/internal/config"
	"github.com/encorelive/feedengine/internal/logging"
	"github.com/encorelive/feedengine/internal/metrics"
	"github.com/encorelive/feedengine/internal/models"
	"github.com/encorelive/feedengine/internal/sources"
)

// ErrInvalidViewer is the one error GetFeed propagates: the request
// cannot be scoped to a viewer. Everything else degrades to a partial
// feed.
var ErrInvalidViewer = errors.New("feed: viewer id required")

// Engine is the feed orchestrator.
type Engine struct {
	own      *sources.OwnReviewsFetcher
	network  *sources.NetworkReviewsFetcher
	public   *sources.PublicReviewsFetcher
	events   *sources.PersonalizedEventsFetcher
	activity *sources.FriendActivityFetcher

	cfg    config.FeedConfig
	logger zerolog.Logger

	// now is the clock used for scoring; fixed in tests.
	now func() time.Time
}

func NewEngine(
	own *sources.OwnReviewsFetcher,
	network *sources.NetworkReviewsFetcher,
	public *sources.PublicReviewsFetcher,
	events *sources.PersonalizedEventsFetcher,
	activity *sources.FriendActivityFetcher,
	cfg config.FeedConfig,
) *Engine {
	return &Engine{
		own:      own,
		network:  network,
		public:   public,
		events:   events,
		activity: activity,
		cfg:      cfg,
		logger:   logging.WithComponent("feed.engine"),
		now:      time.Now,
	}
}

// GetFeed is the sole entry point: one ranked, deduplicated, diversity
// capped page for the viewer. Source failures are logged and contribute
// empty slices; only a missing viewer id is fatal.
func (e *Engine) GetFeed(ctx context.Context, req models.FeedRequest) (*models.FeedResponse, error) {
	if req.ViewerID == "" {
		return nil, ErrInvalidViewer
	}

	start := time.Now()
	req = e.normalizeRequest(req)

	var resp *models.FeedResponse
	switch req.Mode {
	case models.ModeFriends:
		resp = e.reviewTimeline(ctx, req, 1)
	case models.ModeFriendsPlusOne:
		resp = e.reviewTimeline(ctx, req, 2)
	case models.ModePublicOnly:
		resp = e.publicTimeline(ctx, req)
	default:
		resp = e.mergedFeed(ctx, req)
	}

	metrics.RecordFeedRequest(string(req.Mode), time.Since(start), len(resp.Items))
	return resp, nil
}

func (e *Engine) normalizeRequest(req models.FeedRequest) models.FeedRequest {
	if !req.Mode.Valid() {
		req.Mode = models.ModeAll
	}
	if req.Limit <= 0 {
		req.Limit = e.cfg.DefaultLimit
	}
	if req.Limit > e.cfg.MaxLimit {
		req.Limit = e.cfg.MaxLimit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	return req
}

// mergedFeed is the "all" mode: every source fetched concurrently, then
// the pure pipeline. Fetchers are independent; each gets its own timeout
// and its failure never cancels the others.
func (e *Engine) mergedFeed(ctx context.Context, req models.FeedRequest) *models.FeedResponse {
	// Sources fetch the whole window up to the requested page so dedup
	// and the diversity cap apply to the full merged list, not one page.
	window := req.Offset + req.Limit

	var (
		ownRows      []models.ReviewRecord
		networkRows  []models.ReviewRecord
		eventRows    []models.Candidate
		activityRows []models.FriendActivityRecord
		degraded     atomic.Bool
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := e.fetchOwn(gctx, req.ViewerID)
		if err != nil {
			degraded.Store(true)
			return nil
		}
		ownRows = rows
		return nil
	})

	g.Go(func() error {
		rows, err := e.fetchNetwork(gctx, req.ViewerID, window)
		if err != nil {
			// Secondary fallback: the community's public reviews keep the
			// feed populated when the graph-filtered source is down.
			degraded.Store(true)
			e.logger.Warn().Err(err).Msg("Network reviews unavailable, substituting public reviews")
			rows, err = e.fetchPublic(gctx, req.ViewerID, window)
			if err != nil {
				return nil
			}
		}
		networkRows = rows
		return nil
	})

	g.Go(func() error {
		rows, err := e.fetchEvents(gctx, req, window)
		if err != nil {
			degraded.Store(true)
			return nil
		}
		eventRows = rows
		return nil
	})

	g.Go(func() error {
		rows, err := e.fetchActivity(gctx, req.ViewerID)
		if err != nil {
			degraded.Store(true)
			return nil
		}
		activityRows = rows
		return nil
	})

	_ = g.Wait()

	now := e.now()
	items := make([]models.UnifiedFeedItem, 0,
		len(ownRows)+len(networkRows)+len(eventRows)+len(activityRows))

	// Merge in fixed source order so first-wins dedup is deterministic.
	for _, r := range ownRows {
		items = append(items, Normalize(r, req.Location, now))
	}
	for _, r := range networkRows {
		items = append(items, Normalize(r, req.Location, now))
	}
	for _, c := range eventRows {
		items = append(items, Normalize(c, req.Location, now))
	}
	for _, a := range activityRows {
		items = append(items, Normalize(a, req.Location, now))
	}

	items = Dedupe(items)
	Rank(items, e.cfg.TieThreshold)
	items = CapByArtist(items, e.cfg.MaxPerArtist)

	page := Page(items, req.Limit, req.Offset)
	return &models.FeedResponse{
		Items:    page,
		HasMore:  req.Offset+len(page) < len(items),
		Mode:     req.Mode,
		Degraded: degraded.Load(),
	}
}

// reviewTimeline serves the friends and friends_plus_one modes: a pure
// recency-ordered review timeline from connections up to maxDegree, with
// no event merge and no diversity pass.
func (e *Engine) reviewTimeline(ctx context.Context, req models.FeedRequest, maxDegree int) *models.FeedResponse {
	// Over-fetch to absorb rows dropped by the degree filter.
	rows, err := e.fetchNetwork(ctx, req.ViewerID, req.Offset+req.Limit*2)
	if err != nil {
		return &models.FeedResponse{Mode: req.Mode, Degraded: true}
	}

	now := e.now()
	items := make([]models.UnifiedFeedItem, 0, len(rows))
	for _, r := range rows {
		if r.ConnectionDegree < 1 || r.ConnectionDegree > maxDegree {
			continue
		}
		items = append(items, Normalize(r, req.Location, now))
	}

	page := Page(items, req.Limit, req.Offset)
	return &models.FeedResponse{
		Items:   page,
		HasMore: req.Offset+len(page) < len(items),
		Mode:    req.Mode,
	}
}

// publicTimeline serves public_only: community reviews, newest first.
func (e *Engine) publicTimeline(ctx context.Context, req models.FeedRequest) *models.FeedResponse {
	rows, err := e.fetchPublic(ctx, req.ViewerID, req.Offset+req.Limit)
	if err != nil {
		return &models.FeedResponse{Mode: req.Mode, Degraded: true}
	}

	now := e.now()
	items := make([]models.UnifiedFeedItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, Normalize(r, req.Location, now))
	}

	page := Page(items, req.Limit, req.Offset)
	return &models.FeedResponse{
		Items:   page,
		HasMore: req.Offset+len(page) < len(items),
		Mode:    req.Mode,
	}
}

// Per-fetcher wrappers bound each call by the configured fetch timeout; a
// timed-out fetcher is indistinguishable from a failed one.

func (e *Engine) fetchOwn(ctx context.Context, viewerID string) ([]models.ReviewRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()
	return e.own.Fetch(ctx, viewerID)
}

func (e *Engine) fetchNetwork(ctx context.Context, viewerID string, window int) ([]models.ReviewRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()
	return e.network.Fetch(ctx, viewerID, window, 0)
}

func (e *Engine) fetchPublic(ctx context.Context, viewerID string, window int) ([]models.ReviewRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()
	return e.public.Fetch(ctx, viewerID, window, 0)
}

func (e *Engine) fetchEvents(ctx context.Context, req models.FeedRequest, window int) ([]models.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()
	return e.events.Fetch(ctx, req.ViewerID, window, 0, req.Location, req.Filters)
}

func (e *Engine) fetchActivity(ctx context.Context, viewerID string) ([]models.FriendActivityRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()
	return e.activity.Fetch(ctx, viewerID, e.cfg.DefaultLimit/2)
}
