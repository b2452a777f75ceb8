// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package sources

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/encorelive/feedengine/internal/cache"
	"github.com/encorelive/feedengine/internal/config"
	"github.com/encorelive/feedengine/internal/logging"
	"github.com/encorelive/feedengine/internal/metrics"
	"github.com/encorelive/feedengine/internal/models"
)

// Human labels by connection degree, shown next to the author name.
const (
	LabelFriend   = "Friend"
	LabelMutual   = "Mutual Friend"
	LabelExtended = "Extended Network"
)

// DegreeLabel maps a connection degree to its display label.
func DegreeLabel(degree int) string {
	switch degree {
	case 1:
		return LabelFriend
	case 2:
		return LabelMutual
	case 3:
		return LabelExtended
	}
	return ""
}

// NetworkReviewsFetcher returns reviews authored by the viewer's 1st and
// 2nd degree connections (plus a curated 3rd-degree set when the graph
// provides one), each tagged with its degree and label.
//
// Primary path: one aggregate query returning pre-joined, pre-labeled
// rows, guarded by a circuit breaker. Fallback path: fetch the degree id
// sets independently, query reviews by the union, and label client-side.
// The first page is cached briefly; deeper pages always hit the store.
type NetworkReviewsFetcher struct {
	store   ReviewStore
	graph   SocialGraph
	cache   cache.Store
	breaker *gobreaker.CircuitBreaker[[]models.ReviewRecord]
	logger  zerolog.Logger
}

func NewNetworkReviewsFetcher(store ReviewStore, graph SocialGraph, c cache.Store, cfg config.FeedConfig) *NetworkReviewsFetcher {
	return &NetworkReviewsFetcher{
		store:   store,
		graph:   graph,
		cache:   c,
		breaker: newBreaker[models.ReviewRecord]("network-reviews", cfg),
		logger:  logging.WithComponent("sources.network_reviews"),
	}
}

// Fetch returns connection reviews for one page.
func (f *NetworkReviewsFetcher) Fetch(ctx context.Context, viewerID string, limit, offset int) ([]models.ReviewRecord, error) {
	key := f.cacheKey(viewerID, limit)
	if offset == 0 {
		if rows, ok := cache.GetTyped[[]models.ReviewRecord](ctx, f.cache, key); ok {
			metrics.RecordCacheHit("network_reviews")
			return rows, nil
		}
		metrics.RecordCacheMiss("network_reviews")
	}

	chain := []strategy[models.ReviewRecord]{
		{
			name: "aggregate",
			run: func(ctx context.Context) ([]models.ReviewRecord, error) {
				return executeBreaker(f.breaker, func() ([]models.ReviewRecord, error) {
					return f.store.NetworkReviews(ctx, viewerID, limit, offset)
				})
			},
		},
		{
			name: "degree_sets",
			run: func(ctx context.Context) ([]models.ReviewRecord, error) {
				return f.fetchByDegreeSets(ctx, viewerID, limit, offset)
			},
		},
	}

	rows, err := runChain(ctx, "network_reviews", f.logger, chain)
	if err != nil {
		return nil, err
	}

	rows = filterReviewable(rows)
	for i := range rows {
		if rows[i].ConnectionLabel == "" {
			rows[i].ConnectionLabel = DegreeLabel(rows[i].ConnectionDegree)
		}
	}

	if offset == 0 {
		f.cache.Set(ctx, key, rows, cache.TTLNetworkReviews)
	}
	return rows, nil
}

// fetchByDegreeSets is the fallback when the aggregate is unavailable:
// resolve each degree's id set, query reviews by the union, and compute
// the degree label here. A connection reachable at several degrees keeps
// the closest one.
func (f *NetworkReviewsFetcher) fetchByDegreeSets(ctx context.Context, viewerID string, limit, offset int) ([]models.ReviewRecord, error) {
	degreeByAuthor := make(map[string]int)
	var authorIDs []string

	for _, degree := range []int{1, 2, 3} {
		ids, err := f.graph.ConnectionsByDegree(ctx, viewerID, degree)
		if err != nil {
			// Curated third-degree sets are optional; closer degrees are not.
			if degree == 3 {
				f.logger.Warn().Err(err).Msg("Third-degree connection set unavailable")
				continue
			}
			return nil, fmt.Errorf("resolving degree %d connections: %w", degree, err)
		}
		for _, id := range ids {
			if id == viewerID {
				continue
			}
			if _, seen := degreeByAuthor[id]; !seen {
				degreeByAuthor[id] = degree
				authorIDs = append(authorIDs, id)
			}
		}
	}

	if len(authorIDs) == 0 {
		return nil, nil
	}

	// Over-fetch so page slicing after the reviewable filter still fills.
	rows, err := f.store.ReviewsByAuthors(ctx, authorIDs, offset+limit*2)
	if err != nil {
		return nil, fmt.Errorf("querying reviews by author set: %w", err)
	}

	for i := range rows {
		rows[i].ConnectionDegree = degreeByAuthor[rows[i].AuthorID]
		rows[i].ConnectionLabel = DegreeLabel(rows[i].ConnectionDegree)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})

	if offset >= len(rows) {
		return nil, nil
	}
	rows = rows[offset:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *NetworkReviewsFetcher) cacheKey(viewerID string, limit int) string {
	return cache.GenerateKey("network_reviews", struct {
		ViewerID string `json:"viewer_id"`
		Limit    int    `json:"limit"`
	}{viewerID, limit})
}
