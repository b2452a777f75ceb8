// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

// Package cache provides TTL caching for feed source results.
//
// Two backends implement the Store interface:
//   - Memory: Bounded in-process store with background expiry sweeping
//   - Redis: Shared store for multi-instance deployments
//
// Caching here is strictly best-effort: a backend failure is reported as a
// miss and never propagates to the caller. Stale entries are never served;
// expiry is checked on every read.
package cache

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// Store is the TTL cache backend used by the feed source fetchers.
//
// Values are stored as opaque interface{} payloads. The memory backend keeps
// them as-is; the Redis backend serializes to JSON and returns
// json.RawMessage on reads. Use GetTyped to read uniformly across backends.
type Store interface {
	// Get returns the value for key, or false when absent or expired.
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)

	// Delete removes key. No-op when the key is absent.
	Delete(ctx context.Context, key string)

	// Clear removes every entry owned by this store.
	Clear(ctx context.Context)

	// ClearPattern removes every entry whose key starts with prefix.
	ClearPattern(ctx context.Context, prefix string)

	// Stats returns a snapshot of hit/miss/eviction counters.
	Stats() Stats
}

// Stats is a point-in-time snapshot of cache performance counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// HitRate returns the hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}
	return float64(s.Hits) / float64(total) * 100.0
}

// GetTyped reads a value of type T from the store, bridging the backend
// difference: in-memory values are type-asserted directly, serialized values
// ([]byte or json.RawMessage) are unmarshaled.
//
//	items, ok := cache.GetTyped[[]models.UnifiedFeedItem](ctx, store, key)
func GetTyped[T any](ctx context.Context, s Store, key string) (T, bool) {
	var zero T

	raw, ok := s.Get(ctx, key)
	if !ok {
		return zero, false
	}

	if v, ok := raw.(T); ok {
		return v, true
	}

	var data []byte
	switch b := raw.(type) {
	case json.RawMessage:
		data = b
	case []byte:
		data = b
	default:
		return zero, false
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, false
	}
	return v, true
}
