// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/encorelive/feedengine/internal/logging"
)

// Redis is a Store backed by a shared Redis instance, for deployments
// running more than one feed engine replica.
//
// Values are serialized to JSON on write and surfaced as json.RawMessage on
// read; use GetTyped to decode. Backend errors degrade to cache misses.
type Redis struct {
	client redis.UniversalClient
	prefix string
	logger zerolog.Logger

	statsMu sync.Mutex
	stats   Stats
}

// NewRedis creates a Redis-backed store. All keys are namespaced with prefix
// so Clear never touches foreign data in a shared instance.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "feedengine"
	}
	return &Redis{
		client: client,
		prefix: prefix,
		logger: logging.WithComponent("cache"),
	}
}

func (r *Redis) key(key string) string {
	return r.prefix + ":" + key
}

// Get retrieves a value by key. Returns the raw JSON payload; absent keys,
// expired keys, and backend errors all report a miss.
func (r *Redis) Get(ctx context.Context, key string) (interface{}, bool) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn().Err(err).Str("key", key).Msg("Redis get failed, treating as miss")
		}
		r.recordMiss()
		return nil, false
	}

	r.recordHit()
	return json.RawMessage(data), true
}

// Set serializes value to JSON and stores it with the given TTL. Failures
// are logged and dropped; the next read is simply a miss.
func (r *Redis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("Failed to serialize cache value")
		return
	}

	if err := r.client.Set(ctx, r.key(key), data, ttl).Err(); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("Redis set failed")
	}
}

// Delete removes a specific cache entry by key.
func (r *Redis) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("Redis delete failed")
		return
	}
	r.recordEvictions(1)
}

// Clear removes every entry under this store's prefix.
func (r *Redis) Clear(ctx context.Context) {
	r.clearMatching(ctx, r.prefix+":*")
}

// ClearPattern removes every entry whose key starts with prefix, e.g.
// "network_reviews:" to invalidate a feature's whole keyspace.
func (r *Redis) ClearPattern(ctx context.Context, prefix string) {
	r.clearMatching(ctx, r.key(prefix)+"*")
}

// clearMatching deletes keys matching pattern using incremental SCAN so a
// large keyspace never blocks the server.
func (r *Redis) clearMatching(ctx context.Context, pattern string) {
	var cursor uint64

	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 500).Result()
		if err != nil {
			r.logger.Warn().Err(err).Str("pattern", pattern).Msg("Redis scan failed during clear")
			return
		}

		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				r.logger.Warn().Err(err).Msg("Redis delete failed during clear")
				return
			}
			r.recordEvictions(int64(len(keys)))
		}

		cursor = next
		if cursor == 0 {
			return
		}
	}
}

// Stats returns a snapshot of the local hit/miss counters. Counters are
// per-replica; Redis server metrics cover the shared view.
func (r *Redis) Stats() Stats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return r.stats
}

func (r *Redis) recordHit() {
	r.statsMu.Lock()
	r.stats.Hits++
	r.statsMu.Unlock()
}

func (r *Redis) recordMiss() {
	r.statsMu.Lock()
	r.stats.Misses++
	r.statsMu.Unlock()
}

func (r *Redis) recordEvictions(n int64) {
	r.statsMu.Lock()
	r.stats.Evictions += n
	r.statsMu.Unlock()
}
