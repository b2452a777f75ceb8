// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// entry represents a cached item with expiration.
type entry struct {
	data      interface{}
	expiresAt time.Time
	seq       uint64
}

// Memory is a thread-safe in-memory Store with TTL support and a bounded
// entry count. When full, the oldest entry by insertion order is evicted.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int
	seq        uint64

	statsMu sync.Mutex
	stats   Stats

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemory creates a bounded in-memory cache and starts a background
// goroutine that sweeps expired entries every sweepInterval.
//
// Parameters:
//   - maxEntries: Capacity bound; the oldest entry is evicted when exceeded
//   - sweepInterval: How often the background sweep runs
//
// Call Close when the store is no longer needed to stop the sweeper.
func NewMemory(maxEntries int, sweepInterval time.Duration) *Memory {
	m := &Memory{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		stats:      Stats{LastCleanup: time.Now()},
		stop:       make(chan struct{}),
	}

	go m.sweepLoop(sweepInterval)

	return m
}

// Get retrieves a value by key with automatic expiration checking.
// Expired entries are removed on access and counted as misses.
func (m *Memory) Get(_ context.Context, key string) (interface{}, bool) {
	m.mu.RLock()
	e, exists := m.entries[key]
	m.mu.RUnlock()

	if !exists {
		m.recordMiss()
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		// The sweeper may have removed it already; count only what we evict.
		_, present := m.entries[key]
		delete(m.entries, key)
		total := int64(len(m.entries))
		m.mu.Unlock()

		m.statsMu.Lock()
		m.stats.Misses++
		if present {
			m.stats.Evictions++
		}
		m.stats.TotalKeys = total
		m.statsMu.Unlock()
		return nil, false
	}

	m.recordHit()
	return e.data, true
}

// Set stores a value under key with the given TTL, evicting the oldest
// entry when the store is at capacity.
func (m *Memory) Set(_ context.Context, key string, value interface{}, ttl time.Duration) {
	m.mu.Lock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.evictOldestLocked()
	}

	m.seq++
	m.entries[key] = entry{
		data:      value,
		expiresAt: time.Now().Add(ttl),
		seq:       m.seq,
	}
	total := int64(len(m.entries))
	m.mu.Unlock()

	m.statsMu.Lock()
	m.stats.TotalKeys = total
	m.statsMu.Unlock()
}

// evictOldestLocked removes the entry with the lowest insertion sequence.
// Caller must hold m.mu.
func (m *Memory) evictOldestLocked() {
	var oldestKey string
	var oldestSeq uint64
	first := true
	for k, e := range m.entries {
		if first || e.seq < oldestSeq {
			oldestKey, oldestSeq = k, e.seq
			first = false
		}
	}
	if !first {
		delete(m.entries, oldestKey)
		m.recordEvictions(1)
	}
}

// Delete removes a specific cache entry by key. Deleting an absent key is
// a no-op and does not count as an eviction.
func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	_, present := m.entries[key]
	delete(m.entries, key)
	total := int64(len(m.entries))
	m.mu.Unlock()

	m.statsMu.Lock()
	if present {
		m.stats.Evictions++
	}
	m.stats.TotalKeys = total
	m.statsMu.Unlock()
}

// Clear removes all entries in a single atomic operation.
func (m *Memory) Clear(_ context.Context) {
	m.mu.Lock()
	evictions := int64(len(m.entries))
	m.entries = make(map[string]entry)
	m.mu.Unlock()

	m.statsMu.Lock()
	m.stats.Evictions += evictions
	m.stats.TotalKeys = 0
	m.statsMu.Unlock()
}

// ClearPattern removes every entry whose key starts with prefix. Used to
// invalidate a feature's whole keyspace, e.g. "network_reviews:".
func (m *Memory) ClearPattern(_ context.Context, prefix string) {
	m.mu.Lock()
	var evictions int64
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
			evictions++
		}
	}
	total := int64(len(m.entries))
	m.mu.Unlock()

	m.statsMu.Lock()
	m.stats.Evictions += evictions
	m.stats.TotalKeys = total
	m.statsMu.Unlock()
}

// Stats returns a snapshot of current cache performance statistics.
func (m *Memory) Stats() Stats {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.stats
}

// Close stops the background sweeper. Safe to call multiple times.
func (m *Memory) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

// sweepLoop periodically removes expired entries until Close is called.
func (m *Memory) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

// sweep removes all expired entries.
func (m *Memory) sweep() {
	now := time.Now()
	m.mu.Lock()

	evictions := int64(0)
	for key, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, key)
			evictions++
		}
	}
	total := int64(len(m.entries))
	m.mu.Unlock()

	m.statsMu.Lock()
	m.stats.Evictions += evictions
	m.stats.TotalKeys = total
	m.stats.LastCleanup = now
	m.statsMu.Unlock()
}

func (m *Memory) recordHit() {
	m.statsMu.Lock()
	m.stats.Hits++
	m.statsMu.Unlock()
}

func (m *Memory) recordMiss() {
	m.statsMu.Lock()
	m.stats.Misses++
	m.statsMu.Unlock()
}

func (m *Memory) recordEvictions(n int64) {
	m.statsMu.Lock()
	m.stats.Evictions += n
	m.statsMu.Unlock()
}
