// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

// Package cache implements the process-wide response cache: a thread-safe
// in-memory key/value store with TTL expiry, prefix-pattern invalidation,
// and a per-user invalidation sweep.
//
// The cache is a pure optimization. It has no error paths by construction:
// a missing, expired, or concurrently deleted entry is simply a miss, and
// invalidating keys that do not exist is a no-op. Callers never fail a
// request because of the cache.
//
// Key namespace convention: ordered segments joined by ':', normally
// <entity-kind>:<owner-id>:<logical-query-or-id>. InvalidateUser removes
// every key whose owner segment matches, across all entity kinds.
package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/praxis-edu/praxis/internal/metrics"
)

// Delimiter separates key segments. Segments are escaped so a delimiter
// inside a segment can never collide with the segment structure.
const Delimiter = ":"

// entry is a cached value with an absolute expiry.
type entry struct {
	value     any
	expiresAt time.Time
}

// Stats is a snapshot of cache performance counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// Options configures a Store.
type Options struct {
	// DefaultTTL applies when Set is called with a zero TTL. Default: 60s.
	DefaultTTL time.Duration

	// CleanupInterval is the period of the background expiry sweep.
	// Default: 5m. Expiry is also checked lazily on every read, so the
	// sweep only bounds memory held by keys nobody reads again.
	CleanupInterval time.Duration
}

// Store is a thread-safe in-memory cache with TTL support.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	opts    Options

	statsMu sync.Mutex
	stats   Stats

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a Store and starts its background cleanup goroutine.
// Call Close to stop the goroutine.
func New(opts Options) *Store {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 60 * time.Second
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = 5 * time.Minute
	}

	s := &Store{
		entries: make(map[string]entry),
		opts:    opts,
		stats:   Stats{LastCleanup: time.Now()},
		stop:    make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// Close stops the background cleanup goroutine. The store remains usable;
// expiry continues to be enforced lazily on reads.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Key joins segments with the cache delimiter. Delimiters occurring inside
// a segment are escaped, so Key("a:b") and Key("a", "b") never collide.
func Key(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		escaped[i] = strings.ReplaceAll(seg, Delimiter, "\\:")
	}
	return strings.Join(escaped, Delimiter)
}

// QueryKey derives a deterministic key for a logical query: the entity kind,
// the owning user, and a digest of the query parameters. Parameters are
// serialized to canonical JSON (map keys sorted), so semantically identical
// queries always produce the same key.
func QueryKey(kind, ownerID string, params any) string {
	data, err := json.Marshal(params)
	if err != nil {
		// Marshaling query params never fails for the shapes we cache,
		// but a stable fallback keeps the cache usable regardless.
		return Key(kind, ownerID, fmt.Sprintf("%v", params))
	}
	digest := sha256.Sum256(data)
	return Key(kind, ownerID, fmt.Sprintf("%x", digest[:16]))
}

// Get retrieves a value by key. An absent or expired entry is a miss.
// Expiry is inclusive: an entry read exactly at its deadline is expired.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	e, exists := s.entries[key]
	s.mu.RUnlock()

	if !exists {
		s.recordMiss()
		return nil, false
	}

	if !time.Now().Before(e.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// refreshed the entry between the two lock acquisitions.
		expired := false
		if cur, ok := s.entries[key]; ok && !time.Now().Before(cur.expiresAt) {
			delete(s.entries, key)
			expired = true
		}
		total := int64(len(s.entries))
		s.mu.Unlock()

		if expired {
			s.recordEviction(1)
			s.setTotalKeys(total)
		}
		s.recordMiss()
		return nil, false
	}

	s.recordHit()
	return e.value, true
}

// Set stores a value with the given TTL, overwriting unconditionally.
// A zero or negative TTL uses the store's default.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.opts.DefaultTTL
	}

	s.mu.Lock()
	s.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	total := int64(len(s.entries))
	s.mu.Unlock()

	s.setTotalKeys(total)
}

// Delete removes a single key. No-op if the key is absent.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	_, existed := s.entries[key]
	delete(s.entries, key)
	total := int64(len(s.entries))
	s.mu.Unlock()

	if existed {
		s.recordEviction(1)
		s.setTotalKeys(total)
	}
}

// DeletePattern removes every key matching the pattern and returns the
// number removed. The only supported syntax is a literal prefix with a
// trailing wildcard, e.g. "portfolio:42:*". A pattern without a trailing
// '*' degrades to an exact-match delete. Zero matches is not an error.
func (s *Store) DeletePattern(pattern string) int {
	prefix, ok := strings.CutSuffix(pattern, "*")
	if !ok {
		s.Delete(pattern)
		return 0
	}

	s.mu.Lock()
	removed := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			removed++
		}
	}
	total := int64(len(s.entries))
	s.mu.Unlock()

	if removed > 0 {
		s.recordEviction(int64(removed))
		s.setTotalKeys(total)
	}
	return removed
}

// InvalidateUser removes every key whose owner segment is userID, across
// all entity kinds, plus everything under the "user:<id>:" umbrella.
// Returns the number of keys removed.
func (s *Store) InvalidateUser(userID string) int {
	ownerSeg := Delimiter + Key(userID) + Delimiter
	umbrella := Key("user", userID) + Delimiter

	s.mu.Lock()
	removed := 0
	for key := range s.entries {
		if strings.Contains(key, ownerSeg) || strings.HasPrefix(key, umbrella) {
			delete(s.entries, key)
			removed++
		}
	}
	total := int64(len(s.entries))
	s.mu.Unlock()

	if removed > 0 {
		s.recordEviction(int64(removed))
		s.setTotalKeys(total)
	}
	return removed
}

// Clear removes all entries in a single operation.
func (s *Store) Clear() {
	s.mu.Lock()
	evicted := int64(len(s.entries))
	s.entries = make(map[string]entry)
	s.mu.Unlock()

	s.recordEviction(evicted)
	s.setTotalKeys(0)
}

// Len returns the current number of entries, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetStats returns a snapshot of the cache counters.
func (s *Store) GetStats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

// HitRate returns the cache hit rate as a percentage.
func (s *Store) HitRate() float64 {
	st := s.GetStats()
	total := st.Hits + st.Misses
	if total == 0 {
		return 0.0
	}
	return float64(st.Hits) / float64(total) * 100.0
}

// cleanupLoop periodically removes expired entries until Close is called.
func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stop:
			return
		}
	}
}

// cleanup removes all expired entries.
func (s *Store) cleanup() {
	now := time.Now()

	s.mu.Lock()
	evicted := int64(0)
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
			evicted++
		}
	}
	total := int64(len(s.entries))
	s.mu.Unlock()

	s.statsMu.Lock()
	s.stats.Evictions += evicted
	s.stats.LastCleanup = now
	s.statsMu.Unlock()

	if evicted > 0 {
		metrics.CacheEvictions.Add(float64(evicted))
	}
	s.setTotalKeys(total)
}

func (s *Store) recordHit() {
	s.statsMu.Lock()
	s.stats.Hits++
	s.statsMu.Unlock()
	metrics.CacheHits.Inc()
}

func (s *Store) recordMiss() {
	s.statsMu.Lock()
	s.stats.Misses++
	s.statsMu.Unlock()
	metrics.CacheMisses.Inc()
}

// setTotalKeys refreshes the key-count snapshot and gauge. Every mutation
// of the entries map reports its post-mutation size here, so stats stay
// accurate between background sweeps.
func (s *Store) setTotalKeys(total int64) {
	s.statsMu.Lock()
	s.stats.TotalKeys = total
	s.statsMu.Unlock()
	metrics.CacheEntries.Set(float64(total))
}

func (s *Store) recordEviction(n int64) {
	s.statsMu.Lock()
	s.stats.Evictions += n
	s.statsMu.Unlock()
	metrics.CacheEvictions.Add(float64(n))
}
