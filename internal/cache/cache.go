// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

// Package cache provides a thread-safe in-memory TTL cache for the admin
// read paths (system stats, link listings).
//
// The cache is an injected dependency of the shortener service, which
// invalidates the affected keys on every write. It is per-process: in a
// multi-instance deployment other replicas serve entries up to one TTL
// stale, which the read endpoints tolerate.
package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/rmarins/linktally/internal/metrics"
)

// Entry is a cached value with its expiry.
type Entry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Cache is a thread-safe in-memory cache with per-entry TTL.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration
	now     func() time.Time

	statsMu sync.Mutex
	stats   Stats
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Keys      int64
}

// Option configures a Cache at construction.
type Option func(*Cache)

// WithClock overrides the cache's time source. Tests use this to expire
// entries without sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache whose entries default to the given TTL.
// Expired entries are dropped lazily on access and by Prune, which the
// owner calls from its maintenance loop.
func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]Entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a value by key. Expired entries are removed and count
// as misses.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.recordMiss()
		return nil, false
	}

	if c.now().After(entry.ExpiresAt) {
		c.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the entry.
		if cur, ok := c.entries[key]; ok && c.now().After(cur.ExpiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		c.recordMiss()
		c.recordEvictions(1)
		return nil, false
	}

	c.recordHit()
	return entry.Data, true
}

// Set stores a value with the default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL.
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = Entry{Data: value, ExpiresAt: c.now().Add(ttl)}
	keys := int64(len(c.entries))
	c.mu.Unlock()

	c.statsMu.Lock()
	c.stats.Keys = keys
	c.statsMu.Unlock()
}

// Delete removes one entry. Safe to call for absent keys.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	_, existed := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()

	if existed {
		c.recordEvictions(1)
	}
}

// DeletePrefix removes every entry whose key starts with prefix.
// Write paths use this to invalidate a whole key family, e.g. all
// cached admin link listings.
func (c *Cache) DeletePrefix(prefix string) {
	c.mu.Lock()
	var evicted int64
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
			evicted++
		}
	}
	keys := int64(len(c.entries))
	c.mu.Unlock()

	c.statsMu.Lock()
	c.stats.Evictions += evicted
	c.stats.Keys = keys
	c.statsMu.Unlock()
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	evicted := int64(len(c.entries))
	c.entries = make(map[string]Entry)
	c.mu.Unlock()

	c.statsMu.Lock()
	c.stats.Evictions += evicted
	c.stats.Keys = 0
	c.statsMu.Unlock()
}

// Prune removes all expired entries. Called from the owner's background
// maintenance loop.
func (c *Cache) Prune() {
	now := c.now()
	c.mu.Lock()
	var evicted int64
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	keys := int64(len(c.entries))
	c.mu.Unlock()

	c.statsMu.Lock()
	c.stats.Evictions += evicted
	c.stats.Keys = keys
	c.statsMu.Unlock()
}

// GetStats returns a copy of the current counters.
func (c *Cache) GetStats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// HitRate returns the hit percentage over the cache's lifetime.
func (c *Cache) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

func (c *Cache) recordHit() {
	metrics.CacheHits.Inc()
	c.statsMu.Lock()
	c.stats.Hits++
	c.statsMu.Unlock()
}

func (c *Cache) recordMiss() {
	metrics.CacheMisses.Inc()
	c.statsMu.Lock()
	c.stats.Misses++
	c.statsMu.Unlock()
}

func (c *Cache) recordEvictions(n int64) {
	c.statsMu.Lock()
	c.stats.Evictions += n
	c.statsMu.Unlock()
}

// GenerateKey builds a cache key from a method name and its parameters.
// Parameters are JSON-serialized and hashed so composite values produce
// stable compact keys.
func GenerateKey(method string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", method, params)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", method, hash[:16])
}
