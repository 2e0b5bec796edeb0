// Package memory provides an in-memory embedding cache with TTL eviction.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/exegete-labs/exegete/internal/core/ports/driven"
)

// Ensure the implementations satisfy the interface.
var (
	_ driven.EmbeddingCache = (*EmbeddingCache)(nil)
	_ driven.EmbeddingCache = (*NoopCache)(nil)
)

// Default configuration values.
const (
	DefaultTTL        = time.Hour
	DefaultMaxEntries = 10000
)

// EmbeddingCache is a TTL-bounded in-memory cache for embedding vectors.
// Expired entries are reaped lazily on access and wholesale when the
// entry cap is hit.
type EmbeddingCache struct {
	mu         sync.RWMutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

type cacheEntry struct {
	embedding []float32
	expiresAt time.Time
}

// Option configures the cache.
type Option func(*EmbeddingCache)

// WithTTL sets how long entries stay valid.
func WithTTL(ttl time.Duration) Option {
	return func(c *EmbeddingCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxEntries caps the number of cached vectors.
func WithMaxEntries(n int) Option {
	return func(c *EmbeddingCache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// NewEmbeddingCache creates a new in-memory embedding cache.
func NewEmbeddingCache(opts ...Option) *EmbeddingCache {
	c := &EmbeddingCache{
		entries:    make(map[string]cacheEntry),
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached vector for key, if present and unexpired.
func (c *EmbeddingCache) Get(_ context.Context, key string) ([]float32, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}

	embedding := make([]float32, len(entry.embedding))
	copy(embedding, entry.embedding)
	return embedding, true
}

// Set stores a vector under key.
func (c *EmbeddingCache) Set(_ context.Context, key string, embedding []float32) {
	if len(embedding) == 0 {
		return
	}
	stored := make([]float32, len(embedding))
	copy(stored, embedding)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = cacheEntry{
		embedding: stored,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Len returns the number of entries currently held, expired or not.
func (c *EmbeddingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictLocked drops expired entries, and if none have expired drops the
// entry nearest expiry. Caller holds the write lock.
func (c *EmbeddingCache) evictLocked() {
	now := c.now()
	var oldestKey string
	var oldestExpiry time.Time

	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			continue
		}
		if oldestKey == "" || entry.expiresAt.Before(oldestExpiry) {
			oldestKey = key
			oldestExpiry = entry.expiresAt
		}
	}
	if len(c.entries) >= c.maxEntries && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// NoopCache is an EmbeddingCache that stores nothing. It stands in when
// caching is disabled.
type NoopCache struct{}

// NewNoopCache creates a cache that never hits.
func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

// Get always misses.
func (NoopCache) Get(_ context.Context, _ string) ([]float32, bool) {
	return nil, false
}

// Set discards the vector.
func (NoopCache) Set(_ context.Context, _ string, _ []float32) {}
