package memory

import (
	"context"
	"sync"
	"time"
)

// IdempotencyCache is the in-process stand-in for the Redis idempotency cache.
type IdempotencyCache struct {
	mu        sync.Mutex
	entries   map[string]cacheEntry
	now       func() time.Time
	lastSweep time.Time
}

// sweepInterval bounds how often Set scans for expired entries.
const sweepInterval = time.Minute

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewIdempotencyCache creates an empty cache.
func NewIdempotencyCache() *IdempotencyCache {
	return &IdempotencyCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached value, or nil if absent or expired.
func (c *IdempotencyCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, nil
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores value under key for ttl unless a live entry exists already.
func (c *IdempotencyCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.sweep(now)
	if e, ok := c.entries[key]; ok && !now.After(e.expiresAt) {
		return nil
	}
	c.entries[key] = cacheEntry{
		value:     append([]byte(nil), value...),
		expiresAt: now.Add(ttl),
	}
	return nil
}

// sweep drops expired entries at most once per sweepInterval. Callers hold mu.
func (c *IdempotencyCache) sweep(now time.Time) {
	if now.Sub(c.lastSweep) < sweepInterval {
		return
	}
	c.lastSweep = now
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
