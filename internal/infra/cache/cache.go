// Package cache provides a small thread-safe TTL cache. The ledger uses it
// to hold regenerated fallback schedules between refresh ticks.
package cache

import (
	"sync"
	"time"
)

type item[T any] struct {
	value    T
	deadline time.Time
}

// TTL is an in-memory cache whose entries expire after a fixed duration.
// Expired entries are dropped lazily on access and swept in bulk whenever
// the map grows past its last swept size.
type TTL[T any] struct {
	mu    sync.Mutex
	items map[string]item[T]
	ttl   time.Duration
	sweep int
}

// NewTTL creates a cache with the given entry lifetime.
func NewTTL[T any](ttl time.Duration) *TTL[T] {
	return &TTL[T]{
		items: make(map[string]item[T]),
		ttl:   ttl,
		sweep: 64,
	}
}

// Get returns the cached value for key, or false if absent or expired.
func (c *TTL[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok {
		var zero T
		return zero, false
	}
	if time.Now().After(it.deadline) {
		delete(c.items, key)
		var zero T
		return zero, false
	}
	return it.value, true
}

// Set stores value under key for the configured TTL.
func (c *TTL[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = item[T]{value: value, deadline: time.Now().Add(c.ttl)}
	if len(c.items) > c.sweep {
		now := time.Now()
		for k, it := range c.items {
			if now.After(it.deadline) {
				delete(c.items, k)
			}
		}
		c.sweep = len(c.items)*2 + 64
	}
}

// Delete removes key from the cache.
func (c *TTL[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len reports the number of entries, including any not yet swept.
func (c *TTL[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
