// Package cache provides a string-keyed LRU cache with per-entry TTL.
// Recency tracking is delegated to hashicorp/golang-lru; expiry is layered on
// top because the library only supports a cache-wide TTL.
package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time // zero = never expires
}

type Cache[V any] struct {
	mu  sync.Mutex
	lru *lru.Cache[string, entry[V]]
	now func() time.Time
}

func New[V any](capacity int) *Cache[V] {
	if capacity <= 0 {
		capacity = 128
	}
	inner, err := lru.New[string, entry[V]](capacity)
	if err != nil {
		// lru.New only fails on non-positive size, guarded above.
		panic(err)
	}
	return &Cache[V]{lru: inner, now: time.Now}
}

// Get returns the cached value and refreshes its recency. An expired entry is
// evicted and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.lru.Remove(key)
		return zero, false
	}
	return e.value, true
}

// Set stores a value; ttl <= 0 means the entry never expires (LRU eviction
// still applies at capacity).
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry[V]{value: value}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.lru.Add(key, e)
}

// GetOrSet returns the cached value or invokes the producer and stores its
// result. Concurrent misses for the same key are not de-duplicated; producers
// must be idempotent reads.
func (c *Cache[V]) GetOrSet(ctx context.Context, key string, ttl time.Duration, produce func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := produce(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v, ttl)
	return v, nil
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}
