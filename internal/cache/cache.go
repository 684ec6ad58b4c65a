package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type item[V any] struct {
	value     V
	expiresAt time.Time // zero means no expiry
}

// Cache is a small in-memory map with optional expiry and request
// collapsing. The pipeline creates one per region batch so that a URL
// listed twice in the same candidate file is fetched once.
type Cache[V any] struct {
	mu    sync.RWMutex
	items map[string]item[V]
	ttl   time.Duration
	group singleflight.Group
	hits  int
}

// New returns a cache whose entries live for ttl. ttl <= 0 keeps entries
// for the life of the cache.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{items: make(map[string]item[V]), ttl: ttl}
}

func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it := item[V]{value: value}
	if c.ttl > 0 {
		it.expiresAt = time.Now().Add(c.ttl)
	}
	c.items[key] = it
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if !it.expiresAt.IsZero() && time.Now().After(it.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return zero, false
	}
	return it.value, true
}

// Do returns the cached value for key or computes it with fn. Concurrent
// callers for the same key share one call to fn.
func (c *Cache[V]) Do(key string, fn func() V) V {
	if v, ok := c.Get(key); ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return v
	}
	v, _, shared := c.group.Do(key, func() (interface{}, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v := fn()
		c.Set(key, v)
		return v, nil
	})
	if shared {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
	}
	return v.(V)
}

// Hits counts Do calls answered without running fn themselves.
func (c *Cache[V]) Hits() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
