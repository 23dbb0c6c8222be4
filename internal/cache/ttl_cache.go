package cache

import (
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache stores values in-memory with per-entry TTLs. GetOrCompute
// single-flights concurrent misses for the same key, so a cold key triggers
// the compute function at most once at a time.
type TTLCache[K comparable, V any] struct {
	mu       sync.RWMutex
	items    map[K]cacheEntry[V]
	inflight map[K]*call[V]
}

type call[V any] struct {
	wg    sync.WaitGroup
	value V
	err   error
}

// NewTTLCache constructs an empty cache.
func NewTTLCache[K comparable, V any]() *TTLCache[K, V] {
	return &TTLCache[K, V]{
		items:    make(map[K]cacheEntry[V]),
		inflight: make(map[K]*call[V]),
	}
}

// Get returns a cached value if it exists and has not expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.Delete(key)
		return zero, false
	}
	return entry.value, true
}

// Set stores a value with the provided TTL. A non-positive TTL stores the
// value without expiry.
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = cacheEntry[V]{value: value, expiresAt: expiresAt}
	c.mu.Unlock()
}

// Delete removes a cached entry.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// GetOrCompute returns the fresh cached value for key, or runs computeFn and
// caches its result for ttl. Concurrent callers on the same cold key share
// one compute; a failed compute is not cached.
func (c *TTLCache[K, V]) GetOrCompute(key K, ttl time.Duration, computeFn func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.mu.Lock()
	if entry, ok := c.items[key]; ok && (entry.expiresAt.IsZero() || time.Now().Before(entry.expiresAt)) {
		c.mu.Unlock()
		return entry.value, nil
	}
	if existing, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		existing.wg.Wait()
		if existing.err != nil {
			var zero V
			return zero, existing.err
		}
		return existing.value, nil
	}
	cl := &call[V]{}
	cl.wg.Add(1)
	c.inflight[key] = cl
	c.mu.Unlock()

	value, err := computeFn()
	cl.value, cl.err = value, err

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	if err == nil {
		c.Set(key, value, ttl)
	}
	cl.wg.Done()
	return value, err
}
