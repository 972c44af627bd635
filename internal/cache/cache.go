// Package cache provides the keyed in-memory query cache that the web
// client kept in React Query. Entries are primed and invalidated
// explicitly at the session transitions (login, logout, user update).
package cache

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/mbathio/find-and-returned/internal/observability"
)

// Well-known query keys shared between the session manager and the
// typed services.
const (
	KeyCurrentUser = "currentUser"
	KeyListings    = "listings"
	KeyThreads     = "threads"
)

// Key joins key parts into a hierarchical cache key. Prefix matching in
// Invalidate relies on this separator.
func Key(parts ...string) string {
	return strings.Join(parts, "/")
}

// Cache is a concurrency-safe map from query key to the last fetched
// value.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]any
}

func New() *Cache {
	return &Cache{entries: make(map[string]any)}
}

// Get returns the cached value for key, if present.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	if ok {
		observability.CacheOperationsTotal.WithLabelValues("hit").Inc()
	} else {
		observability.CacheOperationsTotal.WithLabelValues("miss").Inc()
	}
	return v, ok
}

// Set stores a value under key.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	observability.CacheEntries.Set(float64(len(c.entries)))
}

// Remove deletes a single entry.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	observability.CacheEntries.Set(float64(len(c.entries)))
}

// Invalidate removes every entry whose key equals prefix or starts
// with prefix + "/".
func (c *Cache) Invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if key == prefix || strings.HasPrefix(key, prefix+"/") {
			delete(c.entries, key)
		}
	}
	observability.CacheEntries.Set(float64(len(c.entries)))
}

// Clear drops everything. Called on logout so the next authenticated
// session never reads another user's data.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]any)
	observability.CacheEntries.Set(0)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// statusCoder is implemented by API errors carrying an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// GetOrFetch returns the cached value for key, or runs fetch and caches
// the result. A failed fetch is retried once, except on 4xx statuses
// which are never retried.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := fetch(ctx)
	if err != nil {
		if isClientError(err) {
			return nil, err
		}
		v, err = fetch(ctx)
		if err != nil {
			return nil, err
		}
	}

	c.Set(key, v)
	return v, nil
}

func isClientError(err error) bool {
	var sc statusCoder
	if errors.As(err, &sc) {
		status := sc.StatusCode()
		return status >= 400 && status < 500
	}
	return false
}
