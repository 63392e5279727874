package accounts

import (
	"context"
	"sync"
	"time"
)

// cacheEntry pairs a Config with its fetch time. Entries are replaced whole
// on refresh, never mutated in place.
type cacheEntry struct {
	cfg       Config
	fetchedAt time.Time
}

// Cache serves account configuration with a time-to-live. A fresh entry is
// returned as-is; a stale or missing one triggers a refetch from the store.
// Concurrent lookups for the same stale id may each fetch; the last writer
// wins, which is fine because the cache only optimizes read load.
type Cache struct {
	store Store
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry

	now func() time.Time
}

func NewCache(store Store, ttl time.Duration) *Cache {
	return &Cache{
		store:   store,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the account config, refetching when no fresh entry exists.
// A stale entry is never returned silently.
func (c *Cache) Get(ctx context.Context, accountID string) (Config, error) {
	c.mu.RLock()
	e, ok := c.entries[accountID]
	c.mu.RUnlock()
	if ok && c.now().Sub(e.fetchedAt) < c.ttl {
		return e.cfg, nil
	}

	cfg, err := c.store.FetchAccountConfig(ctx, accountID)
	if err != nil {
		return Config{}, err
	}
	fetched := c.now()
	cfg.FetchedAt = fetched

	c.mu.Lock()
	c.entries[accountID] = cacheEntry{cfg: cfg, fetchedAt: fetched}
	c.mu.Unlock()

	return cfg, nil
}

// Invalidate drops the cached entry for an account. Safe to call anytime.
func (c *Cache) Invalidate(accountID string) {
	c.mu.Lock()
	delete(c.entries, accountID)
	c.mu.Unlock()
}
