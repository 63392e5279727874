package accounts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	mu      sync.Mutex
	configs map[string]Config
	fetches int
}

func (s *countingStore) FetchAccountConfig(_ context.Context, accountID string) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	cfg, ok := s.configs[accountID]
	if !ok {
		return Config{}, ErrNotFound
	}
	return cfg, nil
}

func (s *countingStore) ListActiveAccounts(context.Context) ([]string, error) {
	return nil, nil
}

func (s *countingStore) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func TestCacheServesFreshEntryWithoutRefetch(t *testing.T) {
	t.Parallel()

	store := &countingStore{configs: map[string]Config{
		"acct-1": {AccountID: "acct-1", AccountNo: "50012345", Active: true},
	}}
	c := NewCache(store, 5*time.Minute)

	now := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	first, err := c.Get(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.fetchCount())
	assert.Equal(t, now, first.FetchedAt)

	// Within TTL: no refetch, same entry.
	now = now.Add(4 * time.Minute)
	second, err := c.Get(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.fetchCount(), "fresh entry must not trigger a fetch")
	assert.Equal(t, first, second)
}

func TestCacheRefetchesAfterTTL(t *testing.T) {
	t.Parallel()

	store := &countingStore{configs: map[string]Config{
		"acct-1": {AccountID: "acct-1", AccountNo: "50012345", Active: true},
	}}
	c := NewCache(store, 5*time.Minute)

	now := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.Get(context.Background(), "acct-1")
	require.NoError(t, err)

	// Update the backing store; the stale entry must never be served.
	store.mu.Lock()
	store.configs["acct-1"] = Config{AccountID: "acct-1", AccountNo: "50099999", Active: true}
	store.mu.Unlock()

	now = now.Add(5 * time.Minute) // exactly TTL: no longer fresh
	got, err := c.Get(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.fetchCount(), "stale entry must trigger exactly one refetch")
	assert.Equal(t, "50099999", got.AccountNo)
	assert.Equal(t, now, got.FetchedAt)
}

func TestCacheInvalidateForcesRefetch(t *testing.T) {
	t.Parallel()

	store := &countingStore{configs: map[string]Config{
		"acct-1": {AccountID: "acct-1", Active: true},
	}}
	c := NewCache(store, time.Hour)

	_, err := c.Get(context.Background(), "acct-1")
	require.NoError(t, err)

	c.Invalidate("acct-1")
	c.Invalidate("never-cached") // safe on unknown ids

	_, err = c.Get(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.fetchCount())
}

func TestCachePropagatesStoreErrors(t *testing.T) {
	t.Parallel()

	store := &countingStore{configs: map[string]Config{}}
	c := NewCache(store, time.Hour)

	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
