package market

import (
	"errors"
	"sync"
)

var ErrNoQuote = errors.New("quote not found")

// QuoteStore holds the most recent quote per asset. Writers replace the
// whole quote so readers never observe a partially-updated record.
type QuoteStore struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

func NewQuoteStore() *QuoteStore {
	return &QuoteStore{quotes: make(map[string]Quote)}
}

func (qs *QuoteStore) Set(q Quote) {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	qs.quotes[q.AssetID] = q
}

func (qs *QuoteStore) Get(assetID string) (Quote, error) {
	qs.mu.RLock()
	defer qs.mu.RUnlock()
	q, ok := qs.quotes[assetID]
	if !ok {
		return Quote{}, ErrNoQuote
	}
	return q, nil
}

// Snapshot returns a copy of all stored quotes.
func (qs *QuoteStore) Snapshot() []Quote {
	qs.mu.RLock()
	defer qs.mu.RUnlock()
	out := make([]Quote, 0, len(qs.quotes))
	for _, q := range qs.quotes {
		out = append(out, q)
	}
	return out
}
