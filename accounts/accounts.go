// Package accounts provides per-account brokerage configuration: a backing
// store and a TTL cache in front of it.
package accounts

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("account not found")

// Config is the per-account brokerage configuration.
type Config struct {
	AccountID string
	AccountNo string // venue-side account number
	AppKey    string
	AppSecret string
	Active    bool
	FetchedAt time.Time
}

// Store is the external account-configuration collaborator.
type Store interface {
	FetchAccountConfig(ctx context.Context, accountID string) (Config, error)
	ListActiveAccounts(ctx context.Context) ([]string, error)
}
