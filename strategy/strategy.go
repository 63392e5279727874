// Package strategy holds the pluggable trading logic. A strategy consumes
// the daemon's execution slot and proposes order intents; it never places
// orders itself.
package strategy

import (
	"context"
	"fmt"
	"sort"

	"github.com/quantrio/traderd/accounts"
	"github.com/quantrio/traderd/broker"
	"github.com/quantrio/traderd/market"
)

// PriceSource is the read-only price capability handed to strategies.
type PriceSource interface {
	GetPrice(ctx context.Context, assetID string) (market.Quote, error)
}

type Strategy interface {
	Name() string
	// Propose returns zero or more intents for one account. Intents are
	// validated against risk limits downstream; strategies price them
	// against the quotes they fetched.
	Propose(ctx context.Context, acct accounts.Config, bal market.Balance, prices PriceSource) ([]broker.OrderIntent, error)
}

// Params carries the configuration a factory may need.
type Params struct {
	Assets     []string
	ConfigFile string // optional YAML parameter file
}

type Factory func(p Params) (Strategy, error)

var registry = make(map[string]Factory)

func Register(name string, f Factory) {
	registry[name] = f
}

// New builds the strategy selected by name, typically the STRATEGY config
// value. Unknown names are a startup error.
func New(name string, p Params) (Strategy, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (registered: %v)", name, Names())
	}
	return f(p)
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
