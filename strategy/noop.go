package strategy

import (
	"context"

	"github.com/quantrio/traderd/accounts"
	"github.com/quantrio/traderd/broker"
	"github.com/quantrio/traderd/market"
)

func init() {
	Register("noop", func(Params) (Strategy, error) {
		return Noop{}, nil
	})
}

// Noop proposes nothing. Useful for dry-running the daemon.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) Propose(context.Context, accounts.Config, market.Balance, PriceSource) ([]broker.OrderIntent, error) {
	return nil, nil
}
