// Package demo implements an in-memory paper venue. It fills orders
// immediately at the limit price (or the seeded quote for market orders)
// and keeps balances consistent with the fills.
package demo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantrio/traderd/broker"
	"github.com/quantrio/traderd/market"
	"github.com/quantrio/traderd/pkg/id"
)

func init() {
	broker.Register("demo", func(broker.Settings) (broker.Broker, error) {
		return New(), nil
	})
}

type Venue struct {
	mu       sync.Mutex
	quotes   *market.QuoteStore
	balances map[string]market.Balance
	orders   map[string]broker.OrderResult
	now      func() time.Time
}

func New() *Venue {
	return &Venue{
		quotes:   market.NewQuoteStore(),
		balances: make(map[string]market.Balance),
		orders:   make(map[string]broker.OrderResult),
		now:      time.Now,
	}
}

// SeedBalance installs or replaces the balance for an account.
func (v *Venue) SeedBalance(b market.Balance) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balances[b.AccountID] = b
}

// SeedQuote installs or replaces the quote for an asset.
func (v *Venue) SeedQuote(q market.Quote) {
	v.quotes.Set(q)
}

func (v *Venue) GetBalance(_ context.Context, accountNo string) (market.Balance, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	b, ok := v.balances[accountNo]
	if !ok {
		return market.Balance{}, fmt.Errorf("demo: unknown account %q", accountNo)
	}
	b.Time = v.now()
	return b, nil
}

func (v *Venue) GetPrice(_ context.Context, assetID string) (market.Quote, error) {
	q, err := v.quotes.Get(assetID)
	if err != nil {
		return market.Quote{}, fmt.Errorf("demo: %q: %w", assetID, err)
	}
	return q, nil
}

func (v *Venue) PlaceOrder(_ context.Context, intent broker.OrderIntent) (broker.OrderResult, error) {
	if intent.Quantity.Sign() <= 0 {
		return broker.OrderResult{}, broker.Rejected("quantity must be positive")
	}

	px := intent.LimitPrice
	if px.IsZero() {
		q, err := v.quotes.Get(intent.AssetID)
		if err != nil {
			return broker.OrderResult{}, broker.Rejected(fmt.Sprintf("no quote for %s", intent.AssetID))
		}
		px = q.Price
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	acct, ok := v.balances[intent.AccountNo]
	if !ok {
		return broker.OrderResult{}, broker.Rejected(fmt.Sprintf("unknown account %s", intent.AccountNo))
	}

	notional := intent.Quantity.Mul(px)
	switch intent.Side {
	case market.Buy:
		if acct.Cash.LessThan(notional) {
			return broker.OrderResult{}, broker.Rejected("insufficient funds")
		}
		acct.Cash = acct.Cash.Sub(notional)
		acct.Holdings = addHolding(acct.Holdings, intent.AssetID, intent.Quantity, px)
	case market.Sell:
		if acct.Quantity(intent.AssetID).LessThan(intent.Quantity) {
			return broker.OrderResult{}, broker.Rejected("insufficient holdings")
		}
		acct.Cash = acct.Cash.Add(notional)
		acct.Holdings = addHolding(acct.Holdings, intent.AssetID, intent.Quantity.Neg(), px)
	default:
		return broker.OrderResult{}, broker.Rejected("unknown order side")
	}
	v.balances[intent.AccountNo] = acct

	res := broker.OrderResult{
		OrderID:   id.New(),
		AccountID: intent.AccountID,
		AssetID:   intent.AssetID,
		Side:      intent.Side,
		Quantity:  intent.Quantity,
		Price:     px,
		Time:      v.now(),
	}
	v.orders[res.OrderID] = res
	return res, nil
}

func (v *Venue) CancelOrder(_ context.Context, orderID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.orders[orderID]; !ok {
		return broker.Rejected(fmt.Sprintf("unknown order %s", orderID))
	}
	// Demo fills are immediate, so a cancel of a known order is a no-op.
	return nil
}

func addHolding(holdings []market.Holding, assetID string, qty, px decimal.Decimal) []market.Holding {
	for i, h := range holdings {
		if h.AssetID != assetID {
			continue
		}
		holdings[i].Quantity = h.Quantity.Add(qty)
		if qty.Sign() > 0 {
			holdings[i].AvgPrice = px
		}
		return holdings
	}
	return append(holdings, market.Holding{AssetID: assetID, Quantity: qty, AvgPrice: px})
}
