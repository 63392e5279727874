package broker

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantrio/traderd/market"
)

// Broker is the venue capability the daemon depends on. One implementation
// per venue; selection happens once at startup through the registry.
type Broker interface {
	GetBalance(ctx context.Context, accountNo string) (market.Balance, error)
	GetPrice(ctx context.Context, assetID string) (market.Quote, error)
	PlaceOrder(ctx context.Context, intent OrderIntent) (OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// OrderIntent is a proposed trade. It is produced by strategy logic and must
// pass risk validation before it is allowed anywhere near PlaceOrder.
type OrderIntent struct {
	AccountID string
	AccountNo string
	AssetID   string
	Side      market.Side
	Quantity  decimal.Decimal

	// LimitPrice of zero means a market order.
	LimitPrice decimal.Decimal
	// RefPrice is the quote the intent was priced against.
	RefPrice decimal.Decimal
}

// EstimatedNotional is quantity times the limit price, falling back to the
// reference price for market orders.
func (i OrderIntent) EstimatedNotional() decimal.Decimal {
	px := i.LimitPrice
	if px.IsZero() {
		px = i.RefPrice
	}
	return i.Quantity.Mul(px).Abs()
}

// EstimatedSlippageBPS is the deviation between limit and reference price in
// basis points. Zero when either price is missing.
func (i OrderIntent) EstimatedSlippageBPS() decimal.Decimal {
	if i.LimitPrice.IsZero() || i.RefPrice.IsZero() {
		return decimal.Zero
	}
	diff := i.LimitPrice.Sub(i.RefPrice).Abs()
	return diff.Div(i.RefPrice).Mul(decimal.NewFromInt(10000))
}

type OrderResult struct {
	OrderID   string
	AccountID string
	AssetID   string
	Side      market.Side
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Time      time.Time
}
