package market

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Quote is the latest known price for a single asset.
type Quote struct {
	AssetID string
	Price   decimal.Decimal
	Time    time.Time
}

// Holding is a position in a single asset.
type Holding struct {
	AssetID  string
	Quantity decimal.Decimal
	AvgPrice decimal.Decimal
}

// Balance is a point-in-time snapshot of one brokerage account.
type Balance struct {
	AccountID string
	Currency  string
	Cash      decimal.Decimal
	Holdings  []Holding
	Time      time.Time
}

// Quantity returns the held quantity for the given asset, zero if none.
func (b Balance) Quantity(assetID string) decimal.Decimal {
	for _, h := range b.Holdings {
		if h.AssetID == assetID {
			return h.Quantity
		}
	}
	return decimal.Zero
}
