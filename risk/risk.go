// Package risk validates order intents against the configured limits and
// wraps venue calls with bounded retry.
package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/quantrio/traderd/broker"
)

// Limits are the per-order risk bounds from configuration.
type Limits struct {
	MaxOrderValueKRW decimal.Decimal
	SlippageBPS      int64
	MaxRetry         int
}

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	Notional    decimal.Decimal
	SlippageBPS decimal.Decimal
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Reason joins the violation messages for reporting.
func (d Decision) Reason() string {
	s := ""
	for i, v := range d.Violations {
		if i > 0 {
			s += "; "
		}
		s += v.Code + ": " + v.Msg
	}
	return s
}

// Evaluate checks an intent against the limits. A disallowed decision means
// the intent must never reach the venue.
func Evaluate(l Limits, intent broker.OrderIntent) Decision {
	d := Decision{Allowed: true}

	if intent.Quantity.Sign() <= 0 {
		d.add("NO_QUANTITY", "quantity must be positive")
		return d
	}
	if intent.LimitPrice.IsZero() && intent.RefPrice.IsZero() {
		d.add("NO_PRICE", "limit or reference price must be set")
		return d
	}

	d.Notional = intent.EstimatedNotional()
	d.SlippageBPS = intent.EstimatedSlippageBPS()

	if d.Notional.GreaterThan(l.MaxOrderValueKRW) {
		d.add("ORDER_VALUE_TOO_HIGH",
			fmt.Sprintf("estimated notional %s exceeds max %s KRW",
				d.Notional.StringFixed(0), l.MaxOrderValueKRW.StringFixed(0)))
	}
	if d.SlippageBPS.GreaterThan(decimal.NewFromInt(l.SlippageBPS)) {
		d.add("SLIPPAGE_TOO_HIGH",
			fmt.Sprintf("estimated slippage %s bps exceeds max %d bps",
				d.SlippageBPS.StringFixed(1), l.SlippageBPS))
	}

	return d
}
