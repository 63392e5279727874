package strategy

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/quantrio/traderd/accounts"
	"github.com/quantrio/traderd/broker"
	"github.com/quantrio/traderd/market"
)

func init() {
	Register("rebalance", newRebalanceFromParams)
}

// Rebalance keeps each target asset within a band around its target weight
// of total account value. Drift beyond the band produces a limit order at
// the current quote back to the target.
type Rebalance struct {
	targets map[string]decimal.Decimal // asset id -> target weight, sums to <= 1
	band    decimal.Decimal            // tolerated absolute weight drift
}

// rebalanceFile is the optional YAML parameter file (STRATEGY_FILE).
type rebalanceFile struct {
	Targets map[string]string `yaml:"targets"` // asset id -> weight, e.g. "0.25"
	Band    string            `yaml:"band"`    // absolute drift, e.g. "0.05"
}

var defaultBand = decimal.RequireFromString("0.05")

func newRebalanceFromParams(p Params) (Strategy, error) {
	if p.ConfigFile != "" {
		return loadRebalance(p.ConfigFile)
	}
	if len(p.Assets) == 0 {
		return nil, fmt.Errorf("rebalance: needs a strategy file or a non-empty asset universe")
	}

	// Equal weight across the configured universe.
	targets := make(map[string]decimal.Decimal, len(p.Assets))
	w := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(len(p.Assets))))
	for _, a := range p.Assets {
		targets[a] = w
	}
	return &Rebalance{targets: targets, band: defaultBand}, nil
}

func loadRebalance(path string) (*Rebalance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy file: %w", err)
	}
	var f rebalanceFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse strategy file: %w", err)
	}
	if len(f.Targets) == 0 {
		return nil, fmt.Errorf("strategy file %s: no targets", path)
	}

	targets := make(map[string]decimal.Decimal, len(f.Targets))
	sum := decimal.Zero
	for asset, w := range f.Targets {
		d, err := decimal.NewFromString(w)
		if err != nil || d.Sign() <= 0 {
			return nil, fmt.Errorf("strategy file %s: bad weight %q for %s", path, w, asset)
		}
		targets[asset] = d
		sum = sum.Add(d)
	}
	if sum.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("strategy file %s: target weights sum to %s > 1", path, sum)
	}

	band := defaultBand
	if f.Band != "" {
		if band, err = decimal.NewFromString(f.Band); err != nil || band.Sign() <= 0 {
			return nil, fmt.Errorf("strategy file %s: bad band %q", path, f.Band)
		}
	}
	return &Rebalance{targets: targets, band: band}, nil
}

func (r *Rebalance) Name() string { return "rebalance" }

func (r *Rebalance) Propose(ctx context.Context, acct accounts.Config, bal market.Balance, prices PriceSource) ([]broker.OrderIntent, error) {
	quotes := make(map[string]decimal.Decimal, len(r.targets))
	total := bal.Cash
	for asset := range r.targets {
		q, err := prices.GetPrice(ctx, asset)
		if err != nil {
			return nil, fmt.Errorf("price %s: %w", asset, err)
		}
		quotes[asset] = q.Price
		total = total.Add(bal.Quantity(asset).Mul(q.Price))
	}
	if total.Sign() <= 0 {
		return nil, nil
	}

	var intents []broker.OrderIntent
	for asset, target := range r.targets {
		px := quotes[asset]
		if px.Sign() <= 0 {
			continue
		}
		current := bal.Quantity(asset).Mul(px).Div(total)
		drift := current.Sub(target)
		if drift.Abs().LessThanOrEqual(r.band) {
			continue
		}

		// Quantity that moves the weight back to target.
		qty := drift.Mul(total).Div(px).Abs().Floor()
		if qty.Sign() <= 0 {
			continue
		}
		side := market.Buy
		if drift.Sign() > 0 {
			side = market.Sell
		}
		intents = append(intents, broker.OrderIntent{
			AccountID:  acct.AccountID,
			AccountNo:  acct.AccountNo,
			AssetID:    asset,
			Side:       side,
			Quantity:   qty,
			LimitPrice: px,
			RefPrice:   px,
		})
	}
	sort.Slice(intents, func(i, j int) bool { return intents[i].AssetID < intents[j].AssetID })
	return intents, nil
}
