package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantrio/traderd/broker"
	"github.com/quantrio/traderd/journal"
	"github.com/quantrio/traderd/market"
	"github.com/quantrio/traderd/risk"
)

// UpdatePrices refreshes the quote store for the configured asset universe.
// It is account-agnostic and ignores the trading calendar: prices stay
// useful for display even while the market is closed for trading.
type UpdatePrices struct {
	Venue    broker.Broker
	Quotes   *market.QuoteStore
	Journal  journal.Journal
	Assets   []string
	MaxRetry int
	Log      zerolog.Logger

	Now func() time.Time
}

func (j *UpdatePrices) Name() string { return "update_asset_prices" }

func (j *UpdatePrices) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

func (j *UpdatePrices) Run(ctx context.Context) error {
	r := newResult(j.Name(), j.now())

	if len(j.Assets) == 0 {
		r.Skipped = true
		r.SkipReason = "empty_asset_universe"
		return finish(ctx, j.Log, j.Journal, r, j.now())
	}

	for _, assetID := range j.Assets {
		var q market.Quote
		err := risk.Retry(ctx, j.MaxRetry, func(ctx context.Context) error {
			quote, err := j.Venue.GetPrice(ctx, assetID)
			if err != nil {
				return err
			}
			q = quote
			return nil
		})
		if err != nil {
			r.fail("", assetID, KindFailure, err)
			continue
		}

		j.Quotes.Set(q)
		j.Log.Debug().
			Str("job", j.Name()).
			Str("asset", assetID).
			Str("price", q.Price.String()).
			Msg("price updated")
		r.Actions++
	}

	return finish(ctx, j.Log, j.Journal, r, j.now())
}
