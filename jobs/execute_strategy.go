package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantrio/traderd/accounts"
	"github.com/quantrio/traderd/broker"
	"github.com/quantrio/traderd/calendar"
	"github.com/quantrio/traderd/journal"
	"github.com/quantrio/traderd/market"
	"github.com/quantrio/traderd/pkg/id"
	"github.com/quantrio/traderd/risk"
	"github.com/quantrio/traderd/strategy"
)

// ExecuteStrategy runs the pluggable strategy for each in-scope account and
// submits accepted intents through the risk/retry wrapper. Outside trading
// hours the run is a deliberate no-op.
type ExecuteStrategy struct {
	Cache     *accounts.Cache
	Store     accounts.Store
	Venue     broker.Broker
	Gate      *calendar.Gate
	Strategy  strategy.Strategy
	Submitter *risk.Submitter
	Journal   journal.Journal
	MaxRetry  int
	AccountID string
	Log       zerolog.Logger

	Now func() time.Time
}

func (j *ExecuteStrategy) Name() string { return "execute_strategy" }

func (j *ExecuteStrategy) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

func (j *ExecuteStrategy) Run(ctx context.Context) error {
	r := newResult(j.Name(), j.now())

	if !j.Gate.IsOpen(j.now()) {
		r.Skipped = true
		r.SkipReason = "market_closed"
		return finish(ctx, j.Log, j.Journal, r, j.now())
	}

	ids, err := scopeAccounts(ctx, j.Store, j.AccountID)
	if err != nil {
		r.fail("", "", KindFailure, err)
		return finish(ctx, j.Log, j.Journal, r, j.now())
	}

	for _, accountID := range ids {
		acct, err := j.Cache.Get(ctx, accountID)
		if err != nil {
			r.fail(accountID, "", KindFailure, err)
			continue
		}

		var bal market.Balance
		err = risk.Retry(ctx, j.MaxRetry, func(ctx context.Context) error {
			b, err := j.Venue.GetBalance(ctx, acct.AccountNo)
			if err != nil {
				return err
			}
			bal = b
			return nil
		})
		if err != nil {
			r.fail(accountID, "", KindFailure, err)
			continue
		}

		intents, err := j.Strategy.Propose(ctx, acct, bal, j.Venue)
		if err != nil {
			r.fail(accountID, "", KindFailure, err)
			continue
		}

		for _, intent := range intents {
			j.submit(ctx, r, intent)
		}
	}

	return finish(ctx, j.Log, j.Journal, r, j.now())
}

// submit places one intent and records its outcome. Rejections are
// reported, not silently dropped; a failed intent never aborts siblings.
func (j *ExecuteStrategy) submit(ctx context.Context, r *Result, intent broker.OrderIntent) {
	res, err := j.Submitter.Submit(ctx, intent)

	rec := journal.OrderRecord{
		RunID:     r.RunID,
		AccountID: intent.AccountID,
		AssetID:   intent.AssetID,
		Side:      intent.Side.String(),
		Quantity:  intent.Quantity,
		Price:     intent.LimitPrice,
		Time:      j.now(),
	}

	switch {
	case broker.IsRejected(err):
		r.fail(intent.AccountID, intent.AssetID, KindRejected, err)
		rec.OrderID = id.New()
		rec.Status = "rejected"
		rec.Detail = err.Error()
	case err != nil:
		r.fail(intent.AccountID, intent.AssetID, KindFailure, err)
		rec.OrderID = id.New()
		rec.Status = "failed"
		rec.Detail = err.Error()
	default:
		r.Actions++
		rec.OrderID = res.OrderID
		rec.Price = res.Price
		rec.Status = "filled"
	}

	if err := j.Journal.RecordOrder(ctx, rec); err != nil {
		j.Log.Error().Err(err).Str("job", j.Name()).Msg("journal order record failed")
	}
}
