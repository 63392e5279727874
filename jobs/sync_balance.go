package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantrio/traderd/accounts"
	"github.com/quantrio/traderd/broker"
	"github.com/quantrio/traderd/journal"
	"github.com/quantrio/traderd/market"
	"github.com/quantrio/traderd/risk"
)

// SyncBalance reconciles account balances with the venue. One account
// failing never aborts the remaining accounts.
type SyncBalance struct {
	Cache     *accounts.Cache
	Store     accounts.Store
	Venue     broker.Broker
	Journal   journal.Journal
	MaxRetry  int
	AccountID string // optional single-account scope
	Log       zerolog.Logger

	Now func() time.Time
}

func (j *SyncBalance) Name() string { return "sync_balance" }

func (j *SyncBalance) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

func (j *SyncBalance) Run(ctx context.Context) error {
	r := newResult(j.Name(), j.now())

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

		j.Log.Info().
			Str("job", j.Name()).
			Str("account", accountID).
			Str("cash", bal.Cash.String()).
			Int("holdings", len(bal.Holdings)).
			Msg("balance synced")
		r.Actions++
	}

	return finish(ctx, j.Log, j.Journal, r, j.now())
}
