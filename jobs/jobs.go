// Package jobs contains the scheduled job bodies. Each body is a sequence
// over accounts/assets that isolates per-item failures and reports partial
// progress in its Result.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantrio/traderd/accounts"
	"github.com/quantrio/traderd/journal"
	"github.com/quantrio/traderd/pkg/id"
)

// FailureKind distinguishes outcome taxonomy in reports and logs.
type FailureKind string

const (
	// KindRejected is a risk-limit or venue rejection, never retried.
	KindRejected FailureKind = "rejected"
	// KindFailure is a terminal failure: retries exhausted or unexpected error.
	KindFailure FailureKind = "failure"
)

type Failure struct {
	AccountID string
	AssetID   string
	Kind      FailureKind
	Cause     string
}

// Result is the outcome of one job run. It aggregates partial success:
// Actions counts completed work even when later items in the same run fail.
type Result struct {
	Job        string
	RunID      string
	Start      time.Time
	End        time.Time
	Succeeded  bool
	Skipped    bool
	SkipReason string
	Actions    int
	Failures   []Failure
}

func newResult(job string, now time.Time) *Result {
	return &Result{Job: job, RunID: id.New(), Start: now}
}

func (r *Result) fail(accountID, assetID string, kind FailureKind, err error) {
	r.Failures = append(r.Failures, Failure{
		AccountID: accountID,
		AssetID:   assetID,
		Kind:      kind,
		Cause:     err.Error(),
	})
}

// Err summarizes the run for the scheduler: nil on success or deliberate
// skip, an aggregate error otherwise.
func (r *Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %d of %d+%d items failed (first: %s)",
		r.Job, len(r.Failures), r.Actions, len(r.Failures), r.Failures[0].Cause)
}

// finish stamps, logs and journals the result, then returns its aggregate
// error. Every job exit path goes through here.
func finish(ctx context.Context, log zerolog.Logger, jnl journal.Journal, r *Result, now time.Time) error {
	r.End = now
	r.Succeeded = len(r.Failures) == 0

	ev := log.Info()
	if !r.Succeeded {
		ev = log.Error()
	} else if r.Skipped {
		ev = log.Debug()
	}
	ev = ev.
		Str("job", r.Job).
		Str("run_id", r.RunID).
		Int("actions", r.Actions).
		Int("failures", len(r.Failures)).
		Dur("took", r.End.Sub(r.Start))
	if r.Skipped {
		ev = ev.Str("skip_reason", r.SkipReason)
	}
	ev.Msg("job finished")

	for _, f := range r.Failures {
		log.Warn().
			Str("job", r.Job).
			Str("run_id", r.RunID).
			Str("account", f.AccountID).
			Str("asset", f.AssetID).
			Str("kind", string(f.Kind)).
			Msg(f.Cause)
	}

	rec := journal.RunRecord{
		RunID:      r.RunID,
		Job:        r.Job,
		Start:      r.Start,
		End:        r.End,
		Succeeded:  r.Succeeded,
		Skipped:    r.Skipped,
		SkipReason: r.SkipReason,
		Actions:    r.Actions,
		Failures:   len(r.Failures),
	}
	if err := r.Err(); err != nil {
		rec.Error = err.Error()
	}
	if err := jnl.RecordRun(ctx, rec); err != nil {
		log.Error().Err(err).Str("job", r.Job).Msg("journal run record failed")
	}

	return r.Err()
}

// scopeAccounts resolves the account scope: the configured single account
// when set, otherwise all active accounts from the store.
func scopeAccounts(ctx context.Context, store accounts.Store, accountID string) ([]string, error) {
	if accountID != "" {
		return []string{accountID}, nil
	}
	ids, err := store.ListActiveAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active accounts: %w", err)
	}
	return ids, nil
}
