// Package journal records job runs and order submissions for reporting.
// Persistence is optional; the daemon works identically with the no-op
// journal.
package journal

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RunRecord is the persisted outcome of one job run.
type RunRecord struct {
	RunID      string
	Job        string
	Start      time.Time
	End        time.Time
	Succeeded  bool
	Skipped    bool
	SkipReason string
	Actions    int
	Failures   int
	Error      string
}

// OrderRecord is one order submission outcome within a run.
type OrderRecord struct {
	OrderID   string
	RunID     string
	AccountID string
	AssetID   string
	Side      string
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Status    string // filled, rejected, failed
	Detail    string
	Time      time.Time
}

type Journal interface {
	RecordRun(ctx context.Context, r RunRecord) error
	RecordOrder(ctx context.Context, o OrderRecord) error
	Close() error
}

// Nop discards all records.
type Nop struct{}

func (Nop) RecordRun(context.Context, RunRecord) error     { return nil }
func (Nop) RecordOrder(context.Context, OrderRecord) error { return nil }
func (Nop) Close() error                                   { return nil }
