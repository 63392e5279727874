package journal

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	job         TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL,
	succeeded   INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	skip_reason TEXT NOT NULL DEFAULT '',
	actions     INTEGER NOT NULL,
	failures    INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS orders (
	order_id   TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL,
	account_id TEXT NOT NULL,
	asset_id   TEXT NOT NULL,
	side       TEXT NOT NULL,
	quantity   TEXT NOT NULL,
	price      TEXT NOT NULL,
	status     TEXT NOT NULL,
	detail     TEXT NOT NULL DEFAULT '',
	time       TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_run ON orders(run_id);
`

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordRun(ctx context.Context, r RunRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, job, started_at, finished_at, succeeded, skipped, skip_reason, actions, failures, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Job, r.Start, r.End, boolToInt(r.Succeeded), boolToInt(r.Skipped),
		r.SkipReason, r.Actions, r.Failures, r.Error,
	)
	return err
}

func (j *SQLiteJournal) RecordOrder(ctx context.Context, o OrderRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO orders
		(order_id, run_id, account_id, asset_id, side, quantity, price, status, detail, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OrderID, o.RunID, o.AccountID, o.AssetID, o.Side,
		o.Quantity.String(), o.Price.String(), o.Status, o.Detail, o.Time,
	)
	return err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
