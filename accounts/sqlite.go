package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	account_id TEXT PRIMARY KEY,
	account_no TEXT NOT NULL,
	app_key    TEXT NOT NULL DEFAULT '',
	app_secret TEXT NOT NULL DEFAULT '',
	active     INTEGER NOT NULL DEFAULT 1,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init accounts schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) FetchAccountConfig(ctx context.Context, accountID string) (Config, error) {
	var cfg Config
	var active int
	err := s.db.QueryRowContext(ctx, `
		SELECT account_id, account_no, app_key, app_secret, active
		FROM accounts WHERE account_id = ?`, accountID,
	).Scan(&cfg.AccountID, &cfg.AccountNo, &cfg.AppKey, &cfg.AppSecret, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return Config{}, fmt.Errorf("%w: %s", ErrNotFound, accountID)
	}
	if err != nil {
		return Config{}, fmt.Errorf("fetch account %s: %w", accountID, err)
	}
	cfg.Active = active != 0
	return cfg, nil
}

func (s *SQLiteStore) ListActiveAccounts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account_id FROM accounts WHERE active = 1 ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("list active accounts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveAccountConfig inserts or replaces an account row. Used by operational
// tooling and tests; the daemon itself only reads.
func (s *SQLiteStore) SaveAccountConfig(ctx context.Context, cfg Config) error {
	active := 0
	if cfg.Active {
		active = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (account_id, account_no, app_key, app_secret, active, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(account_id) DO UPDATE SET
			account_no = excluded.account_no,
			app_key    = excluded.app_key,
			app_secret = excluded.app_secret,
			active     = excluded.active,
			updated_at = CURRENT_TIMESTAMP`,
		cfg.AccountID, cfg.AccountNo, cfg.AppKey, cfg.AppSecret, active,
	)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
