package accounts

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "accounts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreRoundtrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	want := Config{
		AccountID: "acct-1",
		AccountNo: "50012345",
		AppKey:    "key",
		AppSecret: "secret",
		Active:    true,
	}
	require.NoError(t, s.SaveAccountConfig(ctx, want))

	got, err := s.FetchAccountConfig(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSQLiteStoreUpsertReplaces(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAccountConfig(ctx, Config{AccountID: "acct-1", AccountNo: "old", Active: true}))
	require.NoError(t, s.SaveAccountConfig(ctx, Config{AccountID: "acct-1", AccountNo: "new", Active: true}))

	got, err := s.FetchAccountConfig(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.AccountNo)
}

func TestSQLiteStoreListActiveAccounts(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAccountConfig(ctx, Config{AccountID: "b", AccountNo: "2", Active: true}))
	require.NoError(t, s.SaveAccountConfig(ctx, Config{AccountID: "a", AccountNo: "1", Active: true}))
	require.NoError(t, s.SaveAccountConfig(ctx, Config{AccountID: "c", AccountNo: "3", Active: false}))

	ids, err := s.ListActiveAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids, "inactive accounts are excluded, order is stable")
}

func TestSQLiteStoreNotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.FetchAccountConfig(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
