package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tailrace/lobby-backend/pkg/db/models"
	"github.com/tailrace/lobby-backend/pkg/enums"
	"github.com/tailrace/lobby-backend/pkg/pagination"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	accounts := `
CREATE TABLE IF NOT EXISTS accounts (
  address TEXT PRIMARY KEY,
  balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
  created_at DATETIME,
  updated_at DATETIME
);`
	stakes := `
CREATE TABLE IF NOT EXISTS stakes (
  account_address TEXT NOT NULL,
  session_id TEXT NOT NULL,
  amount INTEGER NOT NULL,
  created_at DATETIME,
  PRIMARY KEY (account_address, session_id)
);`
	transactions := `
CREATE TABLE IF NOT EXISTS transactions (
  id TEXT PRIMARY KEY,
  account_address TEXT NOT NULL,
  type TEXT NOT NULL,
  amount INTEGER NOT NULL,
  session_id TEXT,
  status TEXT NOT NULL DEFAULT 'completed',
  created_at DATETIME
);`
	require.NoError(t, db.Exec(accounts).Error)
	require.NoError(t, db.Exec(stakes).Error)
	require.NoError(t, db.Exec(transactions).Error)
	return db
}

func TestRepositoryAdjustBalanceGuardsNegative(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateAccount(ctx, &models.Account{Address: "0xabc", Balance: 100}))

	ok, err := repo.AdjustBalance(ctx, "0xabc", -60)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AdjustBalance(ctx, "0xabc", -60)
	require.NoError(t, err)
	assert.False(t, ok, "second debit would go negative and must not apply")

	account, err := repo.FindAccount(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, int64(40), account.Balance)

	ok, err = repo.AdjustBalance(ctx, "0xmissing", 10)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryStakeLifecycle(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sessionID := uuid.New()
	require.NoError(t, repo.CreateStake(ctx, &models.Stake{
		AccountAddress: "0xaaa",
		SessionID:      sessionID,
		Amount:         100,
	}))
	require.NoError(t, repo.CreateStake(ctx, &models.Stake{
		AccountAddress: "0xbbb",
		SessionID:      sessionID,
		Amount:         100,
	}))

	stake, err := repo.FindStake(ctx, "0xaaa", sessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), stake.Amount)

	all, err := repo.ListStakesBySession(ctx, sessionID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	deleted, err := repo.DeleteStake(ctx, "0xaaa", sessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = repo.DeleteStake(ctx, "0xaaa", sessionID)
	require.NoError(t, err)
	assert.Zero(t, deleted, "repeat delete should affect nothing")

	deleted, err = repo.DeleteStakesBySession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestRepositoryListTransactionsPagination(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.NoError(t, repo.CreateTransaction(ctx, &models.Transaction{
			ID:             uuid.New(),
			AccountAddress: "0xabc",
			Type:           enums.TransactionTypeDeposit,
			Amount:         int64(i + 1),
			Status:         enums.TransactionStatusCompleted,
		}))
	}

	txns, total, err := repo.ListTransactions(ctx, "0xabc", pagination.Params{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	assert.Len(t, txns, 10)

	txns, total, err = repo.ListTransactions(ctx, "0xabc", pagination.Params{Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	assert.Len(t, txns, 5)

	_, total, err = repo.ListTransactions(ctx, "0xother", pagination.Params{})
	require.NoError(t, err)
	assert.Zero(t, total)
}
