package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tailrace/lobby-backend/pkg/db/models"
	"github.com/tailrace/lobby-backend/pkg/pagination"
)

// Repository defines persistence operations for accounts, stakes and the
// transaction history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAccount(ctx context.Context, address string) (*models.Account, error)
	CreateAccount(ctx context.Context, account *models.Account) error
	AdjustBalance(ctx context.Context, address string, delta int64) (bool, error)
	CreateStake(ctx context.Context, stake *models.Stake) error
	FindStake(ctx context.Context, address string, sessionID uuid.UUID) (*models.Stake, error)
	DeleteStake(ctx context.Context, address string, sessionID uuid.UUID) (int64, error)
	DeleteStakesBySession(ctx context.Context, sessionID uuid.UUID) (int64, error)
	ListStakesBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Stake, error)
	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	ListTransactions(ctx context.Context, address string, params pagination.Params) ([]models.Transaction, int64, error)
}

// Service defines the fund-movement operations of the lobby.
//
// Stake, ReturnStake, Award and ResolveStakes accept an optional *gorm.DB so
// the session lifecycle can move funds inside its own transaction; a rollback
// there undoes the fund movement as well.
type Service interface {
	GetBalance(ctx context.Context, address string) (int64, error)
	Deposit(ctx context.Context, input DepositInput) (*TransferResult, error)
	Withdraw(ctx context.Context, input WithdrawInput) (*TransferResult, error)
	Stake(ctx context.Context, tx *gorm.DB, address string, sessionID uuid.UUID, amount int64) error
	ReturnStake(ctx context.Context, tx *gorm.DB, address string, sessionID uuid.UUID) error
	Award(ctx context.Context, tx *gorm.DB, address string, sessionID uuid.UUID, amount int64) error
	ResolveStakes(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) error
	History(ctx context.Context, address string, params pagination.Params) (*pagination.Page[models.Transaction], error)
	StakesForSession(ctx context.Context, sessionID uuid.UUID) ([]models.Stake, error)
}
