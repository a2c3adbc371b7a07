package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tailrace/lobby-backend/pkg/db/models"
	"github.com/tailrace/lobby-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindAccount(ctx context.Context, address string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "address = ?", address).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) CreateAccount(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// AdjustBalance applies delta to the account balance. The WHERE clause keeps
// the balance non-negative even when two writers race on the same account, so
// a false return means the account is missing or the funds are not there.
func (r *repository) AdjustBalance(ctx context.Context, address string, delta int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("address = ? AND balance + ? >= 0", address, delta).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreateStake(ctx context.Context, stake *models.Stake) error {
	return r.db.WithContext(ctx).Create(stake).Error
}

func (r *repository) FindStake(ctx context.Context, address string, sessionID uuid.UUID) (*models.Stake, error) {
	var stake models.Stake
	if err := r.db.WithContext(ctx).
		First(&stake, "account_address = ? AND session_id = ?", address, sessionID).Error; err != nil {
		return nil, err
	}
	return &stake, nil
}

func (r *repository) DeleteStake(ctx context.Context, address string, sessionID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("account_address = ? AND session_id = ?", address, sessionID).
		Delete(&models.Stake{})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteStakesBySession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.Stake{})
	return res.RowsAffected, res.Error
}

func (r *repository) ListStakesBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Stake, error) {
	var stakes []models.Stake
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&stakes).Error; err != nil {
		return nil, err
	}
	return stakes, nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, address string, params pagination.Params) ([]models.Transaction, int64, error) {
	params = params.Normalize()

	var total int64
	base := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("account_address = ?", address)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txns []models.Transaction
	if err := base.
		Order("created_at DESC").
		Limit(params.PageSize).
		Offset(params.Offset()).
		Find(&txns).Error; err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}
