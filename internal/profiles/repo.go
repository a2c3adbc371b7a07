package profiles

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tailrace/lobby-backend/pkg/db/models"
)

// Repository manages persistence for player profiles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, address string) (*models.PlayerProfile, error)
	Create(ctx context.Context, profile *models.PlayerProfile) error
	Update(ctx context.Context, address string, updates map[string]any) error
	IncrementResults(ctx context.Context, address string, won bool, winnings int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a profile repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Find(ctx context.Context, address string) (*models.PlayerProfile, error) {
	var profile models.PlayerProfile
	if err := r.db.WithContext(ctx).First(&profile, "account_address = ?", address).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) Create(ctx context.Context, profile *models.PlayerProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *repository) Update(ctx context.Context, address string, updates map[string]any) error {
	merged := map[string]any{"updated_at": time.Now().UTC()}
	for k, v := range updates {
		merged[k] = v
	}
	return r.db.WithContext(ctx).
		Model(&models.PlayerProfile{}).
		Where("account_address = ?", address).
		Updates(merged).Error
}

func (r *repository) IncrementResults(ctx context.Context, address string, won bool, winnings int64) error {
	updates := map[string]any{
		"games_played": gorm.Expr("games_played + 1"),
		"updated_at":   time.Now().UTC(),
	}
	if won {
		updates["games_won"] = gorm.Expr("games_won + 1")
		updates["total_winnings"] = gorm.Expr("total_winnings + ?", winnings)
	}
	return r.db.WithContext(ctx).
		Model(&models.PlayerProfile{}).
		Where("account_address = ?", address).
		Updates(updates).Error
}
