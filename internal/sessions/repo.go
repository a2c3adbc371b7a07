package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tailrace/lobby-backend/pkg/db/models"
	"github.com/tailrace/lobby-backend/pkg/enums"
	"github.com/tailrace/lobby-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository returns a session repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, session *models.GameSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.GameSession, error) {
	var session models.GameSession
	if err := r.db.WithContext(ctx).
		Preload("Players", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC")
		}).
		First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) FindWaitingByCreator(ctx context.Context, creator string) (*models.GameSession, error) {
	var session models.GameSession
	if err := r.db.WithContext(ctx).
		Where("creator_address = ? AND status = ?", creator, enums.SessionStatusWaiting).
		Order("created_at DESC").
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) ListByStatus(ctx context.Context, status enums.SessionStatus, filters ListFilters, params pagination.Params) ([]models.GameSession, int64, error) {
	params = params.Normalize()

	base := r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("status = ?", status)
	if filters.Type != nil {
		base = base.Where("type = ?", *filters.Type)
	}
	if filters.Format != nil {
		base = base.Where("format = ?", *filters.Format)
	}
	if filters.Stake != nil {
		base = base.Where("stake = ?", *filters.Stake)
	}
	if filters.CreatedAfter != nil {
		base = base.Where("created_at > ?", *filters.CreatedAfter)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sessions []models.GameSession
	if err := base.
		Preload("Players").
		Order("created_at DESC").
		Limit(params.PageSize).
		Offset(params.Offset()).
		Find(&sessions).Error; err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

func (r *repository) ListWaitingBefore(ctx context.Context, cutoff time.Time) ([]models.GameSession, error) {
	var sessions []models.GameSession
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.SessionStatusWaiting, cutoff).
		Order("created_at ASC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// UpdateWithVersion bumps the version as part of the update so any concurrent
// writer working from the same snapshot loses the race. The caller supplies
// last_updated so every column carries the same transition timestamp.
func (r *repository) UpdateWithVersion(ctx context.Context, id uuid.UUID, version int64, updates map[string]any) (bool, error) {
	merged := map[string]any{
		"version": version + 1,
	}
	for k, v := range updates {
		merged[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("id = ? AND version = ?", id, version).
		Updates(merged)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) AddPlayer(ctx context.Context, player *models.SessionPlayer) error {
	return r.db.WithContext(ctx).Create(player).Error
}
