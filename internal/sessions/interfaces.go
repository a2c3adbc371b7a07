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

// Repository defines persistence operations for game sessions.
//
// UpdateWithVersion is the only sanctioned mutation path after creation: it
// applies the updates only when the stored version still matches, so racing
// writers detect each other instead of overwriting.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, session *models.GameSession) error
	Find(ctx context.Context, id uuid.UUID) (*models.GameSession, error)
	FindWaitingByCreator(ctx context.Context, creator string) (*models.GameSession, error)
	ListByStatus(ctx context.Context, status enums.SessionStatus, filters ListFilters, params pagination.Params) ([]models.GameSession, int64, error)
	ListWaitingBefore(ctx context.Context, cutoff time.Time) ([]models.GameSession, error)
	UpdateWithVersion(ctx context.Context, id uuid.UUID, version int64, updates map[string]any) (bool, error)
	AddPlayer(ctx context.Context, player *models.SessionPlayer) error
}

// Service drives the session lifecycle state machine.
type Service interface {
	Create(ctx context.Context, input CreateSessionInput) (*models.GameSession, error)
	Get(ctx context.Context, id uuid.UUID) (*models.GameSession, error)
	Join(ctx context.Context, id uuid.UUID, joiner string) (*models.GameSession, error)
	Cancel(ctx context.Context, id uuid.UUID, requester string) (*models.GameSession, error)
	Complete(ctx context.Context, id uuid.UUID, winner string) (*models.GameSession, error)
	SweepExpired(ctx context.Context) (int, error)
}
