package sessions

import (
	"time"

	"github.com/google/uuid"

	"github.com/tailrace/lobby-backend/pkg/enums"
)

// CreateSessionInput captures a creation request from a lobby client.
type CreateSessionInput struct {
	Creator string
	Type    enums.GameType
	Format  enums.GameFormat
	Stake   int64
}

// ListFilters describe the inputs supported by the active-session list.
type ListFilters struct {
	Type         *enums.GameType
	Format       *enums.GameFormat
	Stake        *int64
	CreatedAfter *time.Time
}

// ChangeEvent is broadcast whenever a session is created or transitions.
// Subscribers treat it as a wake-up and re-query their matching set.
type ChangeEvent struct {
	SessionID uuid.UUID           `json:"session_id"`
	Status    enums.SessionStatus `json:"status"`
	At        time.Time           `json:"at"`
}
