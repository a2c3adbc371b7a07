package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionPlayer is one participant seat in a game session.
type SessionPlayer struct {
	SessionID      uuid.UUID `gorm:"column:session_id;type:uuid;primaryKey"`
	AccountAddress string    `gorm:"column:account_address;primaryKey"`
	JoinedAt       time.Time `gorm:"column:joined_at;not null"`
	Confirmed      bool      `gorm:"column:confirmed;not null;default:false"`
	Ready          bool      `gorm:"column:ready;not null;default:false"`
}

// TableName overrides the GORM default.
func (SessionPlayer) TableName() string {
	return "session_players"
}
