package models

import (
	"time"

	"github.com/google/uuid"
)

// Stake is an escrow entry: GT moved out of an account's balance and held
// against a session. Deleted only when the stake is returned or resolved.
type Stake struct {
	AccountAddress string    `gorm:"column:account_address;primaryKey"`
	SessionID      uuid.UUID `gorm:"column:session_id;type:uuid;primaryKey"`
	Amount         int64     `gorm:"column:amount;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the GORM default.
func (Stake) TableName() string {
	return "stakes"
}
