package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tailrace/lobby-backend/pkg/enums"
)

// Transaction is an immutable, append-only entry in an account's history.
// Stake entries carry a negative amount; returns and awards are positive.
type Transaction struct {
	ID             uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountAddress string                  `gorm:"column:account_address;not null;index"`
	Type           enums.TransactionType   `gorm:"column:type;type:transaction_type;not null"`
	Amount         int64                   `gorm:"column:amount;not null"`
	SessionID      *uuid.UUID              `gorm:"column:session_id;type:uuid"`
	Status         enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null;default:'completed'"`
	CreatedAt      time.Time               `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the GORM default.
func (Transaction) TableName() string {
	return "transactions"
}
