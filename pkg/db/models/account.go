package models

import "time"

// Account holds the GT balance for a wallet address. Escrowed funds live in
// Stake rows, not in the balance.
type Account struct {
	Address   string    `gorm:"column:address;primaryKey"`
	Balance   int64     `gorm:"column:balance;not null;check:balance >= 0"`
	Stakes    []Stake   `gorm:"foreignKey:AccountAddress;references:Address"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the GORM default.
func (Account) TableName() string {
	return "accounts"
}
