package models

import "time"

// PlayerProfile carries display identity and lifetime results for an account.
// Result counters are bumped when a session completes.
type PlayerProfile struct {
	AccountAddress string    `gorm:"column:account_address;primaryKey"`
	Name           string    `gorm:"column:name;not null"`
	Avatar         string    `gorm:"column:avatar;not null"`
	GamesPlayed    int       `gorm:"column:games_played;not null;default:0"`
	GamesWon       int       `gorm:"column:games_won;not null;default:0"`
	TotalWinnings  int64     `gorm:"column:total_winnings;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the GORM default.
func (PlayerProfile) TableName() string {
	return "player_profiles"
}
