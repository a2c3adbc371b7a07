package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tailrace/lobby-backend/pkg/enums"
)

// GameSession is one staked match. Sessions are never deleted; terminal
// transitions only stamp metadata, so the table doubles as an audit log and
// the leaderboard source.
type GameSession struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Type           enums.GameType      `gorm:"column:type;type:game_type;not null"`
	Format         enums.GameFormat    `gorm:"column:format;not null"`
	Stake          int64               `gorm:"column:stake;not null"`
	CreatorAddress string              `gorm:"column:creator_address;not null;index"`
	Status         enums.SessionStatus `gorm:"column:status;type:session_status;not null;default:'waiting';index"`
	MaxPlayers     int                 `gorm:"column:max_players;not null;default:2"`
	Version        int64               `gorm:"column:version;not null;default:1"`
	WinnerAddress  *string             `gorm:"column:winner_address"`
	GameStartedAt  *time.Time          `gorm:"column:game_started_at"`
	CompletedAt    *time.Time          `gorm:"column:completed_at"`
	CancelledAt    *time.Time          `gorm:"column:cancelled_at"`
	CancelledBy    *string             `gorm:"column:cancelled_by"`
	ExpiredAt      *time.Time          `gorm:"column:expired_at"`
	Players        []SessionPlayer     `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime;index"`
	LastUpdated    time.Time           `gorm:"column:last_updated;autoUpdateTime"`
}

// TableName overrides the GORM default.
func (GameSession) TableName() string {
	return "game_sessions"
}

// PlayerCount returns the number of joined participants.
func (s *GameSession) PlayerCount() int {
	return len(s.Players)
}

// HasPlayer reports whether the address already holds a seat.
func (s *GameSession) HasPlayer(address string) bool {
	for _, p := range s.Players {
		if p.AccountAddress == address {
			return true
		}
	}
	return false
}

// ExpiresAt returns the instant the session stops accepting joins.
func (s *GameSession) ExpiresAt(timeout time.Duration) time.Time {
	return s.CreatedAt.Add(timeout)
}
