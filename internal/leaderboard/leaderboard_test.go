package leaderboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tailrace/lobby-backend/pkg/db/models"
)

func setupLeaderboardTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS player_profiles (
  account_address TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  avatar TEXT NOT NULL,
  games_played INTEGER NOT NULL DEFAULT 0,
  games_won INTEGER NOT NULL DEFAULT 0,
  total_winnings INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedProfile(t *testing.T, db *gorm.DB, address, name string, played, won int, winnings int64) {
	t.Helper()
	require.NoError(t, db.Create(&models.PlayerProfile{
		AccountAddress: address,
		Name:           name,
		Avatar:         "racer_blue",
		GamesPlayed:    played,
		GamesWon:       won,
		TotalWinnings:  winnings,
	}).Error)
}

func TestTopRanksByWinnings(t *testing.T) {
	db := setupLeaderboardTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	ctx := context.Background()

	seedProfile(t, db, "0xaaa", "Alpha", 10, 4, 800)
	seedProfile(t, db, "0xbbb", "Bravo", 5, 5, 1500)
	seedProfile(t, db, "0xccc", "Charlie", 2, 0, 0)
	seedProfile(t, db, "0xddd", "Delta", 0, 0, 0) // never played, hidden

	entries, err := svc.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "Bravo", entries[0].Name)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "Alpha", entries[1].Name)
	assert.Equal(t, "Charlie", entries[2].Name)
}

func TestTopClampsLimit(t *testing.T) {
	db := setupLeaderboardTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		seedProfile(t, db, string(rune('a'+i)), "P", 1, 1, int64(i))
	}

	entries, err := svc.Top(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, defaultLimit)
}
