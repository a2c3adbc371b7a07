package profiles

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/tailrace/lobby-backend/pkg/errors"
)

func setupProfilesTestDB(t *testing.T) *gorm.DB {
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

func newProfileService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := setupProfilesTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc, db
}

func TestGetProvisionsProfile(t *testing.T) {
	svc, _ := newProfileService(t)
	ctx := context.Background()

	profile, err := svc.Get(ctx, "0xdeadbeef01")
	require.NoError(t, err)
	assert.Equal(t, "racer-deadbe", profile.Name)
	assert.Equal(t, defaultAvatar, profile.Avatar)
	assert.Zero(t, profile.GamesPlayed)

	again, err := svc.Get(ctx, "0xdeadbeef01")
	require.NoError(t, err)
	assert.Equal(t, profile.Name, again.Name)
}

func TestChangeNameValidatesLength(t *testing.T) {
	svc, _ := newProfileService(t)
	ctx := context.Background()

	profile, err := svc.ChangeName(ctx, "0xaaa", "Speedy")
	require.NoError(t, err)
	assert.Equal(t, "Speedy", profile.Name)

	_, err = svc.ChangeName(ctx, "0xaaa", strings.Repeat("x", 21))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.ChangeName(ctx, "0xaaa", "   ")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	// length limit counts runes, not bytes
	profile, err = svc.ChangeName(ctx, "0xaaa", strings.Repeat("ü", 20))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("ü", 20), profile.Name)
}

func TestChangeAvatar(t *testing.T) {
	svc, _ := newProfileService(t)
	ctx := context.Background()

	profile, err := svc.ChangeAvatar(ctx, "0xaaa", "racer_gold")
	require.NoError(t, err)
	assert.Equal(t, "racer_gold", profile.Avatar)

	_, err = svc.ChangeAvatar(ctx, "0xaaa", "")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestRecordResultBumpsCounters(t *testing.T) {
	svc, _ := newProfileService(t)
	ctx := context.Background()

	require.NoError(t, svc.RecordResult(ctx, nil, "0xwin", []string{"0xwin", "0xlose"}, 200))
	require.NoError(t, svc.RecordResult(ctx, nil, "0xlose", []string{"0xwin", "0xlose"}, 200))

	winner, err := svc.Get(ctx, "0xwin")
	require.NoError(t, err)
	assert.Equal(t, 2, winner.GamesPlayed)
	assert.Equal(t, 1, winner.GamesWon)
	assert.Equal(t, int64(200), winner.TotalWinnings)

	other, err := svc.Get(ctx, "0xlose")
	require.NoError(t, err)
	assert.Equal(t, 2, other.GamesPlayed)
	assert.Equal(t, 1, other.GamesWon)
	assert.Equal(t, int64(200), other.TotalWinnings)
}
