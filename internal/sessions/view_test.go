package sessions

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorm.io/gorm"

	"github.com/tailrace/lobby-backend/pkg/enums"
	"github.com/tailrace/lobby-backend/pkg/logger"
	"github.com/tailrace/lobby-backend/pkg/pagination"
)

func newTestView(t *testing.T) (*View, *Hub, *gorm.DB) {
	t.Helper()
	db := setupSessionsTestDB(t)
	hub := NewHub()
	view, err := NewView(NewRepository(db), hub, testLobbyConfig(), logger.New(logger.Options{ServiceName: "view-test", Output: io.Discard}))
	require.NoError(t, err)
	return view, hub, db
}

func TestActiveSessionsFiltersStaleEntries(t *testing.T) {
	view, _, db := newTestView(t)
	ctx := context.Background()
	now := time.Now().UTC()

	newWaitingSession(t, db, "0xaaa", 200, now.Add(-time.Minute))
	newWaitingSession(t, db, "0xbbb", 200, now.Add(-31*time.Minute))

	page, err := view.ActiveSessions(ctx, ListFilters{}, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total, "overdue sessions are hidden even before the sweep runs")
	require.Len(t, page.Items, 1)
	assert.Equal(t, "0xaaa", page.Items[0].CreatorAddress)
}

func TestActiveSessionsSortsNewestFirst(t *testing.T) {
	view, _, db := newTestView(t)
	ctx := context.Background()
	now := time.Now().UTC()

	newWaitingSession(t, db, "0xaaa", 200, now.Add(-3*time.Minute))
	newWaitingSession(t, db, "0xbbb", 200, now.Add(-2*time.Minute))
	newWaitingSession(t, db, "0xccc", 200, now.Add(-time.Minute))

	page, err := view.ActiveSessions(ctx, ListFilters{}, pagination.Params{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "0xccc", page.Items[0].CreatorAddress)
	assert.True(t, page.HasMore)
}

func TestSubscribePushesSnapshotsOnChanges(t *testing.T) {
	view, hub, db := newTestView(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	now := time.Now().UTC()

	newWaitingSession(t, db, "0xaaa", 200, now.Add(-time.Minute))

	snapshots, stop := view.Subscribe(ctx, ListFilters{})
	defer stop()

	select {
	case snap := <-snapshots:
		require.Len(t, snap, 1, "initial snapshot delivered without waiting for a change")
	case <-time.After(2 * time.Second):
		t.Fatal("no initial snapshot")
	}

	created := newWaitingSession(t, db, "0xbbb", 200, now)
	hub.Broadcast(ctx, ChangeEvent{SessionID: created.ID, Status: enums.SessionStatusWaiting, At: now})

	select {
	case snap := <-snapshots:
		require.Len(t, snap, 2)
		assert.Equal(t, "0xbbb", snap[0].CreatorAddress, "newest first")
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after change")
	}
}
