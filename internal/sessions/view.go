package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/tailrace/lobby-backend/pkg/config"
	"github.com/tailrace/lobby-backend/pkg/db/models"
	"github.com/tailrace/lobby-backend/pkg/enums"
	"github.com/tailrace/lobby-backend/pkg/logger"
	"github.com/tailrace/lobby-backend/pkg/pagination"
)

// View is the read model over waiting sessions: one-shot paginated queries
// plus a live subscription that pushes the full current matching set on every
// change.
type View struct {
	repo Repository
	hub  *Hub
	cfg  config.LobbyConfig
	logg *logger.Logger
	now  func() time.Time
}

// NewView builds the active-session read model.
func NewView(repo Repository, hub *Hub, cfg config.LobbyConfig, logg *logger.Logger) (*View, error) {
	if repo == nil {
		return nil, fmt.Errorf("sessions repository required")
	}
	if hub == nil {
		return nil, fmt.Errorf("hub required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &View{
		repo: repo,
		hub:  hub,
		cfg:  cfg,
		logg: logg,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// ActiveSessions returns the joinable sessions, newest first. Sessions past
// the game timeout are filtered out even if the sweeper has not caught them
// yet.
func (v *View) ActiveSessions(ctx context.Context, filters ListFilters, params pagination.Params) (*pagination.Page[models.GameSession], error) {
	freshSince := v.now().Add(-v.cfg.GameTimeout)
	if filters.CreatedAfter == nil || filters.CreatedAfter.Before(freshSince) {
		filters.CreatedAfter = &freshSince
	}

	items, total, err := v.repo.ListByStatus(ctx, enums.SessionStatusWaiting, filters, params)
	if err != nil {
		return nil, err
	}
	page := pagination.NewPage(items, int(total), params)
	return &page, nil
}

// Subscribe streams the current active set: once immediately, then after every
// session change. The stream closes when ctx is cancelled or stop is called.
// Consumers that fall behind receive the latest snapshot, not every
// intermediate one.
func (v *View) Subscribe(ctx context.Context, filters ListFilters) (<-chan []models.GameSession, func()) {
	events, unsubscribe := v.hub.Subscribe()
	out := make(chan []models.GameSession, 1)

	go func() {
		defer close(out)
		v.push(ctx, filters, out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				v.push(ctx, filters, out)
			}
		}
	}()

	return out, unsubscribe
}

func (v *View) push(ctx context.Context, filters ListFilters, out chan []models.GameSession) {
	page, err := v.ActiveSessions(ctx, filters, pagination.Params{PageSize: pagination.MaxPageSize})
	if err != nil {
		v.logg.Error(ctx, "refresh active session view", err)
		return
	}
	select {
	case out <- page.Items:
	default:
		// drop the stale pending snapshot in favor of the fresh one
		select {
		case <-out:
		default:
		}
		select {
		case out <- page.Items:
		default:
		}
	}
}
