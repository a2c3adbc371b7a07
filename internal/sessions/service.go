package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/tailrace/lobby-backend/pkg/config"
	"github.com/tailrace/lobby-backend/pkg/db/models"
	"github.com/tailrace/lobby-backend/pkg/enums"
	pkgerrors "github.com/tailrace/lobby-backend/pkg/errors"
	"github.com/tailrace/lobby-backend/pkg/logger"
)

// maxUpdateAttempts bounds the optimistic retry loop on version conflicts.
const maxUpdateAttempts = 3

const sweepLockKey = "gtlobby:lock:session_sweep"

// errVersionConflict signals that another writer moved the session first and
// the whole transition must be re-run against the fresh state.
var errVersionConflict = errors.New("session version conflict")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Escrow is the slice of the ledger the lifecycle manager moves funds through.
type Escrow interface {
	Stake(ctx context.Context, tx *gorm.DB, address string, sessionID uuid.UUID, amount int64) error
	ReturnStake(ctx context.Context, tx *gorm.DB, address string, sessionID uuid.UUID) error
	Award(ctx context.Context, tx *gorm.DB, address string, sessionID uuid.UUID, amount int64) error
	ResolveStakes(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) error
}

// ResultRecorder bumps player lifetime counters when a session completes.
type ResultRecorder interface {
	RecordResult(ctx context.Context, tx *gorm.DB, winner string, players []string, winnings int64) error
}

// sweepGate throttles the opportunistic expiry sweep across replicas.
type sweepGate interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	escrow   Escrow
	results  ResultRecorder
	notifier Notifier
	gate     sweepGate
	cfg      config.LobbyConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the session lifecycle manager with its collaborators.
// The gate may be nil; the opportunistic sweep then runs on every trigger.
func NewService(repo Repository, tx txRunner, escrow Escrow, results ResultRecorder, notifier Notifier, gate sweepGate, cfg config.LobbyConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sessions repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if escrow == nil {
		return nil, fmt.Errorf("ledger escrow required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		escrow:   escrow,
		results:  results,
		notifier: notifier,
		gate:     gate,
		cfg:      cfg,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateSessionInput) (*models.GameSession, error) {
	if input.Creator == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unrecognized game type %q", input.Type))
	}
	if !input.Format.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unrecognized game format %d", input.Format))
	}
	if input.Stake < s.cfg.MinStake {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("stake must be at least %d GT", s.cfg.MinStake))
	}

	var session *models.GameSession
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindWaitingByCreator(ctx, input.Creator)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active sessions")
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "account already has a waiting session").
				WithDetails(map[string]any{"session_id": existing.ID})
		}

		id := uuid.New()
		// stake first: if the write below fails the rollback releases the
		// escrow, so funds can never sit against a session that was not written
		if err := s.escrow.Stake(ctx, tx, input.Creator, id, input.Stake); err != nil {
			return err
		}

		now := s.now()
		session = &models.GameSession{
			ID:             id,
			Type:           input.Type,
			Format:         input.Format,
			Stake:          input.Stake,
			CreatorAddress: input.Creator,
			Status:         enums.SessionStatusWaiting,
			MaxPlayers:     s.cfg.MaxPlayers,
			Version:        1,
			CreatedAt:      now,
			LastUpdated:    now,
		}
		if err := repo.Create(ctx, session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write session")
		}
		player := &models.SessionPlayer{
			SessionID:      id,
			AccountAddress: input.Creator,
			JoinedAt:       now,
			Confirmed:      true,
			Ready:          true,
		}
		if err := repo.AddPlayer(ctx, player); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write creator seat")
		}
		session.Players = []models.SessionPlayer{*player}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Broadcast(ctx, ChangeEvent{SessionID: session.ID, Status: session.Status, At: s.now()})
	s.maybeSweep(ctx)
	return session, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.GameSession, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	session, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	return session, nil
}

func (s *service) Join(ctx context.Context, id uuid.UUID, joiner string) (*models.GameSession, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if joiner == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}

	var (
		session *models.GameSession
		expired bool
	)
	err := s.withVersionRetry(ctx, func(tx *gorm.DB) error {
		session = nil
		expired = false
		repo := s.repo.WithTx(tx)

		current, err := repo.Find(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
		}
		if current.Status != enums.SessionStatusWaiting {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "session is not accepting players")
		}
		if current.CreatorAddress == joiner {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot join your own session")
		}
		if current.HasPlayer(joiner) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "already joined this session")
		}
		if current.PlayerCount() >= current.MaxPlayers {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "session is full")
		}

		now := s.now()
		// expiry is re-checked inside the same atomic step as the status check
		if now.After(current.ExpiresAt(s.cfg.GameTimeout)) {
			if err := s.expireTx(ctx, tx, current, now); err != nil {
				return err
			}
			expired = true
			session = current
			return nil
		}

		if err := s.escrow.Stake(ctx, tx, joiner, id, current.Stake); err != nil {
			return err
		}

		player := &models.SessionPlayer{
			SessionID:      id,
			AccountAddress: joiner,
			JoinedAt:       now,
			Confirmed:      true,
			Ready:          false,
		}
		if err := repo.AddPlayer(ctx, player); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write joiner seat")
		}

		updates := map[string]any{"last_updated": now}
		if current.PlayerCount()+1 >= current.MaxPlayers {
			updates["status"] = enums.SessionStatusInProgress
			updates["game_started_at"] = now
		}
		ok, err := repo.UpdateWithVersion(ctx, id, current.Version, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update session")
		}
		if !ok {
			return errVersionConflict
		}

		current.Players = append(current.Players, *player)
		if status, set := updates["status"]; set {
			current.Status = status.(enums.SessionStatus)
			current.GameStartedAt = &now
		}
		current.Version++
		current.LastUpdated = now
		session = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Broadcast(ctx, ChangeEvent{SessionID: session.ID, Status: session.Status, At: s.now()})
	if expired {
		return nil, pkgerrors.New(pkgerrors.CodeExpired, "session has expired")
	}
	return session, nil
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID, requester string) (*models.GameSession, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if requester == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}

	var session *models.GameSession
	err := s.withVersionRetry(ctx, func(tx *gorm.DB) error {
		session = nil
		repo := s.repo.WithTx(tx)

		current, err := repo.Find(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
		}
		if current.CreatorAddress != requester {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the creator can cancel a session")
		}
		// fullness ends the cancellation window even before any move is made
		if current.Status != enums.SessionStatusWaiting {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only waiting sessions can be cancelled")
		}

		if err := s.escrow.ReturnStake(ctx, tx, current.CreatorAddress, id); err != nil {
			return err
		}

		now := s.now()
		ok, err := repo.UpdateWithVersion(ctx, id, current.Version, map[string]any{
			"status":       enums.SessionStatusCancelled,
			"cancelled_at": now,
			"cancelled_by": requester,
			"last_updated": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update session")
		}
		if !ok {
			return errVersionConflict
		}

		current.Status = enums.SessionStatusCancelled
		current.CancelledAt = &now
		current.CancelledBy = &requester
		current.Version++
		current.LastUpdated = now
		session = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Broadcast(ctx, ChangeEvent{SessionID: session.ID, Status: session.Status, At: s.now()})
	return session, nil
}

// Complete pays the pot to the winner and locks the session. Driven by the
// minigame outcome reported through the API.
func (s *service) Complete(ctx context.Context, id uuid.UUID, winner string) (*models.GameSession, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if winner == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "winner address required")
	}

	var session *models.GameSession
	err := s.withVersionRetry(ctx, func(tx *gorm.DB) error {
		session = nil
		repo := s.repo.WithTx(tx)

		current, err := repo.Find(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
		}
		if current.Status != enums.SessionStatusInProgress {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only in-progress sessions can be completed")
		}
		if !current.HasPlayer(winner) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "winner is not a session participant")
		}

		pot := current.Stake * int64(current.PlayerCount())
		if err := s.escrow.Award(ctx, tx, winner, id, pot); err != nil {
			return err
		}
		if err := s.escrow.ResolveStakes(ctx, tx, id); err != nil {
			return err
		}

		if s.results != nil {
			players := make([]string, 0, len(current.Players))
			for _, p := range current.Players {
				players = append(players, p.AccountAddress)
			}
			if err := s.results.RecordResult(ctx, tx, winner, players, pot-current.Stake); err != nil {
				return err
			}
		}

		now := s.now()
		ok, err := repo.UpdateWithVersion(ctx, id, current.Version, map[string]any{
			"status":         enums.SessionStatusCompleted,
			"winner_address": winner,
			"completed_at":   now,
			"last_updated":   now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update session")
		}
		if !ok {
			return errVersionConflict
		}

		current.Status = enums.SessionStatusCompleted
		current.WinnerAddress = &winner
		current.CompletedAt = &now
		current.Version++
		current.LastUpdated = now
		session = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Broadcast(ctx, ChangeEvent{SessionID: session.ID, Status: session.Status, At: s.now()})
	return session, nil
}

// SweepExpired moves every overdue waiting session to expired and refunds its
// creator. Each session is handled in its own transaction; a version conflict
// means someone else already transitioned it, which is not an error.
func (s *service) SweepExpired(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.GameTimeout)
	stale, err := s.repo.ListWaitingBefore(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale sessions")
	}

	swept := 0
	var errs error
	for i := range stale {
		candidate := stale[i]
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			current, err := repo.Find(ctx, candidate.ID)
			if err != nil {
				return err
			}
			// re-validate inside the transaction: a join or cancel may have won
			if current.Status != enums.SessionStatusWaiting {
				return nil
			}
			if current.CreatedAt.After(cutoff) {
				return nil
			}
			if err := s.expireTx(ctx, tx, current, s.now()); err != nil {
				return err
			}
			swept++
			return nil
		})
		if err != nil {
			if errors.Is(err, errVersionConflict) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("sweep session %s: %w", candidate.ID, err))
			continue
		}
		s.notifier.Broadcast(ctx, ChangeEvent{SessionID: candidate.ID, Status: enums.SessionStatusExpired, At: s.now()})
	}
	return swept, errs
}

// expireTx transitions a waiting session to expired and refunds the creator.
// Runs inside the caller's transaction.
func (s *service) expireTx(ctx context.Context, tx *gorm.DB, session *models.GameSession, now time.Time) error {
	if err := s.escrow.ReturnStake(ctx, tx, session.CreatorAddress, session.ID); err != nil {
		return err
	}
	ok, err := s.repo.WithTx(tx).UpdateWithVersion(ctx, session.ID, session.Version, map[string]any{
		"status":       enums.SessionStatusExpired,
		"expired_at":   now,
		"last_updated": now,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire session")
	}
	if !ok {
		return errVersionConflict
	}
	session.Status = enums.SessionStatusExpired
	session.ExpiredAt = &now
	session.Version++
	session.LastUpdated = now
	return nil
}

// maybeSweep runs the expiry sweep if the shared throttle allows it. Sweep
// problems are logged and swallowed; the next interval retries.
func (s *service) maybeSweep(ctx context.Context) {
	if s.gate != nil {
		ok, err := s.gate.SetNX(ctx, sweepLockKey, s.now().Format(time.RFC3339), s.cfg.SweepInterval)
		if err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("sweep throttle unavailable: %v", err))
			return
		}
		if !ok {
			return
		}
	}
	swept, err := s.SweepExpired(ctx)
	if err != nil {
		s.logg.Error(ctx, "opportunistic expiry sweep", err)
		return
	}
	if swept > 0 {
		s.logg.Info(s.logg.WithField(ctx, "count", swept), "expired stale sessions")
	}
}

// withVersionRetry re-runs fn in a fresh transaction when it loses an
// optimistic version race, up to maxUpdateAttempts times.
func (s *service) withVersionRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err = s.tx.WithTx(ctx, fn)
		if !errors.Is(err, errVersionConflict) {
			return err
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "session changed concurrently")
}
