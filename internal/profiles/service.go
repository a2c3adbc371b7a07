package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tailrace/lobby-backend/pkg/db"
	"github.com/tailrace/lobby-backend/pkg/db/models"
	pkgerrors "github.com/tailrace/lobby-backend/pkg/errors"
)

const (
	maxNameLength  = 20
	defaultAvatar  = "racer_blue"
	addressSegment = 6
)

// Service manages player display identity and lifetime results.
type Service interface {
	Get(ctx context.Context, address string) (*models.PlayerProfile, error)
	ChangeName(ctx context.Context, address, name string) (*models.PlayerProfile, error)
	ChangeAvatar(ctx context.Context, address, avatar string) (*models.PlayerProfile, error)
	RecordResult(ctx context.Context, tx *gorm.DB, winner string, players []string, winnings int64) error
}

type service struct {
	repo Repository
}

// NewService wires a profile service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	return &service{repo: repo}, nil
}

// Get lazily provisions a profile from the wallet address on first read.
func (s *service) Get(ctx context.Context, address string) (*models.PlayerProfile, error) {
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account address required")
	}
	return s.ensureProfile(ctx, s.repo, address)
}

func (s *service) ChangeName(ctx context.Context, address, name string) (*models.PlayerProfile, error) {
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account address required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}

	profile, err := s.ensureProfile(ctx, s.repo, address)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, address, map[string]any{"name": name}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update name")
	}
	profile.Name = name
	return profile, nil
}

func (s *service) ChangeAvatar(ctx context.Context, address, avatar string) (*models.PlayerProfile, error) {
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account address required")
	}
	avatar = strings.TrimSpace(avatar)
	if avatar == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "avatar must not be empty")
	}

	profile, err := s.ensureProfile(ctx, s.repo, address)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, address, map[string]any{"avatar": avatar}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update avatar")
	}
	profile.Avatar = avatar
	return profile, nil
}

// RecordResult bumps lifetime counters for every participant of a completed
// session. Runs inside the completion transaction so the counters can never
// disagree with the session log.
func (s *service) RecordResult(ctx context.Context, tx *gorm.DB, winner string, players []string, winnings int64) error {
	if winner == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "winner address required")
	}
	repo := s.repo.WithTx(tx)
	for _, player := range players {
		if _, err := s.ensureProfile(ctx, repo, player); err != nil {
			return err
		}
		if err := repo.IncrementResults(ctx, player, player == winner, winnings); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record result")
		}
	}
	return nil
}

func (s *service) ensureProfile(ctx context.Context, repo Repository, address string) (*models.PlayerProfile, error) {
	profile, err := repo.Find(ctx, address)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}

	profile = &models.PlayerProfile{
		AccountAddress: address,
		Name:           defaultName(address),
		Avatar:         defaultAvatar,
	}
	if err := repo.Create(ctx, profile); err != nil {
		if db.IsUniqueViolation(err, "") {
			return repo.Find(ctx, address)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create profile")
	}
	return profile, nil
}

// defaultName derives a readable handle from the wallet address.
func defaultName(address string) string {
	trimmed := strings.TrimPrefix(address, "0x")
	if len(trimmed) > addressSegment {
		trimmed = trimmed[:addressSegment]
	}
	return "racer-" + trimmed
}
