package leaderboard

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tailrace/lobby-backend/pkg/db/models"
	pkgerrors "github.com/tailrace/lobby-backend/pkg/errors"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// Entry is one leaderboard row.
type Entry struct {
	Rank          int    `json:"rank"`
	Address       string `json:"address"`
	Name          string `json:"name"`
	Avatar        string `json:"avatar"`
	GamesPlayed   int    `json:"games_played"`
	GamesWon      int    `json:"games_won"`
	TotalWinnings int64  `json:"total_winnings"`
}

// Repository reads ranked profiles.
type Repository interface {
	TopByWinnings(ctx context.Context, limit int) ([]models.PlayerProfile, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a leaderboard repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) TopByWinnings(ctx context.Context, limit int) ([]models.PlayerProfile, error) {
	var profiles []models.PlayerProfile
	if err := r.db.WithContext(ctx).
		Where("games_played > 0").
		Order("total_winnings DESC, games_won DESC, account_address ASC").
		Limit(limit).
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// Service exposes the ranked standings.
type Service interface {
	Top(ctx context.Context, limit int) ([]Entry, error)
}

type service struct {
	repo Repository
}

// NewService wires a leaderboard service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("leaderboard repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	profiles, err := s.repo.TopByWinnings(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load standings")
	}
	entries := make([]Entry, 0, len(profiles))
	for i, profile := range profiles {
		entries = append(entries, Entry{
			Rank:          i + 1,
			Address:       profile.AccountAddress,
			Name:          profile.Name,
			Avatar:        profile.Avatar,
			GamesPlayed:   profile.GamesPlayed,
			GamesWon:      profile.GamesWon,
			TotalWinnings: profile.TotalWinnings,
		})
	}
	return entries, nil
}
