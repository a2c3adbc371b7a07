package controllers

import (
	"net/http"

	"github.com/tailrace/lobby-backend/api/responses"
	"github.com/tailrace/lobby-backend/api/validators"
	"github.com/tailrace/lobby-backend/internal/leaderboard"
	"github.com/tailrace/lobby-backend/pkg/logger"
)

// Leaderboard returns the top players by lifetime winnings.
func Leaderboard(svc leaderboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 10, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.Top(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, entries)
	}
}
