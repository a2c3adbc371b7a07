package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tailrace/lobby-backend/api/middleware"
	"github.com/tailrace/lobby-backend/api/responses"
	"github.com/tailrace/lobby-backend/api/validators"
	"github.com/tailrace/lobby-backend/internal/sessions"
	"github.com/tailrace/lobby-backend/pkg/enums"
	pkgerrors "github.com/tailrace/lobby-backend/pkg/errors"
	"github.com/tailrace/lobby-backend/pkg/logger"
	"github.com/tailrace/lobby-backend/pkg/pagination"
)

type createSessionRequest struct {
	Type   string `json:"type" validate:"required"`
	Format int    `json:"format" validate:"required"`
	Stake  int64  `json:"stake" validate:"required,min=1"`
}

type completeSessionRequest struct {
	WinnerAddress string `json:"winner_address" validate:"required"`
}

// SessionCreate opens a new waiting session staked by the caller.
func SessionCreate(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		address := middleware.AddressFromContext(r.Context())
		if address == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing wallet address"))
			return
		}

		var req createSessionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		gameType, err := enums.ParseGameType(req.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid game type"))
			return
		}
		format, err := enums.ParseGameFormat(req.Format)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid game format"))
			return
		}

		session, err := svc.Create(r.Context(), sessions.CreateSessionInput{
			Creator: address,
			Type:    gameType,
			Format:  format,
			Stake:   req.Stake,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// SessionList returns the page of joinable sessions matching the filters.
func SessionList(view *sessions.View, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if view == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session view unavailable"))
			return
		}

		filters, err := parseListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 1, 1, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pageSize, err := validators.ParseQueryInt(r, "page_size", pagination.DefaultPageSize, 1, pagination.MaxPageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := view.ActiveSessions(r.Context(), filters, pagination.Params{Page: page, PageSize: pageSize})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// SessionDetail returns one session regardless of its lifecycle state.
func SessionDetail(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseSessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

// SessionJoin seats the caller as the second player and starts the game.
func SessionJoin(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := middleware.AddressFromContext(r.Context())
		if address == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing wallet address"))
			return
		}

		id, err := parseSessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Join(r.Context(), id, address)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

// SessionCancel lets the creator withdraw a waiting session and reclaim the stake.
func SessionCancel(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := middleware.AddressFromContext(r.Context())
		if address == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing wallet address"))
			return
		}

		id, err := parseSessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Cancel(r.Context(), id, address)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

// SessionComplete settles an in-progress session and pays the pot to the winner.
func SessionComplete(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseSessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req completeSessionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		winner, err := validators.Address(req.WinnerAddress)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Complete(r.Context(), id, winner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

func parseSessionID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "sessionId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid session id")
	}
	return id, nil
}

func parseListFilters(r *http.Request) (sessions.ListFilters, error) {
	var filters sessions.ListFilters

	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		gameType, err := enums.ParseGameType(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid game type")
		}
		filters.Type = &gameType
	}

	if rounds, err := validators.ParseQueryInt(r, "format", 0, 0, 7); err != nil {
		return filters, err
	} else if rounds != 0 {
		format, err := enums.ParseGameFormat(rounds)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid game format")
		}
		filters.Format = &format
	}

	stake, err := validators.ParseQueryInt64(r, "stake")
	if err != nil {
		return filters, err
	}
	filters.Stake = stake

	return filters, nil
}
