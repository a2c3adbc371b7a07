package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tailrace/lobby-backend/api/middleware"
	"github.com/tailrace/lobby-backend/api/responses"
	"github.com/tailrace/lobby-backend/api/validators"
	"github.com/tailrace/lobby-backend/internal/profiles"
	pkgerrors "github.com/tailrace/lobby-backend/pkg/errors"
	"github.com/tailrace/lobby-backend/pkg/logger"
)

type updateNameRequest struct {
	Name string `json:"name" validate:"required,max=20"`
}

type updateAvatarRequest struct {
	Avatar string `json:"avatar" validate:"required"`
}

// ProfileMe returns the caller's profile, provisioning a default on first contact.
func ProfileMe(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := middleware.AddressFromContext(r.Context())
		if address == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing wallet address"))
			return
		}

		profile, err := svc.Get(r.Context(), address)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profile)
	}
}

// ProfileDetail returns another player's public profile.
func ProfileDetail(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address, err := validators.Address(strings.TrimSpace(chi.URLParam(r, "address")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Get(r.Context(), address)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profile)
	}
}

func ProfileUpdateName(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := middleware.AddressFromContext(r.Context())
		if address == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing wallet address"))
			return
		}

		var req updateNameRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.ChangeName(r.Context(), address, req.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profile)
	}
}

func ProfileUpdateAvatar(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := middleware.AddressFromContext(r.Context())
		if address == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing wallet address"))
			return
		}

		var req updateAvatarRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.ChangeAvatar(r.Context(), address, req.Avatar)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profile)
	}
}
