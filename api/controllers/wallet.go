package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/tailrace/lobby-backend/api/middleware"
	"github.com/tailrace/lobby-backend/api/responses"
	"github.com/tailrace/lobby-backend/api/validators"
	"github.com/tailrace/lobby-backend/internal/ledger"
	pkgerrors "github.com/tailrace/lobby-backend/pkg/errors"
	"github.com/tailrace/lobby-backend/pkg/logger"
	"github.com/tailrace/lobby-backend/pkg/pagination"
)

type depositRequest struct {
	// TAIL amount as a decimal string, e.g. "12.5".
	Amount string `json:"amount" validate:"required"`
}

type withdrawRequest struct {
	Amount int64 `json:"amount" validate:"required,min=1"`
}

// WalletBalance returns the caller's GT balance, provisioning the account on
// first contact.
func WalletBalance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := middleware.AddressFromContext(r.Context())
		if address == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing wallet address"))
			return
		}

		balance, err := svc.GetBalance(r.Context(), address)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"address": address, "balance": balance})
	}
}

// WalletDeposit converts TAIL tokens into GT.
func WalletDeposit(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := middleware.AddressFromContext(r.Context())
		if address == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing wallet address"))
			return
		}

		var req depositRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "amount must be a decimal string"))
			return
		}

		result, err := svc.Deposit(r.Context(), ledger.DepositInput{Address: address, TailAmount: amount})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// WalletWithdraw converts GT back into TAIL tokens.
func WalletWithdraw(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := middleware.AddressFromContext(r.Context())
		if address == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing wallet address"))
			return
		}

		var req withdrawRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Withdraw(r.Context(), ledger.WithdrawInput{Address: address, GTAmount: req.Amount})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// SessionStakes lists the escrow entries currently held for a session.
func SessionStakes(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseSessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stakes, err := svc.StakesForSession(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"session_id": id, "stakes": stakes})
	}
}

// WalletHistory pages through the caller's transaction records, newest first.
func WalletHistory(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := middleware.AddressFromContext(r.Context())
		if address == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing wallet address"))
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

		history, err := svc.History(r.Context(), address, pagination.Params{Page: page, PageSize: pageSize})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, history)
	}
}
