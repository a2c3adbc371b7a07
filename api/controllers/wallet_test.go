package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tailrace/lobby-backend/internal/ledger"
	"github.com/tailrace/lobby-backend/pkg/db/models"
	pkgerrors "github.com/tailrace/lobby-backend/pkg/errors"
	"github.com/tailrace/lobby-backend/pkg/pagination"
	"github.com/tailrace/lobby-backend/pkg/types"
)

type testLedgerService struct {
	balanceFn  func(ctx context.Context, address string) (int64, error)
	depositFn  func(ctx context.Context, input ledger.DepositInput) (*ledger.TransferResult, error)
	withdrawFn func(ctx context.Context, input ledger.WithdrawInput) (*ledger.TransferResult, error)
	historyFn  func(ctx context.Context, address string, params pagination.Params) (*pagination.Page[models.Transaction], error)
}

func (s *testLedgerService) GetBalance(ctx context.Context, address string) (int64, error) {
	if s.balanceFn != nil {
		return s.balanceFn(ctx, address)
	}
	return 0, nil
}

func (s *testLedgerService) Deposit(ctx context.Context, input ledger.DepositInput) (*ledger.TransferResult, error) {
	if s.depositFn != nil {
		return s.depositFn(ctx, input)
	}
	return nil, nil
}

func (s *testLedgerService) Withdraw(ctx context.Context, input ledger.WithdrawInput) (*ledger.TransferResult, error) {
	if s.withdrawFn != nil {
		return s.withdrawFn(ctx, input)
	}
	return nil, nil
}

func (s *testLedgerService) Stake(ctx context.Context, tx *gorm.DB, address string, sessionID uuid.UUID, amount int64) error {
	return nil
}

func (s *testLedgerService) ReturnStake(ctx context.Context, tx *gorm.DB, address string, sessionID uuid.UUID) error {
	return nil
}

func (s *testLedgerService) Award(ctx context.Context, tx *gorm.DB, address string, sessionID uuid.UUID, amount int64) error {
	return nil
}

func (s *testLedgerService) ResolveStakes(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) error {
	return nil
}

func (s *testLedgerService) History(ctx context.Context, address string, params pagination.Params) (*pagination.Page[models.Transaction], error) {
	if s.historyFn != nil {
		return s.historyFn(ctx, address, params)
	}
	return nil, nil
}

func (s *testLedgerService) StakesForSession(ctx context.Context, sessionID uuid.UUID) ([]models.Stake, error) {
	return nil, nil
}

func TestWalletBalanceReturnsProvisionedBalance(t *testing.T) {
	svc := &testLedgerService{
		balanceFn: func(ctx context.Context, address string) (int64, error) {
			if address != testWallet {
				t.Fatalf("unexpected address %s", address)
			}
			return 1000, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/wallet/balance", nil)
	w := httptest.NewRecorder()

	WalletBalance(svc, nil)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 but got %d", w.Code)
	}

	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	payload := envelope.Data.(map[string]any)
	if payload["balance"].(float64) != 1000 {
		t.Fatalf("unexpected balance %v", payload["balance"])
	}
}

func TestWalletDepositParsesDecimalAmount(t *testing.T) {
	svc := &testLedgerService{
		depositFn: func(ctx context.Context, input ledger.DepositInput) (*ledger.TransferResult, error) {
			if !input.TailAmount.Equal(decimal.RequireFromString("12.5")) {
				t.Fatalf("unexpected amount %s", input.TailAmount)
			}
			return &ledger.TransferResult{Address: input.Address, GTAmount: 12, Balance: 1012}, nil
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/wallet/deposit", []byte(`{"amount":"12.5"}`))
	w := httptest.NewRecorder()

	WalletDeposit(svc, nil)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 but got %d: %s", w.Code, w.Body.String())
	}
}

func TestWalletDepositRejectsMalformedAmount(t *testing.T) {
	req := authedRequest(http.MethodPost, "/api/v1/wallet/deposit", []byte(`{"amount":"12.5.1"}`))
	w := httptest.NewRecorder()

	WalletDeposit(&testLedgerService{}, nil)(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 but got %d", w.Code)
	}
}

func TestWalletWithdrawMapsInsufficientFunds(t *testing.T) {
	svc := &testLedgerService{
		withdrawFn: func(ctx context.Context, input ledger.WithdrawInput) (*ledger.TransferResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient GT balance")
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/wallet/withdraw", []byte(`{"amount":999999}`))
	w := httptest.NewRecorder()

	WalletWithdraw(svc, nil)(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 but got %d", w.Code)
	}
}

func TestWalletHistoryRequiresAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/history", nil)
	w := httptest.NewRecorder()

	WalletHistory(&testLedgerService{}, nil)(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 but got %d", w.Code)
	}
}

func TestWalletHistoryPassesPagination(t *testing.T) {
	svc := &testLedgerService{
		historyFn: func(ctx context.Context, address string, params pagination.Params) (*pagination.Page[models.Transaction], error) {
			if params.Page != 2 || params.PageSize != 5 {
				t.Fatalf("unexpected params %+v", params)
			}
			page := pagination.NewPage([]models.Transaction{}, 0, params)
			return &page, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/wallet/history?page=2&page_size=5", nil)
	w := httptest.NewRecorder()

	WalletHistory(svc, nil)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 but got %d", w.Code)
	}
}
