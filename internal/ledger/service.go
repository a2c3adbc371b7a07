package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tailrace/lobby-backend/pkg/config"
	"github.com/tailrace/lobby-backend/pkg/db"
	"github.com/tailrace/lobby-backend/pkg/db/models"
	"github.com/tailrace/lobby-backend/pkg/enums"
	pkgerrors "github.com/tailrace/lobby-backend/pkg/errors"
	"github.com/tailrace/lobby-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo            Repository
	tx              txRunner
	startingBalance int64
	rate            decimal.Decimal
}

// NewService wires the ledger with the provided repository and transaction runner.
func NewService(repo Repository, tx txRunner, cfg config.LobbyConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	rate, err := cfg.Rate()
	if err != nil {
		return nil, err
	}
	return &service{
		repo:            repo,
		tx:              tx,
		startingBalance: cfg.StartingBalance,
		rate:            rate,
	}, nil
}

func (s *service) GetBalance(ctx context.Context, address string) (int64, error) {
	if address == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "account address required")
	}

	var balance int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		account, err := s.ensureAccount(ctx, s.repo.WithTx(tx), address)
		if err != nil {
			return err
		}
		balance = account.Balance
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *service) Deposit(ctx context.Context, input DepositInput) (*TransferResult, error) {
	if input.Address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account address required")
	}
	if !input.TailAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit amount must be positive")
	}

	gt := input.TailAmount.Mul(s.rate).IntPart()
	if gt <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit amount too small to convert")
	}

	result := &TransferResult{Address: input.Address, GTAmount: gt, TailAmount: input.TailAmount}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.ensureAccount(ctx, repo, input.Address); err != nil {
			return err
		}
		ok, err := repo.AdjustBalance(ctx, input.Address, gt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit deposit")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeDependency, "deposit could not be applied")
		}
		if err := repo.CreateTransaction(ctx, &models.Transaction{
			ID:             uuid.New(),
			AccountAddress: input.Address,
			Type:           enums.TransactionTypeDeposit,
			Amount:         gt,
			Status:         enums.TransactionStatusCompleted,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record deposit")
		}
		// re-read after the credit so concurrent writers are reflected
		account, err := repo.FindAccount(ctx, input.Address)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload account")
		}
		result.Balance = account.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Withdraw(ctx context.Context, input WithdrawInput) (*TransferResult, error) {
	if input.Address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account address required")
	}
	if input.GTAmount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdraw amount must be positive")
	}

	// provision outside the debit tx so a failed attempt can still be recorded
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.ensureAccount(ctx, s.repo.WithTx(tx), input.Address)
		return err
	}); err != nil {
		return nil, err
	}

	tail := decimal.NewFromInt(input.GTAmount).Div(s.rate)
	result := &TransferResult{Address: input.Address, GTAmount: input.GTAmount, TailAmount: tail}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.AdjustBalance(ctx, input.Address, -input.GTAmount)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit withdrawal")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "withdrawal exceeds available balance")
		}
		if err := repo.CreateTransaction(ctx, &models.Transaction{
			ID:             uuid.New(),
			AccountAddress: input.Address,
			Type:           enums.TransactionTypeWithdraw,
			Amount:         -input.GTAmount,
			Status:         enums.TransactionStatusCompleted,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record withdrawal")
		}
		// re-read after the debit so concurrent writers are reflected
		account, err := repo.FindAccount(ctx, input.Address)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload account")
		}
		result.Balance = account.Balance
		return nil
	})
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds) {
			// keep the failed attempt in the history; the funding tx rolled back
			_ = s.repo.CreateTransaction(ctx, &models.Transaction{
				ID:             uuid.New(),
				AccountAddress: input.Address,
				Type:           enums.TransactionTypeWithdraw,
				Amount:         -input.GTAmount,
				Status:         enums.TransactionStatusFailed,
			})
		}
		return nil, err
	}
	return result, nil
}

func (s *service) Stake(ctx context.Context, tx *gorm.DB, address string, sessionID uuid.UUID, amount int64) error {
	if address == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "account address required")
	}
	if sessionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stake amount must be positive")
	}

	repo := s.repo.WithTx(tx)
	if _, err := s.ensureAccount(ctx, repo, address); err != nil {
		return err
	}

	ok, err := repo.AdjustBalance(ctx, address, -amount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit stake")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "stake exceeds available balance")
	}

	if err := repo.CreateStake(ctx, &models.Stake{
		AccountAddress: address,
		SessionID:      sessionID,
		Amount:         amount,
	}); err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.New(pkgerrors.CodeConflict, "stake already held for session")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stake")
	}

	if err := repo.CreateTransaction(ctx, &models.Transaction{
		ID:             uuid.New(),
		AccountAddress: address,
		Type:           enums.TransactionTypeStake,
		Amount:         -amount,
		SessionID:      &sessionID,
		Status:         enums.TransactionStatusCompleted,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stake")
	}
	return nil
}

// ReturnStake releases an escrowed stake back to the account. When no stake
// entry exists the call is a no-op, so retried cancellations cannot double-refund.
func (s *service) ReturnStake(ctx context.Context, tx *gorm.DB, address string, sessionID uuid.UUID) error {
	if address == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "account address required")
	}
	if sessionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}

	repo := s.repo.WithTx(tx)
	stake, err := repo.FindStake(ctx, address, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stake")
	}

	deleted, err := repo.DeleteStake(ctx, address, sessionID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release stake")
	}
	if deleted == 0 {
		return nil
	}

	ok, err := repo.AdjustBalance(ctx, address, stake.Amount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit stake return")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeDependency, "stake return could not be applied")
	}

	if err := repo.CreateTransaction(ctx, &models.Transaction{
		ID:             uuid.New(),
		AccountAddress: address,
		Type:           enums.TransactionTypeStakeReturn,
		Amount:         stake.Amount,
		SessionID:      &sessionID,
		Status:         enums.TransactionStatusCompleted,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stake return")
	}
	return nil
}

func (s *service) Award(ctx context.Context, tx *gorm.DB, address string, sessionID uuid.UUID, amount int64) error {
	if address == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "account address required")
	}
	if sessionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "award amount must be positive")
	}

	repo := s.repo.WithTx(tx)
	if _, err := s.ensureAccount(ctx, repo, address); err != nil {
		return err
	}

	ok, err := repo.AdjustBalance(ctx, address, amount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit award")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeDependency, "award could not be applied")
	}

	if err := repo.CreateTransaction(ctx, &models.Transaction{
		ID:             uuid.New(),
		AccountAddress: address,
		Type:           enums.TransactionTypeAward,
		Amount:         amount,
		SessionID:      &sessionID,
		Status:         enums.TransactionStatusCompleted,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record award")
	}
	return nil
}

// ResolveStakes consumes every remaining escrow entry for a finished session.
func (s *service) ResolveStakes(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) error {
	if sessionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if _, err := s.repo.WithTx(tx).DeleteStakesBySession(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve stakes")
	}
	return nil
}

func (s *service) History(ctx context.Context, address string, params pagination.Params) (*pagination.Page[models.Transaction], error) {
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account address required")
	}
	txns, total, err := s.repo.ListTransactions(ctx, address, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	page := pagination.NewPage(txns, int(total), params)
	return &page, nil
}

func (s *service) StakesForSession(ctx context.Context, sessionID uuid.UUID) ([]models.Stake, error) {
	if sessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	stakes, err := s.repo.ListStakesBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stakes")
	}
	return stakes, nil
}

// ensureAccount lazily provisions the account with the starting balance on
// first touch, recording the grant as a deposit.
func (s *service) ensureAccount(ctx context.Context, repo Repository, address string) (*models.Account, error) {
	account, err := repo.FindAccount(ctx, address)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}

	account = &models.Account{Address: address, Balance: s.startingBalance}
	if err := repo.CreateAccount(ctx, account); err != nil {
		if db.IsUniqueViolation(err, "") {
			// lost the provisioning race; the winner's row is authoritative
			return repo.FindAccount(ctx, address)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
	}

	if s.startingBalance > 0 {
		if err := repo.CreateTransaction(ctx, &models.Transaction{
			ID:             uuid.New(),
			AccountAddress: address,
			Type:           enums.TransactionTypeDeposit,
			Amount:         s.startingBalance,
			Status:         enums.TransactionStatusCompleted,
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record starting balance")
		}
	}
	return account, nil
}
