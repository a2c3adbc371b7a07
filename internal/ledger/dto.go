package ledger

import (
	"github.com/shopspring/decimal"
)

// DepositInput converts TAIL tokens into GT credited to the account.
type DepositInput struct {
	Address    string
	TailAmount decimal.Decimal
}

// WithdrawInput converts GT back into TAIL tokens.
type WithdrawInput struct {
	Address  string
	GTAmount int64
}

// TransferResult reports the outcome of a deposit or withdrawal.
type TransferResult struct {
	Address    string          `json:"address"`
	GTAmount   int64           `json:"gt_amount"`
	TailAmount decimal.Decimal `json:"tail_amount"`
	Balance    int64           `json:"balance"`
}
