package wallet

import (
	"errors"

	"github.com/shopspring/decimal"
)

const maxWalletIDLength = 64

var (
	// ErrInvalidOperation indicates an unrecognized operation type.
	ErrInvalidOperation = errors.New("invalid operation type")

	// ErrInvalidWalletID indicates an empty or oversized wallet identifier.
	ErrInvalidWalletID = errors.New("invalid wallet id")
)

// OperationType is the kind of balance change requested.
type OperationType string

const (
	OperationDeposit  OperationType = "DEPOSIT"
	OperationWithdraw OperationType = "WITHDRAW"
)

// delta maps the operation onto the signed amount applied to the balance.
func (t OperationType) delta(amount decimal.Decimal) decimal.Decimal {
	if t == OperationWithdraw {
		return amount.Neg()
	}
	return amount
}

// Wallet is the caller-facing view of a stored wallet.
type Wallet struct {
	ID      string
	Balance decimal.Decimal
}

// OperationResult confirms a committed operation.
type OperationResult struct {
	WalletID string
	Type     OperationType
	Balance  decimal.Decimal
}
