// Package store owns wallet records and the atomic balance mutation primitive.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates the referenced wallet does not exist.
	ErrNotFound = errors.New("wallet not found")

	// ErrAlreadyExists indicates a wallet with the same identifier is present.
	ErrAlreadyExists = errors.New("wallet already exists")

	// ErrInsufficientFunds occurs when applying a delta would drive the balance
	// below zero. The stored balance is left untouched.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConflict reports that the wallet stayed locked by concurrent updates
	// longer than the store is willing to wait, or that conflict retries ran out.
	ErrConflict = errors.New("wallet busy: concurrent update conflict")
)

// Wallet is a committed snapshot of a wallet record.
type Wallet struct {
	ID      string
	Balance decimal.Decimal
}

// Store defines the contract implemented by wallet backends (in-memory, Postgres).
type Store interface {
	Create(ctx context.Context, id string, initialBalance decimal.Decimal) (Wallet, error)
	Get(ctx context.Context, id string) (Wallet, error)
	List(ctx context.Context) ([]Wallet, error)
	Delete(ctx context.Context, id string) error
	// ApplyDelta adds delta to the wallet balance atomically. Concurrent calls
	// on the same wallet are linearized.
	ApplyDelta(ctx context.Context, id string, delta decimal.Decimal) (Wallet, error)
}
