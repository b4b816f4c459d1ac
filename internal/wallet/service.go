package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletd/internal/metrics"
	"github.com/congo-pay/walletd/internal/money"
	"github.com/congo-pay/walletd/internal/notification"
	"github.com/congo-pay/walletd/internal/store"
)

// Service validates wallet requests and drives the store's atomic primitives.
type Service struct {
	store    store.Store
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService builds a wallet service instance. notifier may be nil.
func NewService(st store.Store, notifier notification.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, notifier: notifier, logger: logger}
}

// CreateInput captures data required to create a wallet.
type CreateInput struct {
	ID             string
	InitialBalance decimal.Decimal
}

// OperationInput captures a deposit or withdrawal request.
type OperationInput struct {
	WalletID string
	Type     string
	Amount   decimal.Decimal
}

// Create provisions a wallet with an optional non-negative opening balance.
func (s *Service) Create(ctx context.Context, input CreateInput) (Wallet, error) {
	if err := validateID(input.ID); err != nil {
		return Wallet{}, err
	}
	if err := money.ValidateNonNegative(input.InitialBalance); err != nil {
		return Wallet{}, err
	}

	w, err := s.store.Create(ctx, input.ID, input.InitialBalance)
	if err != nil {
		return Wallet{}, err
	}
	metrics.RecordWalletCreated()
	s.logger.InfoContext(ctx, "wallet created",
		slog.String("wallet_id", w.ID),
		slog.String("balance", money.Format(w.Balance)),
	)
	return Wallet(w), nil
}

// Get returns the committed balance of a wallet.
func (s *Service) Get(ctx context.Context, id string) (Wallet, error) {
	if err := validateID(id); err != nil {
		return Wallet{}, err
	}
	w, err := s.store.Get(ctx, id)
	if err != nil {
		return Wallet{}, err
	}
	return Wallet(w), nil
}

// List returns every wallet.
func (s *Service) List(ctx context.Context) ([]Wallet, error) {
	stored, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	wallets := make([]Wallet, len(stored))
	for i, w := range stored {
		wallets[i] = Wallet(w)
	}
	return wallets, nil
}

// Delete removes a wallet whatever its balance.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	metrics.RecordWalletDeleted()
	s.notify(ctx, notification.Message{
		Kind:     notification.KindWalletDeleted,
		WalletID: id,
		Body:     fmt.Sprintf("wallet %s deleted", id),
	})
	return nil
}

// PerformOperation validates a deposit or withdrawal and applies it as a single
// atomic balance change. Store errors are returned unchanged.
func (s *Service) PerformOperation(ctx context.Context, input OperationInput) (OperationResult, error) {
	opType, err := parseOperationType(input.Type)
	if err != nil {
		metrics.RecordOperation("unknown", resultLabel(err))
		return OperationResult{}, err
	}
	if err := money.ValidatePositive(input.Amount); err != nil {
		metrics.RecordOperation(string(opType), resultLabel(err))
		return OperationResult{}, err
	}
	if err := validateID(input.WalletID); err != nil {
		metrics.RecordOperation(string(opType), resultLabel(err))
		return OperationResult{}, err
	}

	w, err := s.store.ApplyDelta(ctx, input.WalletID, opType.delta(input.Amount))
	metrics.RecordOperation(string(opType), resultLabel(err))
	if err != nil {
		s.logger.InfoContext(ctx, "wallet operation rejected",
			slog.String("wallet_id", input.WalletID),
			slog.String("operation_type", string(opType)),
			slog.String("amount", money.Format(input.Amount)),
			slog.Any("error", err),
		)
		return OperationResult{}, err
	}

	s.notify(ctx, notification.Message{
		Kind:     notification.KindWalletOperation,
		WalletID: w.ID,
		Body:     fmt.Sprintf("%s %s, balance %s", opType, money.Format(input.Amount), money.Format(w.Balance)),
	})

	return OperationResult{WalletID: w.ID, Type: opType, Balance: w.Balance}, nil
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "notification failed", slog.String("kind", msg.Kind), slog.Any("error", err))
	}
}

func parseOperationType(raw string) (OperationType, error) {
	switch t := OperationType(raw); t {
	case OperationDeposit, OperationWithdraw:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOperation, raw)
	}
}

func validateID(id string) error {
	if id == "" || utf8.RuneCountInString(id) > maxWalletIDLength {
		return fmt.Errorf("%w: must be 1 to %d characters", ErrInvalidWalletID, maxWalletIDLength)
	}
	return nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidOperation):
		return "invalid_operation"
	case errors.Is(err, money.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInvalidWalletID):
		return "invalid_wallet_id"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, store.ErrConflict):
		return "conflict"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
