package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletd/internal/money"
	"github.com/congo-pay/walletd/internal/retrier"
)

const (
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
	pgNumericOutOfRange    = "22003"
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// RetryPolicy bounds how serialization failures and deadlocks are retried.
// Zero backoff values keep the retrier defaults.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (p RetryPolicy) retrier() *retrier.Retrier {
	opts := []retrier.Option{retrier.WithMaxRetries(p.MaxRetries), retrier.WithRetryable(isTransient)}
	if p.InitialBackoff > 0 {
		opts = append(opts, retrier.WithInitialInterval(p.InitialBackoff))
	}
	if p.MaxBackoff > 0 {
		opts = append(opts, retrier.WithMaxInterval(p.MaxBackoff))
	}
	return retrier.New(opts...)
}

// PostgresStore persists wallets in PostgreSQL. Every call works on its own
// pooled connection which is returned to the pool before the call returns.
type PostgresStore struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
	retry       *retrier.Retrier
}

// NewPostgresStore constructs a Postgres-backed store. Row lock waits are bounded
// by lockTimeout; serialization failures and deadlocks are retried per policy
// before ErrConflict is returned.
func NewPostgresStore(db *pgxpool.Pool, lockTimeout time.Duration, policy RetryPolicy) *PostgresStore {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &PostgresStore{
		db:          db,
		lockTimeout: lockTimeout,
		retry:       policy.retrier(),
	}
}

// Create inserts a wallet record.
func (s *PostgresStore) Create(ctx context.Context, id string, initialBalance decimal.Decimal) (Wallet, error) {
	if err := money.ValidateNonNegative(initialBalance); err != nil {
		return Wallet{}, err
	}

	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return Wallet{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `INSERT INTO wallets (uuid, balance) VALUES ($1, $2)
        ON CONFLICT (uuid) DO NOTHING`, id, toNumeric(initialBalance))
	if err != nil {
		return Wallet{}, mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return Wallet{}, ErrAlreadyExists
	}
	return Wallet{ID: id, Balance: initialBalance}, nil
}

// Get fetches the committed balance of a wallet.
func (s *PostgresStore) Get(ctx context.Context, id string) (Wallet, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return Wallet{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var balance pgtype.Numeric
	if err := conn.QueryRow(ctx, `SELECT balance FROM wallets WHERE uuid = $1`, id).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, mapError(err)
	}
	amount, err := fromNumeric(balance)
	if err != nil {
		return Wallet{}, err
	}
	return Wallet{ID: id, Balance: amount}, nil
}

// List returns every wallet ordered by identifier.
func (s *PostgresStore) List(ctx context.Context) ([]Wallet, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT uuid, balance FROM wallets ORDER BY uuid`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	wallets := make([]Wallet, 0)
	for rows.Next() {
		var (
			id      string
			balance pgtype.Numeric
		)
		if err := rows.Scan(&id, &balance); err != nil {
			return nil, err
		}
		amount, err := fromNumeric(balance)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, Wallet{ID: id, Balance: amount})
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return wallets, nil
}

// Delete removes a wallet regardless of its balance.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	return s.withTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM wallets WHERE uuid = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ApplyDelta locks the wallet row, checks the resulting balance and commits it.
func (s *PostgresStore) ApplyDelta(ctx context.Context, id string, delta decimal.Decimal) (Wallet, error) {
	var updated Wallet
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		return s.withTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			var current pgtype.Numeric
			err := tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE uuid = $1 FOR UPDATE`, id).Scan(&current)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrNotFound
				}
				return err
			}
			balance, err := fromNumeric(current)
			if err != nil {
				return err
			}

			next := balance.Add(delta)
			if next.IsNegative() {
				return ErrInsufficientFunds
			}
			if next.GreaterThan(money.Max) {
				return fmt.Errorf("%w: balance would exceed %s", money.ErrInvalidAmount, money.Format(money.Max))
			}

			if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = $2 WHERE uuid = $1`, id, toNumeric(next)); err != nil {
				return err
			}
			updated = Wallet{ID: id, Balance: next}
			return nil
		})
	})
	if err != nil {
		if isTransient(err) {
			return Wallet{}, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return Wallet{}, err
	}
	return updated, nil
}

// withTx runs fn inside a transaction on a freshly acquired connection. The
// transaction is rolled back unless fn succeeds and the commit goes through.
func (s *PostgresStore) withTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapError(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	timeout := fmt.Sprintf("%dms", s.lockTimeout.Milliseconds())
	if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, timeout); err != nil {
		return mapError(err)
	}

	if err := fn(ctx, tx); err != nil {
		return mapError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

// mapError translates Postgres failures into store errors. Serialization
// failures and deadlocks are left as *pgconn.PgError so the retrier sees them.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return ErrAlreadyExists
	case pgCheckViolation:
		return ErrInsufficientFunds
	case pgNumericOutOfRange:
		return fmt.Errorf("%w: %s", money.ErrInvalidAmount, pgErr.Message)
	case pgLockNotAvailable:
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
	default:
		return err
	}
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
}

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite {
		return decimal.Decimal{}, fmt.Errorf("%w: stored balance is not a finite number", money.ErrInvalidAmount)
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}
