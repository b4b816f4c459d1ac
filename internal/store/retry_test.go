package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestRetryPolicyRetriesTransientErrors(t *testing.T) {
	r := RetryPolicy{MaxRetries: 2, InitialBackoff: 15 * time.Millisecond, MaxBackoff: 15 * time.Millisecond}.retrier()

	start := time.Now()
	attempts := 0
	err := r.Do(context.Background(), func(context.Context) error {
		attempts++
		return &pgconn.PgError{Code: pgSerializationFailure}
	})
	elapsed := time.Since(start)

	if !isTransient(err) {
		t.Fatalf("expected the last transient error, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if elapsed < 24*time.Millisecond {
		t.Fatalf("configured backoff not applied, took %v", elapsed)
	}
}

func TestRetryPolicyStopsOnPermanentErrors(t *testing.T) {
	r := RetryPolicy{MaxRetries: 5}.retrier()

	attempts := 0
	err := r.Do(context.Background(), func(context.Context) error {
		attempts++
		return &pgconn.PgError{Code: pgUniqueViolation}
	})
	if err == nil || attempts != 1 {
		t.Fatalf("expected one attempt and an error, got %d attempts, err %v", attempts, err)
	}
	if mapError(err) != ErrAlreadyExists {
		t.Fatalf("expected unique violation to map to ErrAlreadyExists, got %v", mapError(err))
	}
}
