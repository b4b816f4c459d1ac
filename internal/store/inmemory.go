package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletd/internal/money"
)

// DefaultLockTimeout bounds how long ApplyDelta waits for a busy wallet.
const DefaultLockTimeout = 5 * time.Second

type memoryEntry struct {
	// writer is a single-slot token held for the whole read-modify-write.
	writer chan struct{}

	mu      sync.RWMutex
	balance decimal.Decimal
	deleted bool
}

func (e *memoryEntry) acquire(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case e.writer <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrConflict
	}
}

func (e *memoryEntry) release() {
	<-e.writer
}

func (e *memoryEntry) snapshot() (decimal.Decimal, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.balance, !e.deleted
}

type inMemoryStore struct {
	mu          sync.RWMutex
	wallets     map[string]*memoryEntry
	lockTimeout time.Duration
}

// MemoryOption configures the in-memory store.
type MemoryOption func(*inMemoryStore)

// WithLockTimeout overrides how long ApplyDelta waits for a busy wallet.
func WithLockTimeout(d time.Duration) MemoryOption {
	return func(s *inMemoryStore) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// NewInMemory creates a concurrency-safe in-memory store. Mutations on one
// wallet are serialized by a per-wallet writer token; different wallets never
// wait on each other.
func NewInMemory(opts ...MemoryOption) Store {
	s := &inMemoryStore{
		wallets:     make(map[string]*memoryEntry),
		lockTimeout: DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *inMemoryStore) Create(_ context.Context, id string, initialBalance decimal.Decimal) (Wallet, error) {
	if err := money.ValidateNonNegative(initialBalance); err != nil {
		return Wallet{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.wallets[id]; exists {
		return Wallet{}, ErrAlreadyExists
	}
	s.wallets[id] = &memoryEntry{
		writer:  make(chan struct{}, 1),
		balance: initialBalance,
	}
	return Wallet{ID: id, Balance: initialBalance}, nil
}

func (s *inMemoryStore) Get(_ context.Context, id string) (Wallet, error) {
	entry, ok := s.lookup(id)
	if !ok {
		return Wallet{}, ErrNotFound
	}
	balance, live := entry.snapshot()
	if !live {
		return Wallet{}, ErrNotFound
	}
	return Wallet{ID: id, Balance: balance}, nil
}

func (s *inMemoryStore) List(_ context.Context) ([]Wallet, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.wallets))
	entries := make(map[string]*memoryEntry, len(s.wallets))
	for id, entry := range s.wallets {
		ids = append(ids, id)
		entries[id] = entry
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	wallets := make([]Wallet, 0, len(ids))
	for _, id := range ids {
		balance, live := entries[id].snapshot()
		if !live {
			continue
		}
		wallets = append(wallets, Wallet{ID: id, Balance: balance})
	}
	return wallets, nil
}

func (s *inMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	entry, ok := s.wallets[id]
	if ok {
		delete(s.wallets, id)
	}
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	entry.mu.Lock()
	entry.deleted = true
	entry.mu.Unlock()
	return nil
}

func (s *inMemoryStore) ApplyDelta(ctx context.Context, id string, delta decimal.Decimal) (Wallet, error) {
	entry, ok := s.lookup(id)
	if !ok {
		return Wallet{}, ErrNotFound
	}

	if err := entry.acquire(ctx, s.lockTimeout); err != nil {
		return Wallet{}, fmt.Errorf("lock wallet %s: %w", id, err)
	}
	defer entry.release()

	current, live := entry.snapshot()
	if !live {
		return Wallet{}, ErrNotFound
	}

	next := current.Add(delta)
	if next.IsNegative() {
		return Wallet{}, ErrInsufficientFunds
	}
	if next.GreaterThan(money.Max) {
		return Wallet{}, fmt.Errorf("%w: balance would exceed %s", money.ErrInvalidAmount, money.Format(money.Max))
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return Wallet{}, ErrNotFound
	}
	// Last point at which an aborted caller can still back out.
	if err := ctx.Err(); err != nil {
		return Wallet{}, err
	}
	entry.balance = next
	return Wallet{ID: id, Balance: next}, nil
}

func (s *inMemoryStore) lookup(id string) (*memoryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.wallets[id]
	return entry, ok
}
