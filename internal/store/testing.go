package store

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that overwrites the balance of an existing
// wallet when using the in-memory store.
func SeedBalance(s Store, id string, amount decimal.Decimal) {
	if mem, ok := s.(*inMemoryStore); ok {
		if entry, found := mem.lookup(id); found {
			entry.mu.Lock()
			defer entry.mu.Unlock()
			entry.balance = amount
		}
	}
}

// HoldWallet is a test helper that takes the writer token of an in-memory
// wallet, simulating an in-flight mutation. The returned func releases it.
func HoldWallet(s Store, id string) func() {
	mem, ok := s.(*inMemoryStore)
	if !ok {
		return func() {}
	}
	entry, found := mem.lookup(id)
	if !found {
		return func() {}
	}
	entry.writer <- struct{}{}
	return entry.release
}
