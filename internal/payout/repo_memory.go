package payout

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory payout ledger for tests and local runs.
type MemoryRepo struct {
	mu      sync.Mutex
	entries []Entry
	byKey   map[string]int
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{byKey: map[string]int{}} }

func (r *MemoryRepo) Insert(ctx context.Context, e Entry) (Entry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := e.PayeeID + "|" + e.IdempotencyKey
	if i, ok := r.byKey[key]; ok {
		return r.entries[i], false, nil
	}
	r.byKey[key] = len(r.entries)
	r.entries = append(r.entries, e)
	return e, true, nil
}

func (r *MemoryRepo) ListByPayee(ctx context.Context, payeeID string) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0)
	for _, e := range r.entries {
		if e.PayeeID == payeeID {
			out = append(out, e)
		}
	}
	return out, nil
}
