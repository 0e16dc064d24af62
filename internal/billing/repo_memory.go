package billing

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryPackages is a fixed package catalog for tests and local runs.
type MemoryPackages struct {
	mu       sync.Mutex
	packages map[string]PackageRecord
}

func NewMemoryPackages(pkgs ...PackageRecord) *MemoryPackages {
	m := &MemoryPackages{packages: map[string]PackageRecord{}}
	for _, p := range pkgs {
		m.packages[p.ID] = p
	}
	return m
}

func (m *MemoryPackages) Put(p PackageRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packages[p.ID] = p
}

func (m *MemoryPackages) GetPackage(ctx context.Context, id string) (PackageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.packages[id]
	if !ok {
		return PackageRecord{}, ErrNotFound
	}
	return p, nil
}

// MemoryStore is an in-memory settlement store.
type MemoryStore struct {
	mu        sync.Mutex
	byID      map[string]*Settlement
	bySession map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: map[string]*Settlement{}, bySession: map[string]string{}}
}

func (m *MemoryStore) Create(ctx context.Context, s Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bySession[s.SessionID]; ok {
		return ErrAlreadySettled
	}
	cp := s
	m.byID[s.ID] = &cp
	m.bySession[s.SessionID] = s.ID
	return nil
}

func (m *MemoryStore) GetBySession(ctx context.Context, sessionID string) (Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.bySession[sessionID]
	if !ok {
		return Settlement{}, ErrNotFound
	}
	return *m.byID[id], nil
}

func (m *MemoryStore) MarkForwarded(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = StatusForwarded
	s.ForwardAttempts++
	s.LastError = ""
	s.ForwardedAt = &at
	return nil
}

func (m *MemoryStore) RecordForwardFailure(ctx context.Context, id, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	s.ForwardAttempts++
	s.LastError = msg
	return nil
}

func (m *MemoryStore) ListPending(ctx context.Context, limit int) ([]Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Settlement, 0)
	for _, s := range m.byID {
		if s.Status == StatusPendingForward {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
