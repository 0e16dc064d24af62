package calls

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory session store for tests and local runs.
// Each session has its own lock so updates to different sessions run in parallel.
type MemoryRepo struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
}

type memorySession struct {
	mu sync.Mutex
	s  Session
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{sessions: map[string]*memorySession{}} }

func (r *MemoryRepo) Create(ctx context.Context, s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; ok {
		return errors.New("calls: session already exists")
	}
	r.sessions[s.ID] = &memorySession{s: s}
	return nil
}

func (r *MemoryRepo) entry(id string) (*memorySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Session, error) {
	e, err := r.entry(id)
	if err != nil {
		return Session{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s, nil
}

func (r *MemoryRepo) Update(ctx context.Context, id string, fn func(*Session) error) (Session, error) {
	e, err := r.entry(id)
	if err != nil {
		return Session{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	cp := e.s
	if err := fn(&cp); err != nil {
		return Session{}, err
	}
	e.s = cp
	return cp, nil
}

func (r *MemoryRepo) ListOpen(ctx context.Context) ([]Session, error) {
	r.mu.Lock()
	entries := make([]*memorySession, 0, len(r.sessions))
	for _, e := range r.sessions {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	out := make([]Session, 0)
	for _, e := range entries {
		e.mu.Lock()
		s := e.s
		e.mu.Unlock()
		if !s.IsTerminal() {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
