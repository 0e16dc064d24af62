package audit

import (
	"context"
	"sync"
)

// MemoryRepo keeps events in insertion order. Used by tests and the
// in-process stack.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a snapshot of every appended event.
func (r *MemoryRepo) Events() []Event {
	return r.filter(func(Event) bool { return true })
}

// ByType returns the events of type t, oldest first.
func (r *MemoryRepo) ByType(t EventType) []Event {
	return r.filter(func(e Event) bool { return e.Type == t })
}

// ForSubject returns the events targeting accountID.
func (r *MemoryRepo) ForSubject(accountID string) []Event {
	return r.filter(func(e Event) bool { return e.SubjectAccountID == accountID })
}

func (r *MemoryRepo) filter(keep func(Event) bool) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0, len(r.events))
	for _, e := range r.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
