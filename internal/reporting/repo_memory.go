package reporting

import (
	"context"
	"sync"
	"time"

	"talkline/internal/billing"
	"talkline/internal/calls"
)

// MemoryRepo is a simple in-memory reporting repository for tests and early development.
type MemoryRepo struct {
	mu sync.Mutex

	Sessions    []calls.Session
	Settlements []billing.Settlement
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func inRange(t, from, to time.Time) bool { return !t.Before(from) && t.Before(to) }

func (r *MemoryRepo) ListSessions(ctx context.Context, accountID string, side Side, from, to time.Time) ([]calls.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]calls.Session, 0)
	for _, s := range r.Sessions {
		if !inRange(s.CreatedAt, from, to) {
			continue
		}
		initiator := s.InitiatorID == accountID
		responder := s.ResponderID == accountID
		switch side {
		case SideInitiator:
			if !initiator {
				continue
			}
		case SideResponder:
			if !responder {
				continue
			}
		default:
			if !initiator && !responder {
				continue
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *MemoryRepo) ListSettlements(ctx context.Context, payeeID string, from, to time.Time) ([]billing.Settlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]billing.Settlement, 0)
	for _, st := range r.Settlements {
		if st.PayeeID != payeeID || !inRange(st.CreatedAt, from, to) {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}
