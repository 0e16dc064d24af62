package payout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("payout: not found")
	ErrInvalidArgument = errors.New("payout: invalid argument")
)

// Repository persists payout entries.
//
// Insert must be idempotent on (payee_id, idempotency_key): a retry returns the
// entry that already exists and created=false.
type Repository interface {
	Insert(ctx context.Context, e Entry) (Entry, bool, error)
	ListByPayee(ctx context.Context, payeeID string) ([]Entry, error)
}

// Service is the payee payout ledger.
//
// Money invariants:
// - Entries are append-only.
// - Every earning is keyed by a settlement id, so forwarding twice never pays twice.
type Service struct {
	repo Repository
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

type EarningRequest struct {
	PayeeID        string
	SessionID      string
	AmountMinor    int64
	Currency       string
	IdempotencyKey string
}

// RecordEarning appends a pending earning for a payee.
func (s *Service) RecordEarning(ctx context.Context, req EarningRequest) (Entry, bool, error) {
	if err := validateEarning(req); err != nil {
		return Entry{}, false, err
	}

	e := Entry{
		ID:             uuid.NewString(),
		PayeeID:        req.PayeeID,
		Type:           EntryTypeEarning,
		AmountMinor:    req.AmountMinor,
		Currency:       req.Currency,
		SessionID:      req.SessionID,
		IdempotencyKey: req.IdempotencyKey,
		Status:         EntryStatusPending,
		CreatedAt:      s.clock().UTC(),
	}
	return s.repo.Insert(ctx, e)
}

// Balance sums a payee's entries for one currency.
func (s *Service) Balance(ctx context.Context, payeeID, currency string) (Balance, error) {
	if payeeID == "" || currency == "" {
		return Balance{}, ErrInvalidArgument
	}
	entries, err := s.repo.ListByPayee(ctx, payeeID)
	if err != nil {
		return Balance{}, err
	}

	out := Balance{PayeeID: payeeID, Currency: currency}
	for _, e := range entries {
		if e.Currency != currency || e.Status == EntryStatusFailed {
			continue
		}
		if e.Type == EntryTypeEarning {
			out.EarnedMinor += e.AmountMinor
			if e.Status == EntryStatusPending {
				out.PendingMinor += e.AmountMinor
			}
		}
		out.BalanceMinor += e.AmountMinor
	}
	return out, nil
}

func validateEarning(req EarningRequest) error {
	if req.PayeeID == "" || req.Currency == "" || req.IdempotencyKey == "" {
		return ErrInvalidArgument
	}
	// Zero is allowed: a session that never accrued usage still settles.
	if req.AmountMinor < 0 {
		return ErrInvalidArgument
	}
	return nil
}
