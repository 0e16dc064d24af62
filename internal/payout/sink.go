package payout

import (
	"context"

	"talkline/internal/billing"
)

// Sink adapts the payout ledger to the reconciler's payout collaborator.
type Sink struct {
	svc *Service
}

func NewSink(svc *Service) *Sink { return &Sink{svc: svc} }

func (s *Sink) Forward(ctx context.Context, st billing.Settlement) error {
	_, _, err := s.svc.RecordEarning(ctx, EarningRequest{
		PayeeID:        st.PayeeID,
		SessionID:      st.SessionID,
		AmountMinor:    st.PayeeAmountMinor,
		Currency:       st.Currency,
		IdempotencyKey: st.ID,
	})
	return err
}
