package reporting

import (
	"context"
	"errors"
	"strings"
	"time"

	"talkline/internal/billing"
	"talkline/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts read access for reporting.
// Implementations query the session and settlement tables without locking.
type Repository interface {
	ListSessions(ctx context.Context, accountID string, side Side, from, to time.Time) ([]calls.Session, error)
	ListSettlements(ctx context.Context, payeeID string, from, to time.Time) ([]billing.Settlement, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) SessionsSummary(ctx context.Context, req SessionsSummaryRequest) (SessionsSummary, error) {
	req.AccountID = strings.TrimSpace(req.AccountID)
	if req.AccountID == "" || !req.Side.valid() || !req.Range.valid() {
		return SessionsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return SessionsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListSessions(ctx, req.AccountID, req.Side, req.Range.From, req.Range.To)
	if err != nil {
		return SessionsSummary{}, err
	}

	out := SessionsSummary{AccountID: req.AccountID, Side: req.Side}
	for _, sess := range rows {
		out.TotalSessions++
		out.MinutesUsed += sess.MinutesUsed
		out.MinutesPurchased += sess.MinutesPurchased
		if sess.WarningSent {
			out.WarningsSent++
		}
		switch sess.Status {
		case calls.StatusConnecting, calls.StatusActive:
			out.OpenSessions++
		case calls.StatusEnded:
			out.EndedSessions++
		case calls.StatusTimeout:
			out.TimedOut++
		case calls.StatusFailed:
			out.NeverAnswered++
		}
	}
	if out.TotalSessions > 0 {
		out.AverageMinutes = out.MinutesUsed / calls.Minutes(out.TotalSessions)
	}
	return out, nil
}

func (s *Service) EarningsSummary(ctx context.Context, req EarningsSummaryRequest) (EarningsSummary, error) {
	req.PayeeID = strings.TrimSpace(req.PayeeID)
	if req.PayeeID == "" || !req.Range.valid() {
		return EarningsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return EarningsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListSettlements(ctx, req.PayeeID, req.Range.From, req.Range.To)
	if err != nil {
		return EarningsSummary{}, err
	}

	out := EarningsSummary{PayeeID: req.PayeeID, Currency: strings.ToUpper(req.Currency)}
	for _, st := range rows {
		if out.Currency == "" {
			out.Currency = st.Currency
		}
		if st.Currency != out.Currency {
			continue
		}
		out.Settlements++
		if st.Status == billing.StatusPendingForward {
			out.PendingForwards++
		}
		out.ProratedMinor += st.ProratedMinor
		out.AppFeeMinor += st.AppFeeMinor
		out.PayeeMinor += st.PayeeAmountMinor
		out.BilledMinutes += st.FinalMinutes
	}
	if out.Currency == "" {
		out.Currency = "UNKNOWN"
	}
	return out, nil
}
