package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"talkline/internal/billing"
	"talkline/internal/calls"
)

func TestReporting_SessionsSummaryBySide(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Unix(1700000000, 0).UTC()
	repo.Sessions = []calls.Session{
		{ID: "s1", InitiatorID: "t1", ResponderID: "l1", Status: calls.StatusEnded, MinutesPurchased: 30, MinutesUsed: calls.WholeMinutes(12), CreatedAt: now},
		{ID: "s2", InitiatorID: "t1", ResponderID: "l2", Status: calls.StatusTimeout, MinutesPurchased: 10, MinutesUsed: calls.WholeMinutes(10), WarningSent: true, CreatedAt: now},
		{ID: "s3", InitiatorID: "t2", ResponderID: "t1", Status: calls.StatusFailed, MinutesPurchased: 5, CreatedAt: now},
		{ID: "s4", InitiatorID: "t1", ResponderID: "l1", Status: calls.StatusActive, MinutesPurchased: 5, CreatedAt: now.Add(-48 * time.Hour)},
	}
	svc := NewService(repo)
	rng := TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)}

	out, err := svc.SessionsSummary(context.Background(), SessionsSummaryRequest{AccountID: "t1", Side: SideInitiator, Range: rng})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalSessions != 2 || out.EndedSessions != 1 || out.TimedOut != 1 {
		t.Fatalf("unexpected summary: %+v", out)
	}
	if out.MinutesUsed != calls.WholeMinutes(22) || out.AverageMinutes != calls.WholeMinutes(11) {
		t.Fatalf("unexpected minutes: %+v", out)
	}
	if out.WarningsSent != 1 {
		t.Fatalf("expected 1 warning, got %d", out.WarningsSent)
	}

	all, err := svc.SessionsSummary(context.Background(), SessionsSummaryRequest{AccountID: "t1", Range: rng})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if all.TotalSessions != 3 || all.NeverAnswered != 1 {
		t.Fatalf("expected both sides counted, got %+v", all)
	}
}

func TestReporting_SessionsSummaryValidation(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	now := time.Unix(1700000000, 0).UTC()
	cases := []SessionsSummaryRequest{
		{AccountID: "", Range: TimeRange{From: now, To: now.Add(time.Hour)}},
		{AccountID: "t1", Range: TimeRange{From: now, To: now}},
		{AccountID: "t1", Side: "observer", Range: TimeRange{From: now, To: now.Add(time.Hour)}},
	}
	for _, req := range cases {
		if _, err := svc.SessionsSummary(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest for %+v, got %v", req, err)
		}
	}
}

func TestReporting_EarningsSummaryAggregates(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Unix(1700000000, 0).UTC()
	repo.Settlements = []billing.Settlement{
		{ID: "a", PayeeID: "l1", Currency: "USD", ProratedMinor: 1000, AppFeeMinor: 100, PayeeAmountMinor: 900, FinalMinutes: calls.WholeMinutes(10), Status: billing.StatusForwarded, CreatedAt: now},
		{ID: "b", PayeeID: "l1", Currency: "USD", ProratedMinor: 333, AppFeeMinor: 33, PayeeAmountMinor: 300, FinalMinutes: calls.WholeMinutes(3) + 33, Status: billing.StatusPendingForward, CreatedAt: now},
		{ID: "c", PayeeID: "l1", Currency: "EUR", ProratedMinor: 500, AppFeeMinor: 50, PayeeAmountMinor: 450, Status: billing.StatusForwarded, CreatedAt: now},
		{ID: "d", PayeeID: "l2", Currency: "USD", ProratedMinor: 700, AppFeeMinor: 70, PayeeAmountMinor: 630, Status: billing.StatusForwarded, CreatedAt: now},
	}
	svc := NewService(repo)

	out, err := svc.EarningsSummary(context.Background(), EarningsSummaryRequest{PayeeID: "l1", Currency: "usd", Range: TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.Settlements != 2 || out.PendingForwards != 1 {
		t.Fatalf("unexpected counts: %+v", out)
	}
	if out.ProratedMinor != 1333 || out.AppFeeMinor != 133 || out.PayeeMinor != 1200 {
		t.Fatalf("unexpected amounts: %+v", out)
	}
	if out.AppFeeMinor+out.PayeeMinor != out.ProratedMinor {
		t.Fatalf("fee and payee must sum to prorated")
	}
	if out.BilledMinutes != calls.WholeMinutes(13)+33 {
		t.Fatalf("unexpected billed minutes %s", out.BilledMinutes)
	}
}

func TestReporting_EarningsSummaryEmpty(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	now := time.Unix(1700000000, 0).UTC()
	out, err := svc.EarningsSummary(context.Background(), EarningsSummaryRequest{PayeeID: "nobody", Range: TimeRange{From: now, To: now.Add(time.Hour)}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.Currency != "UNKNOWN" || out.Settlements != 0 {
		t.Fatalf("unexpected empty summary: %+v", out)
	}
}
