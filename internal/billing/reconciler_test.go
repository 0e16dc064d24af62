package billing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"talkline/internal/audit"
	"talkline/internal/calls"
)

type fakeSink struct {
	mu   sync.Mutex
	got  []Settlement
	fail error
}

func (f *fakeSink) Forward(ctx context.Context, s Settlement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.got = append(f.got, s)
	return nil
}

type fixture struct {
	calls *calls.Service
	store *MemoryStore
	sink  *fakeSink
	audit *audit.MemoryRepo
	rec   *Reconciler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	callSvc := calls.NewService(calls.NewMemoryRepo(), calls.Options{})
	pkgs := NewMemoryPackages(PackageRecord{ID: "pkg-30", PayerID: "talker-1", MinutesPurchased: 30, UnitPriceMinor: 3000, Currency: "USD"})
	store := NewMemoryStore()
	sink := &fakeSink{}
	auditRepo := audit.NewMemoryRepo()
	rec := NewReconciler(callSvc, pkgs, store, sink, audit.NewService(auditRepo), nil)
	return fixture{calls: callSvc, store: store, sink: sink, audit: auditRepo, rec: rec}
}

func (f fixture) finishedSession(t *testing.T, used int64) calls.Session {
	t.Helper()
	ctx := context.Background()
	s, err := f.calls.Open(ctx, calls.OpenRequest{InitiatorID: "talker-1", ResponderID: "listener-1", PackageID: "pkg-30", MinutesPurchased: 30})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.calls.Activate(ctx, s.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := f.calls.ReportElapsed(ctx, s.ID, calls.WholeMinutes(used)); err != nil {
		t.Fatalf("elapsed: %v", err)
	}
	out, err := f.calls.End(ctx, s.ID, "")
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	return out
}

func TestSettle_RejectsNonTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.calls.Open(ctx, calls.OpenRequest{InitiatorID: "talker-1", ResponderID: "listener-1", PackageID: "pkg-30", MinutesPurchased: 30})
	if _, err := f.rec.Settle(ctx, s.ID); !errors.Is(err, calls.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for connecting, got %v", err)
	}
	_, _ = f.calls.Activate(ctx, s.ID)
	if _, err := f.rec.Settle(ctx, s.ID); !errors.Is(err, calls.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for active, got %v", err)
	}
}

func TestSettle_OnceAndForwarded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.finishedSession(t, 29)

	st, err := f.rec.Settle(ctx, s.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !strings.HasPrefix(st.ID, "stl_") {
		t.Fatalf("expected stl_ prefixed id, got %q", st.ID)
	}
	if st.FinalMinutes != calls.WholeMinutes(29) {
		t.Fatalf("expected 29 final minutes, got %s", st.FinalMinutes)
	}
	if st.ProratedMinor != 2900 || st.PayeeAmountMinor != 2610 || st.AppFeeMinor != 290 {
		t.Fatalf("unexpected split %+v", st)
	}
	if st.PayeeID != "listener-1" || st.PayerID != "talker-1" {
		t.Fatalf("unexpected parties %+v", st)
	}
	if st.Status != StatusForwarded || len(f.sink.got) != 1 {
		t.Fatalf("expected forwarded once, got %s / %d", st.Status, len(f.sink.got))
	}

	if _, err := f.rec.Settle(ctx, s.ID); !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("expected ErrAlreadySettled, got %v", err)
	}
	if len(f.sink.got) != 1 {
		t.Fatalf("second settle must not forward again")
	}

	evs := f.audit.Events()
	if len(evs) != 1 || evs[0].Type != audit.EventTypeSessionSettled {
		t.Fatalf("expected one settled audit event, got %+v", evs)
	}
}

func TestSettle_ForwardFailureKeepsSettlementPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.finishedSession(t, 10)

	f.sink.fail = errors.New("ledger down")
	st, err := f.rec.Settle(ctx, s.ID)
	if err != nil {
		t.Fatalf("forward failure must not fail settle, got %v", err)
	}
	if st.Status != StatusPendingForward || st.LastError == "" {
		t.Fatalf("expected pending with error, got %+v", st)
	}

	sess, _ := f.calls.Get(ctx, s.ID)
	if sess.Status != calls.StatusEnded {
		t.Fatalf("session status must stay ended, got %s", sess.Status)
	}

	f.sink.fail = nil
	n, err := f.rec.RetryPending(ctx, 10)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if n != 1 || len(f.sink.got) != 1 {
		t.Fatalf("expected one successful retry, got %d / %d", n, len(f.sink.got))
	}
	stored, _ := f.store.GetBySession(ctx, s.ID)
	if stored.Status != StatusForwarded || stored.ForwardAttempts != 2 {
		t.Fatalf("expected forwarded after 2 attempts, got %+v", stored)
	}

	if n, _ := f.rec.RetryPending(ctx, 10); n != 0 {
		t.Fatalf("nothing should remain pending, got %d", n)
	}
}

func TestSettle_ConcurrentCallsSettleOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.finishedSession(t, 5)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, dup := 0, 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.rec.Settle(ctx, s.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrAlreadySettled):
				dup++
			}
		}()
	}
	wg.Wait()
	if ok != 1 || dup != 49 {
		t.Fatalf("expected 1 settle and 49 rejections, got %d/%d", ok, dup)
	}
}

func TestSettle_UnknownPackage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.calls.Open(ctx, calls.OpenRequest{InitiatorID: "a", ResponderID: "b", PackageID: "nope", MinutesPurchased: 5})
	_, _ = f.calls.End(ctx, s.ID, "")
	if _, err := f.rec.Settle(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSettle_PackageFee(t *testing.T) {
	cases := []struct {
		name      string
		fee       *int64
		wantFee   int64
		wantPayee int64
	}{
		{"unset uses default", nil, 290, 2610},
		{"explicit zero", ExplicitFee(0), 0, 2900},
		{"explicit fee", ExplicitFee(2500), 725, 2175},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			callSvc := calls.NewService(calls.NewMemoryRepo(), calls.Options{})
			pkgs := NewMemoryPackages(PackageRecord{ID: "pkg-30", PayerID: "talker-1", MinutesPurchased: 30, UnitPriceMinor: 3000, Currency: "USD", AppFeeBPS: tc.fee})
			rec := NewReconciler(callSvc, pkgs, NewMemoryStore(), &fakeSink{}, audit.NewService(audit.NewMemoryRepo()), nil)
			f := fixture{calls: callSvc, rec: rec}
			s := f.finishedSession(t, 29)

			st, err := rec.Settle(ctx, s.ID)
			if err != nil {
				t.Fatalf("settle: %v", err)
			}
			if st.AppFeeMinor != tc.wantFee || st.PayeeAmountMinor != tc.wantPayee {
				t.Fatalf("expected fee %d payee %d, got %+v", tc.wantFee, tc.wantPayee, st)
			}
		})
	}
}
