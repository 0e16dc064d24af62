package audit

import (
	"context"
	"errors"
	"testing"
)

func TestService_AppendRequiresTypeAndTarget(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventTypeSuspensionCreated}); err == nil {
		t.Fatalf("expected error without target")
	}
	if err := svc.Append(context.Background(), Event{SubjectAccountID: "acct-1"}); err == nil {
		t.Fatalf("expected error without type")
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogSuspension(context.Background(), EventTypeSuspensionCreated, "acct-1", "susp-1", `{"reports":3}`); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].SubjectAccountID != "acct-1" || evs[0].SuspensionID != "susp-1" {
		t.Fatalf("expected targets captured, got %+v", evs[0])
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at filled")
	}
}

func TestService_NilIsNotConfigured(t *testing.T) {
	var svc *Service
	if err := svc.Append(context.Background(), Event{Type: EventTypeSessionSettled, SessionID: "s"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured from nil service")
	}
}

func TestMemoryRepo_Filters(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_ = svc.LogReport(ctx, "listener-a", "talker-x", "scam")
	_ = svc.LogReport(ctx, "listener-b", "talker-y", "scam")
	_ = svc.LogSuspension(ctx, EventTypeSuspensionCreated, "talker-x", "susp-1", "")

	if got := repo.ByType(EventTypeReportSubmitted); len(got) != 2 {
		t.Fatalf("expected 2 report events, got %d", len(got))
	}
	got := repo.ForSubject("talker-x")
	if len(got) != 2 || got[1].Type != EventTypeSuspensionCreated {
		t.Fatalf("expected report then suspension for talker-x, got %+v", got)
	}
}
