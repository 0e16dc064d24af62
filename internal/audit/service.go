package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository stores audit events. Append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records moderation and settlement events for operators. Records
// are never shown to talkers or listeners. Callers log and continue when an
// append fails.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var (
	ErrInvalidEvent  = errors.New("audit: invalid event")
	ErrNotConfigured = errors.New("audit: repository not configured")
)

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return ErrNotConfigured
	}
	if e.Type == "" || !e.hasTarget() {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogReport records an accepted complaint.
func (s *Service) LogReport(ctx context.Context, reporterID, subjectID, reason string) error {
	return s.Append(ctx, Event{
		Type:             EventTypeReportSubmitted,
		ActorAccountID:   reporterID,
		SubjectAccountID: subjectID,
		Message:          reason,
	})
}

// LogSuspension records an escalation or an expiry.
func (s *Service) LogSuspension(ctx context.Context, t EventType, subjectID, suspensionID, metadata string) error {
	return s.Append(ctx, Event{
		Type:             t,
		SubjectAccountID: subjectID,
		SuspensionID:     suspensionID,
		Metadata:         metadata,
	})
}

// LogSettlement records a settlement or a failed payout forward.
func (s *Service) LogSettlement(ctx context.Context, t EventType, sessionID, settlementID, message, metadata string) error {
	return s.Append(ctx, Event{
		Type:         t,
		SessionID:    sessionID,
		SettlementID: settlementID,
		Message:      message,
		Metadata:     metadata,
	})
}
