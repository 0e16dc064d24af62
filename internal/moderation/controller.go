package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"talkline/internal/audit"

	"github.com/google/uuid"
)

// ErrEscalationRaceLost means a concurrent escalation created the suspension first.
// The controller swallows it.
var ErrEscalationRaceLost = errors.New("moderation: escalation race lost")

// SuspensionStore persists suspensions.
type SuspensionStore interface {
	// Escalate runs count-and-create as one atomic unit for the subject.
	//
	// The threshold applies only to reports filed strictly after the
	// triggered_at of the subject's most recent suspension (all reports if
	// there is none). Reports that already led to a suspension never count
	// toward the next one, so a subject whose suspension has lapsed needs
	// threshold fresh reports before being suspended again. This differs from
	// Ledger.CountFor, which stays the lifetime total shown to moderators.
	//
	// An active suspension whose window has passed is expired first. candidate
	// is inserted when the count reaches threshold and none is active. It
	// returns the active suspension (new or existing) and whether it was created.
	Escalate(ctx context.Context, candidate Suspension, threshold int, now time.Time) (Suspension, bool, error)

	// Latest returns the subject's most recently triggered suspension or ErrNotFound.
	Latest(ctx context.Context, subjectID string) (Suspension, error)

	// Deactivate flips is_active off; it reports false if it was already off.
	Deactivate(ctx context.Context, id string, at time.Time) (bool, error)

	ListDue(ctx context.Context, now time.Time, limit int) ([]Suspension, error)
}

// CredentialRevoker invalidates every credential an account holds.
type CredentialRevoker interface {
	RevokeAll(ctx context.Context, accountID string) error
}

// Escalation is the outcome of MaybeEscalate.
type Escalation struct {
	Suspension *Suspension
	Created    bool
}

// Controller owns suspension lifecycle: escalation, lazy expiry and the login gate predicate.
type Controller struct {
	store   SuspensionStore
	revoker CredentialRevoker
	audit   *audit.Service
	log     *slog.Logger

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewController(store SuspensionStore, revoker CredentialRevoker, auditSvc *audit.Service, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{store: store, revoker: revoker, audit: auditSvc, log: log, clock: time.Now}
}

// MaybeEscalate creates the subject's suspension if the report threshold is met
// and none is active. Exactly one of any number of concurrent callers creates it;
// the others observe the result.
func (c *Controller) MaybeEscalate(ctx context.Context, subjectID string) (Escalation, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return Escalation{}, ErrInvalidArgument
	}
	now := c.clock().UTC()
	candidate := Suspension{
		ID:           uuid.NewString(),
		SubjectID:    subjectID,
		TriggeredAt:  now,
		ResumeAt:     now.Add(SuspensionDays * 24 * time.Hour),
		IsActive:     true,
		DurationDays: SuspensionDays,
	}

	s, created, err := c.store.Escalate(ctx, candidate, SuspensionThreshold, now)
	if errors.Is(err, ErrEscalationRaceLost) {
		latest, lerr := c.store.Latest(ctx, subjectID)
		if lerr != nil {
			return Escalation{}, lerr
		}
		return Escalation{Suspension: &latest}, nil
	}
	if err != nil {
		return Escalation{}, err
	}
	if s.ID == "" {
		return Escalation{}, nil
	}
	if !created {
		return Escalation{Suspension: &s}, nil
	}

	c.log.Info("account suspended", "subject_account_id", subjectID, "suspension_id", s.ID, "resume_at", s.ResumeAt, "report_count", s.ReportCount)
	c.auditSuspension(ctx, audit.EventTypeSuspensionCreated, s)

	// Revocation runs after the suspension is committed and never reverts it.
	if c.revoker == nil {
		c.log.Error("credential revocation skipped: no revoker configured", "subject_account_id", subjectID)
	} else if err := c.revoker.RevokeAll(context.WithoutCancel(ctx), subjectID); err != nil {
		c.log.Error("credential revocation failed", "subject_account_id", subjectID, "suspension_id", s.ID, "err", err)
		c.auditSuspension(ctx, audit.EventTypeRevocationFailed, s)
	}
	return Escalation{Suspension: &s, Created: true}, nil
}

// IsSuspended is the login gate predicate.
// A suspension whose window has passed is deactivated as a side effect.
func (c *Controller) IsSuspended(ctx context.Context, subjectID string) (Status, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return Status{}, ErrInvalidArgument
	}
	s, err := c.store.Latest(ctx, subjectID)
	if errors.Is(err, ErrNotFound) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, err
	}
	if !s.IsActive {
		return Status{}, nil
	}

	now := c.clock().UTC()
	if s.Expired(now) {
		if err := c.expire(ctx, s, now); err != nil {
			return Status{}, err
		}
		return Status{}, nil
	}

	resume := s.ResumeAt
	return Status{
		Active:        true,
		RemainingDays: s.RemainingDays(now),
		ResumeAt:      &resume,
		SuspensionID:  s.ID,
	}, nil
}

// ExpireDue deactivates every suspension whose window has passed at now.
// Lazy evaluation in IsSuspended makes this optional.
func (c *Controller) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	due, err := c.store.ListDue(ctx, now.UTC(), 500)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range due {
		if err := c.expire(ctx, s, now.UTC()); err != nil {
			return n, fmt.Errorf("expire %s: %w", s.ID, err)
		}
		n++
	}
	return n, nil
}

func (c *Controller) expire(ctx context.Context, s Suspension, now time.Time) error {
	changed, err := c.store.Deactivate(ctx, s.ID, now)
	if err != nil {
		return err
	}
	if changed {
		c.log.Info("suspension expired", "subject_account_id", s.SubjectID, "suspension_id", s.ID)
		c.auditSuspension(ctx, audit.EventTypeSuspensionExpired, s)
	}
	return nil
}

func (c *Controller) auditSuspension(ctx context.Context, t audit.EventType, s Suspension) {
	if c.audit == nil {
		return
	}
	meta := fmt.Sprintf(`{"resume_at":%q,"report_count":%d}`, s.ResumeAt.Format(time.RFC3339), s.ReportCount)
	if err := c.audit.LogSuspension(ctx, t, s.SubjectID, s.ID, meta); err != nil {
		c.log.Warn("audit append failed", "suspension_id", s.ID, "err", err)
	}
}
