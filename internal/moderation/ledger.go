package moderation

import (
	"context"
	"errors"
	"strings"
	"time"

	"talkline/internal/audit"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("moderation: not found")
	ErrInvalidArgument = errors.New("moderation: invalid argument")
	ErrDuplicateReport = errors.New("moderation: duplicate report")
	ErrInvalidSubject  = errors.New("moderation: subject cannot be reported")
)

// ReportStore persists reports.
// InsertReport fails with ErrDuplicateReport on a repeated (subject, reporter, reason)
// and otherwise returns the subject's total report count including the new one.
type ReportStore interface {
	InsertReport(ctx context.Context, r Report) (int, error)
	CountReports(ctx context.Context, subjectID string) (int, error)
}

// SubjectChecker is the reportable-role predicate owned by the accounts collaborator.
type SubjectChecker interface {
	IsReportable(ctx context.Context, accountID string) (bool, error)
}

// Ledger accepts complaints.
type Ledger struct {
	store    ReportStore
	subjects SubjectChecker
	audit    *audit.Service

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewLedger(store ReportStore, subjects SubjectChecker, auditSvc *audit.Service) *Ledger {
	return &Ledger{store: store, subjects: subjects, audit: auditSvc, clock: time.Now}
}

type SubmitRequest struct {
	SubjectID   string `json:"subject_account_id"`
	ReporterID  string `json:"reporter_account_id"`
	Reason      Reason `json:"reason"`
	Description string `json:"description,omitempty"`
}

// Submit records a report and returns it with the subject's live report count.
func (l *Ledger) Submit(ctx context.Context, req SubmitRequest) (Report, int, error) {
	req.SubjectID = strings.TrimSpace(req.SubjectID)
	req.ReporterID = strings.TrimSpace(req.ReporterID)
	req.Description = strings.TrimSpace(req.Description)

	if req.SubjectID == "" || req.ReporterID == "" {
		return Report{}, 0, ErrInvalidArgument
	}
	if !req.Reason.Valid() || !validDescription(req.Description) {
		return Report{}, 0, ErrInvalidArgument
	}
	if req.SubjectID == req.ReporterID {
		return Report{}, 0, ErrInvalidSubject
	}
	if l.subjects != nil {
		ok, err := l.subjects.IsReportable(ctx, req.SubjectID)
		if err != nil {
			return Report{}, 0, err
		}
		if !ok {
			return Report{}, 0, ErrInvalidSubject
		}
	}

	r := Report{
		ID:          uuid.NewString(),
		SubjectID:   req.SubjectID,
		ReporterID:  req.ReporterID,
		Reason:      req.Reason,
		Description: req.Description,
		CreatedAt:   l.clock().UTC(),
	}
	count, err := l.store.InsertReport(ctx, r)
	if err != nil {
		return Report{}, 0, err
	}
	if l.audit != nil {
		_ = l.audit.LogReport(ctx, r.ReporterID, r.SubjectID, string(r.Reason))
	}
	return r, count, nil
}

// CountFor is the subject's total number of accepted reports. It never decreases.
func (l *Ledger) CountFor(ctx context.Context, subjectID string) (int, error) {
	if strings.TrimSpace(subjectID) == "" {
		return 0, ErrInvalidArgument
	}
	return l.store.CountReports(ctx, subjectID)
}
