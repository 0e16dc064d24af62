package moderation

import (
	"time"
	"unicode/utf8"
)

const (
	// SuspensionThreshold is the number of reports that triggers a suspension.
	SuspensionThreshold = 3
	// SuspensionDays is the fixed length of every suspension.
	SuspensionDays = 7

	MaxDescriptionLength = 1000
)

// Report is a single complaint by one account against another.
// (SubjectID, ReporterID, Reason) is unique.
type Report struct {
	ID          string    `json:"id" db:"id"`
	SubjectID   string    `json:"subject_account_id" db:"subject_account_id"`
	ReporterID  string    `json:"reporter_account_id" db:"reporter_account_id"`
	Reason      Reason    `json:"reason" db:"reason"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type Reason string

const (
	ReasonHarassment           Reason = "harassment"
	ReasonScam                 Reason = "scam"
	ReasonHateSpeech           Reason = "hate_speech"
	ReasonInappropriateContent Reason = "inappropriate_content"
	ReasonSpam                 Reason = "spam"
	ReasonOther                Reason = "other"
)

func (r Reason) Valid() bool {
	switch r {
	case ReasonHarassment, ReasonScam, ReasonHateSpeech, ReasonInappropriateContent, ReasonSpam, ReasonOther:
		return true
	default:
		return false
	}
}

func validDescription(d string) bool { return utf8.RuneCountInString(d) <= MaxDescriptionLength }

// Suspension is a time-boxed access revocation.
//
// Invariants:
// - At most one active suspension per subject.
// - ResumeAt == TriggeredAt + DurationDays.
// - IsActive only goes true -> false, and only once now >= ResumeAt.
type Suspension struct {
	ID           string    `json:"id" db:"id"`
	SubjectID    string    `json:"subject_account_id" db:"subject_account_id"`
	TriggeredAt  time.Time `json:"triggered_at" db:"triggered_at"`
	ResumeAt     time.Time `json:"resume_at" db:"resume_at"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	DurationDays int       `json:"duration_days" db:"duration_days"`

	// ReportCount is the number of reports that triggered the suspension.
	ReportCount int `json:"report_count" db:"report_count"`

	DeactivatedAt *time.Time `json:"deactivated_at,omitempty" db:"deactivated_at"`
}

// Expired reports whether the suspension window has passed at now.
func (s Suspension) Expired(now time.Time) bool { return !now.Before(s.ResumeAt) }

// RemainingDays is the whole number of days until ResumeAt, rounded up.
func (s Suspension) RemainingDays(now time.Time) int {
	if s.Expired(now) {
		return 0
	}
	d := s.ResumeAt.Sub(now)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// Status is the login gate's view of a subject.
type Status struct {
	Active        bool       `json:"active"`
	RemainingDays int        `json:"remaining_days"`
	ResumeAt      *time.Time `json:"resume_at,omitempty"`
	SuspensionID  string     `json:"suspension_id,omitempty"`
}
