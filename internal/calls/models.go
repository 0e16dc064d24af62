package calls

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Session is one metered call between an initiator (talker) and a responder (listener).
//
// Invariants:
// - MinutesPurchased is fixed at open.
// - MinutesUsed never decreases and never exceeds MinutesPurchased.
// - EndedAt is set iff Status is terminal; terminal states are sinks.
// - WarningSent only goes false -> true.
type Session struct {
	ID          string `json:"id" db:"id"`
	InitiatorID string `json:"initiator_id" db:"initiator_id"`
	ResponderID string `json:"responder_id" db:"responder_id"`

	Kind   Kind   `json:"call_kind" db:"call_kind"`
	Status Status `json:"status" db:"status"`

	// PackageID references the externally owned paid package.
	PackageID        string  `json:"package_id" db:"package_id"`
	MinutesPurchased int64   `json:"minutes_purchased" db:"minutes_purchased"`
	MinutesUsed      Minutes `json:"minutes_used" db:"minutes_used"`
	WarningSent      bool    `json:"warning_sent" db:"warning_sent"`

	StartedAt *time.Time `json:"started_at,omitempty" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	EndReason string     `json:"end_reason,omitempty" db:"end_reason"`

	// ChannelRef is the opaque handle of the real-time transport channel.
	ChannelRef string `json:"channel_ref" db:"channel_ref"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (s Session) Purchased() Minutes { return WholeMinutes(s.MinutesPurchased) }

func (s Session) Remaining() Minutes { return s.Purchased() - s.MinutesUsed }

func (s Session) IsTerminal() bool { return s.Status.IsTerminal() }

type Status string

const (
	StatusConnecting Status = "connecting"
	StatusActive     Status = "active"
	StatusEnded      Status = "ended"
	StatusTimeout    Status = "timeout"
	StatusFailed     Status = "failed"
)

func (s Status) IsTerminal() bool {
	switch s {
	case StatusEnded, StatusTimeout, StatusFailed:
		return true
	default:
		return false
	}
}

type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

func (k Kind) Valid() bool { return k == KindAudio || k == KindVideo }

// End reasons written by the engine itself.
const (
	EndReasonTimeExpired    = "time expired"
	EndReasonParticipant    = "ended by participant"
	EndReasonNeverConnected = "never connected"
)

// Minutes is a fixed-point minute count in hundredths of a minute.
// WholeMinutes(1) == 100.
type Minutes int64

const minuteScale = 100

func WholeMinutes(n int64) Minutes { return Minutes(n * minuteScale) }

// MinutesFromDuration converts d, truncating below a hundredth of a minute.
func MinutesFromDuration(d time.Duration) Minutes {
	return Minutes(int64(d) * minuteScale / int64(time.Minute))
}

// ParseMinutes parses a decimal minute value such as "9" or "0.25".
func ParseMinutes(v string) (Minutes, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid minutes %q", v)
	}
	return Minutes(math.Round(f * minuteScale)), nil
}

func (m Minutes) Hundredths() int64 { return int64(m) }

func (m Minutes) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/minuteScale, v%minuteScale)
}

// MarshalJSON renders minutes as a two-decimal JSON number.
func (m Minutes) MarshalJSON() ([]byte, error) { return []byte(m.String()), nil }

func (m *Minutes) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := ParseMinutes(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Event is a fire-and-forget notification emitted after a transition commits.
type Event struct {
	Type        EventType `json:"type"`
	SessionID   string    `json:"session_id"`
	InitiatorID string    `json:"initiator_id"`
	ResponderID string    `json:"responder_id"`
	Remaining   Minutes   `json:"remaining_minutes"`
	At          time.Time `json:"at"`
}

type EventType string

const (
	EventLowMinutes  EventType = "low_minutes"
	EventTimeExpired EventType = "time_expired"
	EventEnded       EventType = "session_ended"
)
