package calls

import "time"

// The functions below mutate a Session in place. Callers run them inside the
// repository's per-session exclusive section and persist the result.

func activate(s *Session, now time.Time) error {
	if s.Status != StatusConnecting {
		return ErrInvalidTransition
	}
	s.Status = StatusActive
	s.StartedAt = &now
	s.UpdatedAt = now
	return nil
}

// accrue adds elapsed usage to an active session and returns the events the update produced.
// warnBand is the remaining-minutes threshold for the one-time warning.
func accrue(s *Session, elapsed, warnBand Minutes, now time.Time) ([]EventType, error) {
	if elapsed < 0 {
		return nil, ErrInvalidArgument
	}
	if s.Status != StatusActive {
		return nil, ErrInvalidTransition
	}

	used := s.MinutesUsed + elapsed
	if used > s.Purchased() {
		used = s.Purchased()
	}
	s.MinutesUsed = used
	s.UpdatedAt = now

	// The warning is evaluated before exhaustion, so a slice that jumps past
	// the band straight to zero still sends it ahead of time_expired.
	var events []EventType
	remaining := s.Remaining()
	if !s.WarningSent && remaining <= warnBand {
		s.WarningSent = true
		events = append(events, EventLowMinutes)
	}
	if remaining <= 0 {
		terminate(s, StatusTimeout, EndReasonTimeExpired, now)
		events = append(events, EventTimeExpired)
	}
	return events, nil
}

// end closes a session on a participant or transport signal.
// It reports false when the session was already terminal.
func end(s *Session, reason string, now time.Time) bool {
	switch s.Status {
	case StatusActive:
		if reason == "" {
			reason = EndReasonParticipant
		}
		terminate(s, StatusEnded, reason, now)
		return true
	case StatusConnecting:
		if reason == "" {
			reason = EndReasonNeverConnected
		}
		terminate(s, StatusFailed, reason, now)
		return true
	default:
		return false
	}
}

// expire forces an active session to timeout once its wall-clock allotment has run out.
func expire(s *Session, now time.Time) bool {
	if s.Status != StatusActive || s.StartedAt == nil {
		return false
	}
	if now.Before(s.StartedAt.Add(time.Duration(s.MinutesPurchased) * time.Minute)) {
		return false
	}
	s.MinutesUsed = s.Purchased()
	terminate(s, StatusTimeout, EndReasonTimeExpired, now)
	return true
}

func terminate(s *Session, status Status, reason string, now time.Time) {
	s.Status = status
	s.EndReason = reason
	s.EndedAt = &now
	s.UpdatedAt = now
}
