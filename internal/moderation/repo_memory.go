package moderation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps reports and suspensions in memory for tests and local runs.
// One mutex guards both, which makes Escalate atomic across subjects as well.
type MemoryStore struct {
	mu          sync.Mutex
	reports     map[string][]Report
	reportKeys  map[string]struct{}
	suspensions map[string][]*Suspension
	byID        map[string]*Suspension
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports:     map[string][]Report{},
		reportKeys:  map[string]struct{}{},
		suspensions: map[string][]*Suspension{},
		byID:        map[string]*Suspension{},
	}
}

func reportKey(r Report) string { return r.SubjectID + "|" + r.ReporterID + "|" + string(r.Reason) }

func (m *MemoryStore) InsertReport(ctx context.Context, r Report) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := reportKey(r)
	if _, ok := m.reportKeys[k]; ok {
		return 0, ErrDuplicateReport
	}
	m.reportKeys[k] = struct{}{}
	m.reports[r.SubjectID] = append(m.reports[r.SubjectID], r)
	return len(m.reports[r.SubjectID]), nil
}

func (m *MemoryStore) CountReports(ctx context.Context, subjectID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports[subjectID]), nil
}

func (m *MemoryStore) Escalate(ctx context.Context, candidate Suspension, threshold int, now time.Time) (Suspension, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var since time.Time
	if latest := m.latestLocked(candidate.SubjectID); latest != nil {
		if latest.IsActive {
			if !latest.Expired(now) {
				return *latest, false, nil
			}
			latest.IsActive = false
			at := now
			latest.DeactivatedAt = &at
		}
		since = latest.TriggeredAt
	}

	count := 0
	for _, r := range m.reports[candidate.SubjectID] {
		if since.IsZero() || r.CreatedAt.After(since) {
			count++
		}
	}
	if count < threshold {
		return Suspension{}, false, nil
	}

	s := candidate
	s.ReportCount = count
	m.suspensions[s.SubjectID] = append(m.suspensions[s.SubjectID], &s)
	m.byID[s.ID] = &s
	return s, true, nil
}

func (m *MemoryStore) latestLocked(subjectID string) *Suspension {
	list := m.suspensions[subjectID]
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}

func (m *MemoryStore) Latest(ctx context.Context, subjectID string) (Suspension, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.latestLocked(subjectID)
	if s == nil {
		return Suspension{}, ErrNotFound
	}
	return *s, nil
}

func (m *MemoryStore) Deactivate(ctx context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return false, ErrNotFound
	}
	if !s.IsActive {
		return false, nil
	}
	s.IsActive = false
	s.DeactivatedAt = &at
	return true, nil
}

func (m *MemoryStore) ListDue(ctx context.Context, now time.Time, limit int) ([]Suspension, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Suspension, 0)
	for _, s := range m.byID {
		if s.IsActive && s.Expired(now) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResumeAt.Before(out[j].ResumeAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// StaticSubjects is a SubjectChecker backed by a fixed account -> role map.
type StaticSubjects struct {
	mu    sync.Mutex
	roles map[string]string
}

func NewStaticSubjects(roles map[string]string) *StaticSubjects {
	cp := make(map[string]string, len(roles))
	for k, v := range roles {
		cp[k] = v
	}
	return &StaticSubjects{roles: cp}
}

func (s *StaticSubjects) Role(ctx context.Context, accountID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles[accountID]
	if !ok {
		return "", ErrNotFound
	}
	return role, nil
}

func (s *StaticSubjects) IsReportable(ctx context.Context, accountID string) (bool, error) {
	role, err := s.Role(ctx, accountID)
	if err != nil {
		return false, nil
	}
	return isReportableRole(role), nil
}
