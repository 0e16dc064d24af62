package moderation

import "context"

// Outcome is the result of filing a report.
type Outcome struct {
	Report     Report      `json:"report"`
	Count      int         `json:"count"`
	Escalated  bool        `json:"escalation_triggered"`
	Suspension *Suspension `json:"suspension,omitempty"`
}

// Service chains the report ledger into the suspension controller.
type Service struct {
	Ledger     *Ledger
	Controller *Controller
}

func NewService(ledger *Ledger, controller *Controller) *Service {
	return &Service{Ledger: ledger, Controller: controller}
}

// Report submits a complaint and escalates when it crosses the threshold.
// The report stays recorded even if escalation fails.
func (s *Service) Report(ctx context.Context, req SubmitRequest) (Outcome, error) {
	r, count, err := s.Ledger.Submit(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Report: r, Count: count}
	if count < SuspensionThreshold {
		return out, nil
	}

	esc, err := s.Controller.MaybeEscalate(ctx, r.SubjectID)
	if err != nil {
		return out, err
	}
	out.Escalated = esc.Created
	out.Suspension = esc.Suspension
	return out, nil
}
