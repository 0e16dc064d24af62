package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"talkline/internal/audit"
	"talkline/internal/calls"

	"go.jetify.com/typeid/v2"
)

var (
	ErrNotFound        = errors.New("billing: not found")
	ErrInvalidPackage  = errors.New("billing: invalid package")
	ErrAlreadySettled  = errors.New("billing: session already settled")
	ErrSinkUnavailable = errors.New("billing: payout sink not configured")
)

const settlementIDPrefix = "stl"

// SessionSource resolves sessions by id. *calls.Service satisfies it.
type SessionSource interface {
	Get(ctx context.Context, id string) (calls.Session, error)
}

// PackageSource reads paid packages from the billing collaborator.
type PackageSource interface {
	GetPackage(ctx context.Context, id string) (PackageRecord, error)
}

// PayoutSink accepts settlements. It must tolerate retries of the same settlement id.
type PayoutSink interface {
	Forward(ctx context.Context, s Settlement) error
}

// Store persists settlements.
// Create fails with ErrAlreadySettled if the session already has one.
type Store interface {
	Create(ctx context.Context, s Settlement) error
	GetBySession(ctx context.Context, sessionID string) (Settlement, error)
	MarkForwarded(ctx context.Context, id string, at time.Time) error
	RecordForwardFailure(ctx context.Context, id, msg string) error
	ListPending(ctx context.Context, limit int) ([]Settlement, error)
}

// Reconciler turns terminated sessions into settlements and hands them to the payout sink.
type Reconciler struct {
	sessions SessionSource
	packages PackageSource
	store    Store
	sink     PayoutSink
	audit    *audit.Service
	log      *slog.Logger

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewReconciler(sessions SessionSource, packages PackageSource, store Store, sink PayoutSink, auditSvc *audit.Service, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		sessions: sessions,
		packages: packages,
		store:    store,
		sink:     sink,
		audit:    auditSvc,
		log:      log,
		clock:    time.Now,
	}
}

// Settle creates the settlement for a terminated session and forwards it.
//
// The settlement is committed before the payout call. A forwarding failure is
// logged and left pending for RetryPending; it is not returned as an error.
func (r *Reconciler) Settle(ctx context.Context, sessionID string) (Settlement, error) {
	if sessionID == "" {
		return Settlement{}, calls.ErrInvalidArgument
	}
	sess, err := r.sessions.Get(ctx, sessionID)
	if err != nil {
		return Settlement{}, err
	}
	if !sess.IsTerminal() {
		return Settlement{}, calls.ErrInvalidTransition
	}

	pkg, err := r.packages.GetPackage(ctx, sess.PackageID)
	if err != nil {
		return Settlement{}, err
	}
	if err := validatePackage(pkg); err != nil {
		return Settlement{}, err
	}

	tid, err := typeid.Generate(settlementIDPrefix)
	if err != nil {
		return Settlement{}, fmt.Errorf("billing: settlement id: %w", err)
	}

	split := ComputeSplit(pkg.UnitPriceMinor, sess.MinutesPurchased, sess.MinutesUsed, pkg.FeeBPS())
	st := Settlement{
		ID:               tid.String(),
		SessionID:        sess.ID,
		PackageID:        pkg.ID,
		PayerID:          sess.InitiatorID,
		PayeeID:          sess.ResponderID,
		FinalMinutes:     sess.MinutesUsed,
		MinutesPurchased: sess.MinutesPurchased,
		ProratedMinor:    split.ProratedMinor,
		AppFeeMinor:      split.AppFeeMinor,
		PayeeAmountMinor: split.PayeeAmountMinor,
		Currency:         pkg.Currency,
		Status:           StatusPendingForward,
		CreatedAt:        r.clock().UTC(),
	}
	if err := r.store.Create(ctx, st); err != nil {
		return Settlement{}, err
	}

	r.log.Info("session settled",
		"session_id", st.SessionID,
		"settlement_id", st.ID,
		"final_minutes", st.FinalMinutes.String(),
		"app_fee_minor", st.AppFeeMinor,
		"payee_amount_minor", st.PayeeAmountMinor,
	)
	if r.audit != nil {
		meta := fmt.Sprintf(`{"prorated_minor":%d,"app_fee_minor":%d,"payee_amount_minor":%d}`, st.ProratedMinor, st.AppFeeMinor, st.PayeeAmountMinor)
		if err := r.audit.LogSettlement(ctx, audit.EventTypeSessionSettled, st.SessionID, st.ID, "settled", meta); err != nil {
			r.log.Warn("audit append failed", "settlement_id", st.ID, "err", err)
		}
	}

	return r.forward(context.WithoutCancel(ctx), st), nil
}

// RetryPending re-forwards settlements the sink has not acknowledged.
// It returns how many were forwarded successfully.
func (r *Reconciler) RetryPending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	pending, err := r.store.ListPending(ctx, limit)
	if err != nil {
		return 0, err
	}
	ok := 0
	for _, st := range pending {
		if out := r.forward(ctx, st); out.Status == StatusForwarded {
			ok++
		}
	}
	return ok, nil
}

func (r *Reconciler) GetBySession(ctx context.Context, sessionID string) (Settlement, error) {
	return r.store.GetBySession(ctx, sessionID)
}

func (r *Reconciler) forward(ctx context.Context, st Settlement) Settlement {
	st.ForwardAttempts++

	err := ErrSinkUnavailable
	if r.sink != nil {
		err = r.sink.Forward(ctx, st)
	}
	if err != nil {
		st.LastError = err.Error()
		r.log.Error("payout forward failed", "settlement_id", st.ID, "session_id", st.SessionID, "attempt", st.ForwardAttempts, "err", err)
		if rerr := r.store.RecordForwardFailure(ctx, st.ID, st.LastError); rerr != nil {
			r.log.Error("record forward failure failed", "settlement_id", st.ID, "err", rerr)
		}
		if r.audit != nil {
			_ = r.audit.LogSettlement(ctx, audit.EventTypePayoutForwardError, st.SessionID, st.ID, st.LastError, "")
		}
		return st
	}

	now := r.clock().UTC()
	if err := r.store.MarkForwarded(ctx, st.ID, now); err != nil {
		// The sink is idempotent on settlement id, so the next retry is harmless.
		r.log.Error("mark forwarded failed", "settlement_id", st.ID, "err", err)
		return st
	}
	st.Status = StatusForwarded
	st.ForwardedAt = &now
	st.LastError = ""
	return st
}

func validatePackage(p PackageRecord) error {
	if p.MinutesPurchased <= 0 || p.UnitPriceMinor < 0 || p.Currency == "" {
		return ErrInvalidPackage
	}
	if fee := p.FeeBPS(); fee < 0 || fee > bpsScale {
		return ErrInvalidPackage
	}
	return nil
}
