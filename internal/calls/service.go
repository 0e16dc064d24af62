package calls

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("calls: session not found")
	ErrInvalidArgument   = errors.New("calls: invalid argument")
	ErrInvalidPackage    = errors.New("calls: purchased minutes must be positive")
	ErrInvalidTransition = errors.New("calls: invalid transition")
	ErrResponderBusy     = errors.New("calls: responder is in another session")
)

// Repository is the persistence contract for sessions.
//
// Update runs fn inside a per-session exclusive section and persists the
// mutated copy only when fn returns nil. Updates to different sessions must
// not block each other.
type Repository interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Update(ctx context.Context, id string, fn func(*Session) error) (Session, error)
	ListOpen(ctx context.Context) ([]Session, error)
}

// Notifier delivers session events to participants. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// SlotLimiter gives a responder at most one live session. The slot is owned
// by the session that took it; releasing with another session id is a no-op.
type SlotLimiter interface {
	Acquire(ctx context.Context, responderID, sessionID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, responderID, sessionID string) error
}

type Options struct {
	// LowMinutesWarning is the remaining whole-minute band for the one-time warning.
	LowMinutesWarning int
	// ConnectTimeout bounds how long a session may sit in connecting before the sweep fails it.
	ConnectTimeout time.Duration
	NotifyTimeout  time.Duration

	Notifier Notifier
	Slots    SlotLimiter
	Logger   *slog.Logger
}

// Service is the session state machine.
type Service struct {
	repo     Repository
	notifier Notifier
	slots    SlotLimiter
	log      *slog.Logger

	warnBand       Minutes
	connectTimeout time.Duration
	notifyTimeout  time.Duration

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository, opts Options) *Service {
	if opts.LowMinutesWarning <= 0 {
		opts.LowMinutesWarning = 3
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 2 * time.Minute
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = NewLogNotifier(opts.Logger)
	}
	return &Service{
		repo:           repo,
		notifier:       opts.Notifier,
		slots:          opts.Slots,
		log:            opts.Logger,
		warnBand:       WholeMinutes(int64(opts.LowMinutesWarning)),
		connectTimeout: opts.ConnectTimeout,
		notifyTimeout:  opts.NotifyTimeout,
		clock:          time.Now,
	}
}

type OpenRequest struct {
	InitiatorID string `json:"initiator_id"`
	ResponderID string `json:"responder_id"`
	Kind        Kind   `json:"call_kind"`

	PackageID        string `json:"package_id"`
	MinutesPurchased int64  `json:"minutes_purchased"`

	// ChannelRef defaults to a generated channel name.
	ChannelRef string `json:"channel_ref,omitempty"`
}

// Open creates a session in connecting state.
func (s *Service) Open(ctx context.Context, req OpenRequest) (Session, error) {
	if req.MinutesPurchased <= 0 {
		return Session{}, ErrInvalidPackage
	}
	req.InitiatorID = strings.TrimSpace(req.InitiatorID)
	req.ResponderID = strings.TrimSpace(req.ResponderID)
	if req.InitiatorID == "" || req.ResponderID == "" || req.InitiatorID == req.ResponderID {
		return Session{}, ErrInvalidArgument
	}
	if req.Kind == "" {
		req.Kind = KindAudio
	}
	if !req.Kind.Valid() {
		return Session{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	id := uuid.NewString()
	channel := req.ChannelRef
	if channel == "" {
		channel = "call_" + id
	}

	if s.slots != nil {
		ttl := time.Duration(req.MinutesPurchased)*time.Minute + s.connectTimeout
		ok, err := s.slots.Acquire(ctx, req.ResponderID, id, ttl)
		if err != nil {
			return Session{}, err
		}
		if !ok {
			return Session{}, ErrResponderBusy
		}
	}

	sess := Session{
		ID:               id,
		InitiatorID:      req.InitiatorID,
		ResponderID:      req.ResponderID,
		Kind:             req.Kind,
		Status:           StatusConnecting,
		PackageID:        req.PackageID,
		MinutesPurchased: req.MinutesPurchased,
		ChannelRef:       channel,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		s.releaseSlot(ctx, sess)
		return Session{}, err
	}
	s.log.Info("session opened", "session_id", sess.ID, "initiator_id", sess.InitiatorID, "responder_id", sess.ResponderID, "minutes_purchased", sess.MinutesPurchased)
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, ErrInvalidArgument
	}
	return s.repo.Get(ctx, id)
}

// Activate marks the transport as connected.
func (s *Service) Activate(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	return s.repo.Update(ctx, id, func(sess *Session) error {
		return activate(sess, now)
	})
}

// ReportElapsed accrues a slice of elapsed usage.
// Reaching the purchased allotment forces the timeout transition in the same update.
func (s *Service) ReportElapsed(ctx context.Context, id string, elapsed Minutes) (Session, error) {
	if id == "" {
		return Session{}, ErrInvalidArgument
	}
	now := s.clock().UTC()

	var events []EventType
	sess, err := s.repo.Update(ctx, id, func(sess *Session) error {
		var err error
		events, err = accrue(sess, elapsed, s.warnBand, now)
		return err
	})
	if err != nil {
		return Session{}, err
	}

	for _, t := range events {
		s.emit(ctx, sess, t, now)
	}
	if sess.IsTerminal() {
		s.releaseSlot(ctx, sess)
	}
	return sess, nil
}

// End closes the session. Ending an already-terminal session is a no-op.
func (s *Service) End(ctx context.Context, id, reason string) (Session, error) {
	if id == "" {
		return Session{}, ErrInvalidArgument
	}
	now := s.clock().UTC()

	var changed bool
	sess, err := s.repo.Update(ctx, id, func(sess *Session) error {
		changed = end(sess, strings.TrimSpace(reason), now)
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	if changed {
		s.log.Info("session closed", "session_id", sess.ID, "status", sess.Status, "end_reason", sess.EndReason, "minutes_used", sess.MinutesUsed.String())
		s.emit(ctx, sess, EventEnded, now)
		s.releaseSlot(ctx, sess)
	}
	return sess, nil
}

// ExpireOverdue is housekeeping for sessions whose transport stopped reporting.
// Active sessions past their wall-clock allotment time out; connecting sessions
// older than the connect timeout fail. It returns how many sessions it closed.
func (s *Service) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	open, err := s.repo.ListOpen(ctx)
	if err != nil {
		return 0, err
	}
	now = now.UTC()

	closed := 0
	for _, candidate := range open {
		var event EventType
		sess, err := s.repo.Update(ctx, candidate.ID, func(sess *Session) error {
			event = ""
			switch {
			case expire(sess, now):
				event = EventTimeExpired
			case sess.Status == StatusConnecting && !now.Before(sess.CreatedAt.Add(s.connectTimeout)):
				end(sess, EndReasonNeverConnected, now)
				event = EventEnded
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return closed, err
		}
		if event == "" {
			continue
		}
		closed++
		s.emit(ctx, sess, event, now)
		s.releaseSlot(ctx, sess)
	}
	return closed, nil
}

func (s *Service) emit(ctx context.Context, sess Session, t EventType, now time.Time) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	e := Event{
		Type:        t,
		SessionID:   sess.ID,
		InitiatorID: sess.InitiatorID,
		ResponderID: sess.ResponderID,
		Remaining:   sess.Remaining(),
		At:          now,
	}
	if err := s.notifier.Notify(nctx, e); err != nil {
		s.log.Warn("session notification failed", "session_id", sess.ID, "event", t, "err", err)
	}
}

func (s *Service) releaseSlot(ctx context.Context, sess Session) {
	if s.slots == nil {
		return
	}
	if err := s.slots.Release(context.WithoutCancel(ctx), sess.ResponderID, sess.ID); err != nil {
		s.log.Warn("responder slot release failed", "session_id", sess.ID, "responder_id", sess.ResponderID, "err", err)
	}
}
