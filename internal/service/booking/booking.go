package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Alijeyrad/counsel_backend/internal/events"
	"github.com/Alijeyrad/counsel_backend/internal/repo"
	"github.com/Alijeyrad/counsel_backend/pkg/util/dates"
)

// ---------------------------------------------------------------------------
// Dependencies
// ---------------------------------------------------------------------------

type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetUser(ctx context.Context, id uuid.UUID) (*repo.User, error)
	GetClientProfile(ctx context.Context, userID uuid.UUID) (*repo.ClientProfile, error)
	LockClientProfile(ctx context.Context, userID uuid.UUID) (*repo.ClientProfile, error)
	GetProfessional(ctx context.Context, id uuid.UUID) (*repo.Professional, error)
	GetProfessionalByUserID(ctx context.Context, userID uuid.UUID) (*repo.Professional, error)

	LockTimeSlot(ctx context.Context, professionalID uuid.UUID, date time.Time, clock string) (*repo.TimeSlot, error)
	SetTimeSlotBooked(ctx context.Context, id uuid.UUID, booked bool) error
	ReleaseTimeSlot(ctx context.Context, professionalID uuid.UUID, date time.Time, clock string) error

	CreateSession(ctx context.Context, s *repo.Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*repo.Session, error)
	LockSession(ctx context.Context, id uuid.UUID) (*repo.Session, error)
	UpdateSessionStatus(ctx context.Context, s *repo.Session) error
	CountFreeSessions(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error)
	ListSessions(ctx context.Context, f repo.SessionFilter) ([]repo.Session, error)
}

// Cache is the part of the availability cache booking writes through.
type Cache interface {
	InvalidateMonth(ctx context.Context, professionalID uuid.UUID, date time.Time)
}

// Cipher protects the free-text concerns of a session.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(encoded string) (string, error)
}

type Config struct {
	Location               *time.Location
	Now                    func() time.Time
	FreeSessionsPerMonth   int
	StudentDiscountPercent int
	CancellationNotice     time.Duration
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type BookRequest struct {
	ProfessionalID  uuid.UUID
	Date            time.Time
	Time            string
	DurationMinutes int
	Price           int64
	Concerns        *string
}

// Quota is the free-session allowance of a student in the current period.
type Quota struct {
	RemainingSessions       int    `json:"remaining_sessions"`
	NextResetDate           string `json:"next_reset_date"`
	TotalSessionsThisPeriod int    `json:"total_sessions_this_period"`
	IsStudent               bool   `json:"is_student"`
}

// Actor is the authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Role   repo.Role
}

type ListRequest struct {
	Status  *repo.SessionStatus
	From    *time.Time
	To      *time.Time
	Page    int
	PerPage int
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	Book(ctx context.Context, userID uuid.UUID, req BookRequest) (*repo.Session, error)
	Cancel(ctx context.Context, sessionID, actingUserID uuid.UUID) (*repo.Session, error)
	RemainingStudentSessions(ctx context.Context, userID uuid.UUID) (*Quota, error)

	Get(ctx context.Context, sessionID uuid.UUID, actor Actor) (*repo.Session, error)
	List(ctx context.Context, actor Actor, req ListRequest) ([]repo.Session, error)
	UpdateStatus(ctx context.Context, sessionID, professionalUserID uuid.UUID, status repo.SessionStatus) (*repo.Session, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type bookingService struct {
	store     Store
	publisher events.Publisher
	cache     Cache
	cipher    Cipher
	cfg       Config

	booked    metric.Int64Counter
	cancelled metric.Int64Counter
	rejected  metric.Int64Counter
}

func New(store Store, publisher events.Publisher, cache Cache, cipher Cipher, cfg Config) Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	meter := otel.Meter("github.com/Alijeyrad/counsel_backend/internal/service/booking")
	booked, _ := meter.Int64Counter("booking.sessions.booked",
		metric.WithDescription("Sessions booked"))
	cancelled, _ := meter.Int64Counter("booking.sessions.cancelled",
		metric.WithDescription("Sessions cancelled"))
	rejected, _ := meter.Int64Counter("booking.requests.rejected",
		metric.WithDescription("Booking attempts rejected by a policy check"))

	return &bookingService{
		store:     store,
		publisher: publisher,
		cache:     cache,
		cipher:    cipher,
		cfg:       cfg,
		booked:    booked,
		cancelled: cancelled,
		rejected:  rejected,
	}
}

func (s *bookingService) now() time.Time {
	return s.cfg.Now().In(s.cfg.Location)
}

func (s *bookingService) validate(req BookRequest) error {
	if req.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	if req.Price < 0 {
		return ErrInvalidPrice
	}
	start, err := dates.At(req.Date, req.Time, s.cfg.Location)
	if err != nil {
		return err
	}
	if !start.After(s.now()) {
		return ErrSessionInPast
	}
	return nil
}

func (s *bookingService) Book(ctx context.Context, userID uuid.UUID, req BookRequest) (*repo.Session, error) {
	req.Date = dates.Day(req.Date)
	if err := s.validate(req); err != nil {
		return nil, err
	}

	var concerns *string
	if req.Concerns != nil && *req.Concerns != "" {
		enc, err := s.cipher.Encrypt(*req.Concerns)
		if err != nil {
			return nil, fmt.Errorf("encrypt concerns: %w", err)
		}
		concerns = &enc
	}

	var (
		session *repo.Session
		pro     *repo.Professional
	)
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		pro, err = s.store.GetProfessional(ctx, req.ProfessionalID)
		if err != nil {
			if repo.IsNotFound(err) {
				return ErrProfessionalNotFound
			}
			return fmt.Errorf("get professional: %w", err)
		}
		if !pro.IsAvailable {
			return ErrProfessionalUnavailable
		}

		slot, err := s.store.LockTimeSlot(ctx, req.ProfessionalID, req.Date, req.Time)
		if err != nil {
			if repo.IsNotFound(err) {
				return ErrSlotNotAvailable
			}
			return fmt.Errorf("lock slot: %w", err)
		}
		if !slot.Open() {
			return ErrSlotNotAvailable
		}

		price, err := s.price(ctx, userID, req.Price, req.Date)
		if err != nil {
			return err
		}

		if err := s.store.SetTimeSlotBooked(ctx, slot.ID, true); err != nil {
			return fmt.Errorf("mark slot booked: %w", err)
		}

		session = &repo.Session{
			ClientUserID:    userID,
			ProfessionalID:  pro.ID,
			Date:            req.Date,
			Time:            req.Time,
			DurationMinutes: req.DurationMinutes,
			Price:           price,
			Concerns:        concerns,
			Status:          repo.SessionConfirmed,
		}
		if err := s.store.CreateSession(ctx, session); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return ErrSlotNotAvailable
			}
			return fmt.Errorf("create session: %w", err)
		}
		return nil
	})
	if err != nil {
		s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason(err))))
		return nil, err
	}

	s.booked.Add(ctx, 1, metric.WithAttributes(attribute.Bool("free", session.Price == 0)))
	slog.Info("session booked",
		"session_id", session.ID,
		"professional_id", pro.ID,
		"date", dates.Format(session.Date),
		"time", session.Time,
		"price", session.Price,
	)

	s.invalidate(ctx, pro.ID, session.Date)
	s.publish(ctx, events.SessionBooked{
		SessionID:          session.ID,
		ClientUserID:       session.ClientUserID,
		ProfessionalID:     pro.ID,
		ProfessionalUserID: pro.UserID,
		ProfessionalName:   pro.DisplayName,
		Date:               dates.Format(session.Date),
		Time:               session.Time,
		Price:              session.Price,
	})

	out := *session
	out.Concerns = req.Concerns
	return &out, nil
}

// price applies the student rules to the submitted price. Free sessions lock
// the client profile so two concurrent free bookings by one student count
// against the quota one after the other. A free session must fit both the
// current period and the period that contains the session date.
func (s *bookingService) price(ctx context.Context, userID uuid.UUID, submitted int64, date time.Time) (int64, error) {
	var (
		profile *repo.ClientProfile
		err     error
	)
	if submitted == 0 {
		profile, err = s.store.LockClientProfile(ctx, userID)
	} else {
		profile, err = s.store.GetClientProfile(ctx, userID)
	}
	if err != nil && !repo.IsNotFound(err) {
		return 0, fmt.Errorf("get client profile: %w", err)
	}
	student := profile != nil && profile.IsStudent

	if submitted > 0 {
		if student {
			return submitted * int64(100-s.cfg.StudentDiscountPercent) / 100, nil
		}
		return submitted, nil
	}

	if !student {
		return 0, ErrFreeSessionsStudentsOnly
	}
	anchor, err := s.anchorDay(ctx, userID)
	if err != nil {
		return 0, err
	}
	today := dates.Today(s.cfg.Now(), s.cfg.Location)
	for _, w := range []dates.Window{
		dates.MonthlyWindow(today, anchor),
		dates.MonthlyWindow(date, anchor),
	} {
		used, err := s.store.CountFreeSessions(ctx, userID, w.Start, w.End)
		if err != nil {
			return 0, fmt.Errorf("count free sessions: %w", err)
		}
		if used >= s.cfg.FreeSessionsPerMonth {
			return 0, ErrFreeQuotaExhausted
		}
	}
	return 0, nil
}

// anchorDay is the registration day-of-month the rolling quota restarts on.
func (s *bookingService) anchorDay(ctx context.Context, userID uuid.UUID) (int, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("get user: %w", err)
	}
	return user.CreatedAt.In(s.cfg.Location).Day(), nil
}

func (s *bookingService) quota(ctx context.Context, userID uuid.UUID) (*Quota, error) {
	anchor, err := s.anchorDay(ctx, userID)
	if err != nil {
		return nil, err
	}
	w := dates.MonthlyWindow(dates.Today(s.cfg.Now(), s.cfg.Location), anchor)

	used, err := s.store.CountFreeSessions(ctx, userID, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("count free sessions: %w", err)
	}
	return &Quota{
		RemainingSessions:       max(0, s.cfg.FreeSessionsPerMonth-used),
		NextResetDate:           dates.Format(w.End),
		TotalSessionsThisPeriod: used,
		IsStudent:               true,
	}, nil
}

func (s *bookingService) RemainingStudentSessions(ctx context.Context, userID uuid.UUID) (*Quota, error) {
	profile, err := s.store.GetClientProfile(ctx, userID)
	if err != nil && !repo.IsNotFound(err) {
		return nil, fmt.Errorf("get client profile: %w", err)
	}
	if profile == nil || !profile.IsStudent {
		return &Quota{}, nil
	}
	return s.quota(ctx, userID)
}

func (s *bookingService) Cancel(ctx context.Context, sessionID, actingUserID uuid.UUID) (*repo.Session, error) {
	var (
		session *repo.Session
		pro     *repo.Professional
	)
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		session, err = s.store.LockSession(ctx, sessionID)
		if err != nil {
			if repo.IsNotFound(err) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("get session: %w", err)
		}
		pro, err = s.store.GetProfessional(ctx, session.ProfessionalID)
		if err != nil {
			return fmt.Errorf("get professional: %w", err)
		}

		if actingUserID != session.ClientUserID && actingUserID != pro.UserID {
			return ErrForbidden
		}
		if session.Status != repo.SessionScheduled && session.Status != repo.SessionConfirmed {
			return ErrNotCancellable
		}

		start, err := dates.At(session.Date, session.Time, s.cfg.Location)
		if err != nil {
			return fmt.Errorf("session start: %w", err)
		}
		now := s.now()
		if start.Sub(now) < s.cfg.CancellationNotice {
			return ErrTooLateToCancel
		}

		at := now.UTC()
		session.Status = repo.SessionCancelled
		session.CancelledAt = &at
		session.CancelledBy = &actingUserID
		if err := s.store.UpdateSessionStatus(ctx, session); err != nil {
			return fmt.Errorf("cancel session: %w", err)
		}
		if err := s.store.ReleaseTimeSlot(ctx, session.ProfessionalID, session.Date, session.Time); err != nil {
			return fmt.Errorf("release slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cancelled.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("by_client", actingUserID == session.ClientUserID),
	))
	slog.Info("session cancelled",
		"session_id", session.ID,
		"cancelled_by", actingUserID,
	)

	s.invalidate(ctx, pro.ID, session.Date)
	s.publish(ctx, events.SessionCancelled{
		SessionID:          session.ID,
		ClientUserID:       session.ClientUserID,
		ProfessionalID:     pro.ID,
		ProfessionalUserID: pro.UserID,
		ProfessionalName:   pro.DisplayName,
		Date:               dates.Format(session.Date),
		Time:               session.Time,
		CancelledBy:        actingUserID,
	})

	return s.reveal(session, true), nil
}

func (s *bookingService) Get(ctx context.Context, sessionID uuid.UUID, actor Actor) (*repo.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	party := actor.UserID == session.ClientUserID
	if !party {
		pro, err := s.store.GetProfessional(ctx, session.ProfessionalID)
		if err != nil {
			return nil, fmt.Errorf("get professional: %w", err)
		}
		party = actor.UserID == pro.UserID
	}
	if !party && !actor.Role.IsStaff() {
		return nil, ErrForbidden
	}
	return s.reveal(session, party), nil
}

func (s *bookingService) List(ctx context.Context, actor Actor, req ListRequest) ([]repo.Session, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 || req.PerPage > 100 {
		req.PerPage = 20
	}

	f := repo.SessionFilter{
		Status: req.Status,
		From:   req.From,
		To:     req.To,
		Limit:  req.PerPage,
		Offset: (req.Page - 1) * req.PerPage,
	}
	switch {
	case actor.Role.IsStaff():
	case actor.Role.IsProfessional():
		pro, err := s.store.GetProfessionalByUserID(ctx, actor.UserID)
		if err != nil {
			if repo.IsNotFound(err) {
				return []repo.Session{}, nil
			}
			return nil, fmt.Errorf("get professional: %w", err)
		}
		f.ProfessionalID = &pro.ID
	default:
		f.ClientUserID = &actor.UserID
	}

	sessions, err := s.store.ListSessions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	for i := range sessions {
		sessions[i].Concerns = nil
	}
	if sessions == nil {
		sessions = []repo.Session{}
	}
	return sessions, nil
}

var transitions = map[repo.SessionStatus]repo.SessionStatus{
	repo.SessionScheduled: repo.SessionConfirmed,
	repo.SessionConfirmed: repo.SessionOngoing,
	repo.SessionOngoing:   repo.SessionCompleted,
}

func (s *bookingService) UpdateStatus(ctx context.Context, sessionID, professionalUserID uuid.UUID, status repo.SessionStatus) (*repo.Session, error) {
	var session *repo.Session
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		session, err = s.store.LockSession(ctx, sessionID)
		if err != nil {
			if repo.IsNotFound(err) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("get session: %w", err)
		}
		pro, err := s.store.GetProfessional(ctx, session.ProfessionalID)
		if err != nil {
			return fmt.Errorf("get professional: %w", err)
		}
		if pro.UserID != professionalUserID {
			return ErrForbidden
		}
		if next, ok := transitions[session.Status]; !ok || next != status {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, session.Status, status)
		}

		session.Status = status
		if err := s.store.UpdateSessionStatus(ctx, session); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.reveal(session, true), nil
}

// reveal returns a copy of session with the concerns decrypted for the two
// parties of the session and stripped for everyone else.
func (s *bookingService) reveal(session *repo.Session, party bool) *repo.Session {
	out := *session
	if out.Concerns == nil {
		return &out
	}
	if !party {
		out.Concerns = nil
		return &out
	}
	plain, err := s.cipher.Decrypt(*out.Concerns)
	if err != nil {
		slog.Warn("decrypt session concerns failed", "session_id", out.ID, "err", err)
		out.Concerns = nil
		return &out
	}
	out.Concerns = &plain
	return &out
}

func (s *bookingService) invalidate(ctx context.Context, professionalID uuid.UUID, date time.Time) {
	if s.cache != nil {
		s.cache.InvalidateMonth(ctx, professionalID, date)
	}
}

// publish never fails the caller; the booking is already committed.
func (s *bookingService) publish(ctx context.Context, ev events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		slog.Warn("publish event failed", "subject", ev.Subject(), "err", err)
	}
}

func reason(err error) string {
	switch {
	case errors.Is(err, ErrProfessionalNotFound):
		return "professional_not_found"
	case errors.Is(err, ErrProfessionalUnavailable):
		return "professional_unavailable"
	case errors.Is(err, ErrSlotNotAvailable):
		return "slot_not_available"
	case errors.Is(err, ErrFreeSessionsStudentsOnly):
		return "not_student"
	case errors.Is(err, ErrFreeQuotaExhausted):
		return "quota_exhausted"
	default:
		return "error"
	}
}
