// Package repotest provides an in-memory implementation of the repo.Client
// methods used by the services. A single mutex stands in for row locks:
// WithTx holds it for the whole transaction and restores a snapshot when fn
// fails, so tests observe the same all-or-nothing behaviour as Postgres.
package repotest

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/counsel_backend/internal/repo"
)

type txKey struct{}

type state struct {
	users         map[uuid.UUID]repo.User
	profiles      map[uuid.UUID]repo.ClientProfile
	professionals map[uuid.UUID]repo.Professional
	slots         map[uuid.UUID]repo.TimeSlot
	sessions      map[uuid.UUID]repo.Session
	notifications []repo.Notification
	payments      map[uuid.UUID]repo.PlatformPayment
	responses     []repo.QuestionnaireResponse
}

func (s state) clone() state {
	return state{
		users:         maps.Clone(s.users),
		profiles:      maps.Clone(s.profiles),
		professionals: maps.Clone(s.professionals),
		slots:         maps.Clone(s.slots),
		sessions:      maps.Clone(s.sessions),
		notifications: slices.Clone(s.notifications),
		payments:      maps.Clone(s.payments),
		responses:     slices.Clone(s.responses),
	}
}

type Store struct {
	mu       sync.Mutex
	st       state
	failures map[string]error
	clock    time.Time
}

func New() *Store {
	return &Store{
		st: state{
			users:         map[uuid.UUID]repo.User{},
			profiles:      map[uuid.UUID]repo.ClientProfile{},
			professionals: map[uuid.UUID]repo.Professional{},
			slots:         map[uuid.UUID]repo.TimeSlot{},
			sessions:      map[uuid.UUID]repo.Session{},
			payments:      map[uuid.UUID]repo.PlatformPayment{},
		},
		failures: map[string]error{},
	}
}

// FailOn makes every later call of the named method return err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

// do runs fn under the store lock unless ctx already belongs to a
// transaction, which holds the lock itself.
func (s *Store) do(ctx context.Context, method string, fn func() error) error {
	if ctx.Value(txKey{}) == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	if err := s.failures[method]; err != nil {
		return err
	}
	return fn()
}

// now hands out strictly increasing timestamps so ordering by creation
// time is deterministic.
func (s *Store) now() time.Time {
	t := time.Now().UTC()
	if !t.After(s.clock) {
		t = s.clock.Add(time.Microsecond)
	}
	s.clock = t
	return t
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// users
// ---------------------------------------------------------------------------

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*repo.User, error) {
	var out *repo.User
	err := s.do(ctx, "GetUser", func() error {
		u, ok := s.st.users[id]
		if !ok {
			return repo.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (s *Store) CreateUser(ctx context.Context, u *repo.User) error {
	return s.do(ctx, "CreateUser", func() error {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		if _, ok := s.st.users[u.ID]; ok {
			return repo.ErrConflict
		}
		for _, other := range s.st.users {
			if sameContact(other.Email, u.Email) || sameContact(other.Phone, u.Phone) {
				return repo.ErrConflict
			}
		}
		now := s.now()
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		u.UpdatedAt = now
		s.st.users[u.ID] = *u
		return nil
	})
}

func sameContact(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func (s *Store) GetClientProfile(ctx context.Context, userID uuid.UUID) (*repo.ClientProfile, error) {
	var out *repo.ClientProfile
	err := s.do(ctx, "GetClientProfile", func() error {
		p, ok := s.st.profiles[userID]
		if !ok {
			return repo.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (s *Store) LockClientProfile(ctx context.Context, userID uuid.UUID) (*repo.ClientProfile, error) {
	return s.GetClientProfile(ctx, userID)
}

func (s *Store) UpsertClientProfile(ctx context.Context, p *repo.ClientProfile) error {
	return s.do(ctx, "UpsertClientProfile", func() error {
		s.st.profiles[p.UserID] = *p
		return nil
	})
}

// ---------------------------------------------------------------------------
// professionals
// ---------------------------------------------------------------------------

func (s *Store) GetProfessional(ctx context.Context, id uuid.UUID) (*repo.Professional, error) {
	var out *repo.Professional
	err := s.do(ctx, "GetProfessional", func() error {
		p, ok := s.st.professionals[id]
		if !ok {
			return repo.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (s *Store) GetProfessionalByUserID(ctx context.Context, userID uuid.UUID) (*repo.Professional, error) {
	var out *repo.Professional
	err := s.do(ctx, "GetProfessionalByUserID", func() error {
		for _, p := range s.st.professionals {
			if p.UserID == userID {
				out = &p
				return nil
			}
		}
		return repo.ErrNotFound
	})
	return out, err
}

func (s *Store) CreateProfessional(ctx context.Context, p *repo.Professional) error {
	return s.do(ctx, "CreateProfessional", func() error {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		for _, other := range s.st.professionals {
			if other.UserID == p.UserID {
				return repo.ErrConflict
			}
		}
		now := s.now()
		p.CreatedAt, p.UpdatedAt = now, now
		s.st.professionals[p.ID] = *p
		return nil
	})
}

func (s *Store) SetProfessionalAvailable(ctx context.Context, id uuid.UUID, available bool) error {
	return s.do(ctx, "SetProfessionalAvailable", func() error {
		p, ok := s.st.professionals[id]
		if !ok {
			return repo.ErrNotFound
		}
		p.IsAvailable = available
		p.UpdatedAt = s.now()
		s.st.professionals[id] = p
		return nil
	})
}

// ---------------------------------------------------------------------------
// time slots
// ---------------------------------------------------------------------------

func sameSlot(s repo.TimeSlot, professionalID uuid.UUID, date time.Time, clock string) bool {
	return s.ProfessionalID == professionalID && s.Date.Equal(date) && s.Time == clock
}

func (s *Store) findSlot(professionalID uuid.UUID, date time.Time, clock string) (repo.TimeSlot, bool) {
	for _, slot := range s.st.slots {
		if sameSlot(slot, professionalID, date, clock) {
			return slot, true
		}
	}
	return repo.TimeSlot{}, false
}

func (s *Store) InsertTimeSlots(ctx context.Context, slots []repo.TimeSlot) error {
	return s.do(ctx, "InsertTimeSlots", func() error {
		now := s.now()
		for i := range slots {
			slot := &slots[i]
			if _, exists := s.findSlot(slot.ProfessionalID, slot.Date, slot.Time); exists {
				continue
			}
			if slot.ID == uuid.Nil {
				slot.ID = uuid.New()
			}
			slot.CreatedAt, slot.UpdatedAt = now, now
			s.st.slots[slot.ID] = *slot
		}
		return nil
	})
}

func (s *Store) ListTimeSlots(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]repo.TimeSlot, error) {
	var out []repo.TimeSlot
	err := s.do(ctx, "ListTimeSlots", func() error {
		for _, slot := range s.st.slots {
			if slot.ProfessionalID == professionalID && slot.Date.Equal(date) {
				out = append(out, slot)
			}
		}
		slices.SortFunc(out, func(a, b repo.TimeSlot) int { return strings.Compare(a.Time, b.Time) })
		return nil
	})
	return out, err
}

func (s *Store) LockTimeSlot(ctx context.Context, professionalID uuid.UUID, date time.Time, clock string) (*repo.TimeSlot, error) {
	var out *repo.TimeSlot
	err := s.do(ctx, "LockTimeSlot", func() error {
		slot, ok := s.findSlot(professionalID, date, clock)
		if !ok {
			return repo.ErrNotFound
		}
		out = &slot
		return nil
	})
	return out, err
}

func (s *Store) updateSlot(ctx context.Context, method string, id uuid.UUID, fn func(*repo.TimeSlot)) error {
	return s.do(ctx, method, func() error {
		slot, ok := s.st.slots[id]
		if !ok {
			return repo.ErrNotFound
		}
		fn(&slot)
		slot.UpdatedAt = s.now()
		s.st.slots[id] = slot
		return nil
	})
}

func (s *Store) SetTimeSlotBooked(ctx context.Context, id uuid.UUID, booked bool) error {
	return s.updateSlot(ctx, "SetTimeSlotBooked", id, func(slot *repo.TimeSlot) { slot.IsBooked = booked })
}

func (s *Store) SetTimeSlotAvailable(ctx context.Context, id uuid.UUID, available bool) error {
	return s.updateSlot(ctx, "SetTimeSlotAvailable", id, func(slot *repo.TimeSlot) { slot.IsAvailable = available })
}

func (s *Store) ReleaseTimeSlot(ctx context.Context, professionalID uuid.UUID, date time.Time, clock string) error {
	return s.do(ctx, "ReleaseTimeSlot", func() error {
		slot, ok := s.findSlot(professionalID, date, clock)
		if !ok {
			return nil
		}
		slot.IsBooked = false
		slot.UpdatedAt = s.now()
		s.st.slots[slot.ID] = slot
		return nil
	})
}

func (s *Store) MonthlyAvailability(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]repo.DayAvailability, error) {
	var out []repo.DayAvailability
	err := s.do(ctx, "MonthlyAvailability", func() error {
		byDate := map[time.Time]*repo.DayAvailability{}
		for _, slot := range s.st.slots {
			if slot.ProfessionalID != professionalID || slot.Date.Before(from) || !slot.Date.Before(to) {
				continue
			}
			d, ok := byDate[slot.Date]
			if !ok {
				d = &repo.DayAvailability{Date: slot.Date}
				byDate[slot.Date] = d
			}
			d.TotalSlots++
			if slot.Open() {
				d.AvailableSlots++
			}
		}
		for _, d := range byDate {
			out = append(out, *d)
		}
		slices.SortFunc(out, func(a, b repo.DayAvailability) int { return a.Date.Compare(b.Date) })
		return nil
	})
	return out, err
}

// ---------------------------------------------------------------------------
// sessions
// ---------------------------------------------------------------------------

func (s *Store) CreateSession(ctx context.Context, sess *repo.Session) error {
	return s.do(ctx, "CreateSession", func() error {
		if sess.ID == uuid.Nil {
			sess.ID = uuid.New()
		}
		for _, other := range s.st.sessions {
			if other.Status != repo.SessionCancelled && other.ProfessionalID == sess.ProfessionalID &&
				other.Date.Equal(sess.Date) && other.Time == sess.Time {
				return repo.ErrConflict
			}
		}
		now := s.now()
		sess.CreatedAt, sess.UpdatedAt = now, now
		s.st.sessions[sess.ID] = *sess
		return nil
	})
}

func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*repo.Session, error) {
	var out *repo.Session
	err := s.do(ctx, "GetSession", func() error {
		sess, ok := s.st.sessions[id]
		if !ok {
			return repo.ErrNotFound
		}
		out = &sess
		return nil
	})
	return out, err
}

func (s *Store) LockSession(ctx context.Context, id uuid.UUID) (*repo.Session, error) {
	return s.GetSession(ctx, id)
}

func (s *Store) UpdateSessionStatus(ctx context.Context, sess *repo.Session) error {
	return s.do(ctx, "UpdateSessionStatus", func() error {
		cur, ok := s.st.sessions[sess.ID]
		if !ok {
			return repo.ErrNotFound
		}
		sess.UpdatedAt = s.now()
		cur.Status = sess.Status
		cur.CancelledAt = sess.CancelledAt
		cur.CancelledBy = sess.CancelledBy
		cur.UpdatedAt = sess.UpdatedAt
		s.st.sessions[sess.ID] = cur
		return nil
	})
}

func (s *Store) CountFreeSessions(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	var n int
	err := s.do(ctx, "CountFreeSessions", func() error {
		for _, sess := range s.st.sessions {
			if sess.ClientUserID == userID && sess.Price == 0 && sess.Status != repo.SessionCancelled &&
				!sess.Date.Before(from) && sess.Date.Before(to) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (s *Store) ListSessions(ctx context.Context, f repo.SessionFilter) ([]repo.Session, error) {
	var out []repo.Session
	err := s.do(ctx, "ListSessions", func() error {
		for _, sess := range s.st.sessions {
			switch {
			case f.ClientUserID != nil && sess.ClientUserID != *f.ClientUserID,
				f.ProfessionalID != nil && sess.ProfessionalID != *f.ProfessionalID,
				f.Status != nil && sess.Status != *f.Status,
				f.From != nil && sess.Date.Before(*f.From),
				f.To != nil && !sess.Date.Before(*f.To):
				continue
			}
			out = append(out, sess)
		}
		slices.SortFunc(out, func(a, b repo.Session) int {
			if c := b.Date.Compare(a.Date); c != 0 {
				return c
			}
			return strings.Compare(b.Time, a.Time)
		})
		out = page(out, f.Limit, f.Offset)
		return nil
	})
	return out, err
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ---------------------------------------------------------------------------
// notifications
// ---------------------------------------------------------------------------

func (s *Store) CreateNotification(ctx context.Context, n *repo.Notification) error {
	return s.do(ctx, "CreateNotification", func() error {
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		n.CreatedAt = s.now()
		s.st.notifications = append(s.st.notifications, *n)
		return nil
	})
}

func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]repo.Notification, error) {
	var out []repo.Notification
	err := s.do(ctx, "ListNotifications", func() error {
		for i := len(s.st.notifications) - 1; i >= 0; i-- {
			n := s.st.notifications[i]
			if n.UserID != userID || (unreadOnly && n.IsRead) {
				continue
			}
			out = append(out, n)
		}
		out = page(out, limit, offset)
		return nil
	})
	return out, err
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.do(ctx, "MarkNotificationRead", func() error {
		for i, n := range s.st.notifications {
			if n.ID == id && n.UserID == userID {
				s.st.notifications[i].IsRead = true
				return nil
			}
		}
		return repo.ErrNotFound
	})
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.do(ctx, "MarkAllNotificationsRead", func() error {
		for i, n := range s.st.notifications {
			if n.UserID == userID && !n.IsRead {
				s.st.notifications[i].IsRead = true
				count++
			}
		}
		return nil
	})
	return count, err
}

// ---------------------------------------------------------------------------
// platform fee payments
// ---------------------------------------------------------------------------

func (s *Store) CreatePlatformPayment(ctx context.Context, p *repo.PlatformPayment) error {
	return s.do(ctx, "CreatePlatformPayment", func() error {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		for _, other := range s.st.payments {
			if other.Authority == p.Authority {
				return repo.ErrConflict
			}
		}
		now := s.now()
		p.CreatedAt, p.UpdatedAt = now, now
		s.st.payments[p.ID] = *p
		return nil
	})
}

func (s *Store) LockPlatformPaymentByAuthority(ctx context.Context, authority string) (*repo.PlatformPayment, error) {
	var out *repo.PlatformPayment
	err := s.do(ctx, "LockPlatformPaymentByAuthority", func() error {
		for _, p := range s.st.payments {
			if p.Authority == authority {
				out = &p
				return nil
			}
		}
		return repo.ErrNotFound
	})
	return out, err
}

func (s *Store) UpdatePlatformPayment(ctx context.Context, p *repo.PlatformPayment) error {
	return s.do(ctx, "UpdatePlatformPayment", func() error {
		if _, ok := s.st.payments[p.ID]; !ok {
			return repo.ErrNotFound
		}
		p.UpdatedAt = s.now()
		s.st.payments[p.ID] = *p
		return nil
	})
}

func (s *Store) LatestPaidPlatformPayment(ctx context.Context, userID uuid.UUID) (*repo.PlatformPayment, error) {
	var out *repo.PlatformPayment
	err := s.do(ctx, "LatestPaidPlatformPayment", func() error {
		for _, p := range s.st.payments {
			if p.UserID != userID || p.Status != repo.PaymentPaid || p.PaidAt == nil {
				continue
			}
			if out == nil || p.PaidAt.After(*out.PaidAt) {
				out = &p
			}
		}
		if out == nil {
			return repo.ErrNotFound
		}
		return nil
	})
	return out, err
}

// ---------------------------------------------------------------------------
// questionnaires
// ---------------------------------------------------------------------------

func (s *Store) CreateQuestionnaireResponse(ctx context.Context, r *repo.QuestionnaireResponse) error {
	return s.do(ctx, "CreateQuestionnaireResponse", func() error {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		r.CreatedAt = s.now()
		s.st.responses = append(s.st.responses, *r)
		return nil
	})
}

func (s *Store) ListQuestionnaireResponses(ctx context.Context, userID uuid.UUID, kind string) ([]repo.QuestionnaireResponse, error) {
	var out []repo.QuestionnaireResponse
	err := s.do(ctx, "ListQuestionnaireResponses", func() error {
		for i := len(s.st.responses) - 1; i >= 0; i-- {
			r := s.st.responses[i]
			if r.UserID == userID && r.Kind == kind {
				out = append(out, r)
			}
		}
		return nil
	})
	return out, err
}

// ---------------------------------------------------------------------------
// inspection helpers for assertions
// ---------------------------------------------------------------------------

// Slots returns every stored slot, unordered.
func (s *Store) Slots() []repo.TimeSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Collect(maps.Values(s.st.slots))
}

// Sessions returns every stored session, unordered.
func (s *Store) Sessions() []repo.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Collect(maps.Values(s.st.sessions))
}

// Professionals returns every stored professional, unordered.
func (s *Store) Professionals() []repo.Professional {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Collect(maps.Values(s.st.professionals))
}

// Notifications returns the notifications of one user, oldest first.
func (s *Store) Notifications(userID uuid.UUID) []repo.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repo.Notification
	for _, n := range s.st.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}
