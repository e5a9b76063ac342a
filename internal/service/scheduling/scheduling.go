package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/counsel_backend/internal/repo"
	"github.com/Alijeyrad/counsel_backend/pkg/util/dates"
)

// ---------------------------------------------------------------------------
// Dependencies
// ---------------------------------------------------------------------------

type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetProfessional(ctx context.Context, id uuid.UUID) (*repo.Professional, error)
	GetProfessionalByUserID(ctx context.Context, userID uuid.UUID) (*repo.Professional, error)
	SetProfessionalAvailable(ctx context.Context, id uuid.UUID, available bool) error

	InsertTimeSlots(ctx context.Context, slots []repo.TimeSlot) error
	ListTimeSlots(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]repo.TimeSlot, error)
	LockTimeSlot(ctx context.Context, professionalID uuid.UUID, date time.Time, clock string) (*repo.TimeSlot, error)
	SetTimeSlotAvailable(ctx context.Context, id uuid.UUID, available bool) error
	MonthlyAvailability(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]repo.DayAvailability, error)
}

// Cache stores monthly aggregates. A nil Cache disables caching.
type Cache interface {
	GetMonth(ctx context.Context, professionalID uuid.UUID, year int, month time.Month) (MonthAvailability, bool)
	SetMonth(ctx context.Context, professionalID uuid.UUID, year int, month time.Month, v MonthAvailability)
	InvalidateMonth(ctx context.Context, professionalID uuid.UUID, date time.Time)
}

type Config struct {
	Location     *time.Location
	DayStartHour int
	DayEndHour   int
	Now          func() time.Time
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// DayAvailability is the calendar summary of one date.
type DayAvailability struct {
	IsAvailable    bool `json:"is_available"`
	TotalSlots     int  `json:"total_slots"`
	AvailableSlots int  `json:"available_slots"`
}

// MonthAvailability maps YYYY-MM-DD to the summary of that date.
type MonthAvailability map[string]DayAvailability

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	// Public
	GetAvailableTimeSlots(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]repo.TimeSlot, error)
	GetMonthlyAvailability(ctx context.Context, professionalID uuid.UUID, year int, month time.Month) (MonthAvailability, error)

	// Professional self-service
	GetDaySchedule(ctx context.Context, professionalUserID uuid.UUID, date time.Time) ([]repo.TimeSlot, error)
	SetAvailability(ctx context.Context, professionalUserID uuid.UUID, date time.Time, times []string, available bool) ([]repo.TimeSlot, error)
	SetAcceptingBookings(ctx context.Context, professionalUserID uuid.UUID, enabled bool) (*repo.Professional, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type schedulingService struct {
	store Store
	cache Cache
	cfg   Config
}

func New(store Store, cache Cache, cfg Config) Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.DayStartHour == 0 && cfg.DayEndHour == 0 {
		cfg.DayStartHour, cfg.DayEndHour = 9, 17
	}
	return &schedulingService{store: store, cache: cache, cfg: cfg}
}

func (s *schedulingService) now() time.Time {
	return s.cfg.Now().In(s.cfg.Location)
}

// defaultSlots synthesises the hourly grid for date. On today it skips hours
// that start within the next hour or already passed.
func (s *schedulingService) defaultSlots(professionalID uuid.UUID, date time.Time) []repo.TimeSlot {
	now := s.now()
	today := dates.Day(now)

	var slots []repo.TimeSlot
	for h := s.cfg.DayStartHour; h <= s.cfg.DayEndHour; h++ {
		if date.Equal(today) && h <= now.Hour()+1 {
			continue
		}
		slots = append(slots, repo.TimeSlot{
			ProfessionalID: professionalID,
			Date:           date,
			Time:           dates.Clock(h),
		})
	}
	return slots
}

// ensureDay returns the slots of date, generating and persisting the default
// grid the first time the date is looked at.
func (s *schedulingService) ensureDay(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]repo.TimeSlot, error) {
	slots, err := s.store.ListTimeSlots(ctx, professionalID, date)
	if err != nil {
		return nil, err
	}
	if len(slots) > 0 {
		return slots, nil
	}

	generated := s.defaultSlots(professionalID, date)
	if len(generated) == 0 {
		return nil, nil
	}
	if err := s.store.InsertTimeSlots(ctx, generated); err != nil {
		return nil, err
	}
	s.invalidate(ctx, professionalID, date)
	// re-read: a concurrent caller may have won the insert
	return s.store.ListTimeSlots(ctx, professionalID, date)
}

func (s *schedulingService) getProfessional(ctx context.Context, id uuid.UUID) (*repo.Professional, error) {
	p, err := s.store.GetProfessional(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrProfessionalNotFound
		}
		return nil, fmt.Errorf("get professional: %w", err)
	}
	return p, nil
}

func (s *schedulingService) professionalOf(ctx context.Context, userID uuid.UUID) (*repo.Professional, error) {
	p, err := s.store.GetProfessionalByUserID(ctx, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrNotProfessional
		}
		return nil, fmt.Errorf("get professional: %w", err)
	}
	return p, nil
}

func (s *schedulingService) GetAvailableTimeSlots(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]repo.TimeSlot, error) {
	date = dates.Day(date)
	if _, err := s.getProfessional(ctx, professionalID); err != nil {
		return nil, err
	}

	now := s.now()
	today := dates.Day(now)
	if date.Before(today) {
		return []repo.TimeSlot{}, nil
	}

	slots, err := s.ensureDay(ctx, professionalID, date)
	if err != nil {
		return nil, fmt.Errorf("ensure day slots: %w", err)
	}

	open := make([]repo.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		if !slot.Open() {
			continue
		}
		if date.Equal(today) && s.tooSoon(slot, now) {
			continue
		}
		open = append(open, slot)
	}
	return open, nil
}

func (s *schedulingService) tooSoon(slot repo.TimeSlot, now time.Time) bool {
	h, _, err := dates.ParseClock(slot.Time)
	return err != nil || h <= now.Hour()+1
}

func (s *schedulingService) GetDaySchedule(ctx context.Context, professionalUserID uuid.UUID, date time.Time) ([]repo.TimeSlot, error) {
	date = dates.Day(date)
	p, err := s.professionalOf(ctx, professionalUserID)
	if err != nil {
		return nil, err
	}
	if date.Before(dates.Day(s.now())) {
		slots, err := s.store.ListTimeSlots(ctx, p.ID, date)
		if err != nil {
			return nil, fmt.Errorf("list time slots: %w", err)
		}
		return slots, nil
	}

	slots, err := s.ensureDay(ctx, p.ID, date)
	if err != nil {
		return nil, fmt.Errorf("ensure day slots: %w", err)
	}
	return slots, nil
}

func (s *schedulingService) SetAvailability(ctx context.Context, professionalUserID uuid.UUID, date time.Time, times []string, available bool) ([]repo.TimeSlot, error) {
	date = dates.Day(date)
	if len(times) == 0 {
		return nil, ErrNoTimes
	}
	for _, t := range times {
		if _, _, err := dates.ParseClock(t); err != nil {
			return nil, err
		}
	}
	if date.Before(dates.Day(s.now())) {
		return nil, ErrPastDate
	}

	p, err := s.professionalOf(ctx, professionalUserID)
	if err != nil {
		return nil, err
	}

	var out []repo.TimeSlot
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.ensureDay(ctx, p.ID, date); err != nil {
			return fmt.Errorf("ensure day slots: %w", err)
		}

		missing := make([]repo.TimeSlot, 0, len(times))
		for _, t := range times {
			missing = append(missing, repo.TimeSlot{ProfessionalID: p.ID, Date: date, Time: t})
		}
		if err := s.store.InsertTimeSlots(ctx, missing); err != nil {
			return fmt.Errorf("insert time slots: %w", err)
		}

		for _, t := range times {
			slot, err := s.store.LockTimeSlot(ctx, p.ID, date, t)
			if err != nil {
				return fmt.Errorf("lock time slot: %w", err)
			}
			if !available && slot.IsBooked {
				return fmt.Errorf("%w: %s", ErrSlotBooked, t)
			}
			if slot.IsAvailable == available {
				continue
			}
			if err := s.store.SetTimeSlotAvailable(ctx, slot.ID, available); err != nil {
				return fmt.Errorf("update time slot: %w", err)
			}
		}

		out, err = s.store.ListTimeSlots(ctx, p.ID, date)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, p.ID, date)
	slog.Info("availability updated",
		"professional_id", p.ID,
		"date", dates.Format(date),
		"times", len(times),
		"available", available,
	)
	return out, nil
}

func (s *schedulingService) SetAcceptingBookings(ctx context.Context, professionalUserID uuid.UUID, enabled bool) (*repo.Professional, error) {
	p, err := s.professionalOf(ctx, professionalUserID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetProfessionalAvailable(ctx, p.ID, enabled); err != nil {
		return nil, fmt.Errorf("update professional: %w", err)
	}
	p.IsAvailable = enabled
	return p, nil
}

func (s *schedulingService) GetMonthlyAvailability(ctx context.Context, professionalID uuid.UUID, year int, month time.Month) (MonthAvailability, error) {
	if month < time.January || month > time.December {
		return nil, ErrInvalidMonth
	}
	if _, err := s.getProfessional(ctx, professionalID); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if v, ok := s.cache.GetMonth(ctx, professionalID, year, month); ok {
			return v, nil
		}
	}

	r := dates.MonthRange(year, month)
	days, err := s.store.MonthlyAvailability(ctx, professionalID, r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("monthly availability: %w", err)
	}

	out := make(MonthAvailability, len(days))
	for _, d := range days {
		out[dates.Format(d.Date)] = DayAvailability{
			IsAvailable:    d.AvailableSlots > 0,
			TotalSlots:     d.TotalSlots,
			AvailableSlots: d.AvailableSlots,
		}
	}

	if s.cache != nil {
		s.cache.SetMonth(ctx, professionalID, year, month, out)
	}
	return out, nil
}

func (s *schedulingService) invalidate(ctx context.Context, professionalID uuid.UUID, date time.Time) {
	if s.cache != nil {
		s.cache.InvalidateMonth(ctx, professionalID, date)
	}
}
