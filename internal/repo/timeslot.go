package repo

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/Alijeyrad/counsel_backend/pkg/util/dates"
)

var timeSlotColumns = []string{
	"id", "professional_id", "date", "time", "is_booked", "is_available", "created_at", "updated_at",
}

func scanTimeSlot(rows *entsql.Rows) (TimeSlot, error) {
	var s TimeSlot
	err := rows.Scan(&s.ID, &s.ProfessionalID, &s.Date, &s.Time, &s.IsBooked, &s.IsAvailable, &s.CreatedAt, &s.UpdatedAt)
	s.Date = dates.Day(s.Date)
	return s, err
}

// InsertTimeSlots inserts slots, silently skipping any (professional, date,
// time) that already exists.
func (c *Client) InsertTimeSlots(ctx context.Context, slots []TimeSlot) error {
	if len(slots) == 0 {
		return nil
	}

	now := time.Now().UTC()
	ins := pg().Insert("time_slots").Columns(timeSlotColumns...)
	for i := range slots {
		s := &slots[i]
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		s.CreatedAt, s.UpdatedAt = now, now
		ins = ins.Values(s.ID, s.ProfessionalID, dates.Format(s.Date), s.Time, s.IsBooked, s.IsAvailable, now, now)
	}
	q, args := ins.OnConflict(
		entsql.ConflictColumns("professional_id", "date", "time"),
		entsql.DoNothing(),
	).Query()

	if _, err := c.exec(ctx, q, args); err != nil {
		return fmt.Errorf("insert time slots: %w", err)
	}
	return nil
}

// ListTimeSlots returns every slot of the professional on date, ordered by
// time.
func (c *Client) ListTimeSlots(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]TimeSlot, error) {
	q, args := pg().Select(timeSlotColumns...).
		From(entsql.Table("time_slots")).
		Where(entsql.And(
			entsql.EQ("professional_id", professionalID),
			entsql.EQ("date", dates.Format(date)),
		)).
		OrderBy("time").
		Query()

	var out []TimeSlot
	err := c.query(ctx, q, args, func(rows *entsql.Rows) error {
		s, err := scanTimeSlot(rows)
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return out, nil
}

// LockTimeSlot reads a single slot with FOR UPDATE. Concurrent callers on the
// same slot block until the holding transaction ends.
func (c *Client) LockTimeSlot(ctx context.Context, professionalID uuid.UUID, date time.Time, clock string) (*TimeSlot, error) {
	q, args := pg().Select(timeSlotColumns...).
		From(entsql.Table("time_slots")).
		Where(entsql.And(
			entsql.EQ("professional_id", professionalID),
			entsql.EQ("date", dates.Format(date)),
			entsql.EQ("time", clock),
		)).
		ForUpdate().
		Query()

	var out *TimeSlot
	err := c.query(ctx, q, args, func(rows *entsql.Rows) error {
		s, err := scanTimeSlot(rows)
		if err != nil {
			return err
		}
		out = &s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("lock time slot: %w", err)
	}
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (c *Client) updateTimeSlot(ctx context.Context, id uuid.UUID, column string, value bool) error {
	q, args := pg().Update("time_slots").
		Set(column, value).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.EQ("id", id)).
		Query()
	n, err := c.exec(ctx, q, args)
	if err != nil {
		return fmt.Errorf("update time slot: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Client) SetTimeSlotBooked(ctx context.Context, id uuid.UUID, booked bool) error {
	return c.updateTimeSlot(ctx, id, "is_booked", booked)
}

func (c *Client) SetTimeSlotAvailable(ctx context.Context, id uuid.UUID, available bool) error {
	return c.updateTimeSlot(ctx, id, "is_available", available)
}

// ReleaseTimeSlot clears is_booked on the slot backing a session, leaving
// is_available as the professional declared it.
func (c *Client) ReleaseTimeSlot(ctx context.Context, professionalID uuid.UUID, date time.Time, clock string) error {
	q, args := pg().Update("time_slots").
		Set("is_booked", false).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.And(
			entsql.EQ("professional_id", professionalID),
			entsql.EQ("date", dates.Format(date)),
			entsql.EQ("time", clock),
		)).
		Query()
	if _, err := c.exec(ctx, q, args); err != nil {
		return fmt.Errorf("release time slot: %w", err)
	}
	return nil
}

const monthlyAvailabilityQuery = `
SELECT "date",
       COUNT(*) AS total_slots,
       COUNT(*) FILTER (WHERE is_available AND NOT is_booked) AS available_slots
FROM time_slots
WHERE professional_id = $1 AND "date" >= $2 AND "date" < $3
GROUP BY "date"
ORDER BY "date"`

// MonthlyAvailability aggregates slot rows per date within [from, to).
func (c *Client) MonthlyAvailability(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]DayAvailability, error) {
	args := []any{professionalID, dates.Format(from), dates.Format(to)}

	var out []DayAvailability
	err := c.query(ctx, monthlyAvailabilityQuery, args, func(rows *entsql.Rows) error {
		var d DayAvailability
		if err := rows.Scan(&d.Date, &d.TotalSlots, &d.AvailableSlots); err != nil {
			return err
		}
		d.Date = dates.Day(d.Date)
		out = append(out, d)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("monthly availability: %w", err)
	}
	return out, nil
}
