package repo

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/Alijeyrad/counsel_backend/pkg/util/dates"
)

var sessionColumns = []string{
	"id", "client_user_id", "professional_id", "date", "time", "duration_minutes", "price",
	"concerns", "status", "cancelled_at", "cancelled_by", "created_at", "updated_at",
}

func scanSession(rows *entsql.Rows) (Session, error) {
	var s Session
	err := rows.Scan(&s.ID, &s.ClientUserID, &s.ProfessionalID, &s.Date, &s.Time, &s.DurationMinutes,
		&s.Price, &s.Concerns, &s.Status, &s.CancelledAt, &s.CancelledBy, &s.CreatedAt, &s.UpdatedAt)
	s.Date = dates.Day(s.Date)
	return s, err
}

func (c *Client) CreateSession(ctx context.Context, s *Session) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now

	q, args := pg().Insert("sessions").
		Columns(sessionColumns...).
		Values(s.ID, s.ClientUserID, s.ProfessionalID, dates.Format(s.Date), s.Time, s.DurationMinutes,
			s.Price, s.Concerns, s.Status, s.CancelledAt, s.CancelledBy, s.CreatedAt, s.UpdatedAt).
		Query()
	if _, err := c.exec(ctx, q, args); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (c *Client) getSession(ctx context.Context, id uuid.UUID, lock bool) (*Session, error) {
	sel := pg().Select(sessionColumns...).
		From(entsql.Table("sessions")).
		Where(entsql.EQ("id", id))
	if lock {
		sel = sel.ForUpdate()
	}
	q, args := sel.Query()

	var out *Session
	err := c.query(ctx, q, args, func(rows *entsql.Rows) error {
		s, err := scanSession(rows)
		if err != nil {
			return err
		}
		out = &s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (c *Client) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return c.getSession(ctx, id, false)
}

// LockSession reads the session with FOR UPDATE; it must run inside WithTx.
func (c *Client) LockSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return c.getSession(ctx, id, true)
}

// UpdateSessionStatus writes the status and, for cancellations, who
// cancelled it and when.
func (c *Client) UpdateSessionStatus(ctx context.Context, s *Session) error {
	s.UpdatedAt = time.Now().UTC()
	q, args := pg().Update("sessions").
		Set("status", s.Status).
		Set("cancelled_at", s.CancelledAt).
		Set("cancelled_by", s.CancelledBy).
		Set("updated_at", s.UpdatedAt).
		Where(entsql.EQ("id", s.ID)).
		Query()
	n, err := c.exec(ctx, q, args)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountFreeSessions counts the user's non-cancelled zero-price sessions dated
// within [from, to).
func (c *Client) CountFreeSessions(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	q, args := pg().Select(entsql.Count("*")).
		From(entsql.Table("sessions")).
		Where(entsql.And(
			entsql.EQ("client_user_id", userID),
			entsql.GTE("date", dates.Format(from)),
			entsql.LT("date", dates.Format(to)),
			entsql.NEQ("status", SessionCancelled),
			entsql.EQ("price", 0),
		)).
		Query()

	var n int
	err := c.query(ctx, q, args, func(rows *entsql.Rows) error {
		return rows.Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("count free sessions: %w", err)
	}
	return n, nil
}

func (c *Client) ListSessions(ctx context.Context, f SessionFilter) ([]Session, error) {
	var preds []*entsql.Predicate
	if f.ClientUserID != nil {
		preds = append(preds, entsql.EQ("client_user_id", *f.ClientUserID))
	}
	if f.ProfessionalID != nil {
		preds = append(preds, entsql.EQ("professional_id", *f.ProfessionalID))
	}
	if f.Status != nil {
		preds = append(preds, entsql.EQ("status", *f.Status))
	}
	if f.From != nil {
		preds = append(preds, entsql.GTE("date", dates.Format(*f.From)))
	}
	if f.To != nil {
		preds = append(preds, entsql.LT("date", dates.Format(*f.To)))
	}

	sel := pg().Select(sessionColumns...).
		From(entsql.Table("sessions")).
		OrderBy(entsql.Desc("date"), entsql.Desc("time"))
	if len(preds) > 0 {
		sel = sel.Where(entsql.And(preds...))
	}
	if f.Limit > 0 {
		sel = sel.Limit(f.Limit)
	}
	if f.Offset > 0 {
		sel = sel.Offset(f.Offset)
	}
	q, args := sel.Query()

	var out []Session
	err := c.query(ctx, q, args, func(rows *entsql.Rows) error {
		s, err := scanSession(rows)
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}
