package repo

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

var professionalColumns = []string{
	"id", "user_id", "kind", "display_name", "is_available", "session_price", "created_at", "updated_at",
}

func (c *Client) findProfessional(ctx context.Context, pred *entsql.Predicate) (*Professional, error) {
	q, args := pg().Select(professionalColumns...).
		From(entsql.Table("professionals")).
		Where(pred).
		Query()

	var out *Professional
	err := c.query(ctx, q, args, func(rows *entsql.Rows) error {
		var p Professional
		if err := rows.Scan(&p.ID, &p.UserID, &p.Kind, &p.DisplayName, &p.IsAvailable,
			&p.SessionPrice, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		out = &p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get professional: %w", err)
	}
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (c *Client) GetProfessional(ctx context.Context, id uuid.UUID) (*Professional, error) {
	return c.findProfessional(ctx, entsql.EQ("id", id))
}

func (c *Client) GetProfessionalByUserID(ctx context.Context, userID uuid.UUID) (*Professional, error) {
	return c.findProfessional(ctx, entsql.EQ("user_id", userID))
}

func (c *Client) CreateProfessional(ctx context.Context, p *Professional) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	q, args := pg().Insert("professionals").
		Columns(professionalColumns...).
		Values(p.ID, p.UserID, p.Kind, p.DisplayName, p.IsAvailable, p.SessionPrice, p.CreatedAt, p.UpdatedAt).
		Query()
	if _, err := c.exec(ctx, q, args); err != nil {
		return fmt.Errorf("create professional: %w", err)
	}
	return nil
}

func (c *Client) SetProfessionalAvailable(ctx context.Context, id uuid.UUID, available bool) error {
	q, args := pg().Update("professionals").
		Set("is_available", available).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.EQ("id", id)).
		Query()
	n, err := c.exec(ctx, q, args)
	if err != nil {
		return fmt.Errorf("update professional: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
