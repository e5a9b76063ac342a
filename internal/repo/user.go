package repo

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

var userColumns = []string{"id", "full_name", "email", "phone", "role", "created_at", "updated_at"}

func scanUser(rows *entsql.Rows) (*User, error) {
	var u User
	if err := rows.Scan(&u.ID, &u.FullName, &u.Email, &u.Phone, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	q, args := pg().Select(userColumns...).
		From(entsql.Table("users")).
		Where(entsql.EQ("id", id)).
		Query()

	var out *User
	err := c.query(ctx, q, args, func(rows *entsql.Rows) (err error) {
		out, err = scanUser(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (c *Client) CreateUser(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	q, args := pg().Insert("users").
		Columns(userColumns...).
		Values(u.ID, u.FullName, u.Email, u.Phone, u.Role, u.CreatedAt, u.UpdatedAt).
		Query()
	if _, err := c.exec(ctx, q, args); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (c *Client) getClientProfile(ctx context.Context, userID uuid.UUID, lock bool) (*ClientProfile, error) {
	sel := pg().Select("user_id", "is_student").
		From(entsql.Table("client_profiles")).
		Where(entsql.EQ("user_id", userID))
	if lock {
		sel = sel.ForUpdate()
	}
	q, args := sel.Query()

	var out *ClientProfile
	err := c.query(ctx, q, args, func(rows *entsql.Rows) error {
		var p ClientProfile
		if err := rows.Scan(&p.UserID, &p.IsStudent); err != nil {
			return err
		}
		out = &p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get client profile: %w", err)
	}
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (c *Client) GetClientProfile(ctx context.Context, userID uuid.UUID) (*ClientProfile, error) {
	return c.getClientProfile(ctx, userID, false)
}

// LockClientProfile reads the profile with FOR UPDATE; it must run inside
// WithTx.
func (c *Client) LockClientProfile(ctx context.Context, userID uuid.UUID) (*ClientProfile, error) {
	return c.getClientProfile(ctx, userID, true)
}

func (c *Client) UpsertClientProfile(ctx context.Context, p *ClientProfile) error {
	now := time.Now().UTC()
	q, args := pg().Insert("client_profiles").
		Columns("user_id", "is_student", "created_at", "updated_at").
		Values(p.UserID, p.IsStudent, now, now).
		OnConflict(
			entsql.ConflictColumns("user_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := c.exec(ctx, q, args); err != nil {
		return fmt.Errorf("upsert client profile: %w", err)
	}
	return nil
}
