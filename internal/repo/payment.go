package repo

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

var platformPaymentColumns = []string{
	"id", "user_id", "amount", "authority", "status", "ref_id", "paid_at", "created_at", "updated_at",
}

func scanPlatformPayment(rows *entsql.Rows) (*PlatformPayment, error) {
	var p PlatformPayment
	if err := rows.Scan(&p.ID, &p.UserID, &p.Amount, &p.Authority, &p.Status, &p.RefID, &p.PaidAt,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreatePlatformPayment(ctx context.Context, p *PlatformPayment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	q, args := pg().Insert("platform_fee_payments").
		Columns(platformPaymentColumns...).
		Values(p.ID, p.UserID, p.Amount, p.Authority, p.Status, p.RefID, p.PaidAt, p.CreatedAt, p.UpdatedAt).
		Query()
	if _, err := c.exec(ctx, q, args); err != nil {
		return fmt.Errorf("create platform payment: %w", err)
	}
	return nil
}

// LockPlatformPaymentByAuthority reads the payment with FOR UPDATE so a
// replayed gateway callback cannot verify twice.
func (c *Client) LockPlatformPaymentByAuthority(ctx context.Context, authority string) (*PlatformPayment, error) {
	q, args := pg().Select(platformPaymentColumns...).
		From(entsql.Table("platform_fee_payments")).
		Where(entsql.EQ("authority", authority)).
		ForUpdate().
		Query()

	var out *PlatformPayment
	err := c.query(ctx, q, args, func(rows *entsql.Rows) (err error) {
		out, err = scanPlatformPayment(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get platform payment: %w", err)
	}
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (c *Client) UpdatePlatformPayment(ctx context.Context, p *PlatformPayment) error {
	p.UpdatedAt = time.Now().UTC()
	q, args := pg().Update("platform_fee_payments").
		Set("status", p.Status).
		Set("ref_id", p.RefID).
		Set("paid_at", p.PaidAt).
		Set("updated_at", p.UpdatedAt).
		Where(entsql.EQ("id", p.ID)).
		Query()
	n, err := c.exec(ctx, q, args)
	if err != nil {
		return fmt.Errorf("update platform payment: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// LatestPaidPlatformPayment returns the user's most recent paid fee.
func (c *Client) LatestPaidPlatformPayment(ctx context.Context, userID uuid.UUID) (*PlatformPayment, error) {
	q, args := pg().Select(platformPaymentColumns...).
		From(entsql.Table("platform_fee_payments")).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("status", PaymentPaid),
		)).
		OrderBy(entsql.Desc("paid_at")).
		Limit(1).
		Query()

	var out *PlatformPayment
	err := c.query(ctx, q, args, func(rows *entsql.Rows) (err error) {
		out, err = scanPlatformPayment(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("latest platform payment: %w", err)
	}
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}
