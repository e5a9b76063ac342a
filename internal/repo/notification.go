package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

var notificationColumns = []string{"id", "user_id", "type", "title", "body", "data", "is_read", "created_at"}

func (c *Client) CreateNotification(ctx context.Context, n *Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = time.Now().UTC()

	var data any
	if n.Data != nil {
		raw, err := json.Marshal(n.Data)
		if err != nil {
			return fmt.Errorf("encode notification data: %w", err)
		}
		data = string(raw)
	}

	q, args := pg().Insert("notifications").
		Columns(notificationColumns...).
		Values(n.ID, n.UserID, n.Type, n.Title, n.Body, data, n.IsRead, n.CreatedAt).
		Query()
	if _, err := c.exec(ctx, q, args); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (c *Client) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]Notification, error) {
	pred := entsql.EQ("user_id", userID)
	if unreadOnly {
		pred = entsql.And(pred, entsql.EQ("is_read", false))
	}
	q, args := pg().Select(notificationColumns...).
		From(entsql.Table("notifications")).
		Where(pred).
		OrderBy(entsql.Desc("created_at")).
		Limit(limit).
		Offset(offset).
		Query()

	var out []Notification
	err := c.query(ctx, q, args, func(rows *entsql.Rows) error {
		var (
			n    Notification
			data []byte
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &data, &n.IsRead, &n.CreatedAt); err != nil {
			return err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &n.Data); err != nil {
				return fmt.Errorf("decode notification data: %w", err)
			}
		}
		out = append(out, n)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error {
	q, args := pg().Update("notifications").
		Set("is_read", true).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("user_id", userID))).
		Query()
	n, err := c.exec(ctx, q, args)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	q, args := pg().Update("notifications").
		Set("is_read", true).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("is_read", false))).
		Query()
	n, err := c.exec(ctx, q, args)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return n, nil
}
