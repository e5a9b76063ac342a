// Package repo is the data-access layer. Queries go through the ent SQL
// driver and its query builder; rows are decoded into the typed structs in
// models.go.
package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("repo: not found")
	// ErrConflict is returned when a unique constraint rejects a write.
	ErrConflict = errors.New("repo: conflict")
)

// IsNotFound mirrors the helper ent generates for its clients.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

type txKey struct{}

// Client wraps an ent SQL driver. Every method runs on the transaction
// carried by ctx when there is one.
type Client struct {
	drv *entsql.Driver
}

func NewClient(drv *entsql.Driver) *Client {
	return &Client{drv: drv}
}

func (c *Client) Close() error {
	return c.drv.Close()
}

// DB exposes the underlying pool for migrations.
func (c *Client) DB() *sql.DB {
	return c.drv.DB()
}

// Driver exposes the ent driver, e.g. for the casbin adapter.
func (c *Client) Driver() dialect.Driver {
	return c.drv
}

// WithTx runs fn inside a transaction. Nested calls reuse the outer one.
func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(dialect.Tx); ok {
		return fn(ctx)
	}

	tx, err := c.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w: rolling back transaction: %v", err, rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (c *Client) conn(ctx context.Context) dialect.ExecQuerier {
	if tx, ok := ctx.Value(txKey{}).(dialect.Tx); ok {
		return tx
	}
	return c.drv
}

func pg() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.Postgres)
}

// query runs q and calls scan once per row.
func (c *Client) query(ctx context.Context, q string, args []any, scan func(*entsql.Rows) error) error {
	rows := &entsql.Rows{}
	if err := c.conn(ctx).Query(ctx, q, args, rows); err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// exec runs q and returns the number of affected rows.
func (c *Client) exec(ctx context.Context, q string, args []any) (int64, error) {
	var res sql.Result
	if err := c.conn(ctx).Exec(ctx, q, args, &res); err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return 0, err
	}
	return res.RowsAffected()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
