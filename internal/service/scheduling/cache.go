package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// RedisCache keeps monthly availability aggregates in Redis.
type RedisCache struct {
	rdb goredis.UniversalClient
	ttl time.Duration
}

func NewRedisCache(rdb goredis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func monthKey(professionalID uuid.UUID, year int, month time.Month) string {
	return fmt.Sprintf("availability:%s:%04d-%02d", professionalID, year, int(month))
}

func (c *RedisCache) GetMonth(ctx context.Context, professionalID uuid.UUID, year int, month time.Month) (MonthAvailability, bool) {
	raw, err := c.rdb.Get(ctx, monthKey(professionalID, year, month)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.WarnContext(ctx, "availability cache read failed", "error", err)
		}
		return nil, false
	}

	var v MonthAvailability
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return v, true
}

func (c *RedisCache) SetMonth(ctx context.Context, professionalID uuid.UUID, year int, month time.Month, v MonthAvailability) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, monthKey(professionalID, year, month), raw, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "availability cache write failed", "error", err)
	}
}

func (c *RedisCache) InvalidateMonth(ctx context.Context, professionalID uuid.UUID, date time.Time) {
	if err := c.rdb.Del(ctx, monthKey(professionalID, date.Year(), date.Month())).Err(); err != nil {
		slog.WarnContext(ctx, "availability cache invalidate failed", "error", err)
	}
}
