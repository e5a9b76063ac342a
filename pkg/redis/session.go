package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// SessionKey is where a login session lives; the value is the user ID.
func SessionKey(sessionID uuid.UUID) string {
	return "session:" + sessionID.String()
}

// Sessions tracks login sessions so access tokens can be revoked before
// they expire.
type Sessions struct {
	rdb goredis.UniversalClient
}

func NewSessions(rdb goredis.UniversalClient) *Sessions {
	return &Sessions{rdb: rdb}
}

func (s *Sessions) Create(ctx context.Context, sessionID, userID uuid.UUID, ttl time.Duration) error {
	return s.rdb.Set(ctx, SessionKey(sessionID), userID.String(), ttl).Err()
}

// Active reports whether the session exists and belongs to userID.
func (s *Sessions) Active(ctx context.Context, sessionID, userID uuid.UUID) (bool, error) {
	v, err := s.rdb.Get(ctx, SessionKey(sessionID)).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == userID.String(), nil
}

func (s *Sessions) Revoke(ctx context.Context, sessionID uuid.UUID) error {
	return s.rdb.Del(ctx, SessionKey(sessionID)).Err()
}
