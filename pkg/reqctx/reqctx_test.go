package reqctx

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

type testClaims struct {
	userID uuid.UUID
	exp    time.Time
}

func (c testClaims) GetUserID() uuid.UUID { return c.userID }
func (c testClaims) GetRole() string { return "client" }
func (c testClaims) GetSessionID() *uuid.UUID { return nil }
func (c testClaims) GetTokenType() string { return "access" }
func (c testClaims) IsExpired() bool { return time.Now().After(c.exp) }

func TestClaims(t *testing.T) {
	ctx := context.Background()
	if IsAuthenticated(ctx) {
		t.Fatal("empty context must not be authenticated")
	}
	if _, ok := UserIDFromContext(ctx); ok {
		t.Fatal("empty context must not carry a user id")
	}

	id := uuid.New()
	ctx = WithClaims(ctx, testClaims{userID: id, exp: time.Now().Add(time.Minute)})
	if !IsAuthenticated(ctx) {
		t.Error("expected authenticated context")
	}
	got, ok := UserIDFromContext(ctx)
	if !ok || got != id {
		t.Errorf("UserIDFromContext() = %v, %v; want %v", got, ok, id)
	}

	expired := WithClaims(context.Background(), testClaims{userID: id, exp: time.Now().Add(-time.Minute)})
	if IsAuthenticated(expired) {
		t.Error("expired claims must not authenticate")
	}
}

func TestRequestMeta(t *testing.T) {
	if _, ok := RequestMetaFromContext(context.Background()); ok {
		t.Fatal("empty context must not carry request metadata")
	}
	if rid := RequestIDFromContext(context.Background()); rid != "" {
		t.Errorf("expected empty request id, got %q", rid)
	}

	ctx := WithRequestMeta(context.Background(), RequestMeta{RequestID: "abc", ClientIP: "10.0.0.7"})
	if rid := RequestIDFromContext(ctx); rid != "abc" {
		t.Errorf("RequestIDFromContext() = %q, want abc", rid)
	}
	if meta, ok := RequestMetaFromContext(ctx); !ok || meta.ClientIP != "10.0.0.7" {
		t.Errorf("RequestMetaFromContext() = %+v, %v", meta, ok)
	}
}
