// Package reqctx provides centralized request context management.
//
// It is the single source of truth for request-scoped data carried in a
// context.Context: authentication claims and request metadata. Context keys
// are unexported; access goes through the typed getters and setters.
//
// Setting values (HTTP middleware):
//
//	ctx = reqctx.WithRequestMeta(ctx, reqctx.RequestMeta{RequestID: rid, ClientIP: ip})
//	ctx = reqctx.WithClaims(ctx, claims)
//
// Reading values (services, audit logging):
//
//	rid := reqctx.RequestIDFromContext(ctx)
//	if userID, ok := reqctx.UserIDFromContext(ctx); ok { ... }
//
// RequestMeta is set for every HTTP request; claims only for authenticated ones.
package reqctx
