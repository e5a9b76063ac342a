package middleware

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	pasetotoken "github.com/Alijeyrad/counsel_backend/pkg/paseto"
	"github.com/Alijeyrad/counsel_backend/pkg/reqctx"
)

// SessionChecker reports whether a login session is still live.
type SessionChecker interface {
	Active(ctx context.Context, sessionID, userID uuid.UUID) (bool, error)
}

// AuthRequired validates a Bearer PASETO access token and checks the session in Redis.
// On success, stores *pasetotoken.Claims in c.Locals(pasetotoken.CtxKeyClaims)
// and in the request context for services.
func AuthRequired(mgr *pasetotoken.Manager, sessions SessionChecker) fiber.Handler {
	return func(c fiber.Ctx) error {
		tok, ok := pasetotoken.BearerToken(c)
		if !ok {
			return fiber.ErrUnauthorized
		}

		claims, err := mgr.Verify(tok)
		if err != nil {
			return fiber.ErrUnauthorized
		}

		// Only access tokens are accepted on protected routes
		if claims.Type != pasetotoken.TokenTypeAccess {
			return fiber.ErrUnauthorized
		}

		if claims.SessionID != nil && sessions != nil {
			active, err := sessions.Active(c.Context(), *claims.SessionID, claims.UserID)
			if err != nil {
				slog.ErrorContext(c.Context(), "session lookup failed", "error", err)
				return fiber.ErrUnauthorized
			}
			if !active {
				return fiber.ErrUnauthorized
			}
		}

		c.Locals(pasetotoken.CtxKeyClaims, claims)
		c.SetContext(reqctx.WithClaims(c.Context(), claims))
		return c.Next()
	}
}
