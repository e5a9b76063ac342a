package handler

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/counsel_backend/internal/repo"
	pasetotoken "github.com/Alijeyrad/counsel_backend/pkg/paseto"
	"github.com/Alijeyrad/counsel_backend/pkg/util/dates"
)

// Error categories returned in the "code" field of error bodies.
const (
	CodeNotFound     = "not_found"
	CodeValidation   = "validation"
	CodeConflict     = "conflict"
	CodeForbidden    = "forbidden"
	CodeUnauthorized = "unauthorized"
	CodeRateLimited  = "rate_limited"
	CodeInternal     = "internal"
)

func ok(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"data": data})
}

func created(c fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": data})
}

func noContent(c fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

func fail(c fiber.Ctx, status int, code, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg, "code": code})
}

func badRequest(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusBadRequest, CodeValidation, msg)
}

func unauthorized(c fiber.Ctx) error {
	return fail(c, fiber.StatusUnauthorized, CodeUnauthorized, "unauthorized")
}

func forbidden(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusForbidden, CodeForbidden, msg)
}

func notFound(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusNotFound, CodeNotFound, msg)
}

func conflict(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusConflict, CodeConflict, msg)
}

// internalError logs err and answers with a generic body.
func internalError(c fiber.Ctx, err error) error {
	slog.ErrorContext(c.Context(), "request failed",
		"method", c.Method(),
		"path", c.Path(),
		"error", err,
	)
	return fail(c, fiber.StatusInternalServerError, CodeInternal, "internal server error")
}

// ErrorHandler renders errors that escape handlers and middleware.
func ErrorHandler(c fiber.Ctx, err error) error {
	var fe *fiber.Error
	if !errors.As(err, &fe) {
		return internalError(c, err)
	}

	code := CodeInternal
	switch fe.Code {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		code = CodeValidation
	case fiber.StatusUnauthorized:
		code = CodeUnauthorized
	case fiber.StatusForbidden:
		code = CodeForbidden
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		code = CodeNotFound
	case fiber.StatusConflict:
		code = CodeConflict
	case fiber.StatusTooManyRequests:
		code = CodeRateLimited
	}
	if fe.Code >= fiber.StatusInternalServerError {
		return internalError(c, err)
	}
	return fail(c, fe.Code, code, fe.Message)
}

// ---------------------------------------------------------------------------
// request helpers
// ---------------------------------------------------------------------------

func claimsOf(c fiber.Ctx) (*pasetotoken.Claims, bool) {
	claims, ok := pasetotoken.ClaimsFromFiber(c)
	if !ok || claims.UserID == uuid.Nil {
		return nil, false
	}
	return claims, true
}

func roleOf(claims *pasetotoken.Claims) repo.Role {
	return repo.Role(claims.Role)
}

func uuidParam(c fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

func dateParam(c fiber.Ctx, name string) (time.Time, bool) {
	d, err := dates.ParseDate(c.Params(name))
	return d, err == nil
}

// optionalDate parses an optional YYYY-MM-DD query value.
func optionalDate(c fiber.Ctx, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	d, err := dates.ParseDate(raw)
	if err != nil {
		return nil, false
	}
	return &d, true
}

func intQuery(c fiber.Ctx, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}
