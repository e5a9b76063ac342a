package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/counsel_backend/internal/repo"
	"github.com/Alijeyrad/counsel_backend/internal/service/booking"
	"github.com/Alijeyrad/counsel_backend/pkg/util/dates"
)

type SessionHandler struct {
	svc booking.Service
}

func NewSessionHandler(svc booking.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func mapBookingError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, booking.ErrProfessionalNotFound),
		errors.Is(err, booking.ErrSessionNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, booking.ErrSlotNotAvailable),
		errors.Is(err, booking.ErrInvalidTransition):
		return conflict(c, err.Error())
	case errors.Is(err, booking.ErrForbidden):
		return forbidden(c, err.Error())
	case errors.Is(err, booking.ErrProfessionalUnavailable),
		errors.Is(err, booking.ErrFreeSessionsStudentsOnly),
		errors.Is(err, booking.ErrFreeQuotaExhausted),
		errors.Is(err, booking.ErrNotCancellable),
		errors.Is(err, booking.ErrTooLateToCancel),
		errors.Is(err, booking.ErrInvalidDuration),
		errors.Is(err, booking.ErrInvalidPrice),
		errors.Is(err, booking.ErrSessionInPast),
		errors.Is(err, dates.ErrInvalidClock),
		errors.Is(err, dates.ErrInvalidDate):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}

// POST /sessions/book
func (h *SessionHandler) Book(c fiber.Ctx) error {
	claims, valid := claimsOf(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		ProfessionalID  string  `json:"professional_id"`
		Date            string  `json:"date"`
		Time            string  `json:"time"`
		DurationMinutes int     `json:"duration_minutes"`
		Price           *int64  `json:"price"`
		Concerns        *string `json:"concerns"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	profID, err := uuid.Parse(body.ProfessionalID)
	if err != nil {
		return badRequest(c, "invalid professional_id")
	}
	date, err := dates.ParseDate(body.Date)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if body.Price == nil {
		return badRequest(c, "price is required")
	}

	s, err := h.svc.Book(c.Context(), claims.UserID, booking.BookRequest{
		ProfessionalID:  profID,
		Date:            date,
		Time:            body.Time,
		DurationMinutes: body.DurationMinutes,
		Price:           *body.Price,
		Concerns:        body.Concerns,
	})
	if err != nil {
		return mapBookingError(c, err)
	}

	return created(c, s)
}

// POST /sessions/:id/cancel and DELETE /sessions/:id
func (h *SessionHandler) Cancel(c fiber.Ctx) error {
	claims, valid := claimsOf(c)
	if !valid {
		return unauthorized(c)
	}
	id, valid := uuidParam(c, "id")
	if !valid {
		return badRequest(c, "invalid session id")
	}

	s, err := h.svc.Cancel(c.Context(), id, claims.UserID)
	if err != nil {
		return mapBookingError(c, err)
	}

	return ok(c, s)
}

// GET /sessions/student-quota
func (h *SessionHandler) StudentQuota(c fiber.Ctx) error {
	claims, valid := claimsOf(c)
	if !valid {
		return unauthorized(c)
	}

	q, err := h.svc.RemainingStudentSessions(c.Context(), claims.UserID)
	if err != nil {
		return mapBookingError(c, err)
	}

	return ok(c, q)
}

// GET /sessions/:id
func (h *SessionHandler) Get(c fiber.Ctx) error {
	claims, valid := claimsOf(c)
	if !valid {
		return unauthorized(c)
	}
	id, valid := uuidParam(c, "id")
	if !valid {
		return badRequest(c, "invalid session id")
	}

	s, err := h.svc.Get(c.Context(), id, booking.Actor{UserID: claims.UserID, Role: roleOf(claims)})
	if err != nil {
		return mapBookingError(c, err)
	}

	return ok(c, s)
}

// GET /sessions
func (h *SessionHandler) List(c fiber.Ctx) error {
	claims, valid := claimsOf(c)
	if !valid {
		return unauthorized(c)
	}

	var q struct {
		Status  string `query:"status"`
		Page    int    `query:"page"`
		PerPage int    `query:"per_page"`
	}
	_ = c.Bind().Query(&q)

	req := booking.ListRequest{Page: q.Page, PerPage: q.PerPage}
	if q.Status != "" {
		st := repo.SessionStatus(q.Status)
		if !st.Valid() {
			return badRequest(c, "invalid status")
		}
		req.Status = &st
	}
	var okFrom, okTo bool
	if req.From, okFrom = optionalDate(c, "from"); !okFrom {
		return badRequest(c, "invalid from date")
	}
	if req.To, okTo = optionalDate(c, "to"); !okTo {
		return badRequest(c, "invalid to date")
	}

	sessions, err := h.svc.List(c.Context(), booking.Actor{UserID: claims.UserID, Role: roleOf(claims)}, req)
	if err != nil {
		return mapBookingError(c, err)
	}

	return ok(c, sessions)
}

// PATCH /sessions/:id/status
func (h *SessionHandler) UpdateStatus(c fiber.Ctx) error {
	claims, valid := claimsOf(c)
	if !valid {
		return unauthorized(c)
	}
	id, valid := uuidParam(c, "id")
	if !valid {
		return badRequest(c, "invalid session id")
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	st := repo.SessionStatus(body.Status)
	if !st.Valid() {
		return badRequest(c, "invalid status")
	}

	s, err := h.svc.UpdateStatus(c.Context(), id, claims.UserID, st)
	if err != nil {
		return mapBookingError(c, err)
	}

	return ok(c, s)
}
