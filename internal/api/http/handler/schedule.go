package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/counsel_backend/internal/service/scheduling"
	"github.com/Alijeyrad/counsel_backend/pkg/util/dates"
)

type ScheduleHandler struct {
	svc scheduling.Service
}

func NewScheduleHandler(svc scheduling.Service) *ScheduleHandler {
	return &ScheduleHandler{svc: svc}
}

func mapScheduleError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, scheduling.ErrProfessionalNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, scheduling.ErrNotProfessional):
		return forbidden(c, err.Error())
	case errors.Is(err, scheduling.ErrSlotBooked):
		return conflict(c, err.Error())
	case errors.Is(err, scheduling.ErrPastDate),
		errors.Is(err, scheduling.ErrInvalidMonth),
		errors.Is(err, scheduling.ErrNoTimes),
		errors.Is(err, dates.ErrInvalidClock):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}

// ---------------------------------------------------------------------------
// Public availability
// ---------------------------------------------------------------------------

// GET /professionals/:id/availability?year=&month=
func (h *ScheduleHandler) MonthlyAvailability(c fiber.Ctx) error {
	profID, valid := uuidParam(c, "id")
	if !valid {
		return badRequest(c, "invalid professional id")
	}
	year, okYear := intQuery(c, "year")
	month, okMonth := intQuery(c, "month")
	if !okYear || !okMonth {
		return badRequest(c, "year and month are required")
	}

	days, err := h.svc.GetMonthlyAvailability(c.Context(), profID, year, time.Month(month))
	if err != nil {
		return mapScheduleError(c, err)
	}

	return ok(c, days)
}

// GET /professionals/:id/availability/:date
func (h *ScheduleHandler) AvailableSlots(c fiber.Ctx) error {
	profID, valid := uuidParam(c, "id")
	if !valid {
		return badRequest(c, "invalid professional id")
	}
	date, valid := dateParam(c, "date")
	if !valid {
		return badRequest(c, dates.ErrInvalidDate.Error())
	}

	slots, err := h.svc.GetAvailableTimeSlots(c.Context(), profID, date)
	if err != nil {
		return mapScheduleError(c, err)
	}

	return ok(c, slots)
}

// ---------------------------------------------------------------------------
// Professional self-service
// ---------------------------------------------------------------------------

// GET /schedule/:date
func (h *ScheduleHandler) Day(c fiber.Ctx) error {
	claims, valid := claimsOf(c)
	if !valid {
		return unauthorized(c)
	}
	date, valid := dateParam(c, "date")
	if !valid {
		return badRequest(c, dates.ErrInvalidDate.Error())
	}

	slots, err := h.svc.GetDaySchedule(c.Context(), claims.UserID, date)
	if err != nil {
		return mapScheduleError(c, err)
	}

	return ok(c, slots)
}

// PUT /schedule/:date
func (h *ScheduleHandler) SetAvailability(c fiber.Ctx) error {
	claims, valid := claimsOf(c)
	if !valid {
		return unauthorized(c)
	}
	date, valid := dateParam(c, "date")
	if !valid {
		return badRequest(c, dates.ErrInvalidDate.Error())
	}

	var body struct {
		Times     []string `json:"times"`
		Available bool     `json:"available"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	slots, err := h.svc.SetAvailability(c.Context(), claims.UserID, date, body.Times, body.Available)
	if err != nil {
		return mapScheduleError(c, err)
	}

	return ok(c, slots)
}

// PATCH /schedule/accepting
func (h *ScheduleHandler) SetAccepting(c fiber.Ctx) error {
	claims, valid := claimsOf(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	p, err := h.svc.SetAcceptingBookings(c.Context(), claims.UserID, body.Enabled)
	if err != nil {
		return mapScheduleError(c, err)
	}

	return ok(c, p)
}
