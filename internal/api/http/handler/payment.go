package handler

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/counsel_backend/internal/service/payment"
)

type PaymentHandler struct {
	svc payment.Service
	// resultURL is the frontend page the gateway callback redirects to.
	// Empty means the callback answers with JSON.
	resultURL string
}

func NewPaymentHandler(svc payment.Service, resultURL string) *PaymentHandler {
	return &PaymentHandler{svc: svc, resultURL: resultURL}
}

func mapPaymentError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, payment.ErrPaymentNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, payment.ErrAlreadyPaid):
		return conflict(c, err.Error())
	case errors.Is(err, payment.ErrPaymentFailed):
		return badRequest(c, err.Error())
	case errors.Is(err, payment.ErrGatewayFailure):
		return fail(c, fiber.StatusBadGateway, CodeInternal, err.Error())
	default:
		return internalError(c, err)
	}
}

// POST /payments/platform-fee
func (h *PaymentHandler) InitiatePlatformFee(c fiber.Ctx) error {
	claims, valid := claimsOf(c)
	if !valid {
		return unauthorized(c)
	}

	payURL, err := h.svc.Initiate(c.Context(), claims.UserID)
	if err != nil {
		return mapPaymentError(c, err)
	}

	return created(c, fiber.Map{"pay_url": payURL})
}

// GET /payments/callback
// Public callback from ZarinPal: ?Authority=...&Status=OK|NOK
func (h *PaymentHandler) Callback(c fiber.Ctx) error {
	authority := c.Query("Authority")
	status := c.Query("Status")

	if authority == "" {
		return badRequest(c, "missing Authority parameter")
	}

	p, err := h.svc.Verify(c.Context(), authority, status)
	if h.resultURL == "" {
		if err != nil {
			return mapPaymentError(c, err)
		}
		return ok(c, p)
	}

	q := url.Values{}
	switch {
	case err == nil:
		q.Set("status", "success")
		if p.RefID != nil {
			q.Set("ref", strconv.FormatInt(*p.RefID, 10))
		}
	case errors.Is(err, payment.ErrPaymentFailed):
		q.Set("status", "failed")
	default:
		return mapPaymentError(c, err)
	}
	return c.Redirect().To(h.resultURL + "?" + q.Encode())
}

// GET /payments/platform-fee/status
func (h *PaymentHandler) PlatformFeeStatus(c fiber.Ctx) error {
	claims, valid := claimsOf(c)
	if !valid {
		return unauthorized(c)
	}

	st, err := h.svc.Status(c.Context(), claims.UserID)
	if err != nil {
		return mapPaymentError(c, err)
	}

	return ok(c, st)
}
