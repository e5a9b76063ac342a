package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/counsel_backend/internal/api/http/handler"
	"github.com/Alijeyrad/counsel_backend/pkg/authorize"
)

func (r *Router) registerPaymentRoutes(
	api fiber.Router,
	ph *handler.PaymentHandler,
	authRequired fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	// Public: ZarinPal redirects the payer's browser here
	api.Get("/payments/callback", ph.Callback)

	payments := api.Group("/payments", authRequired)
	payments.Post("/platform-fee", requirePerm(authorize.ResourcePayment, authorize.ActionCreate), ph.InitiatePlatformFee)
	payments.Get("/platform-fee/status", requirePerm(authorize.ResourcePayment, authorize.ActionRead), ph.PlatformFeeStatus)
}
