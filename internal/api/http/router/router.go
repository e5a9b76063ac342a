package router

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/Alijeyrad/counsel_backend/config"
	"github.com/Alijeyrad/counsel_backend/internal/api/http/handler"
	"github.com/Alijeyrad/counsel_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/counsel_backend/internal/service/booking"
	"github.com/Alijeyrad/counsel_backend/internal/service/notification"
	"github.com/Alijeyrad/counsel_backend/internal/service/payment"
	"github.com/Alijeyrad/counsel_backend/internal/service/psychtest"
	"github.com/Alijeyrad/counsel_backend/internal/service/scheduling"
	"github.com/Alijeyrad/counsel_backend/internal/service/user"
	"github.com/Alijeyrad/counsel_backend/pkg/authorize"
	pasetotoken "github.com/Alijeyrad/counsel_backend/pkg/paseto"
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

type Params struct {
	fx.In

	Cfg             *config.Config
	Auth            authorize.IAuthorization
	Sessions        middleware.SessionChecker
	PasetoMgr       *pasetotoken.Manager
	UserSvc         user.Service
	BookingSvc      booking.Service
	SchedulingSvc   scheduling.Service
	NotificationSvc notification.Service
	PaymentSvc      payment.Service
	PsychTestSvc    psychtest.Service
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

func (r *Router) Register(app *fiber.App) {
	// 1. Health & Metrics
	r.registerSystemRoutes(app)

	// 2. Initialize Middlewares
	authRequired := middleware.AuthRequired(r.p.PasetoMgr, r.p.Sessions)

	// Permission helper
	requirePerm := func(res authorize.Resource, act authorize.Action) fiber.Handler {
		return middleware.RequirePermission(r.p.Auth, res, act)
	}

	// 3. Initialize Handlers
	userH := handler.NewUserHandler(r.p.UserSvc)
	sessionH := handler.NewSessionHandler(r.p.BookingSvc)
	scheduleH := handler.NewScheduleHandler(r.p.SchedulingSvc)
	notificationH := handler.NewNotificationHandler(r.p.NotificationSvc)
	paymentH := handler.NewPaymentHandler(r.p.PaymentSvc, r.p.Cfg.ZarinPal.ResultURL)
	questionnaireH := handler.NewQuestionnaireHandler(r.p.PsychTestSvc)

	api := app.Group("/api/v1")

	// 4. Delegate to sub-files
	r.registerUserRoutes(api, userH, authRequired, requirePerm)
	r.registerSessionRoutes(api, sessionH, authRequired, requirePerm)
	r.registerScheduleRoutes(api, scheduleH, authRequired, requirePerm)
	r.registerNotificationRoutes(api, notificationH, authRequired, requirePerm)
	r.registerPaymentRoutes(api, paymentH, authRequired, requirePerm)
	r.registerQuestionnaireRoutes(api, questionnaireH, authRequired, requirePerm)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool { return authorize.IsPolicyHealthy() },
	}))
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if r.p.Cfg.Observability.Enabled && r.p.Cfg.Observability.Metrics.Enabled {
		path := r.p.Cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}
}
