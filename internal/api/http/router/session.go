package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/counsel_backend/internal/api/http/handler"
	"github.com/Alijeyrad/counsel_backend/pkg/authorize"
)

func (r *Router) registerSessionRoutes(
	api fiber.Router,
	sh *handler.SessionHandler,
	authRequired fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	sessions := api.Group("/sessions", authRequired)

	sessions.Post("/book", requirePerm(authorize.ResourceSession, authorize.ActionCreate), sh.Book)
	sessions.Get("/student-quota", requirePerm(authorize.ResourceSession, authorize.ActionRead), sh.StudentQuota)

	sessions.Get("/", requirePerm(authorize.ResourceSession, authorize.ActionList), sh.List)
	sessions.Get("/:id", requirePerm(authorize.ResourceSession, authorize.ActionRead), sh.Get)
	sessions.Patch("/:id/status", requirePerm(authorize.ResourceSession, authorize.ActionUpdate), sh.UpdateStatus)
	sessions.Post("/:id/cancel", requirePerm(authorize.ResourceSession, authorize.ActionDelete), sh.Cancel)
	sessions.Delete("/:id", requirePerm(authorize.ResourceSession, authorize.ActionDelete), sh.Cancel)
}
