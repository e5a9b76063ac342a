package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/counsel_backend/internal/api/http/handler"
	"github.com/Alijeyrad/counsel_backend/pkg/authorize"
)

func (r *Router) registerScheduleRoutes(
	api fiber.Router,
	sh *handler.ScheduleHandler,
	authRequired fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	// Calendar data for clients picking a slot
	pros := api.Group("/professionals/:id", authRequired)
	pros.Get("/availability", requirePerm(authorize.ResourceAvailability, authorize.ActionRead), sh.MonthlyAvailability)
	pros.Get("/availability/:date", requirePerm(authorize.ResourceAvailability, authorize.ActionRead), sh.AvailableSlots)

	// Professional self-service
	schedule := api.Group("/schedule", authRequired)
	schedule.Patch("/accepting", requirePerm(authorize.ResourceSchedule, authorize.ActionUpdate), sh.SetAccepting)
	schedule.Get("/:date", requirePerm(authorize.ResourceSchedule, authorize.ActionRead), sh.Day)
	schedule.Put("/:date", requirePerm(authorize.ResourceSchedule, authorize.ActionUpdate), sh.SetAvailability)
}
