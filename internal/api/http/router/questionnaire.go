package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/counsel_backend/internal/api/http/handler"
	"github.com/Alijeyrad/counsel_backend/pkg/authorize"
)

func (r *Router) registerQuestionnaireRoutes(
	api fiber.Router,
	qh *handler.QuestionnaireHandler,
	authRequired fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	q := api.Group("/questionnaires", authRequired)

	q.Post("/phq9", requirePerm(authorize.ResourceQuestionnaire, authorize.ActionCreate), qh.SubmitPHQ9)
	q.Get("/phq9", requirePerm(authorize.ResourceQuestionnaire, authorize.ActionList), qh.ListPHQ9)
}
