package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/counsel_backend/internal/service/psychtest"
)

type QuestionnaireHandler struct {
	svc psychtest.Service
}

func NewQuestionnaireHandler(svc psychtest.Service) *QuestionnaireHandler {
	return &QuestionnaireHandler{svc: svc}
}

// POST /questionnaires/phq9
func (h *QuestionnaireHandler) SubmitPHQ9(c fiber.Ctx) error {
	claims, valid := claimsOf(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		Answers []int `json:"answers"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.svc.SubmitPHQ9(c.Context(), claims.UserID, body.Answers)
	if err != nil {
		if errors.Is(err, psychtest.ErrAnswerCount) || errors.Is(err, psychtest.ErrAnswerRange) {
			return badRequest(c, err.Error())
		}
		return internalError(c, err)
	}

	return created(c, res)
}

// GET /questionnaires/phq9
func (h *QuestionnaireHandler) ListPHQ9(c fiber.Ctx) error {
	claims, valid := claimsOf(c)
	if !valid {
		return unauthorized(c)
	}

	results, err := h.svc.ListPHQ9(c.Context(), claims.UserID)
	if err != nil {
		return internalError(c, err)
	}

	return ok(c, results)
}
