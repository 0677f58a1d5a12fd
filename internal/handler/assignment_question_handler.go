package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/middleware"
	"github.com/noah-isme/gema-assessment-api/internal/service"
	"github.com/noah-isme/gema-assessment-api/internal/utils"
)

// AssignmentQuestionHandler serves inline questions and their choices,
// nested under an assignment.
type AssignmentQuestionHandler struct {
	service service.AssignmentQuestionService
	logger  zerolog.Logger
}

// NewAssignmentQuestionHandler constructs the handler.
func NewAssignmentQuestionHandler(service service.AssignmentQuestionService, logger zerolog.Logger) *AssignmentQuestionHandler {
	return &AssignmentQuestionHandler{
		service: service,
		logger:  logger.With().Str("component", "assignment_question_handler").Logger(),
	}
}

// Register attaches the nested routes to the assignments group.
func (h *AssignmentQuestionHandler) Register(router fiber.Router) {
	router.Get("/:id/questions", h.list)
	router.Post("/:id/questions", h.create)
	router.Put("/:id/questions/:questionId", h.update)
	router.Patch("/:id/questions/:questionId", h.update)
	router.Delete("/:id/questions/:questionId", h.delete)

	router.Post("/:id/questions/:questionId/choices", h.addChoice)
	router.Put("/:id/questions/:questionId/choices/:choiceId", h.updateChoice)
	router.Patch("/:id/questions/:questionId/choices/:choiceId", h.updateChoice)
	router.Delete("/:id/questions/:questionId/choices/:choiceId", h.deleteChoice)
}

func (h *AssignmentQuestionHandler) list(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	questions, err := h.service.List(c.UserContext(), assignmentID, middleware.ViewerFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignment questions retrieved", questions)
}

func (h *AssignmentQuestionHandler) create(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssignmentQuestionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	question, err := h.service.Create(c.UserContext(), assignmentID, payload, middleware.ViewerFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment question created", question)
}

func (h *AssignmentQuestionHandler) update(c *fiber.Ctx) error {
	assignmentID, questionID, err := h.questionPath(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssignmentQuestionUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	question, err := h.service.Update(c.UserContext(), assignmentID, questionID, payload, middleware.ViewerFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignment question updated", question)
}

func (h *AssignmentQuestionHandler) delete(c *fiber.Ctx) error {
	assignmentID, questionID, err := h.questionPath(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), assignmentID, questionID, middleware.ViewerFromContext(c)); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignment question deleted", fiber.Map{"id": questionID})
}

func (h *AssignmentQuestionHandler) addChoice(c *fiber.Ctx) error {
	assignmentID, questionID, err := h.questionPath(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssignmentChoiceRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	choice, err := h.service.AddChoice(c.UserContext(), assignmentID, questionID, payload, middleware.ViewerFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "choice created", choice)
}

func (h *AssignmentQuestionHandler) updateChoice(c *fiber.Ctx) error {
	assignmentID, questionID, err := h.questionPath(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	choiceID, err := parseUintParam(c, "choiceId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssignmentChoiceUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	choice, err := h.service.UpdateChoice(c.UserContext(), assignmentID, questionID, choiceID, payload, middleware.ViewerFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "choice updated", choice)
}

func (h *AssignmentQuestionHandler) deleteChoice(c *fiber.Ctx) error {
	assignmentID, questionID, err := h.questionPath(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	choiceID, err := parseUintParam(c, "choiceId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteChoice(c.UserContext(), assignmentID, questionID, choiceID, middleware.ViewerFromContext(c)); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "choice deleted", fiber.Map{"id": choiceID})
}

func (h *AssignmentQuestionHandler) questionPath(c *fiber.Ctx) (uint, uint, error) {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return 0, 0, err
	}
	questionID, err := parseUintParam(c, "questionId")
	if err != nil {
		return 0, 0, err
	}
	return assignmentID, questionID, nil
}
