package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/middleware"
	"github.com/noah-isme/gema-assessment-api/internal/service"
	"github.com/noah-isme/gema-assessment-api/internal/utils"
)

// QuestionSetHandler wires question-set HTTP routes.
type QuestionSetHandler struct {
	service service.QuestionSetService
	logger  zerolog.Logger
}

// NewQuestionSetHandler constructs the handler.
func NewQuestionSetHandler(service service.QuestionSetService, logger zerolog.Logger) *QuestionSetHandler {
	return &QuestionSetHandler{
		service: service,
		logger:  logger.With().Str("component", "question_set_handler").Logger(),
	}
}

// Register attaches question-set endpoints to the router group.
func (h *QuestionSetHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Put("/:id", h.update)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
}

func (h *QuestionSetHandler) list(c *fiber.Ctx) error {
	courseID, err := parseQueryUint(c, "course_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	sets, err := h.service.List(c.UserContext(), courseID, middleware.ViewerFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "question sets retrieved", sets)
}

func (h *QuestionSetHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	set, err := h.service.Get(c.UserContext(), id, middleware.ViewerFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "question set retrieved", set)
}

func (h *QuestionSetHandler) create(c *fiber.Ctx) error {
	var payload dto.QuestionSetCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	set, err := h.service.Create(c.UserContext(), payload, middleware.ViewerFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "question set created", set)
}

func (h *QuestionSetHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuestionSetUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	set, err := h.service.Update(c.UserContext(), id, payload, middleware.ViewerFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "question set updated", set)
}

func (h *QuestionSetHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), id, middleware.ViewerFromContext(c)); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "question set deleted", fiber.Map{"id": id})
}
