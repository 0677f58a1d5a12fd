package handler

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/middleware"
	"github.com/noah-isme/gema-assessment-api/internal/service"
	"github.com/noah-isme/gema-assessment-api/internal/utils"
)

// SubmissionHandler manages submission endpoints.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. Extra handlers
// wrap the create route only, e.g. a rate limiter.
func (h *SubmissionHandler) Register(router fiber.Router, createGuards ...fiber.Handler) {
	router.Get("", h.list)
	router.Post("/bulk-grade", h.bulkGrade)
	router.Post("/answers/:answerId/grade", h.gradeAnswer)
	router.Post("", append(createGuards, h.create)...)
	router.Get("/:id", h.get)
	router.Post("/:id/grade", h.grade)
	router.Patch("/:id/grade", h.grade)
	router.Post("/:id/revert", h.revert)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	filter := dto.SubmissionFilter{}
	assignmentID, err := parseQueryUint(c, "assignment_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid assignment id")
	}
	filter.AssignmentID = assignmentID

	studentID, err := parseQueryUint(c, "student_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student id")
	}
	filter.StudentID = studentID
	filter.Status = parseQueryString(c, "status")

	submissions, err := h.service.List(c.UserContext(), filter, middleware.ViewerFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Get(c.UserContext(), id, middleware.ViewerFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	var (
		payload dto.SubmissionCreateRequest
		file    *multipart.FileHeader
	)

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		parsed, err := submissionFromForm(c)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		payload = parsed
		if upload, err := c.FormFile("file"); err == nil {
			file = upload
		}
	} else if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	submission, err := h.service.Create(c.UserContext(), payload, file, middleware.ViewerFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission created", submission)
}

func (h *SubmissionHandler) grade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmissionGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	submission, err := h.service.Grade(c.UserContext(), id, payload, middleware.ViewerFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission graded", submission)
}

func (h *SubmissionHandler) revert(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Revert(c.UserContext(), id, middleware.ViewerFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "grade reverted", submission)
}

func (h *SubmissionHandler) bulkGrade(c *fiber.Ctx) error {
	var payload dto.BulkGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	results, err := h.service.BulkGrade(c.UserContext(), payload, middleware.ViewerFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "bulk grading processed", results)
}

func (h *SubmissionHandler) gradeAnswer(c *fiber.Ctx) error {
	answerID, err := parseUintParam(c, "answerId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmissionAnswerGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	answer, err := h.service.GradeAnswer(c.UserContext(), answerID, payload, middleware.ViewerFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "answer graded", answer)
}

// submissionFromForm reads a multipart hand-in. A submission_data field that
// is not valid JSON is kept as a plain string.
func submissionFromForm(c *fiber.Ctx) (dto.SubmissionCreateRequest, error) {
	var payload dto.SubmissionCreateRequest

	assignmentID, err := parseFormUint(c, "assignment_id")
	if err != nil {
		return payload, err
	}
	if assignmentID == nil {
		return payload, errors.New("missing assignment_id")
	}
	payload.AssignmentID = *assignmentID

	studentID, err := parseFormUint(c, "student_id")
	if err != nil {
		return payload, err
	}
	payload.StudentID = studentID
	payload.Status = c.FormValue("status")

	if data := c.FormValue("submission_data"); data != "" {
		if json.Valid([]byte(data)) {
			payload.SubmissionData = json.RawMessage(data)
		} else {
			encoded, err := json.Marshal(data)
			if err != nil {
				return payload, err
			}
			payload.SubmissionData = encoded
		}
	}

	return payload, nil
}

func parseFormUint(c *fiber.Ctx, key string) (*uint, error) {
	value := c.FormValue(key)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return nil, errors.New("invalid " + key)
	}
	result := uint(parsed)
	return &result, nil
}
