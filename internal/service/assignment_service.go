package service

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/access"
	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
	"github.com/noah-isme/gema-assessment-api/internal/viewer"
)

// AssignmentService exposes assignment domain use cases.
type AssignmentService interface {
	List(ctx context.Context, filter dto.AssignmentFilter) (dto.AssignmentListResponse, error)
	Get(ctx context.Context, id uint, v viewer.Viewer) (dto.AssignmentResponse, error)
	Create(ctx context.Context, payload dto.AssignmentCreateRequest, v viewer.Viewer) (dto.AssignmentResponse, error)
	Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest, v viewer.Viewer) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, id uint, v viewer.Viewer) error
	AddAttachment(ctx context.Context, id uint, file *multipart.FileHeader, v viewer.Viewer) (dto.AssignmentResponse, error)
}

type assignmentService struct {
	repo        repository.AssignmentRepository
	sets        repository.QuestionSetRepository
	expander    *QuestionExpander
	attachments *AttachmentStore
	validator   *validator.Validate
	activity    ActivityRecorder
	logger      zerolog.Logger
}

// NewAssignmentService builds a new assignment service.
func NewAssignmentService(repo repository.AssignmentRepository, sets repository.QuestionSetRepository, expander *QuestionExpander, attachments *AttachmentStore, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		repo:        repo,
		sets:        sets,
		expander:    expander,
		attachments: attachments,
		validator:   validate,
		activity:    activity,
		logger:      logger.With().Str("component", "assignment_service").Logger(),
	}
}

func (s *assignmentService) List(ctx context.Context, filter dto.AssignmentFilter) (dto.AssignmentListResponse, error) {
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	assignments, total, err := s.repo.ListWithFilter(ctx, repository.AssignmentFilter{
		Search:   filter.Search,
		Sort:     filter.Sort,
		CourseID: filter.CourseID,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}

	items := make([]dto.AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		items = append(items, dto.NewAssignmentResponse(assignment))
	}

	return dto.AssignmentListResponse{Items: items, Pagination: paginate(filter.Page, filter.PageSize, total)}, nil
}

// Get returns the assignment with its question set expanded for v.
func (s *assignmentService) Get(ctx context.Context, id uint, v viewer.Viewer) (dto.AssignmentResponse, error) {
	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, notFound(err, ErrAssignmentNotFound)
	}
	return s.expander.ExpandAssignment(ctx, assignment, v), nil
}

func (s *assignmentService) Create(ctx context.Context, payload dto.AssignmentCreateRequest, v viewer.Viewer) (dto.AssignmentResponse, error) {
	if err := access.Authorize(access.ActionCreate, access.ResourceAssignment, v); err != nil {
		return dto.AssignmentResponse{}, err
	}

	payload.Title = strings.TrimSpace(payload.Title)
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if err := s.ensureQuestionSet(ctx, payload.QuestionSetID); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment := models.Assignment{
		Title:         payload.Title,
		Description:   sanitizeRichText(payload.Description),
		Type:          strings.TrimSpace(payload.Type),
		CourseID:      payload.CourseID,
		QuestionSetID: payload.QuestionSetID,
		TotalMarks:    payload.TotalMarks,
		Attachments:   models.EncodeAttachments(payload.Attachments),
		CreatedBy:     v.ID,
	}

	if payload.DueDate != nil && strings.TrimSpace(*payload.DueDate) != "" {
		dueDate, err := parseDueDate(*payload.DueDate)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		assignment.DueDate = &dueDate
	}

	if err := s.repo.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      v,
		Action:     "assignment.created",
		EntityType: "assignment",
		EntityID:   &assignment.ID,
		Metadata:   map[string]interface{}{"question_set_id": assignment.QuestionSetID},
	})
	s.logger.Info().Uint("assignment_id", assignment.ID).Msg("assignment created")

	return s.expander.ExpandAssignment(ctx, assignment, v), nil
}

func (s *assignmentService) Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest, v viewer.Viewer) (dto.AssignmentResponse, error) {
	if err := access.Authorize(access.ActionUpdate, access.ResourceAssignment, v); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if payload.Title != nil {
		trimmed := strings.TrimSpace(*payload.Title)
		payload.Title = &trimmed
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, notFound(err, ErrAssignmentNotFound)
	}

	if payload.Title != nil {
		assignment.Title = *payload.Title
	}
	if payload.Description != nil {
		assignment.Description = sanitizeRichText(*payload.Description)
	}
	if payload.Type != nil {
		assignment.Type = strings.TrimSpace(*payload.Type)
	}
	if payload.CourseID.Set {
		assignment.CourseID = payload.CourseID.Value
	}
	if payload.QuestionSetID.Set {
		if err := s.ensureQuestionSet(ctx, payload.QuestionSetID.Value); err != nil {
			return dto.AssignmentResponse{}, err
		}
		assignment.QuestionSetID = payload.QuestionSetID.Value
	}
	if payload.TotalMarks != nil {
		assignment.TotalMarks = *payload.TotalMarks
	}
	if payload.DueDate.Set {
		if payload.DueDate.Value == nil || strings.TrimSpace(*payload.DueDate.Value) == "" {
			assignment.DueDate = nil
		} else {
			dueDate, err := parseDueDate(*payload.DueDate.Value)
			if err != nil {
				return dto.AssignmentResponse{}, err
			}
			assignment.DueDate = &dueDate
		}
	}
	if payload.Attachments != nil {
		assignment.Attachments = models.EncodeAttachments(payload.Attachments)
	}

	if err := s.repo.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      v,
		Action:     "assignment.updated",
		EntityType: "assignment",
		EntityID:   &assignment.ID,
	})
	s.logger.Info().Uint("assignment_id", assignment.ID).Msg("assignment updated")

	return s.expander.ExpandAssignment(ctx, assignment, v), nil
}

func (s *assignmentService) Delete(ctx context.Context, id uint, v viewer.Viewer) error {
	if err := access.Authorize(access.ActionDelete, access.ResourceAssignment, v); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err, ErrAssignmentNotFound)
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      v,
		Action:     "assignment.deleted",
		EntityType: "assignment",
		EntityID:   &id,
	})
	s.logger.Info().Uint("assignment_id", id).Msg("assignment deleted")
	return nil
}

// AddAttachment stores file and appends its descriptor to the assignment.
func (s *assignmentService) AddAttachment(ctx context.Context, id uint, file *multipart.FileHeader, v viewer.Viewer) (dto.AssignmentResponse, error) {
	if err := access.Authorize(access.ActionUpdate, access.ResourceAssignment, v); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, notFound(err, ErrAssignmentNotFound)
	}

	if s.attachments == nil {
		return dto.AssignmentResponse{}, ErrUploadsDisabled
	}
	descriptor, err := s.attachments.Store(ctx, file)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	files := append(models.DecodeAttachments(assignment.Attachments), descriptor)
	assignment.Attachments = models.EncodeAttachments(files)
	if err := s.repo.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      v,
		Action:     "assignment.attachment_added",
		EntityType: "assignment",
		EntityID:   &assignment.ID,
		Metadata:   map[string]interface{}{"filename": descriptor.Filename, "size": descriptor.Size},
	})

	return s.expander.ExpandAssignment(ctx, assignment, v), nil
}

func (s *assignmentService) ensureQuestionSet(ctx context.Context, id *uint) error {
	if id == nil {
		return nil
	}
	if _, err := s.sets.GetByID(ctx, *id); err != nil {
		return notFound(err, ErrQuestionSetNotFound)
	}
	return nil
}

func parseDueDate(value string) (time.Time, error) {
	dueDate, err := dto.ParseDueDate(strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid due date", ErrInvalidPayload)
	}
	return dueDate.UTC(), nil
}
