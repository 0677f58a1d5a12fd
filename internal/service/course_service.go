package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/access"
	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
	"github.com/noah-isme/gema-assessment-api/internal/viewer"
)

// CourseService exposes course use cases.
type CourseService interface {
	List(ctx context.Context) ([]dto.CourseResponse, error)
	Get(ctx context.Context, id uint) (dto.CourseResponse, error)
	Create(ctx context.Context, payload dto.CourseCreateRequest, v viewer.Viewer) (dto.CourseResponse, error)
}

type courseService struct {
	repo      repository.CourseRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewCourseService builds the course service.
func NewCourseService(repo repository.CourseRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) CourseService {
	return &courseService{
		repo:      repo,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "course_service").Logger(),
	}
}

func (s *courseService) List(ctx context.Context) ([]dto.CourseResponse, error) {
	courses, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewCourseResponseSlice(courses), nil
}

func (s *courseService) Get(ctx context.Context, id uint) (dto.CourseResponse, error) {
	course, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.CourseResponse{}, notFound(err, ErrCourseNotFound)
	}
	return dto.NewCourseResponse(course), nil
}

func (s *courseService) Create(ctx context.Context, payload dto.CourseCreateRequest, v viewer.Viewer) (dto.CourseResponse, error) {
	if err := access.Authorize(access.ActionCreate, access.ResourceCourse, v); err != nil {
		return dto.CourseResponse{}, err
	}

	payload.Code = strings.ToUpper(strings.TrimSpace(payload.Code))
	payload.Name = strings.TrimSpace(payload.Name)
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	course := models.Course{Code: payload.Code, Name: payload.Name}
	if err := s.repo.Create(ctx, &course); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.CourseResponse{}, ErrCourseCodeTaken
		}
		return dto.CourseResponse{}, err
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      v,
		Action:     "course.created",
		EntityType: "course",
		EntityID:   &course.ID,
		Metadata:   map[string]interface{}{"code": course.Code},
	})
	s.logger.Info().Uint("course_id", course.ID).Str("code", course.Code).Msg("course created")

	return dto.NewCourseResponse(course), nil
}
