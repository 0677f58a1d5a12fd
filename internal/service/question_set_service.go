package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/access"
	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/relation"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
	"github.com/noah-isme/gema-assessment-api/internal/viewer"
)

// QuestionSetService exposes question-set use cases. Every read is expanded.
type QuestionSetService interface {
	List(ctx context.Context, courseID *uint, v viewer.Viewer) ([]dto.QuestionSetResponse, error)
	Get(ctx context.Context, id uint, v viewer.Viewer) (dto.QuestionSetResponse, error)
	Create(ctx context.Context, payload dto.QuestionSetCreateRequest, v viewer.Viewer) (dto.QuestionSetResponse, error)
	Update(ctx context.Context, id uint, payload dto.QuestionSetUpdateRequest, v viewer.Viewer) (dto.QuestionSetResponse, error)
	Delete(ctx context.Context, id uint, v viewer.Viewer) error
}

type questionSetService struct {
	repo      repository.QuestionSetRepository
	expander  *QuestionExpander
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewQuestionSetService builds the question-set service.
func NewQuestionSetService(repo repository.QuestionSetRepository, expander *QuestionExpander, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) QuestionSetService {
	return &questionSetService{
		repo:      repo,
		expander:  expander,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "question_set_service").Logger(),
	}
}

func (s *questionSetService) List(ctx context.Context, courseID *uint, v viewer.Viewer) ([]dto.QuestionSetResponse, error) {
	sets, err := s.repo.List(ctx, courseID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.QuestionSetResponse, 0, len(sets))
	for _, set := range sets {
		expanded, err := s.expander.ExpandQuestionSet(ctx, set, v)
		if err != nil {
			return nil, err
		}
		responses = append(responses, expanded)
	}
	return responses, nil
}

func (s *questionSetService) Get(ctx context.Context, id uint, v viewer.Viewer) (dto.QuestionSetResponse, error) {
	set, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.QuestionSetResponse{}, notFound(err, ErrQuestionSetNotFound)
	}
	return s.expander.ExpandQuestionSet(ctx, set, v)
}

func (s *questionSetService) Create(ctx context.Context, payload dto.QuestionSetCreateRequest, v viewer.Viewer) (dto.QuestionSetResponse, error) {
	if err := access.Authorize(access.ActionCreate, access.ResourceQuestionSet, v); err != nil {
		return dto.QuestionSetResponse{}, err
	}

	payload.Title = strings.TrimSpace(payload.Title)
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionSetResponse{}, err
	}

	questionIDs := relation.Decode(payload.Questions)
	set := models.QuestionSet{
		CourseID:    payload.CourseID,
		Title:       payload.Title,
		Description: sanitizeRichText(payload.Description),
		TotalMarks:  payload.TotalMarks,
		CreatedBy:   v.ID,
	}

	if err := s.repo.Create(ctx, &set, questionIDs); err != nil {
		return dto.QuestionSetResponse{}, err
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      v,
		Action:     "question_set.created",
		EntityType: "question_set",
		EntityID:   &set.ID,
		Metadata:   map[string]interface{}{"questions": relation.Encode(questionIDs)},
	})
	s.logger.Info().Uint("question_set_id", set.ID).Int("question_count", len(questionIDs)).Msg("question set created")

	return s.expander.ExpandQuestionSet(ctx, set, v)
}

// Update applies a partial update. A present questions field replaces the
// whole membership list in the given order.
func (s *questionSetService) Update(ctx context.Context, id uint, payload dto.QuestionSetUpdateRequest, v viewer.Viewer) (dto.QuestionSetResponse, error) {
	if err := access.Authorize(access.ActionUpdate, access.ResourceQuestionSet, v); err != nil {
		return dto.QuestionSetResponse{}, err
	}

	if payload.Title != nil {
		trimmed := strings.TrimSpace(*payload.Title)
		payload.Title = &trimmed
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionSetResponse{}, err
	}

	set, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.QuestionSetResponse{}, notFound(err, ErrQuestionSetNotFound)
	}

	if payload.CourseID.Set {
		set.CourseID = payload.CourseID.Value
	}
	if payload.Title != nil {
		set.Title = *payload.Title
	}
	if payload.Description != nil {
		set.Description = sanitizeRichText(*payload.Description)
	}
	if payload.TotalMarks != nil {
		set.TotalMarks = *payload.TotalMarks
	}

	replaceItems := payload.Questions != nil
	questionIDs := set.QuestionIDs()
	if replaceItems {
		questionIDs = relation.Decode(payload.Questions)
	}

	if err := s.repo.Update(ctx, &set, questionIDs, replaceItems); err != nil {
		return dto.QuestionSetResponse{}, err
	}

	s.expander.Invalidate(ctx, set.ID)

	metadata := map[string]interface{}{}
	if replaceItems {
		metadata["questions"] = relation.Encode(questionIDs)
	}
	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      v,
		Action:     "question_set.updated",
		EntityType: "question_set",
		EntityID:   &set.ID,
		Metadata:   metadata,
	})
	s.logger.Info().Uint("question_set_id", set.ID).Bool("membership_replaced", replaceItems).Msg("question set updated")

	return s.expander.ExpandQuestionSet(ctx, set, v)
}

func (s *questionSetService) Delete(ctx context.Context, id uint, v viewer.Viewer) error {
	if err := access.Authorize(access.ActionDelete, access.ResourceQuestionSet, v); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err, ErrQuestionSetNotFound)
	}

	s.expander.Invalidate(ctx, id)
	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      v,
		Action:     "question_set.deleted",
		EntityType: "question_set",
		EntityID:   &id,
	})
	s.logger.Info().Uint("question_set_id", id).Msg("question set deleted")
	return nil
}
