package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/access"
	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
	"github.com/noah-isme/gema-assessment-api/internal/viewer"
	"github.com/noah-isme/gema-assessment-api/internal/visibility"
)

// QuestionService exposes question-bank use cases.
type QuestionService interface {
	List(ctx context.Context, filter dto.QuestionFilter, v viewer.Viewer) ([]dto.QuestionResponse, error)
	Get(ctx context.Context, id uint, v viewer.Viewer) (dto.QuestionResponse, error)
	Create(ctx context.Context, payload dto.QuestionCreateRequest, v viewer.Viewer) (dto.QuestionResponse, error)
	Update(ctx context.Context, id uint, payload dto.QuestionUpdateRequest, v viewer.Viewer) (dto.QuestionResponse, error)
	Delete(ctx context.Context, id uint, v viewer.Viewer) error
}

type questionService struct {
	repo      repository.QuestionRepository
	expander  *QuestionExpander
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewQuestionService builds the question service. expander is used to drop
// cached set expansions when a member question changes.
func NewQuestionService(repo repository.QuestionRepository, expander *QuestionExpander, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) QuestionService {
	return &questionService{
		repo:      repo,
		expander:  expander,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "question_service").Logger(),
	}
}

func (s *questionService) List(ctx context.Context, filter dto.QuestionFilter, v viewer.Viewer) ([]dto.QuestionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	questions, err := s.repo.List(ctx, repository.QuestionFilter{CourseID: filter.CourseID, Type: filter.Type})
	if err != nil {
		return nil, err
	}

	responses := make([]dto.QuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, HydrateQuestion(question))
	}
	return visibility.Questions(responses, v), nil
}

func (s *questionService) Get(ctx context.Context, id uint, v viewer.Viewer) (dto.QuestionResponse, error) {
	question, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.QuestionResponse{}, notFound(err, ErrQuestionNotFound)
	}
	return visibility.Question(HydrateQuestion(question), v), nil
}

func (s *questionService) Create(ctx context.Context, payload dto.QuestionCreateRequest, v viewer.Viewer) (dto.QuestionResponse, error) {
	if err := access.Authorize(access.ActionCreate, access.ResourceQuestion, v); err != nil {
		return dto.QuestionResponse{}, err
	}

	payload.QuestionText = strings.TrimSpace(payload.QuestionText)
	payload.Text = strings.TrimSpace(payload.Text)
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	options, err := encodeOptions(payload.Options)
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	question := models.Question{
		CourseID:      payload.CourseID,
		Type:          payload.Type,
		Text:          sanitizeRichText(payload.Body()),
		Options:       options,
		CorrectAnswer: payload.CorrectAnswer,
		Marks:         payload.Marks,
		CreatedBy:     v.ID,
	}
	if strings.TrimSpace(question.Text) == "" {
		return dto.QuestionResponse{}, fmt.Errorf("%w: question text is empty after sanitization", ErrInvalidPayload)
	}

	if err := s.repo.Create(ctx, &question); err != nil {
		return dto.QuestionResponse{}, err
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      v,
		Action:     "question.created",
		EntityType: "question",
		EntityID:   &question.ID,
		Metadata:   map[string]interface{}{"type": question.Type, "marks": question.Marks},
	})
	s.logger.Info().Uint("question_id", question.ID).Uint("actor_id", v.ID).Msg("question created")

	return visibility.Question(HydrateQuestion(question), v), nil
}

func (s *questionService) Update(ctx context.Context, id uint, payload dto.QuestionUpdateRequest, v viewer.Viewer) (dto.QuestionResponse, error) {
	if err := access.Authorize(access.ActionUpdate, access.ResourceQuestion, v); err != nil {
		return dto.QuestionResponse{}, err
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	question, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.QuestionResponse{}, notFound(err, ErrQuestionNotFound)
	}

	if payload.CourseID.Set {
		question.CourseID = payload.CourseID.Value
	}
	if payload.Type != nil {
		question.Type = *payload.Type
	}
	switch {
	case payload.QuestionText != nil:
		question.Text = sanitizeRichText(*payload.QuestionText)
	case payload.Text != nil:
		question.Text = sanitizeRichText(*payload.Text)
	}
	if strings.TrimSpace(question.Text) == "" {
		return dto.QuestionResponse{}, fmt.Errorf("%w: question text must not be empty", ErrInvalidPayload)
	}
	if payload.Options != nil {
		options, err := encodeOptions(payload.Options)
		if err != nil {
			return dto.QuestionResponse{}, err
		}
		question.Options = options
	}
	if payload.CorrectAnswer.Set {
		question.CorrectAnswer = payload.CorrectAnswer.Value
	}
	if payload.Marks != nil {
		question.Marks = *payload.Marks
	}

	if err := s.repo.Update(ctx, &question); err != nil {
		return dto.QuestionResponse{}, err
	}

	if s.expander != nil {
		s.expander.InvalidateQuestion(ctx, question.ID)
	}
	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      v,
		Action:     "question.updated",
		EntityType: "question",
		EntityID:   &question.ID,
	})
	s.logger.Info().Uint("question_id", question.ID).Uint("actor_id", v.ID).Msg("question updated")

	return visibility.Question(HydrateQuestion(question), v), nil
}

// Delete removes the question. Question sets that reference it keep the
// stale identifier, which expansion skips.
func (s *questionService) Delete(ctx context.Context, id uint, v viewer.Viewer) error {
	if err := access.Authorize(access.ActionDelete, access.ResourceQuestion, v); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err, ErrQuestionNotFound)
	}

	if s.expander != nil {
		s.expander.InvalidateQuestion(ctx, id)
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      v,
		Action:     "question.deleted",
		EntityType: "question",
		EntityID:   &id,
	})
	s.logger.Info().Uint("question_id", id).Uint("actor_id", v.ID).Msg("question deleted")
	return nil
}

// encodeOptions stores options as submitted. A JSON string is kept as its
// content so double-encoded legacy clients round-trip; null clears the blob.
func encodeOptions(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", nil
	}
	if !json.Valid([]byte(trimmed)) {
		return "", fmt.Errorf("%w: options must be valid JSON", ErrInvalidPayload)
	}
	if strings.HasPrefix(trimmed, "\"") {
		var inner string
		if err := json.Unmarshal([]byte(trimmed), &inner); err != nil {
			return "", fmt.Errorf("%w: options must be valid JSON", ErrInvalidPayload)
		}
		return inner, nil
	}
	return trimmed, nil
}
