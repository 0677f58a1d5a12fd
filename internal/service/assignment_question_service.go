package service

import (
	"context"
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

// AssignmentQuestionService manages questions defined inline on an assignment
// and their choices.
type AssignmentQuestionService interface {
	List(ctx context.Context, assignmentID uint, v viewer.Viewer) ([]dto.AssignmentQuestionResponse, error)
	Create(ctx context.Context, assignmentID uint, payload dto.AssignmentQuestionCreateRequest, v viewer.Viewer) (dto.AssignmentQuestionResponse, error)
	Update(ctx context.Context, assignmentID, id uint, payload dto.AssignmentQuestionUpdateRequest, v viewer.Viewer) (dto.AssignmentQuestionResponse, error)
	Delete(ctx context.Context, assignmentID, id uint, v viewer.Viewer) error
	AddChoice(ctx context.Context, assignmentID, questionID uint, payload dto.AssignmentChoiceRequest, v viewer.Viewer) (dto.AssignmentChoiceResponse, error)
	UpdateChoice(ctx context.Context, assignmentID, questionID, id uint, payload dto.AssignmentChoiceUpdateRequest, v viewer.Viewer) (dto.AssignmentChoiceResponse, error)
	DeleteChoice(ctx context.Context, assignmentID, questionID, id uint, v viewer.Viewer) error
}

type assignmentQuestionService struct {
	repo        repository.AssignmentQuestionRepository
	assignments repository.AssignmentRepository
	validator   *validator.Validate
	activity    ActivityRecorder
	logger      zerolog.Logger
}

// NewAssignmentQuestionService builds the inline question service.
func NewAssignmentQuestionService(repo repository.AssignmentQuestionRepository, assignments repository.AssignmentRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) AssignmentQuestionService {
	return &assignmentQuestionService{
		repo:        repo,
		assignments: assignments,
		validator:   validate,
		activity:    activity,
		logger:      logger.With().Str("component", "assignment_question_service").Logger(),
	}
}

func (s *assignmentQuestionService) List(ctx context.Context, assignmentID uint, v viewer.Viewer) ([]dto.AssignmentQuestionResponse, error) {
	if err := s.ensureAssignment(ctx, assignmentID); err != nil {
		return nil, err
	}

	questions, err := s.repo.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AssignmentQuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, visibility.AssignmentQuestion(dto.NewAssignmentQuestionResponse(question), v))
	}
	return responses, nil
}

func (s *assignmentQuestionService) Create(ctx context.Context, assignmentID uint, payload dto.AssignmentQuestionCreateRequest, v viewer.Viewer) (dto.AssignmentQuestionResponse, error) {
	if err := access.Authorize(access.ActionCreate, access.ResourceAssignmentQuestion, v); err != nil {
		return dto.AssignmentQuestionResponse{}, err
	}

	payload.Text = strings.TrimSpace(payload.Text)
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentQuestionResponse{}, err
	}
	if err := s.ensureAssignment(ctx, assignmentID); err != nil {
		return dto.AssignmentQuestionResponse{}, err
	}

	question := models.AssignmentQuestion{
		AssignmentID: assignmentID,
		Type:         payload.Type,
		Text:         sanitizeRichText(payload.Text),
		Points:       payload.Points,
		Position:     payload.Position,
	}
	for _, choice := range payload.Choices {
		question.Choices = append(question.Choices, models.AssignmentChoice{
			Text:      strings.TrimSpace(choice.Text),
			IsCorrect: choice.IsCorrect,
		})
	}

	if err := s.repo.Create(ctx, &question); err != nil {
		return dto.AssignmentQuestionResponse{}, err
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      v,
		Action:     "assignment_question.created",
		EntityType: "assignment_question",
		EntityID:   &question.ID,
		Metadata:   map[string]interface{}{"assignment_id": assignmentID, "choices": len(question.Choices)},
	})

	return visibility.AssignmentQuestion(dto.NewAssignmentQuestionResponse(question), v), nil
}

func (s *assignmentQuestionService) Update(ctx context.Context, assignmentID, id uint, payload dto.AssignmentQuestionUpdateRequest, v viewer.Viewer) (dto.AssignmentQuestionResponse, error) {
	if err := access.Authorize(access.ActionUpdate, access.ResourceAssignmentQuestion, v); err != nil {
		return dto.AssignmentQuestionResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentQuestionResponse{}, err
	}

	question, err := s.repo.GetByID(ctx, assignmentID, id)
	if err != nil {
		return dto.AssignmentQuestionResponse{}, notFound(err, ErrAssignmentQuestionNotFound)
	}

	if payload.Type != nil {
		question.Type = *payload.Type
	}
	if payload.Text != nil {
		question.Text = sanitizeRichText(*payload.Text)
	}
	if payload.Points != nil {
		question.Points = *payload.Points
	}
	if payload.Position != nil {
		question.Position = *payload.Position
	}

	if err := s.repo.Update(ctx, &question); err != nil {
		return dto.AssignmentQuestionResponse{}, err
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      v,
		Action:     "assignment_question.updated",
		EntityType: "assignment_question",
		EntityID:   &question.ID,
	})

	return visibility.AssignmentQuestion(dto.NewAssignmentQuestionResponse(question), v), nil
}

func (s *assignmentQuestionService) Delete(ctx context.Context, assignmentID, id uint, v viewer.Viewer) error {
	if err := access.Authorize(access.ActionDelete, access.ResourceAssignmentQuestion, v); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, assignmentID, id); err != nil {
		return notFound(err, ErrAssignmentQuestionNotFound)
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      v,
		Action:     "assignment_question.deleted",
		EntityType: "assignment_question",
		EntityID:   &id,
	})
	return nil
}

func (s *assignmentQuestionService) AddChoice(ctx context.Context, assignmentID, questionID uint, payload dto.AssignmentChoiceRequest, v viewer.Viewer) (dto.AssignmentChoiceResponse, error) {
	if err := access.Authorize(access.ActionCreate, access.ResourceAssignmentChoice, v); err != nil {
		return dto.AssignmentChoiceResponse{}, err
	}

	payload.Text = strings.TrimSpace(payload.Text)
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentChoiceResponse{}, err
	}
	if _, err := s.repo.GetByID(ctx, assignmentID, questionID); err != nil {
		return dto.AssignmentChoiceResponse{}, notFound(err, ErrAssignmentQuestionNotFound)
	}

	choice := models.AssignmentChoice{
		AssignmentQuestionID: questionID,
		Text:                 payload.Text,
		IsCorrect:            payload.IsCorrect,
	}
	if err := s.repo.CreateChoice(ctx, &choice); err != nil {
		return dto.AssignmentChoiceResponse{}, err
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      v,
		Action:     "assignment_choice.created",
		EntityType: "assignment_choice",
		EntityID:   &choice.ID,
		Metadata:   map[string]interface{}{"assignment_question_id": questionID},
	})

	return visibility.Choice(dto.NewAssignmentChoiceResponse(choice), v), nil
}

func (s *assignmentQuestionService) UpdateChoice(ctx context.Context, assignmentID, questionID, id uint, payload dto.AssignmentChoiceUpdateRequest, v viewer.Viewer) (dto.AssignmentChoiceResponse, error) {
	if err := access.Authorize(access.ActionUpdate, access.ResourceAssignmentChoice, v); err != nil {
		return dto.AssignmentChoiceResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentChoiceResponse{}, err
	}
	if _, err := s.repo.GetByID(ctx, assignmentID, questionID); err != nil {
		return dto.AssignmentChoiceResponse{}, notFound(err, ErrAssignmentQuestionNotFound)
	}

	choice, err := s.repo.GetChoice(ctx, questionID, id)
	if err != nil {
		return dto.AssignmentChoiceResponse{}, notFound(err, ErrChoiceNotFound)
	}
	if payload.Text != nil {
		choice.Text = strings.TrimSpace(*payload.Text)
	}
	if payload.IsCorrect != nil {
		choice.IsCorrect = *payload.IsCorrect
	}

	if err := s.repo.UpdateChoice(ctx, &choice); err != nil {
		return dto.AssignmentChoiceResponse{}, err
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      v,
		Action:     "assignment_choice.updated",
		EntityType: "assignment_choice",
		EntityID:   &choice.ID,
	})

	return visibility.Choice(dto.NewAssignmentChoiceResponse(choice), v), nil
}

func (s *assignmentQuestionService) DeleteChoice(ctx context.Context, assignmentID, questionID, id uint, v viewer.Viewer) error {
	if err := access.Authorize(access.ActionDelete, access.ResourceAssignmentChoice, v); err != nil {
		return err
	}
	if _, err := s.repo.GetByID(ctx, assignmentID, questionID); err != nil {
		return notFound(err, ErrAssignmentQuestionNotFound)
	}

	if err := s.repo.DeleteChoice(ctx, questionID, id); err != nil {
		return notFound(err, ErrChoiceNotFound)
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      v,
		Action:     "assignment_choice.deleted",
		EntityType: "assignment_choice",
		EntityID:   &id,
	})
	return nil
}

func (s *assignmentQuestionService) ensureAssignment(ctx context.Context, id uint) error {
	if _, err := s.assignments.GetByID(ctx, id); err != nil {
		return notFound(err, ErrAssignmentNotFound)
	}
	return nil
}
