package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-assessment-api/internal/access"
	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/events"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
	"github.com/noah-isme/gema-assessment-api/internal/viewer"
)

// SubmissionService orchestrates hand-in, auto-grading and lecturer grading.
//
// Grading the same submission concurrently is last-writer-wins; no version
// check is performed.
type SubmissionService interface {
	List(ctx context.Context, filter dto.SubmissionFilter, v viewer.Viewer) ([]dto.SubmissionResponse, error)
	Get(ctx context.Context, id uint, v viewer.Viewer) (dto.SubmissionResponse, error)
	Create(ctx context.Context, payload dto.SubmissionCreateRequest, file *multipart.FileHeader, v viewer.Viewer) (dto.SubmissionResponse, error)
	Grade(ctx context.Context, id uint, payload dto.SubmissionGradeRequest, v viewer.Viewer) (dto.SubmissionResponse, error)
	Revert(ctx context.Context, id uint, v viewer.Viewer) (dto.SubmissionResponse, error)
	BulkGrade(ctx context.Context, payload dto.BulkGradeRequest, v viewer.Viewer) ([]dto.BulkGradeItemResult, error)
	GradeAnswer(ctx context.Context, answerID uint, payload dto.SubmissionAnswerGradeRequest, v viewer.Viewer) (dto.SubmissionAnswerResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	grader      *AutoGrader
	attachments *AttachmentStore
	events      events.Publisher
	validator   *validator.Validate
	activity    ActivityRecorder
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(subRepo repository.SubmissionRepository, assignmentRepo repository.AssignmentRepository, grader *AutoGrader, attachments *AttachmentStore, publisher events.Publisher, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) SubmissionService {
	if publisher == nil {
		publisher = events.Noop()
	}
	return &submissionService{
		submissions: subRepo,
		assignments: assignmentRepo,
		grader:      grader,
		attachments: attachments,
		events:      publisher,
		validator:   validate,
		activity:    activity,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-assessment-api/internal/service/submission"),
		now:         time.Now,
	}
}

// List returns submissions matching filter. Students only ever see their own.
func (s *submissionService) List(ctx context.Context, filter dto.SubmissionFilter, v viewer.Viewer) ([]dto.SubmissionResponse, error) {
	if err := access.Authorize(access.ActionRead, access.ResourceSubmission, v); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	repoFilter := repository.SubmissionFilter{
		AssignmentID: filter.AssignmentID,
		StudentID:    filter.StudentID,
		Status:       filter.Status,
	}
	if !v.IsLecturer() {
		own := v.ID
		repoFilter.StudentID = &own
	}

	submissions, err := s.submissions.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) Get(ctx context.Context, id uint, v viewer.Viewer) (dto.SubmissionResponse, error) {
	if err := access.Authorize(access.ActionRead, access.ResourceSubmission, v); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, notFound(err, ErrSubmissionNotFound)
	}
	if !v.IsLecturer() && (submission.StudentID == nil || *submission.StudentID != v.ID) {
		return dto.SubmissionResponse{}, ErrSubmissionNotFound
	}

	return dto.NewSubmissionResponse(submission), nil
}

// Create records a new hand-in. Every call appends a row; earlier submissions
// for the same assignment are kept.
func (s *submissionService) Create(ctx context.Context, payload dto.SubmissionCreateRequest, file *multipart.FileHeader, v viewer.Viewer) (dto.SubmissionResponse, error) {
	if err := access.Authorize(access.ActionSubmit, access.ResourceSubmission, v); err != nil {
		return dto.SubmissionResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	assignment, err := s.assignments.GetByID(ctx, payload.AssignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, notFound(err, ErrAssignmentNotFound)
	}

	submissionData, err := normalizeSubmissionData(payload.SubmissionData)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	attachments := append([]models.FileDescriptor{}, payload.Attachments...)
	if file != nil {
		if s.attachments == nil {
			return dto.SubmissionResponse{}, ErrUploadsDisabled
		}
		descriptor, err := s.attachments.Store(ctx, file)
		if err != nil {
			return dto.SubmissionResponse{}, err
		}
		attachments = append(attachments, descriptor)
	}

	submission := models.Submission{
		AssignmentID:   assignment.ID,
		StudentID:      access.AttributeStudent(v, payload.StudentID),
		SubmissionData: submissionData,
		Attachments:    models.EncodeAttachments(attachments),
		Status:         payload.Status,
	}
	if submission.Status == "" {
		submission.Status = models.SubmissionStatusSubmitted
		if assignment.IsPastDue(s.now()) {
			submission.Status = models.SubmissionStatusLate
		}
	}

	if s.grader != nil {
		result := s.grader.Grade(ctx, submissionData)
		if result.Graded {
			submission.Graded = true
			submission.Marks = result.Marks
			submission.Status = models.SubmissionStatusGraded
		}
	}

	for _, item := range payload.AnswerItems {
		submission.Answers = append(submission.Answers, models.SubmissionAnswer{
			QuestionID:       item.QuestionID,
			AnswerText:       strings.TrimSpace(item.AnswerText),
			SelectedChoiceID: item.SelectedChoiceID,
		})
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.publish(ctx, events.SubmissionCreated, submission, v)
	logEvent := s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("assignment_id", submission.AssignmentID).
		Bool("graded", submission.Graded)
	if submission.StudentID != nil {
		logEvent = logEvent.Uint("student_id", *submission.StudentID)
	}
	logEvent.Msg("submission created")

	return dto.NewSubmissionResponse(submission), nil
}

// Grade overwrites marks, feedback and status regardless of any auto-graded score.
func (s *submissionService) Grade(ctx context.Context, id uint, payload dto.SubmissionGradeRequest, v viewer.Viewer) (dto.SubmissionResponse, error) {
	if err := access.Authorize(access.ActionGrade, access.ResourceSubmission, v); err != nil {
		return dto.SubmissionResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	return s.grade(ctx, id, *payload.Marks, payload.Feedback, payload.Status, v)
}

func (s *submissionService) grade(ctx context.Context, id uint, marks int, feedback, status string, v viewer.Viewer) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.update")
	span.SetAttributes(
		attribute.Int64("grading.submission_id", int64(id)),
		attribute.Int64("grading.actor_id", int64(v.ID)),
	)
	defer span.End()

	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_lookup_failed")
		return dto.SubmissionResponse{}, notFound(err, ErrSubmissionNotFound)
	}

	if status == "" {
		status = models.SubmissionStatusGraded
	}
	gradedAt := s.now().UTC()
	gradedBy := v.ID
	cleanFeedback := sanitizePlainText(feedback)

	submission.Marks = &marks
	submission.Feedback = cleanFeedback
	submission.Status = status
	submission.Graded = true
	submission.GradedBy = &gradedBy
	submission.GradedAt = &gradedAt

	if err := s.submissions.Update(ctx, &submission); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_update_failed")
		return dto.SubmissionResponse{}, err
	}

	history := models.SubmissionGradeHistory{
		SubmissionID: submission.ID,
		Marks:        marks,
		Feedback:     cleanFeedback,
		GradedBy:     gradedBy,
		GradedAt:     gradedAt,
	}
	if err := s.submissions.CreateHistory(ctx, &history); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to persist grading history")
		span.RecordError(err)
	} else {
		submission.History = append([]models.SubmissionGradeHistory{history}, submission.History...)
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      v,
		Action:     "submission.graded",
		EntityType: "submission",
		EntityID:   &submission.ID,
		Metadata: map[string]interface{}{
			"submission_id": submission.ID,
			"student_id":    submission.StudentID,
			"marks":         marks,
			"assignment_id": submission.AssignmentID,
		},
	})
	s.publish(ctx, events.SubmissionGraded, submission, v)

	span.SetAttributes(
		attribute.Int("grading.marks", marks),
		attribute.String("grading.status", submission.Status),
	)

	return dto.NewSubmissionResponse(submission), nil
}

// Revert returns a submission to the ungraded state.
func (s *submissionService) Revert(ctx context.Context, id uint, v viewer.Viewer) (dto.SubmissionResponse, error) {
	if err := access.Authorize(access.ActionRevert, access.ResourceSubmission, v); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, notFound(err, ErrSubmissionNotFound)
	}

	submission.Graded = false
	submission.Marks = nil
	submission.Feedback = ""
	submission.GradedBy = nil
	submission.GradedAt = nil
	submission.Status = models.SubmissionStatusSubmitted

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      v,
		Action:     "submission.reverted",
		EntityType: "submission",
		EntityID:   &submission.ID,
		Metadata:   map[string]interface{}{"assignment_id": submission.AssignmentID},
	})
	s.publish(ctx, events.SubmissionReverted, submission, v)
	s.logger.Info().Uint("submission_id", submission.ID).Uint("actor_id", v.ID).Msg("submission grade reverted")

	return dto.NewSubmissionResponse(submission), nil
}

// BulkGrade grades each item in order. Every item is committed on its own and
// a failing item does not undo earlier ones; the result has one entry per item.
func (s *submissionService) BulkGrade(ctx context.Context, payload dto.BulkGradeRequest, v viewer.Viewer) ([]dto.BulkGradeItemResult, error) {
	if err := access.Authorize(access.ActionGrade, access.ResourceSubmission, v); err != nil {
		return nil, err
	}
	if err := s.validator.Var(payload.Items, "required,min=1,max=500"); err != nil {
		return nil, err
	}

	results := make([]dto.BulkGradeItemResult, 0, len(payload.Items))
	for _, item := range payload.Items {
		result := dto.BulkGradeItemResult{SubmissionID: item.SubmissionID}

		if err := s.validator.Struct(item); err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		graded, err := s.grade(ctx, item.SubmissionID, *item.Marks, item.Feedback, item.Status, v)
		if err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", item.SubmissionID).Msg("bulk grading item failed")
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		result.Success = true
		result.Submission = &graded
		results = append(results, result)
	}

	return results, nil
}

// GradeAnswer sets the points of one fine-grained answer. The submission's
// own marks are not recomputed.
func (s *submissionService) GradeAnswer(ctx context.Context, answerID uint, payload dto.SubmissionAnswerGradeRequest, v viewer.Viewer) (dto.SubmissionAnswerResponse, error) {
	if err := access.Authorize(access.ActionGrade, access.ResourceSubmissionAnswer, v); err != nil {
		return dto.SubmissionAnswerResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionAnswerResponse{}, err
	}

	answer, err := s.submissions.GetAnswer(ctx, answerID)
	if err != nil {
		return dto.SubmissionAnswerResponse{}, notFound(err, ErrSubmissionAnswerNotFound)
	}

	points := *payload.PointsAwarded
	answer.PointsAwarded = &points
	if err := s.submissions.UpdateAnswer(ctx, &answer); err != nil {
		return dto.SubmissionAnswerResponse{}, err
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      v,
		Action:     "submission_answer.graded",
		EntityType: "submission_answer",
		EntityID:   &answer.ID,
		Metadata:   map[string]interface{}{"submission_id": answer.SubmissionID, "points_awarded": points},
	})

	return dto.NewSubmissionAnswerResponse(answer), nil
}

func (s *submissionService) publish(ctx context.Context, event string, submission models.Submission, v viewer.Viewer) {
	s.events.Publish(ctx, events.SubmissionEvent{
		Event:        event,
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		StudentID:    submission.StudentID,
		Graded:       submission.Graded,
		Marks:        submission.Marks,
		Status:       submission.Status,
		ActorID:      v.ID,
		OccurredAt:   s.now().UTC(),
	})
}

// normalizeSubmissionData stores a JSON string payload as its text and any
// other JSON value in compact form.
func normalizeSubmissionData(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return "", fmt.Errorf("%w: submission_data is not valid JSON", ErrInvalidPayload)
		}
		return text, nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "", fmt.Errorf("%w: submission_data is not valid JSON", ErrInvalidPayload)
	}
	return buf.String(), nil
}
