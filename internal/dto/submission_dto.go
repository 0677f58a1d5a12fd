package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// SubmissionAnswerRequest is a fine-grained per-question answer.
type SubmissionAnswerRequest struct {
	QuestionID       uint   `json:"question_id" validate:"required,gt=0"`
	AnswerText       string `json:"answer_text"`
	SelectedChoiceID *uint  `json:"selected_choice_id" validate:"omitempty,gt=0"`
}

// SubmissionCreateRequest describes a hand-in. SubmissionData may be a JSON
// string or any JSON value; objects of shape {text?, answers?} are auto-graded.
type SubmissionCreateRequest struct {
	AssignmentID   uint                      `json:"assignment_id" validate:"required,gt=0"`
	StudentID      *uint                     `json:"student_id"`
	SubmissionData json.RawMessage           `json:"submission_data"`
	Attachments    []models.FileDescriptor   `json:"attachments"`
	AnswerItems    []SubmissionAnswerRequest `json:"answer_items" validate:"omitempty,dive"`
	Status         string                    `json:"status" validate:"omitempty,oneof=submitted late"`
}

// SubmissionGradeRequest is an explicit lecturer grading action.
type SubmissionGradeRequest struct {
	Marks    *int   `json:"marks" validate:"required,gte=0"`
	Feedback string `json:"feedback" validate:"max=5000"`
	Status   string `json:"status" validate:"omitempty,oneof=submitted graded late"`
}

// BulkGradeItemRequest grades one submission inside a bulk request.
type BulkGradeItemRequest struct {
	SubmissionID uint   `json:"submission_id" validate:"required,gt=0"`
	Marks        *int   `json:"marks" validate:"required,gte=0"`
	Feedback     string `json:"feedback" validate:"max=5000"`
	Status       string `json:"status" validate:"omitempty,oneof=submitted graded late"`
}

// BulkGradeRequest grades many submissions sequentially.
type BulkGradeRequest struct {
	Items []BulkGradeItemRequest `json:"items" validate:"required,min=1,max=500"`
}

// BulkGradeItemResult is the outcome of one bulk item, reported in input order.
type BulkGradeItemResult struct {
	SubmissionID uint                `json:"submission_id"`
	Success      bool                `json:"success"`
	Submission   *SubmissionResponse `json:"submission,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// SubmissionAnswerGradeRequest sets the points of one fine-grained answer.
type SubmissionAnswerGradeRequest struct {
	PointsAwarded *int `json:"points_awarded" validate:"required,gte=0"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	AssignmentID *uint   `query:"assignment_id"`
	StudentID    *uint   `query:"student_id"`
	Status       *string `query:"status" validate:"omitempty,oneof=submitted graded late"`
}

// SubmissionAnswerResponse serialises a fine-grained answer row.
type SubmissionAnswerResponse struct {
	ID               uint   `json:"id"`
	SubmissionID     uint   `json:"submission_id"`
	QuestionID       uint   `json:"question_id"`
	AnswerText       string `json:"answer_text"`
	SelectedChoiceID *uint  `json:"selected_choice_id"`
	PointsAwarded    *int   `json:"points_awarded"`
}

// SubmissionGradeHistoryResponse serializes grading history entries.
type SubmissionGradeHistoryResponse struct {
	Marks    int       `json:"marks"`
	Feedback string    `json:"feedback"`
	GradedBy uint      `json:"graded_by"`
	GradedAt time.Time `json:"graded_at"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID             uint                             `json:"id"`
	AssignmentID   uint                             `json:"assignment_id"`
	StudentID      *uint                            `json:"student_id"`
	SubmissionData string                           `json:"submission_data"`
	Graded         bool                             `json:"graded"`
	Marks          *int                             `json:"marks"`
	Status         string                           `json:"status"`
	Feedback       string                           `json:"feedback,omitempty"`
	Attachments    []models.FileDescriptor          `json:"attachments"`
	GradedBy       *uint                            `json:"graded_by"`
	GradedAt       *time.Time                       `json:"graded_at"`
	Answers        []SubmissionAnswerResponse       `json:"answers,omitempty"`
	History        []SubmissionGradeHistoryResponse `json:"history,omitempty"`
	CreatedAt      time.Time                        `json:"created_at"`
	UpdatedAt      time.Time                        `json:"updated_at"`
}

// NewSubmissionAnswerResponse converts an answer row into a DTO.
func NewSubmissionAnswerResponse(model models.SubmissionAnswer) SubmissionAnswerResponse {
	return SubmissionAnswerResponse{
		ID:               model.ID,
		SubmissionID:     model.SubmissionID,
		QuestionID:       model.QuestionID,
		AnswerText:       model.AnswerText,
		SelectedChoiceID: model.SelectedChoiceID,
		PointsAwarded:    model.PointsAwarded,
	}
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:             model.ID,
		AssignmentID:   model.AssignmentID,
		StudentID:      model.StudentID,
		SubmissionData: model.SubmissionData,
		Graded:         model.Graded,
		Marks:          model.Marks,
		Status:         model.Status,
		Feedback:       model.Feedback,
		Attachments:    models.DecodeAttachments(model.Attachments),
		GradedBy:       model.GradedBy,
		GradedAt:       model.GradedAt,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}

	if len(model.Answers) > 0 {
		answers := make([]SubmissionAnswerResponse, 0, len(model.Answers))
		for _, answer := range model.Answers {
			answers = append(answers, NewSubmissionAnswerResponse(answer))
		}
		response.Answers = answers
	}

	if len(model.History) > 0 {
		history := make([]SubmissionGradeHistoryResponse, 0, len(model.History))
		for _, entry := range model.History {
			history = append(history, SubmissionGradeHistoryResponse{
				Marks:    entry.Marks,
				Feedback: entry.Feedback,
				GradedBy: entry.GradedBy,
				GradedAt: entry.GradedAt,
			})
		}
		response.History = history
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(models []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(models))
	for _, submission := range models {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
