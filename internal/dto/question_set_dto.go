package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// QuestionSetCreateRequest describes a new question set. Questions accepts a
// JSON array of ids, a JSON-encoded string of one, or comma-separated ids.
type QuestionSetCreateRequest struct {
	CourseID    *uint           `json:"course_id" validate:"omitempty,gt=0"`
	Title       string          `json:"title" validate:"required,min=1,max=255"`
	Description string          `json:"description"`
	Questions   json.RawMessage `json:"questions"`
	TotalMarks  int             `json:"total_marks" validate:"gte=0"`
}

// QuestionSetUpdateRequest is a partial update of a question set. When
// Questions is present the membership list is replaced as a whole.
type QuestionSetUpdateRequest struct {
	CourseID    Optional[uint]  `json:"course_id"`
	Title       *string         `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string         `json:"description"`
	Questions   json.RawMessage `json:"questions"`
	TotalMarks  *int            `json:"total_marks" validate:"omitempty,gte=0"`
}

// QuestionSetResponse is an expanded question set: Questions holds hydrated
// questions in declared order.
type QuestionSetResponse struct {
	ID          uint               `json:"id"`
	CourseID    *uint              `json:"course_id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	TotalMarks  int                `json:"total_marks"`
	CreatedBy   uint               `json:"created_by"`
	Questions   []QuestionResponse `json:"questions"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NewQuestionSetResponse converts a model into a DTO carrying the given hydrated questions.
func NewQuestionSetResponse(model models.QuestionSet, questions []QuestionResponse) QuestionSetResponse {
	if questions == nil {
		questions = []QuestionResponse{}
	}
	return QuestionSetResponse{
		ID:          model.ID,
		CourseID:    model.CourseID,
		Title:       model.Title,
		Description: model.Description,
		TotalMarks:  model.TotalMarks,
		CreatedBy:   model.CreatedBy,
		Questions:   questions,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}
