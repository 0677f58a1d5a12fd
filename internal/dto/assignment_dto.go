package dto

import (
	"time"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

const isoLayout = time.RFC3339

// AssignmentCreateRequest describes the payload for creating a new assignment.
type AssignmentCreateRequest struct {
	Title         string                  `json:"title" validate:"required,min=1,max=255"`
	Description   string                  `json:"description"`
	Type          string                  `json:"type" validate:"omitempty,max=64"`
	CourseID      *uint                   `json:"course_id" validate:"omitempty,gt=0"`
	QuestionSetID *uint                   `json:"question_set_id" validate:"omitempty,gt=0"`
	TotalMarks    int                     `json:"total_marks" validate:"gte=0"`
	DueDate       *string                 `json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Attachments   []models.FileDescriptor `json:"attachments"`
}

// AssignmentUpdateRequest describes a partial assignment update.
type AssignmentUpdateRequest struct {
	Title         *string                 `json:"title" validate:"omitempty,min=1,max=255"`
	Description   *string                 `json:"description"`
	Type          *string                 `json:"type" validate:"omitempty,max=64"`
	CourseID      Optional[uint]          `json:"course_id"`
	QuestionSetID Optional[uint]          `json:"question_set_id"`
	TotalMarks    *int                    `json:"total_marks" validate:"omitempty,gte=0"`
	DueDate       Optional[string]        `json:"due_date"`
	Attachments   []models.FileDescriptor `json:"attachments"`
}

// AssignmentFilter describes list options for assignments.
type AssignmentFilter struct {
	Search   string
	Sort     string
	CourseID *uint
	Page     int
	PageSize int
}

// AssignmentResponse is the serialized representation returned to API clients.
// QuestionSet is attached only when the linked set could be expanded.
type AssignmentResponse struct {
	ID            uint                    `json:"id"`
	Title         string                  `json:"title"`
	Description   string                  `json:"description"`
	Type          string                  `json:"type"`
	CourseID      *uint                   `json:"course_id"`
	QuestionSetID *uint                   `json:"question_set_id"`
	TotalMarks    int                     `json:"total_marks"`
	DueDate       *time.Time              `json:"due_date"`
	Attachments   []models.FileDescriptor `json:"attachments"`
	CreatedBy     uint                    `json:"created_by"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
	QuestionSet   *QuestionSetResponse    `json:"question_set,omitempty"`
}

// AssignmentListResponse wraps a page of assignments.
type AssignmentListResponse struct {
	Items      []AssignmentResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:            model.ID,
		Title:         model.Title,
		Description:   model.Description,
		Type:          model.Type,
		CourseID:      model.CourseID,
		QuestionSetID: model.QuestionSetID,
		TotalMarks:    model.TotalMarks,
		DueDate:       model.DueDate,
		Attachments:   models.DecodeAttachments(model.Attachments),
		CreatedBy:     model.CreatedBy,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

// ParseDueDate parses an RFC3339 due date.
func ParseDueDate(value string) (time.Time, error) {
	return time.Parse(isoLayout, value)
}
