package models

import (
	"time"

	"gorm.io/datatypes"
)

// Assignment represents coursework optionally backed by a question set.
type Assignment struct {
	ID            uint                 `gorm:"primaryKey" json:"id"`
	Title         string               `gorm:"size:255;not null" json:"title"`
	Description   string               `gorm:"type:text" json:"description"`
	Type          string               `gorm:"size:64" json:"type"`
	CourseID      *uint                `gorm:"index" json:"course_id"`
	QuestionSetID *uint                `gorm:"index" json:"question_set_id"`
	TotalMarks    int                  `gorm:"not null;default:0" json:"total_marks"`
	DueDate       *time.Time           `json:"due_date"`
	Attachments   datatypes.JSON       `gorm:"type:json" json:"attachments"`
	CreatedBy     uint                 `gorm:"not null" json:"created_by"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	Questions     []AssignmentQuestion `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	if a.DueDate == nil {
		return false
	}
	return reference.After(*a.DueDate)
}

// AssignmentQuestion is a question defined inline on a single assignment.
type AssignmentQuestion struct {
	ID           uint               `gorm:"primaryKey" json:"id"`
	AssignmentID uint               `gorm:"not null;index" json:"assignment_id"`
	Type         string             `gorm:"size:32;not null" json:"type"`
	Text         string             `gorm:"type:text;not null" json:"text"`
	Points       int                `gorm:"not null;default:0" json:"points"`
	Position     int                `gorm:"not null;default:0" json:"position"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	Choices      []AssignmentChoice `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"choices"`
}

// AssignmentChoice is a selectable answer of an AssignmentQuestion.
type AssignmentChoice struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	AssignmentQuestionID uint      `gorm:"not null;index" json:"assignment_question_id"`
	Text                 string    `gorm:"type:text;not null" json:"text"`
	IsCorrect            bool      `gorm:"not null;default:false" json:"is_correct"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
