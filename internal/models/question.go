package models

import "time"

// Question types accepted by the question bank.
const (
	QuestionTypeMultipleChoice = "multiple-choice"
	QuestionTypeShortAnswer    = "short-answer"
	QuestionTypeEssay          = "essay"
	QuestionTypeTrueFalse      = "true-false"
	QuestionTypeFillBlank      = "fill-blank"
)

// Question is a reusable question-bank entry.
//
// Options is kept as the raw encoded blob so that legacy rows with malformed
// content can still be read; it is parsed only when a question is hydrated.
type Question struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CourseID      *uint     `gorm:"index" json:"course_id"`
	Type          string    `gorm:"size:32;not null" json:"type"`
	Text          string    `gorm:"type:text;not null" json:"text"`
	Options       string    `gorm:"type:text" json:"options"`
	CorrectAnswer *string   `gorm:"type:text" json:"correct_answer"`
	Marks         int       `gorm:"not null;default:0" json:"marks"`
	CreatedBy     uint      `gorm:"not null" json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsChoiceType reports whether the question type carries an options list.
func (q Question) IsChoiceType() bool {
	return q.Type == QuestionTypeMultipleChoice || q.Type == QuestionTypeTrueFalse
}
