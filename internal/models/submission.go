package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission is one hand-in of an assignment. Repeated hand-ins append rows.
type Submission struct {
	ID             uint                     `gorm:"primaryKey" json:"id"`
	AssignmentID   uint                     `gorm:"not null;index" json:"assignment_id"`
	StudentID      *uint                    `gorm:"index" json:"student_id"`
	SubmissionData string                   `gorm:"type:text" json:"submission_data"`
	Attachments    datatypes.JSON           `gorm:"type:json" json:"attachments"`
	Graded         bool                     `gorm:"not null;default:false" json:"graded"`
	Marks          *int                     `json:"marks"`
	Feedback       string                   `gorm:"type:text" json:"feedback"`
	Status         string                   `gorm:"size:32;not null" json:"status"`
	GradedBy       *uint                    `json:"graded_by"`
	GradedAt       *time.Time               `json:"graded_at"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
	Answers        []SubmissionAnswer       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"answers"`
	History        []SubmissionGradeHistory `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"history"`
}

const (
	// SubmissionStatusSubmitted indicates the submission has been handed in but not graded.
	SubmissionStatusSubmitted = "submitted"
	// SubmissionStatusGraded indicates the submission has a score.
	SubmissionStatusGraded = "graded"
	// SubmissionStatusLate marks a hand-in received after the due date.
	SubmissionStatusLate = "late"
)

// IsGraded reports whether the submission has a final grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// SubmissionAnswer is a per-question answer row, graded independently of the auto-grader.
type SubmissionAnswer struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	SubmissionID     uint      `gorm:"not null;index" json:"submission_id"`
	QuestionID       uint      `gorm:"not null;index" json:"question_id"`
	AnswerText       string    `gorm:"type:text" json:"answer_text"`
	SelectedChoiceID *uint     `json:"selected_choice_id"`
	PointsAwarded    *int      `json:"points_awarded"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SubmissionGradeHistory records every explicit grading action on a submission.
type SubmissionGradeHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;index" json:"submission_id"`
	Marks        int       `gorm:"not null" json:"marks"`
	Feedback     string    `gorm:"type:text" json:"feedback"`
	GradedBy     uint      `gorm:"not null" json:"graded_by"`
	GradedAt     time.Time `gorm:"not null" json:"graded_at"`
}
