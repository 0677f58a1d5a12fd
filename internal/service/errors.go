package service

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrCourseNotFound indicates the requested course does not exist.
	ErrCourseNotFound = errors.New("course not found")
	// ErrCourseCodeTaken indicates another course already uses the code.
	ErrCourseCodeTaken = errors.New("course code already registered")
	// ErrQuestionNotFound indicates the requested question does not exist.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrQuestionSetNotFound indicates the requested question set does not exist.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrAssignmentNotFound indicates the requested assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrAssignmentQuestionNotFound indicates the inline question does not exist on the assignment.
	ErrAssignmentQuestionNotFound = errors.New("assignment question not found")
	// ErrChoiceNotFound indicates the choice does not exist on the question.
	ErrChoiceNotFound = errors.New("choice not found")
	// ErrSubmissionNotFound indicates the submission does not exist or is not visible to the caller.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrSubmissionAnswerNotFound indicates the answer row does not exist.
	ErrSubmissionAnswerNotFound = errors.New("submission answer not found")
	// ErrInvalidPayload wraps semantic validation failures not covered by struct tags.
	ErrInvalidPayload = errors.New("invalid payload")
)

// notFound maps gorm.ErrRecordNotFound to the resource sentinel.
func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
