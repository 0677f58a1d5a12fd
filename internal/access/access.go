// Package access holds the role-based authorization matrix.
//
// Checks are role-only: any lecturer may change any lecturer's questions,
// sets and assignments.
package access

import (
	"errors"

	"github.com/noah-isme/gema-assessment-api/internal/viewer"
)

var (
	// ErrUnauthenticated is returned when a gated action has no verified caller.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the caller's role may not perform the action.
	ErrForbidden = errors.New("insufficient permissions")
)

// Action is an operation on a resource.
type Action string

// Actions known to the matrix.
const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionSubmit Action = "submit"
	ActionGrade  Action = "grade"
	ActionRevert Action = "revert"
)

// Resource is a guarded entity type.
type Resource string

// Resources known to the matrix.
const (
	ResourceCourse             Resource = "course"
	ResourceQuestion           Resource = "question"
	ResourceQuestionSet        Resource = "question_set"
	ResourceAssignment         Resource = "assignment"
	ResourceAssignmentQuestion Resource = "assignment_question"
	ResourceAssignmentChoice   Resource = "assignment_choice"
	ResourceSubmission         Resource = "submission"
	ResourceSubmissionAnswer   Resource = "submission_answer"
	ResourceActivity           Resource = "activity"
)

type requirement int

const (
	anyone requirement = iota
	authenticated
	lecturer
)

var lecturerWrites = map[Action]requirement{
	ActionRead:   anyone,
	ActionCreate: lecturer,
	ActionUpdate: lecturer,
	ActionDelete: lecturer,
}

var matrix = map[Resource]map[Action]requirement{
	ResourceCourse:             lecturerWrites,
	ResourceQuestion:           lecturerWrites,
	ResourceQuestionSet:        lecturerWrites,
	ResourceAssignment:         lecturerWrites,
	ResourceAssignmentQuestion: lecturerWrites,
	ResourceAssignmentChoice:   lecturerWrites,
	ResourceSubmission: {
		ActionRead:   authenticated,
		ActionSubmit: authenticated,
		ActionGrade:  lecturer,
		ActionRevert: lecturer,
	},
	ResourceSubmissionAnswer: {
		ActionRead:  authenticated,
		ActionGrade: lecturer,
	},
	ResourceActivity: {
		ActionRead: lecturer,
	},
}

// Authorize decides whether v may perform action on resource. Pairs missing
// from the matrix are lecturer-only.
func Authorize(action Action, resource Resource, v viewer.Viewer) error {
	req := lecturer
	if actions, ok := matrix[resource]; ok {
		if r, ok := actions[action]; ok {
			req = r
		}
	}

	switch req {
	case anyone:
		return nil
	case authenticated:
		if !v.Authenticated() {
			return ErrUnauthenticated
		}
		return nil
	default:
		if !v.Authenticated() {
			return ErrUnauthenticated
		}
		if !v.IsLecturer() {
			return ErrForbidden
		}
		return nil
	}
}

// AttributeStudent decides which student a new submission belongs to. Students
// are always attributed to themselves. Only lecturers may name a student, and
// only a positive identifier is honoured; every other caller submits
// unattributed.
func AttributeStudent(v viewer.Viewer, requested *uint) *uint {
	if v.IsStudent() {
		id := v.ID
		return &id
	}
	if v.IsLecturer() && requested != nil && *requested > 0 {
		id := *requested
		return &id
	}
	return nil
}
