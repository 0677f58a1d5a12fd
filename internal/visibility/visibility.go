// Package visibility strips answer keys from payloads served to anyone who is
// not a lecturer.
package visibility

import (
	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/viewer"
)

// Question returns q as v may see it. Lecturers get the answer key (the
// correct_answer key is serialised even when null); everyone else gets a copy
// without it.
func Question(q dto.QuestionResponse, v viewer.Viewer) dto.QuestionResponse {
	if v.IsLecturer() {
		q.AnswerVisible = true
		return q
	}

	q.AnswerVisible = false
	q.CorrectAnswer = nil
	return q
}

// Questions applies Question to every element and returns a new slice.
func Questions(questions []dto.QuestionResponse, v viewer.Viewer) []dto.QuestionResponse {
	filtered := make([]dto.QuestionResponse, 0, len(questions))
	for _, q := range questions {
		filtered = append(filtered, Question(q, v))
	}
	return filtered
}

// QuestionSet filters every question embedded in an expanded set.
func QuestionSet(set dto.QuestionSetResponse, v viewer.Viewer) dto.QuestionSetResponse {
	set.Questions = Questions(set.Questions, v)
	return set
}

// AssignmentQuestion hides which choices are correct from non-lecturers.
func AssignmentQuestion(q dto.AssignmentQuestionResponse, v viewer.Viewer) dto.AssignmentQuestionResponse {
	choices := make([]dto.AssignmentChoiceResponse, 0, len(q.Choices))
	for _, choice := range q.Choices {
		choices = append(choices, Choice(choice, v))
	}
	q.Choices = choices
	return q
}

// Choice reveals is_correct to lecturers only.
func Choice(c dto.AssignmentChoiceResponse, v viewer.Viewer) dto.AssignmentChoiceResponse {
	if v.IsLecturer() {
		c.Reveal = true
		return c
	}
	c.Reveal = false
	c.IsCorrect = false
	return c
}
