package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// AssignmentChoiceRequest describes a selectable answer.
type AssignmentChoiceRequest struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

// AssignmentChoiceUpdateRequest is a partial choice update.
type AssignmentChoiceUpdateRequest struct {
	Text      *string `json:"text" validate:"omitempty,min=1"`
	IsCorrect *bool   `json:"is_correct"`
}

// AssignmentQuestionCreateRequest adds an inline question to an assignment.
type AssignmentQuestionCreateRequest struct {
	Type     string                    `json:"type" validate:"required,oneof=multiple-choice short-answer essay true-false fill-blank"`
	Text     string                    `json:"question_text" validate:"required"`
	Points   int                       `json:"points" validate:"gte=0"`
	Position int                       `json:"position" validate:"gte=0"`
	Choices  []AssignmentChoiceRequest `json:"choices" validate:"omitempty,dive"`
}

// AssignmentQuestionUpdateRequest is a partial inline-question update.
type AssignmentQuestionUpdateRequest struct {
	Type     *string `json:"type" validate:"omitempty,oneof=multiple-choice short-answer essay true-false fill-blank"`
	Text     *string `json:"question_text" validate:"omitempty,min=1"`
	Points   *int    `json:"points" validate:"omitempty,gte=0"`
	Position *int    `json:"position" validate:"omitempty,gte=0"`
}

// AssignmentChoiceResponse serialises a choice; is_correct is emitted only when Reveal is set.
type AssignmentChoiceResponse struct {
	ID                   uint   `json:"id"`
	AssignmentQuestionID uint   `json:"assignment_question_id"`
	Text                 string `json:"text"`
	IsCorrect            bool   `json:"-"`
	Reveal               bool   `json:"-"`
}

// MarshalJSON implements json.Marshaler.
func (c AssignmentChoiceResponse) MarshalJSON() ([]byte, error) {
	type plain AssignmentChoiceResponse
	if !c.Reveal {
		return json.Marshal(plain(c))
	}
	return json.Marshal(struct {
		plain
		IsCorrect bool `json:"is_correct"`
	}{plain: plain(c), IsCorrect: c.IsCorrect})
}

// AssignmentQuestionResponse serialises an inline question with its choices.
type AssignmentQuestionResponse struct {
	ID           uint                       `json:"id"`
	AssignmentID uint                       `json:"assignment_id"`
	Type         string                     `json:"type"`
	Text         string                     `json:"text"`
	Points       int                        `json:"points"`
	Position     int                        `json:"position"`
	Choices      []AssignmentChoiceResponse `json:"choices"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`
}

// NewAssignmentChoiceResponse converts a choice model; the key stays hidden until revealed.
func NewAssignmentChoiceResponse(model models.AssignmentChoice) AssignmentChoiceResponse {
	return AssignmentChoiceResponse{
		ID:                   model.ID,
		AssignmentQuestionID: model.AssignmentQuestionID,
		Text:                 model.Text,
		IsCorrect:            model.IsCorrect,
	}
}

// NewAssignmentQuestionResponse converts an inline question model into a DTO.
func NewAssignmentQuestionResponse(model models.AssignmentQuestion) AssignmentQuestionResponse {
	choices := make([]AssignmentChoiceResponse, 0, len(model.Choices))
	for _, choice := range model.Choices {
		choices = append(choices, NewAssignmentChoiceResponse(choice))
	}

	return AssignmentQuestionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		Type:         model.Type,
		Text:         model.Text,
		Points:       model.Points,
		Position:     model.Position,
		Choices:      choices,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}
