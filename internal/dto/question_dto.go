package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// QuestionCreateRequest describes the payload for adding a question to the bank.
// The text may be sent as either question_text or text.
type QuestionCreateRequest struct {
	CourseID      *uint           `json:"course_id" validate:"omitempty,gt=0"`
	Type          string          `json:"type" validate:"required,oneof=multiple-choice short-answer essay true-false fill-blank"`
	QuestionText  string          `json:"question_text" validate:"required_without=Text"`
	Text          string          `json:"text" validate:"required_without=QuestionText"`
	Options       json.RawMessage `json:"options"`
	CorrectAnswer *string         `json:"correct_answer"`
	Marks         int             `json:"marks" validate:"gte=0"`
}

// Body returns the question text, preferring question_text.
func (r QuestionCreateRequest) Body() string {
	if r.QuestionText != "" {
		return r.QuestionText
	}
	return r.Text
}

// QuestionUpdateRequest is a partial update; absent fields are left untouched.
type QuestionUpdateRequest struct {
	CourseID      Optional[uint]   `json:"course_id"`
	Type          *string          `json:"type" validate:"omitempty,oneof=multiple-choice short-answer essay true-false fill-blank"`
	QuestionText  *string          `json:"question_text" validate:"omitempty,min=1"`
	Text          *string          `json:"text" validate:"omitempty,min=1"`
	Options       json.RawMessage  `json:"options"`
	CorrectAnswer Optional[string] `json:"correct_answer"`
	Marks         *int             `json:"marks" validate:"omitempty,gte=0"`
}

// QuestionFilter narrows question listings.
type QuestionFilter struct {
	CourseID *uint   `query:"course_id"`
	Type     *string `query:"type" validate:"omitempty,oneof=multiple-choice short-answer essay true-false fill-blank"`
}

// QuestionResponse is a hydrated question. The correct_answer key is emitted
// only when AnswerVisible is set, and then even when the answer is null.
type QuestionResponse struct {
	ID            uint      `json:"id"`
	CourseID      *uint     `json:"course_id"`
	Type          string    `json:"type"`
	Text          string    `json:"text"`
	Options       any       `json:"options"`
	Marks         int       `json:"marks"`
	CreatedBy     uint      `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	CorrectAnswer *string   `json:"-"`
	AnswerVisible bool      `json:"-"`
}

// MarshalJSON implements json.Marshaler.
func (q QuestionResponse) MarshalJSON() ([]byte, error) {
	type plain QuestionResponse
	if !q.AnswerVisible {
		return json.Marshal(plain(q))
	}

	return json.Marshal(struct {
		plain
		CorrectAnswer *string `json:"correct_answer"`
	}{plain: plain(q), CorrectAnswer: q.CorrectAnswer})
}

// UnmarshalJSON implements json.Unmarshaler so clients and tests can read payloads back.
func (q *QuestionResponse) UnmarshalJSON(data []byte) error {
	type plain QuestionResponse
	var decoded struct {
		plain
		CorrectAnswer json.RawMessage `json:"correct_answer"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	*q = QuestionResponse(decoded.plain)
	if decoded.CorrectAnswer != nil {
		q.AnswerVisible = true
		if string(decoded.CorrectAnswer) != "null" {
			var answer string
			if err := json.Unmarshal(decoded.CorrectAnswer, &answer); err != nil {
				return err
			}
			q.CorrectAnswer = &answer
		}
	}
	return nil
}

// NewQuestionResponse converts a model into a DTO with parsed options. The
// answer key is carried but hidden until a visibility decision is applied.
func NewQuestionResponse(model models.Question, options any) QuestionResponse {
	return QuestionResponse{
		ID:            model.ID,
		CourseID:      model.CourseID,
		Type:          model.Type,
		Text:          model.Text,
		Options:       options,
		Marks:         model.Marks,
		CreatedBy:     model.CreatedBy,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
		CorrectAnswer: model.CorrectAnswer,
	}
}
