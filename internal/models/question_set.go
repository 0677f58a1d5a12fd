package models

import (
	"sort"
	"time"
)

// QuestionSet is a named, ordered bundle of questions.
type QuestionSet struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	CourseID    *uint             `gorm:"index" json:"course_id"`
	Title       string            `gorm:"size:255;not null" json:"title"`
	Description string            `gorm:"type:text" json:"description"`
	TotalMarks  int               `gorm:"not null;default:0" json:"total_marks"`
	CreatedBy   uint              `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Items       []QuestionSetItem `gorm:"foreignKey:QuestionSetID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// QuestionSetItem is one ordered membership row of a question set. QuestionID
// carries no foreign key: deleting a question leaves a stale reference that is
// skipped on expansion.
type QuestionSetItem struct {
	QuestionSetID uint `gorm:"primaryKey;autoIncrement:false" json:"question_set_id"`
	Position      int  `gorm:"primaryKey;autoIncrement:false" json:"position"`
	QuestionID    uint `gorm:"not null;index" json:"question_id"`
}

// QuestionIDs returns the member question identifiers in declared order.
func (s QuestionSet) QuestionIDs() []uint {
	items := make([]QuestionSetItem, len(s.Items))
	copy(items, s.Items)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Position < items[j].Position
	})

	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.QuestionID)
	}
	return ids
}

// NewQuestionSetItems builds membership rows for the given ordered ids.
func NewQuestionSetItems(setID uint, questionIDs []uint) []QuestionSetItem {
	items := make([]QuestionSetItem, 0, len(questionIDs))
	for idx, questionID := range questionIDs {
		items = append(items, QuestionSetItem{
			QuestionSetID: setID,
			Position:      idx,
			QuestionID:    questionID,
		})
	}
	return items
}
