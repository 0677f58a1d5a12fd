package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// AssignmentQuestionRepository persists inline assignment questions and their choices.
type AssignmentQuestionRepository interface {
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.AssignmentQuestion, error)
	GetByID(ctx context.Context, assignmentID, id uint) (models.AssignmentQuestion, error)
	Create(ctx context.Context, question *models.AssignmentQuestion) error
	Update(ctx context.Context, question *models.AssignmentQuestion) error
	Delete(ctx context.Context, assignmentID, id uint) error
	GetChoice(ctx context.Context, questionID, id uint) (models.AssignmentChoice, error)
	CreateChoice(ctx context.Context, choice *models.AssignmentChoice) error
	UpdateChoice(ctx context.Context, choice *models.AssignmentChoice) error
	DeleteChoice(ctx context.Context, questionID, id uint) error
}

type assignmentQuestionRepository struct {
	db *gorm.DB
}

// NewAssignmentQuestionRepository instantiates a GORM-backed repository.
func NewAssignmentQuestionRepository(db *gorm.DB) AssignmentQuestionRepository {
	return &assignmentQuestionRepository{db: db}
}

func (r *assignmentQuestionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.AssignmentQuestion{}).
		Preload("Choices", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("id ASC")
		})
}

func (r *assignmentQuestionRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.AssignmentQuestion, error) {
	var questions []models.AssignmentQuestion
	if err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("position ASC, id ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *assignmentQuestionRepository) GetByID(ctx context.Context, assignmentID, id uint) (models.AssignmentQuestion, error) {
	var question models.AssignmentQuestion
	if err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		First(&question, id).Error; err != nil {
		return models.AssignmentQuestion{}, err
	}
	return question, nil
}

// Create inserts the question together with any choices it carries.
func (r *assignmentQuestionRepository) Create(ctx context.Context, question *models.AssignmentQuestion) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *assignmentQuestionRepository) Update(ctx context.Context, question *models.AssignmentQuestion) error {
	return r.db.WithContext(ctx).Omit("Choices").Save(question).Error
}

func (r *assignmentQuestionRepository) Delete(ctx context.Context, assignmentID, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("assignment_id = ?", assignmentID).Delete(&models.AssignmentQuestion{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("assignment_question_id = ?", id).Delete(&models.AssignmentChoice{}).Error
	})
}

func (r *assignmentQuestionRepository) GetChoice(ctx context.Context, questionID, id uint) (models.AssignmentChoice, error) {
	var choice models.AssignmentChoice
	if err := r.db.WithContext(ctx).
		Where("assignment_question_id = ?", questionID).
		First(&choice, id).Error; err != nil {
		return models.AssignmentChoice{}, err
	}
	return choice, nil
}

func (r *assignmentQuestionRepository) CreateChoice(ctx context.Context, choice *models.AssignmentChoice) error {
	return r.db.WithContext(ctx).Create(choice).Error
}

func (r *assignmentQuestionRepository) UpdateChoice(ctx context.Context, choice *models.AssignmentChoice) error {
	return r.db.WithContext(ctx).Save(choice).Error
}

func (r *assignmentQuestionRepository) DeleteChoice(ctx context.Context, questionID, id uint) error {
	result := r.db.WithContext(ctx).
		Where("assignment_question_id = ?", questionID).
		Delete(&models.AssignmentChoice{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
