package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// QuestionSetRepository persists question sets and their ordered membership rows.
type QuestionSetRepository interface {
	List(ctx context.Context, courseID *uint) ([]models.QuestionSet, error)
	GetByID(ctx context.Context, id uint) (models.QuestionSet, error)
	Create(ctx context.Context, set *models.QuestionSet, questionIDs []uint) error
	Update(ctx context.Context, set *models.QuestionSet, questionIDs []uint, replaceItems bool) error
	Delete(ctx context.Context, id uint) error
	SetIDsContaining(ctx context.Context, questionID uint) ([]uint, error)
}

type questionSetRepository struct {
	db *gorm.DB
}

// NewQuestionSetRepository instantiates a GORM-backed repository.
func NewQuestionSetRepository(db *gorm.DB) QuestionSetRepository {
	return &questionSetRepository{db: db}
}

func (r *questionSetRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.QuestionSet{}).
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC")
		})
}

func (r *questionSetRepository) List(ctx context.Context, courseID *uint) ([]models.QuestionSet, error) {
	query := r.baseQuery(ctx)
	if courseID != nil {
		query = query.Where("course_id = ?", *courseID)
	}

	var sets []models.QuestionSet
	if err := query.Order("id ASC").Find(&sets).Error; err != nil {
		return nil, err
	}
	return sets, nil
}

func (r *questionSetRepository) GetByID(ctx context.Context, id uint) (models.QuestionSet, error) {
	var set models.QuestionSet
	if err := r.baseQuery(ctx).First(&set, id).Error; err != nil {
		return models.QuestionSet{}, err
	}
	return set, nil
}

func (r *questionSetRepository) Create(ctx context.Context, set *models.QuestionSet, questionIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(set).Error; err != nil {
			return err
		}
		items := models.NewQuestionSetItems(set.ID, questionIDs)
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		set.Items = items
		return nil
	})
}

func (r *questionSetRepository) Update(ctx context.Context, set *models.QuestionSet, questionIDs []uint, replaceItems bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(set).Error; err != nil {
			return err
		}
		if !replaceItems {
			return nil
		}

		if err := tx.Where("question_set_id = ?", set.ID).Delete(&models.QuestionSetItem{}).Error; err != nil {
			return err
		}
		items := models.NewQuestionSetItems(set.ID, questionIDs)
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		set.Items = items
		return nil
	})
}

func (r *questionSetRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_set_id = ?", id).Delete(&models.QuestionSetItem{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.QuestionSet{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// SetIDsContaining lists the sets that reference questionID.
func (r *questionSetRepository) SetIDsContaining(ctx context.Context, questionID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.QuestionSetItem{}).
		Distinct("question_set_id").
		Where("question_id = ?", questionID).
		Pluck("question_set_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
