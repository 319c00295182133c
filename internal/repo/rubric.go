package repo

import (
	"context"

	"gorm.io/gorm"

	"reviewdesk/internal/models"
)

type IRubric interface {
	ListByForm(ctx context.Context, formID string) ([]models.RoleReviewRubric, error)
	Create(ctx context.Context, rubric *models.RoleReviewRubric) error
}

type GormRubric struct {
	db *gorm.DB
}

func NewRubricRepository(db *gorm.DB) IRubric {
	return &GormRubric{db: db}
}

// ListByForm retrieves a form's rubrics in insertion order. Callers depend
// on this order being stable; no re-sorting happens downstream.
func (r *GormRubric) ListByForm(ctx context.Context, formID string) ([]models.RoleReviewRubric, error) {
	var rubrics []models.RoleReviewRubric
	err := r.db.WithContext(ctx).
		Where("form_id = ?", formID).
		Order("seq ASC").
		Find(&rubrics).Error
	if err != nil {
		return nil, err
	}
	return rubrics, nil
}

func (r *GormRubric) Create(ctx context.Context, rubric *models.RoleReviewRubric) error {
	return r.db.WithContext(ctx).Create(rubric).Error
}

type IInterviewRubric interface {
	ListByForm(ctx context.Context, formID string) ([]models.InterviewRubric, error)
	CreateBulk(ctx context.Context, rubrics []models.InterviewRubric) error
}

type GormInterviewRubric struct {
	db *gorm.DB
}

func NewInterviewRubricRepository(db *gorm.DB) IInterviewRubric {
	return &GormInterviewRubric{db: db}
}

func (r *GormInterviewRubric) ListByForm(ctx context.Context, formID string) ([]models.InterviewRubric, error) {
	var rubrics []models.InterviewRubric
	err := r.db.WithContext(ctx).
		Where("form_id = ?", formID).
		Order("seq ASC").
		Find(&rubrics).Error
	if err != nil {
		return nil, err
	}
	return rubrics, nil
}

// CreateBulk inserts an uploaded rubric batch in one transaction; either the
// whole batch lands or none of it does.
func (r *GormInterviewRubric) CreateBulk(ctx context.Context, rubrics []models.InterviewRubric) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rubrics {
			if err := tx.Create(&rubrics[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
