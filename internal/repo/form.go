package repo

import (
	"context"

	"gorm.io/gorm"

	"reviewdesk/internal/models"
)

type IForm interface {
	Get(ctx context.Context, id string) (*models.Form, error)
	Create(ctx context.Context, form *models.Form) error
	SetActive(ctx context.Context, id string, active bool) error
	Exists(ctx context.Context, id string) (bool, error)
}

type GormForm struct {
	db *gorm.DB
}

func NewFormRepository(db *gorm.DB) IForm {
	return &GormForm{db: db}
}

// Get retrieves a form by ID
func (r *GormForm) Get(ctx context.Context, id string) (*models.Form, error) {
	var form models.Form
	if err := r.db.WithContext(ctx).First(&form, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &form, nil
}

func (r *GormForm) Create(ctx context.Context, form *models.Form) error {
	return r.db.WithContext(ctx).Create(form).Error
}

// SetActive flips the form's active flag without touching other fields.
func (r *GormForm) SetActive(ctx context.Context, id string, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Form{}).
		Where("id = ?", id).
		Update("active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Exists checks if a form exists in the database
func (r *GormForm) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Form{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
