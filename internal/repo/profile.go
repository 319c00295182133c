package repo

import (
	"context"

	"gorm.io/gorm"

	"reviewdesk/internal/models"
)

type IProfile interface {
	Get(ctx context.Context, id string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
}

type GormProfile struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) IProfile {
	return &GormProfile{db: db}
}

func (r *GormProfile) Get(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *GormProfile) Create(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}
