package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"reviewdesk/internal/models"
)

type IStatus interface {
	CreateDecision(ctx context.Context, decision *models.DecisionStatus) error
	GetAppStatus(ctx context.Context, responseID string, role models.ApplicantRole) (*models.AppStatus, error)
	UpsertAppStatus(ctx context.Context, status *models.AppStatus) error
	SetReleased(ctx context.Context, responseID string, role models.ApplicantRole, released bool) error
}

type GormStatus struct {
	db *gorm.DB
}

func NewStatusRepository(db *gorm.DB) IStatus {
	return &GormStatus{db: db}
}

func (r *GormStatus) CreateDecision(ctx context.Context, decision *models.DecisionStatus) error {
	return r.db.WithContext(ctx).Create(decision).Error
}

func (r *GormStatus) GetAppStatus(ctx context.Context, responseID string, role models.ApplicantRole) (*models.AppStatus, error) {
	var status models.AppStatus
	err := r.db.WithContext(ctx).
		First(&status, "response_id = ? AND role = ?", responseID, role).Error
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// UpsertAppStatus creates the row for a response/role pair, or overwrites
// the mutable fields when it already exists.
func (r *GormStatus) UpsertAppStatus(ctx context.Context, status *models.AppStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.AppStatus
		err := tx.First(&existing, "response_id = ? AND role = ?", status.ResponseID, status.Role).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(status).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&existing).Updates(map[string]any{
			"status":   status.Status,
			"released": status.Released,
		}).Error
	})
}

func (r *GormStatus) SetReleased(ctx context.Context, responseID string, role models.ApplicantRole, released bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.AppStatus{}).
		Where("response_id = ? AND role = ?", responseID, role).
		Update("released", released)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
