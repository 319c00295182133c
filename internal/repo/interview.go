package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"reviewdesk/internal/models"
)

type IInterview interface {
	Create(ctx context.Context, interview *models.ApplicationInterview) error
	GetByAssignment(ctx context.Context, assignmentID string) (*models.ApplicationInterview, error)
	ListByResponse(ctx context.Context, responseID string) ([]models.ApplicationInterview, error)
	Submit(ctx context.Context, id string, reviewerID string) (*models.ApplicationInterview, error)
}

type GormInterview struct {
	db *gorm.DB
}

func NewInterviewRepository(db *gorm.DB) IInterview {
	return &GormInterview{db: db}
}

func (r *GormInterview) Create(ctx context.Context, interview *models.ApplicationInterview) error {
	return r.db.WithContext(ctx).Create(interview).Error
}

// GetByAssignment retrieves the interview record for one assignment;
// (nil, nil) when none exists yet.
func (r *GormInterview) GetByAssignment(ctx context.Context, assignmentID string) (*models.ApplicationInterview, error) {
	var interview models.ApplicationInterview
	err := r.db.WithContext(ctx).First(&interview, "assignment_id = ?", assignmentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &interview, nil
}

func (r *GormInterview) ListByResponse(ctx context.Context, responseID string) ([]models.ApplicationInterview, error) {
	var interviews []models.ApplicationInterview
	err := r.db.WithContext(ctx).
		Where("response_id = ?", responseID).
		Find(&interviews).Error
	if err != nil {
		return nil, err
	}
	return interviews, nil
}

func (r *GormInterview) Submit(ctx context.Context, id string, reviewerID string) (*models.ApplicationInterview, error) {
	var interview models.ApplicationInterview
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&interview, "id = ? AND reviewer_id = ?", id, reviewerID).Error; err != nil {
			return err
		}
		if interview.Submitted {
			return errors.New("interview already submitted")
		}
		interview.Submitted = true
		return tx.Model(&interview).Update("submitted", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &interview, nil
}
