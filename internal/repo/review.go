package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"reviewdesk/internal/models"
)

type IReview interface {
	Create(ctx context.Context, review *models.ApplicationReview) error
	Get(ctx context.Context, id string) (*models.ApplicationReview, error)
	GetByAssignment(ctx context.Context, assignmentID string) (*models.ApplicationReview, error)
	ListByResponse(ctx context.Context, responseID string) ([]models.ApplicationReview, error)
	SaveRatings(ctx context.Context, id string, reviewerID string, ratings map[string]float64) error
	Submit(ctx context.Context, id string, reviewerID string) (*models.ApplicationReview, error)
}

type GormReview struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) IReview {
	return &GormReview{db: db}
}

// Create creates a new review record when a reviewer is assigned
func (r *GormReview) Create(ctx context.Context, review *models.ApplicationReview) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *GormReview) Get(ctx context.Context, id string) (*models.ApplicationReview, error) {
	var review models.ApplicationReview
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// GetByAssignment retrieves the review for one assignment. A missing record
// is returned as (nil, nil); the caller treats it as "no score yet".
func (r *GormReview) GetByAssignment(ctx context.Context, assignmentID string) (*models.ApplicationReview, error) {
	var review models.ApplicationReview
	err := r.db.WithContext(ctx).First(&review, "assignment_id = ?", assignmentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *GormReview) ListByResponse(ctx context.Context, responseID string) ([]models.ApplicationReview, error) {
	var reviews []models.ApplicationReview
	err := r.db.WithContext(ctx).
		Where("response_id = ?", responseID).
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

// SaveRatings writes a reviewer's incremental ratings. Rejected once the
// review has been submitted; submitted reviews are an audit trail.
func (r *GormReview) SaveRatings(ctx context.Context, id string, reviewerID string, ratings map[string]float64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var review models.ApplicationReview
		if err := tx.First(&review, "id = ? AND reviewer_id = ?", id, reviewerID).Error; err != nil {
			return err
		}
		if review.Submitted {
			return errors.New("review already submitted")
		}
		return tx.Model(&review).Update("ratings", ratings).Error
	})
}

// Submit marks the review as submitted, after which it is read-only.
func (r *GormReview) Submit(ctx context.Context, id string, reviewerID string) (*models.ApplicationReview, error) {
	var review models.ApplicationReview
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&review, "id = ? AND reviewer_id = ?", id, reviewerID).Error; err != nil {
			return err
		}
		if review.Submitted {
			return errors.New("review already submitted")
		}
		review.Submitted = true
		return tx.Model(&review).Update("submitted", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}
