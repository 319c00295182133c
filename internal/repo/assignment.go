package repo

import (
	"context"

	"gorm.io/gorm"

	"reviewdesk/internal/models"
	"reviewdesk/internal/utils/sort"
)

// assignmentColumns whitelists the sortable columns for assignment listings.
var assignmentColumns = []string{"id", "form_id", "applicant_id", "for_role", "created_at"}

type IAssignment interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	ListByForm(ctx context.Context, formID string, sorts []sort.SortMethod) ([]models.Assignment, error)
	ListByReviewer(ctx context.Context, formID string, reviewerID string) ([]models.Assignment, error)
	ListByResponse(ctx context.Context, responseID string) ([]models.Assignment, error)
}

type GormAssignment struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) IAssignment {
	return &GormAssignment{db: db}
}

func (r *GormAssignment) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

// ListByForm retrieves a form's assignments with optional whitelisted ordering
func (r *GormAssignment) ListByForm(ctx context.Context, formID string, sorts []sort.SortMethod) ([]models.Assignment, error) {
	query := r.db.WithContext(ctx).Where("form_id = ?", formID)

	if len(sorts) > 0 {
		clause, err := sort.OrderClause(assignmentColumns, sorts)
		if err != nil {
			return nil, err
		}
		query = query.Order(clause)
	} else {
		query = query.Order("created_at ASC")
	}

	var assignments []models.Assignment
	if err := query.Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *GormAssignment) ListByReviewer(ctx context.Context, formID string, reviewerID string) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).
		Where("form_id = ? AND reviewer_id = ?", formID, reviewerID).
		Order("created_at ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *GormAssignment) ListByResponse(ctx context.Context, responseID string) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).
		Where("response_id = ?", responseID).
		Order("created_at ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}
