package features

import (
	"context"

	"reviewdesk/internal/models"
	"reviewdesk/internal/repo"
)

// profileSource adapts the profile repository to the resolver's fetch shape.
type profileSource struct {
	profiles repo.IProfile
}

func (s *profileSource) Profile(ctx context.Context, id string) (*models.Profile, error) {
	return s.profiles.Get(ctx, id)
}

// recordSource picks the review or interview record behind an assignment
// depending on its stage.
type recordSource struct {
	reviews    repo.IReview
	interviews repo.IInterview
}

func (s *recordSource) Record(ctx context.Context, assignment models.Assignment) (models.ScoredRecord, error) {
	switch assignment.Stage {
	case models.StageInterview:
		interview, err := s.interviews.GetByAssignment(ctx, assignment.ID)
		if err != nil {
			return nil, err
		}
		if interview == nil {
			return nil, nil
		}
		return interview, nil
	default:
		review, err := s.reviews.GetByAssignment(ctx, assignment.ID)
		if err != nil {
			return nil, err
		}
		if review == nil {
			return nil, nil
		}
		return review, nil
	}
}
