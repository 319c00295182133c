package rubric

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewdesk/internal/models"
)

type fakeStore struct {
	rubrics []models.RoleReviewRubric
	err     error
}

func (s *fakeStore) ListByForm(ctx context.Context, formID string) ([]models.RoleReviewRubric, error) {
	if s.err != nil {
		return nil, s.err
	}
	var matched []models.RoleReviewRubric
	for _, rb := range s.rubrics {
		if rb.FormID == formID {
			matched = append(matched, rb)
		}
	}
	return matched, nil
}

func TestResolveFiltersByRole(t *testing.T) {
	store := &fakeStore{rubrics: []models.RoleReviewRubric{
		{ID: "r1", FormID: "form-1", Roles: []models.ApplicantRole{"developer"}},
		{ID: "r2", FormID: "form-1", Roles: []models.ApplicantRole{"designer"}},
		{ID: "r3", FormID: "form-1"},
	}}

	resolved, err := NewResolver(store).Resolve(context.Background(), "form-1", "developer")
	require.NoError(t, err)
	require.Len(t, resolved, 2)

	// Role-scoped rubrics never leak across roles; the open rubric applies
	// to everyone.
	assert.Equal(t, "r1", resolved[0].ID)
	assert.Equal(t, "r3", resolved[1].ID)
	for _, rb := range resolved {
		assert.True(t, rb.AppliesTo("developer"))
	}
}

func TestResolvePreservesInsertionOrder(t *testing.T) {
	store := &fakeStore{rubrics: []models.RoleReviewRubric{
		{ID: "r3", FormID: "form-1"},
		{ID: "r1", FormID: "form-1"},
		{ID: "r2", FormID: "form-1"},
	}}

	resolved, err := NewResolver(store).Resolve(context.Background(), "form-1", "developer")
	require.NoError(t, err)
	require.Len(t, resolved, 3)
	assert.Equal(t, "r3", resolved[0].ID)
	assert.Equal(t, "r1", resolved[1].ID)
	assert.Equal(t, "r2", resolved[2].ID)
}

func TestResolveNoMatchIsEmptyNotError(t *testing.T) {
	store := &fakeStore{rubrics: []models.RoleReviewRubric{
		{ID: "r1", FormID: "form-1", Roles: []models.ApplicantRole{"designer"}},
	}}

	resolved, err := NewResolver(store).Resolve(context.Background(), "form-1", "developer")
	require.NoError(t, err)
	assert.Empty(t, resolved)
}

func TestValidate(t *testing.T) {
	form := &models.Form{
		ID:           "form-1",
		EnabledRoles: []models.ApplicantRole{"developer", "designer"},
		Categories:   []string{"teamwork", "technical"},
	}

	valid := models.RoleReviewRubric{
		Name:       "dev",
		FormID:     "form-1",
		Roles:      []models.ApplicantRole{"developer"},
		Categories: map[string]float64{"teamwork": 4, "technical": 3},
	}
	assert.NoError(t, Validate(valid, form))

	unknownCategory := valid
	unknownCategory.Categories = map[string]float64{"vibes": 4}
	assert.Error(t, Validate(unknownCategory, form))

	overweight := valid
	overweight.Categories = map[string]float64{"teamwork": 5}
	assert.Error(t, Validate(overweight, form))

	badRole := valid
	badRole.Roles = []models.ApplicantRole{"astronaut"}
	assert.Error(t, Validate(badRole, form))

	wrongForm := valid
	wrongForm.FormID = "form-2"
	assert.Error(t, Validate(wrongForm, form))

	empty := valid
	empty.Categories = nil
	assert.Error(t, Validate(empty, form))
}
