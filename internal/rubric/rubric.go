package rubric

import (
	"context"
	"fmt"

	"reviewdesk/internal/models"
	"reviewdesk/internal/utils/sort"
)

// Store lists a form's rubrics in insertion order.
type Store interface {
	ListByForm(ctx context.Context, formID string) ([]models.RoleReviewRubric, error)
}

// Resolver selects the rubrics applicable to a form and role.
type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns every rubric on the form whose role set is empty or
// contains the given role, preserving the store's insertion order. An empty
// result means no scoring is possible for that role; it is not an error.
func (r *Resolver) Resolve(ctx context.Context, formID string, role models.ApplicantRole) ([]models.RoleReviewRubric, error) {
	all, err := r.store.ListByForm(ctx, formID)
	if err != nil {
		return nil, err
	}

	matched := make([]models.RoleReviewRubric, 0, len(all))
	for _, rb := range all {
		if rb.AppliesTo(role) {
			matched = append(matched, rb)
		}
	}
	return matched, nil
}

// Validate checks a rubric against its owning form: category keys must come
// from the form's registry, weights must stay within bounds, and a non-empty
// role set must be a subset of the form's enabled roles.
func Validate(rb models.RoleReviewRubric, form *models.Form) error {
	if rb.FormID != form.ID {
		return fmt.Errorf("rubric %q belongs to form %q, not %q", rb.Name, rb.FormID, form.ID)
	}
	if len(rb.Categories) == 0 {
		return fmt.Errorf("rubric %q has no categories", rb.Name)
	}
	for category, weight := range rb.Categories {
		if !sort.Contains(form.Categories, category) {
			return fmt.Errorf("rubric %q: category %q is not registered on form %q", rb.Name, category, form.ID)
		}
		if weight < 0 || weight > models.MaxCategoryWeight {
			return fmt.Errorf("rubric %q: category %q weight %v outside [0, %v]", rb.Name, category, weight, models.MaxCategoryWeight)
		}
	}
	for _, role := range rb.Roles {
		if !sort.Contains(form.EnabledRoles, role) {
			return fmt.Errorf("rubric %q: role %q is not enabled on form %q", rb.Name, role, form.ID)
		}
	}
	return nil
}
