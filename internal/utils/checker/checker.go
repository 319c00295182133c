package checker

import (
	"fmt"

	"reviewdesk/internal/models"
)

func CheckRole(targetRole models.UserRole, roleIds []string) error {
	if len(roleIds) != 1 {
		return fmt.Errorf("invalid role id")
	}

	if roleIds[0] != string(targetRole) {
		return fmt.Errorf("permission denied")
	}

	return nil
}

// CheckApplicant verifies that a resolved profile actually belongs to an
// applicant identity. A reviewer or super-reviewer profile showing up where
// an applicant is expected indicates corrupted assignment data.
func CheckApplicant(profile *models.Profile) error {
	if profile == nil {
		return fmt.Errorf("profile not found")
	}
	if profile.Role != models.UserRoleApplicant {
		return fmt.Errorf("profile %s has role %q, expected %q", profile.ID, profile.Role, models.UserRoleApplicant)
	}
	return nil
}
