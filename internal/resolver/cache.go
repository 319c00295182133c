package resolver

import (
	"fmt"
	"sort"
	"strings"

	"reviewdesk/internal/models"
)

// Scope namespaces cache keys per query kind so invalidation can target
// exactly the entries a mutation affects.
type Scope string

const (
	ScopeScore         Scope = "score"
	ScopeInterviewData Scope = "interview-data"
	ScopeStatus        Scope = "status"
)

// Prefix is the key prefix shared by every entry in the scope.
func (s Scope) Prefix() string {
	return string(s) + ":"
}

// RowsKey builds the cache key for one resolution. Assignment ids are sorted
// before joining so two calls over the same set hit the same entry no matter
// how the caller ordered its input.
func RowsKey(formID string, assignments []models.Assignment) string {
	ids := make([]string, len(assignments))
	for i, a := range assignments {
		ids[i] = a.ID
	}
	sort.Strings(ids)
	return fmt.Sprintf("%s%s:%s", ScopeScore.Prefix(), formID, strings.Join(ids, ","))
}

// StatusKey builds the cache key for one response's status lookup.
func StatusKey(responseID string, role models.ApplicantRole) string {
	return fmt.Sprintf("%s%s:%s", ScopeStatus.Prefix(), responseID, role)
}
