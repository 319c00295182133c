package sort

import (
	"errors"
	"fmt"
	"strings"
)

// SortMethod names a column and direction for list endpoints.
type SortMethod struct {
	Name string `json:"name" form:"name"`
	Desc bool   `json:"desc" form:"desc"`
}

func Contains[T comparable](s []T, e T) bool {
	for _, v := range s {
		if v == e {
			return true
		}
	}
	return false
}

// OrderClause builds a gorm ORDER BY clause from user-supplied sort methods,
// rejecting any column not in the whitelist.
func OrderClause(columns []string, sorts []SortMethod) (string, error) {
	values := make([]string, 0, len(sorts))
	for _, data := range sorts {
		if !Contains(columns, data.Name) {
			return "", errors.New("column not found")
		}
		dir := "ASC"
		if data.Desc {
			dir = "DESC"
		}
		values = append(values, fmt.Sprintf("`%s` %s", data.Name, dir))
	}
	return strings.Join(values, ", "), nil
}
