// Package validate checks column names before they become frontmatter keys.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultReserved are the Dataview field names a column should not shadow.
var DefaultReserved = []string{"file", "tags", "aliases"}

var identifier = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// Result collects column problems. Warnings never block processing; any
// error makes IsValid false and the caller decides whether to continue.
type Result struct {
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
	IsValid  bool     `json:"is_valid"`
}

// Columns validates column names against the reserved set (compared
// lower-cased) and the identifier pattern. Empty names are errors.
func Columns(columns []string, reserved []string) Result {
	if reserved == nil {
		reserved = DefaultReserved
	}
	reservedSet := make(map[string]bool, len(reserved))
	for _, r := range reserved {
		reservedSet[strings.ToLower(strings.TrimSpace(r))] = true
	}

	res := Result{Warnings: []string{}, Errors: []string{}}
	for _, col := range columns {
		if reservedSet[strings.ToLower(col)] {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%q is a reserved Dataview field name", col))
		}
		if !identifier.MatchString(col) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%q contains characters that may cause issues", col))
		}
		if strings.TrimSpace(col) == "" {
			res.Errors = append(res.Errors, "Found empty column name")
		}
	}
	res.IsValid = len(res.Errors) == 0
	return res
}
