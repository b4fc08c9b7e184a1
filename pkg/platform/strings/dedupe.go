// Package strings provides string slice utilities for event payload fields.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice, trimming
// whitespace from each element. Order is preserved. Region lists from the
// event source repeat entries when a session touched one region many times.
//
// Example:
//
//	DedupeAndTrim([]string{"  us-east-1 ", "eu-west-1", "us-east-1", ""})
//	// Returns: []string{"us-east-1", "eu-west-1"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}
