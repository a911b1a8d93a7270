// Package strings provides slice normalization helpers.
package strings

import (
	"strings"
)

// Dedupe removes repeated values, keeping the first occurrence of each.
// Order is preserved.
func Dedupe[T comparable](values []T) []T {
	if len(values) == 0 {
		return values
	}
	seen := make(map[T]struct{}, len(values))
	result := make([]T, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

// NormalizeLabels trims, lowercases and de-duplicates labels such as
// recipient segments, dropping empties. Order is preserved.
//
//	NormalizeLabels([]string{"  News ", "events", "news", ""})
//	// Returns: []string{"news", "events"}
func NormalizeLabels(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if t := strings.ToLower(strings.TrimSpace(v)); t != "" {
			out = append(out, t)
		}
	}
	return Dedupe(out)
}
