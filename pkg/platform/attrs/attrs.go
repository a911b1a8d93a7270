// Package attrs reads values back out of slog-style key/value slices.
package attrs

import "fmt"

// ExtractString returns the value for key in a [k1, v1, k2, v2, ...] slice.
// Strings are returned as is and fmt.Stringer values (typed IDs) are
// rendered. Anything else yields "".
func ExtractString(attrs []any, key string) string {
	for i := 0; i+1 < len(attrs); i += 2 {
		if k, ok := attrs[i].(string); !ok || k != key {
			continue
		}
		switch v := attrs[i+1].(type) {
		case string:
			return v
		case fmt.Stringer:
			return v.String()
		}
	}
	return ""
}

// First returns the first non-empty value among keys.
func First(attrs []any, keys ...string) string {
	for _, k := range keys {
		if v := ExtractString(attrs, k); v != "" {
			return v
		}
	}
	return ""
}
