// Package store persists catalog documents.
package store

import (
	"campaign/internal/access"
	"campaign/pkg/platform/sentinel"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = sentinel.ErrNotFound

// ErrConflict is returned on a duplicate slug or a lost version race.
var ErrConflict = sentinel.ErrConflict

// readableTiers lists the tiers at or below max.
func readableTiers(max access.Tier) []string {
	var out []string
	for _, t := range access.Tiers() {
		if t.Rank() <= max.Rank() {
			out = append(out, string(t))
		}
	}
	return out
}
