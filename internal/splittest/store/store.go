// Package store persists split tests. Outcome transitions are compare-and-set
// so that concurrent deciders agree on a single winner.
package store

import "campaign/pkg/platform/sentinel"

var (
	ErrNotFound = sentinel.ErrNotFound
	// ErrConflict means the test was not in the expected outcome.
	ErrConflict = sentinel.ErrConflict
)
