// Package store persists recipients.
package store

import "campaign/pkg/platform/sentinel"

var (
	ErrNotFound = sentinel.ErrNotFound
	// ErrConflict is returned when the address is already subscribed.
	ErrConflict = sentinel.ErrConflict
)
