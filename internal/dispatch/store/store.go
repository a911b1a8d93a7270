// Package store persists dispatch jobs, their recipient lists and
// per-recipient delivery outcomes.
package store

import "campaign/pkg/platform/sentinel"

var (
	ErrNotFound = sentinel.ErrNotFound
	// ErrConflict means another writer advanced the job first, or a job
	// with the same id already exists.
	ErrConflict = sentinel.ErrConflict
	// ErrInvalidState means the job is already terminal.
	ErrInvalidState = sentinel.ErrInvalidState
)
