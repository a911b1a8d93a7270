package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors:
//   - ErrNotFound: record does not exist
//   - ErrConflict: an optimistic check failed (cursor moved, outcome changed)
//   - ErrInvalidState: record is in the wrong state for the requested write
//   - ErrUnavailable: backing store or downstream temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
