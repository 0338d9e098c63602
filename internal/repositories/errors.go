package repositories

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist, or exists but
	// is not owned by the caller. The two cases are deliberately reported
	// identically so ownership checks do not leak existence.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
)
