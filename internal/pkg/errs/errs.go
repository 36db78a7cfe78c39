package errs

import "errors"

var (
	// ErrNotFound is the sentinel for missing resources (unknown job, unknown user).
	ErrNotFound = errors.New("not found")
	// ErrConflict is the sentinel for lost conditional updates (job already
	// accepted, payment already applied, permission mismatch).
	ErrConflict = errors.New("conflict")
	// ErrInvalidArgument is the sentinel for input that fails validation.
	ErrInvalidArgument = errors.New("invalid argument")
)
