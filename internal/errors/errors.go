package errors

import "errors"

// Auth errors. Both force a re-login.
var (
	ErrBadToken     = errors.New("invalid or expired token")
	ErrAccessDenied = errors.New("access denied for this account")
)

// Store errors.
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("version conflict")
	ErrMissingVersion = errors.New("version token required")
)

// Input errors, raised before any network call.
var ErrValidation = errors.New("validation failed")
