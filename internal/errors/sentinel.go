package errors

import "errors"

// Sentinel errors for known conditions.
var (
	// ErrValidation indicates a configuration or catalog validation failure.
	ErrValidation = errors.New("validation error")

	// ErrPermission indicates insufficient filesystem permissions.
	ErrPermission = errors.New("permission denied")

	// ErrNotFound indicates a file or directory was not found.
	ErrNotFound = errors.New("not found")

	// ErrShort indicates a group produced fewer editions than requested
	// because its retry budget ran out.
	ErrShort = errors.New("edition group short")
)
