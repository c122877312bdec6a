package core

import "errors"

// Control-surface and validation errors. The REST and MCP layers map
// these to status codes with errors.Is rather than string matching.
var (
	// ErrInvalidTransition is returned when a Pause/Resume call finds the
	// schedule in a status that does not permit the requested transition.
	ErrInvalidTransition = errors.New("invalid schedule status transition")

	// ErrValidation wraps a field-level validation failure on a Target or
	// Schedule create/update request.
	ErrValidation = errors.New("validation failed")

	// ErrTargetMissing marks a Run that could not execute because its
	// Target was deleted after the Schedule was admitted for dispatch.
	ErrTargetMissing = errors.New("target missing")
)
