// Package store persists donor records. Implementations enforce curp/email
// uniqueness atomically at write time so two concurrent registrations cannot
// both pass validation and both land.
package store

import (
	"fmt"

	"donaria/pkg/platform/sentinel"
)

// Implementations assign IDs, stamp created_at/updated_at, and return a
// *ConflictError (wrapping sentinel.ErrAlreadyUsed) when a unique field
// collides. The consuming interface lives with the donor service.

// ConflictError reports which unique field collided so callers can surface a
// field-scoped message.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %v", e.Field, sentinel.ErrAlreadyUsed)
}

func (e *ConflictError) Unwrap() error { return sentinel.ErrAlreadyUsed }
