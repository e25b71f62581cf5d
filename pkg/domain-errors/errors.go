// Package domainerrors provides coded domain errors shared across services.
// Conventionally imported as dErrors.
//
// Stores and infrastructure return sentinel errors (pkg/platform/sentinel);
// services translate those into coded domain errors so the HTTP boundary can
// map them to status codes without inspecting internals.
package domainerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies a domain error for transport mapping.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// FieldViolation pins a validation or conflict message to the input field
// that caused it, so callers can re-prompt for that specific field.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a coded domain error, optionally carrying field violations and a
// wrapped cause.
type Error struct {
	Code       Code
	Message    string
	Violations []FieldViolation
	err        error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// Is matches errors by code and message so tests can assert with errors.Is
// against a freshly constructed error.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code && e.Message == other.Message
}

// New constructs a coded domain error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// NewField constructs a coded error scoped to a single input field.
func NewField(code Code, field, message string) error {
	return &Error{
		Code:       code,
		Message:    message,
		Violations: []FieldViolation{{Field: field, Message: message}},
	}
}

// NewViolations aggregates several field violations into one validation
// error. Returns nil when the list is empty.
func NewViolations(code Code, violations []FieldViolation) error {
	if len(violations) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		msgs = append(msgs, v.Message)
	}
	return &Error{
		Code:       code,
		Message:    strings.Join(msgs, " "),
		Violations: violations,
	}
}

// Wrap annotates err with a code and message while preserving the cause.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetCode extracts the code from err, defaulting to CodeInternal for
// uncoded errors.
func GetCode(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// Fields extracts the field violations from err, if any.
func Fields(err error) []FieldViolation {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Violations
	}
	return nil
}
