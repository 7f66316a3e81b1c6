// Package apperr holds the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)

// FieldErrors maps a form field name to its error messages.
type FieldErrors map[string][]string

// Add appends msg to the errors of field.
func (fe FieldErrors) Add(field string, msg ...string) {
	if len(msg) == 0 {
		return
	}
	fe[field] = append(fe[field], msg...)
}

// Get returns the messages for field, or nil.
func (fe FieldErrors) Get(field string) []string {
	return fe[field]
}

// Has reports whether field has at least one error.
func (fe FieldErrors) Has(field string) bool {
	return len(fe[field]) > 0
}

// Any reports whether at least one field has an error.
func (fe FieldErrors) Any() bool {
	for _, msgs := range fe {
		if len(msgs) > 0 {
			return true
		}
	}
	return false
}

// ValidationError is returned when submitted form data is rejected.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(e.Fields[name], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validation wraps fe into a *ValidationError, or returns nil when fe is empty.
func Validation(fe FieldErrors) error {
	if !fe.Any() {
		return nil
	}
	return &ValidationError{Fields: fe}
}

// AsValidation extracts the field errors carried by err, if any.
func AsValidation(err error) (FieldErrors, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields, true
	}
	return nil, false
}
