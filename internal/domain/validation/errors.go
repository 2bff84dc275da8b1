// Package validation carries field-level rejections out of the domain
// services so the HTTP layer can report them per field.
package validation

import (
	"errors"
	"fmt"
)

// FieldError ties a domain sentinel error to the request field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Field wraps err for field. A nil err stays nil.
func Field(field string, err error) error {
	if err == nil {
		return nil
	}
	return &FieldError{Field: field, Err: err}
}

// Errors collects several field errors from one validation pass.
type Errors []*FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%s (and %d more)", e[0].Error(), len(e)-1)
}

// Unwrap exposes every field error to errors.Is and errors.As.
func (e Errors) Unwrap() []error {
	out := make([]error, len(e))
	for i, fe := range e {
		out[i] = fe
	}
	return out
}

// Add records err for field; nil errors are skipped.
func (e *Errors) Add(field string, err error) {
	if err != nil {
		*e = append(*e, &FieldError{Field: field, Err: err})
	}
}

// Err returns nil when nothing was recorded.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Fields flattens err into field -> message pairs. ok is false when err
// carries no field errors.
func Fields(err error) (issues []*FieldError, ok bool) {
	var many Errors
	if errors.As(err, &many) {
		return many, len(many) > 0
	}
	var one *FieldError
	if errors.As(err, &one) {
		return []*FieldError{one}, true
	}
	return nil, false
}
