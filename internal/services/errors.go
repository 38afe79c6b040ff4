package services

import (
	"errors"
	"fmt"
)

// ValidationError is returned when an analysis request is unusable.
// The HTTP layer turns it into a 400 (or a 500 on the intervene alias).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation failures. Compare with errors.Is, or match the type with errors.As.
var (
	ErrRequestNotObject = &ValidationError{Message: "Input must be an object"}
	ErrInputMissing     = &ValidationError{Message: `Input must contain a valid "input" string`}
	ErrInputEmpty       = &ValidationError{Message: "Input cannot be empty"}
)

// MalformedRequestError means the request body was not parseable JSON.
type MalformedRequestError struct {
	Err error
}

func (e *MalformedRequestError) Error() string {
	return fmt.Sprintf("Invalid JSON in request body: %v", e.Err)
}

func (e *MalformedRequestError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsMalformed reports whether err is (or wraps) a MalformedRequestError.
func IsMalformed(err error) bool {
	var me *MalformedRequestError
	return errors.As(err, &me)
}
