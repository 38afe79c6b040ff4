package models

import (
	"errors"
	"fmt"
)

// Journal related errors
var (
	ErrDuplicateEntry = errors.New("journal entry already exists")
	ErrJournalClosed  = errors.New("journal is closed")
	ErrUnknownDriver  = errors.New("unknown journal driver")
)

// DriverError reports a journal driver name that has no backend.
type DriverError struct {
	Driver string
}

func (de DriverError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnknownDriver, de.Driver)
}

func (de DriverError) Unwrap() error {
	return ErrUnknownDriver
}
