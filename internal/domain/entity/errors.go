package entity

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRegistration = errors.New("invalid registration mark")
	ErrNegativeMileage     = errors.New("mileage must not be negative")
	ErrVersionConflict     = errors.New("record was modified concurrently")
	ErrNotFound            = errors.New("record not found")
)

// ValidationError rejects a request before any provider call is made
type ValidationError struct {
	Field  string
	Value  string
	Reason error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s %q: %v", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}
