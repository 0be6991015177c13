package model

import (
	"errors"
	"fmt"
)

// ErrValidation is the sentinel matched by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports caller-supplied data that cannot be accepted.
// It is the only error kind returned by state mutations.
type ValidationError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("invalid %s.%s: %s", e.Entity, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(entity, field, reason string) error {
	return &ValidationError{Entity: entity, Field: field, Reason: reason}
}

// IsValidation reports whether err (or any error in its chain) is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
