package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the store adapters, services and HTTP layer.
// Specific errors wrap one of these with %w.
var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrStore               = errors.New("store error")
)

// ErrNoFieldsProvided is returned by a partial update with nothing to change.
var ErrNoFieldsProvided = fmt.Errorf("%w: no fields provided to update", ErrValidation)

// Validationf builds an ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Classified reports whether err already belongs to the taxonomy.
func Classified(err error) bool {
	for _, target := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrUnauthorized, ErrUpstreamUnavailable, ErrStore} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
