package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input errors: rejected before any fitting begins
	ErrInvalidInput     = errors.New("invalid input")
	ErrEmptyTable       = fmt.Errorf("%w: empty observation table", ErrInvalidInput)
	ErrEmptySeries      = fmt.Errorf("%w: empty aggregated series", ErrInvalidInput)
	ErrInsufficientData = errors.New("insufficient data for fitting")

	// Invariant violations: a programming or configuration defect upstream,
	// never a recoverable data issue
	ErrDegenerateFit = errors.New("degenerate fit")

	// Classification errors
	ErrUnknownModel = errors.New("unknown model variant")

	// Persistence errors
	ErrNotFound = errors.New("resource not found")
)

// NewInvalidInputError builds an input rejection with context
func NewInvalidInputError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, reason)
}

// NewDegenerateFitError reports a violated fit invariant
func NewDegenerateFitError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDegenerateFit, fmt.Sprintf(format, args...))
}

// NewUnknownModelError reports a free-parameter count outside the nesting hierarchy
func NewUnknownModelError(nvarys int) error {
	return fmt.Errorf("%w: no nesting tier with %d free parameters", ErrUnknownModel, nvarys)
}

// Error checking helpers
func IsInvalidInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInsufficientData)
}

func IsDegenerateFitError(err error) bool {
	return errors.Is(err, ErrDegenerateFit)
}

func IsUnknownModelError(err error) bool {
	return errors.Is(err, ErrUnknownModel)
}
