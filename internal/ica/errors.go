package ica

import (
	"errors"
	"fmt"
)

// Error kinds returned by the engine. Every failure is a deterministic
// function of the input values.
var (
	// ErrInvalidDomainValue is returned when conductivity is zero or negative.
	ErrInvalidDomainValue = errors.New("invalid domain value")
	// ErrInvalidVariableCount is returned when the number of present
	// sub-indices is neither 5 nor 6.
	ErrInvalidVariableCount = errors.New("invalid variable count")
	// ErrInvalidCompositeRange is returned when the composite coefficient
	// falls outside [0, 1].
	ErrInvalidCompositeRange = errors.New("composite coefficient out of range")
	// ErrMissingRequiredInput is returned when od, sst, dqo, ce or ph is absent.
	ErrMissingRequiredInput = errors.New("missing required input")
)

// Error describes which field caused a computation to fail.
// It unwraps to one of the Err* kinds above.
type Error struct {
	Kind  error
	Field string
	Value string
}

func (e *Error) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("ica: %v: %s", e.Kind, e.Field)
	}
	return fmt.Sprintf("ica: %v: %s=%s", e.Kind, e.Field, e.Value)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// IsTransient returns false; retrying the same input gives the same error.
func (e *Error) IsTransient() bool {
	return false
}

// KindName returns a stable label for err, suitable for metrics and API
// responses.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrInvalidDomainValue):
		return "invalid_domain_value"
	case errors.Is(err, ErrInvalidVariableCount):
		return "invalid_variable_count"
	case errors.Is(err, ErrInvalidCompositeRange):
		return "invalid_composite_range"
	case errors.Is(err, ErrMissingRequiredInput):
		return "missing_required_input"
	default:
		return "arithmetic"
	}
}

// IsComputeError reports whether err came from the engine's input checks.
func IsComputeError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
