package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors shared by the engines.
var (
	// ErrInvalidConfig indicates a parameter outside its valid range.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")

	// ErrInvalidState indicates a particle left the sphere or produced NaN/Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN, Inf or off-sphere particle)")
)

// ConfigError names the offending field of a rejected configuration.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("dynamo: invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// Invalid is shorthand for building a *ConfigError.
func Invalid(field string, value any, reason string) error {
	return &ConfigError{Field: field, Value: value, Reason: reason}
}

// StepError wraps an error with the step at which it happened.
type StepError struct {
	Step    uint64
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
