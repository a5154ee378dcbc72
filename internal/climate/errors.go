package climate

import (
	"errors"
	"fmt"
)

// Configuration errors.
var (
	// ErrUnknownModel indicates a model name absent from the parameter table.
	ErrUnknownModel = errors.New("climate: unknown model")

	// ErrMissingParameter indicates a parameter record lacks a required key.
	ErrMissingParameter = errors.New("climate: missing parameter")

	// ErrInvalidParameter indicates a parameter outside its valid range.
	ErrInvalidParameter = errors.New("climate: invalid parameter")
)

// Domain errors.
var (
	// ErrNonPositiveMass indicates an atmospheric carbon mass at or below
	// zero, for which the forcing logarithm is undefined.
	ErrNonPositiveMass = errors.New("climate: non-positive atmospheric carbon mass")

	// ErrEmptyEmissions indicates a run was requested with no emissions.
	ErrEmptyEmissions = errors.New("climate: empty emissions series")

	// ErrInvalidEmission indicates a NaN or infinite emission value.
	ErrInvalidEmission = errors.New("climate: invalid emission value (NaN or Inf)")
)

// ConfigError wraps a configuration failure with the model and key involved.
type ConfigError struct {
	Model string
	Key   string
	Err   error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Key != "" && e.Model != "":
		return fmt.Sprintf("%v: %s (model %q)", e.Err, e.Key, e.Model)
	case e.Key != "":
		return fmt.Sprintf("%v: %s", e.Err, e.Key)
	case e.Model != "":
		return fmt.Sprintf("%v: %q", e.Err, e.Model)
	}
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// DomainError wraps a numerical domain failure with the step it occurred
// at. Step is -1 when the failure precedes the first step.
type DomainError struct {
	Step  int
	Value float64
	Err   error
}

func (e *DomainError) Error() string {
	if e.Step < 0 {
		return fmt.Sprintf("%v (value %g)", e.Err, e.Value)
	}
	return fmt.Sprintf("step %d: %v (value %g)", e.Step, e.Err, e.Value)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// IsConfig reports whether err is a configuration error.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsDomain reports whether err is a domain error.
func IsDomain(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}
