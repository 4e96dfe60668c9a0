package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Data errors: the inputs cannot support inference. Fatal before sampling.
	ErrDataInvalid        = errors.New("invalid input data")
	ErrEmptyGrid          = fmt.Errorf("%w: empty time grid", ErrDataInvalid)
	ErrNonMonotonicGrid   = fmt.Errorf("%w: time grid not strictly increasing", ErrDataInvalid)
	ErrOrphanReference    = fmt.Errorf("%w: sparse reference with no overlapping grid window", ErrDataInvalid)
	ErrDegenerateACFRef   = fmt.Errorf("%w: autocorrelation reference contains only missing values", ErrDataInvalid)
	ErrInsufficientSeries = fmt.Errorf("%w: series too short for requested window", ErrDataInvalid)

	// Config errors: validated eagerly, before any data is touched.
	ErrConfigInvalid  = errors.New("invalid configuration")
	ErrBoundsInverted = fmt.Errorf("%w: lower bound exceeds upper bound", ErrConfigInvalid)

	// Numeric errors: a likelihood term evaluated to NaN/Inf. Fatal for the run,
	// never coerced to -Inf (that would bias the posterior undetectably).
	ErrNumeric = errors.New("numeric failure in likelihood evaluation")

	// Checkpoint errors
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)

// Error constructors with context
func NewDataError(reason string) error {
	return fmt.Errorf("%w: %s", ErrDataInvalid, reason)
}

func NewConfigError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrConfigInvalid, field, reason)
}

// NewNumericError identifies which likelihood term failed. The sampler adds
// chain and iteration context when it surfaces the failure.
func NewNumericError(term string) error {
	return fmt.Errorf("%w: term %s", ErrNumeric, term)
}

// Error checking helpers
func IsDataError(err error) bool {
	return errors.Is(err, ErrDataInvalid)
}

func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfigInvalid)
}

func IsNumericError(err error) bool {
	return errors.Is(err, ErrNumeric)
}
