package analytics

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGoal is returned when the caller supplies a negative goal amount.
	ErrInvalidGoal = errors.New("invalid goal descriptor")
	// ErrInvalidOptions is returned for unusable engine options, e.g. a
	// non-positive window size.
	ErrInvalidOptions = errors.New("invalid analytics options")
	// ErrInvariantViolation signals a defect: a builder produced output that
	// does not reconcile. It is never caused by dirty ledger data.
	ErrInvariantViolation = errors.New("analytics invariant violated")
)

// ConfigError describes a caller contract violation. The whole computation
// is rejected before any builder runs.
type ConfigError struct {
	Field  string
	Reason string
	kind   error
}

func newConfigError(kind error, field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason, kind: kind}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s %s", e.kind, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.kind
}

// IsConfigError reports whether err was caused by the caller rather than by
// the engine.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
