package fsum

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions callers are expected to branch on.
var (
	// ErrTelemetry marks a transient failure of the throughput counter.
	// It never aborts hashing; repeated occurrences disable progress display.
	ErrTelemetry = errors.New("telemetry counter unavailable")

	// ErrUnsupportedAlgorithm is returned when a requested algorithm is not
	// in the supported set.
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")
)

// ConfigError is a fatal configuration problem detected before any hashing
// starts: a bad algorithm name, or mixing the comma-joined algorithm form
// with additional list elements.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}

func configErrorf(format string, args ...any) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err is fatal for the whole invocation.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
