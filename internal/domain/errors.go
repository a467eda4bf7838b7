package domain

import (
	"fmt"
	"strings"
)

// ConfigurationError reports an invalid weight table, classification spec, or
// layer set. It is always raised before any raster work starts and is fatal
// to the whole run.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Reason
}

func configErrorf(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// MissingInputError enumerates every expected input that is absent, rather
// than failing on the first one.
type MissingInputError struct {
	Paths []string
}

func (e *MissingInputError) Error() string {
	return "missing inputs: " + strings.Join(e.Paths, ", ")
}

// CollaboratorError wraps a raster-engine failure. It is fatal to the
// time-slice whose stage raised it; sibling slices are unaffected.
type CollaboratorError struct {
	Stage string
	Err   error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("raster engine: stage %s: %v", e.Stage, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
