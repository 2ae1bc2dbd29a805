// Package apperr holds the error types shared by the conversion pipeline.
// Configuration and validation problems are returned before any file is
// written; the CLI classifies them as user errors.
package apperr

import "fmt"

// Error types for specific pipeline failures
type (
	// ConfigError indicates an invalid conversion setup (structure, format, overlap)
	ConfigError struct{ Message string }
	// ValidationError indicates invalid input to a store or command
	ValidationError struct{ Message string }
	// NotFoundError indicates a file or template was not found
	NotFoundError struct{ Message string }
)

func (e ConfigError) Error() string     { return e.Message }
func (e ValidationError) Error() string { return e.Message }
func (e NotFoundError) Error() string   { return e.Message }

// IOError wraps a failed read or write against the vault.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e IOError) Unwrap() error { return e.Err }

// Configf builds a ConfigError from a format string.
func Configf(format string, args ...interface{}) error {
	return ConfigError{Message: fmt.Sprintf(format, args...)}
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...interface{}) error {
	return ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a NotFoundError from a format string.
func NotFoundf(format string, args ...interface{}) error {
	return NotFoundError{Message: fmt.Sprintf(format, args...)}
}
