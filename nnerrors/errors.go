// Package nnerrors defines the error taxonomy shared across the convnet
// runtime: config errors are recoverable at the parse boundary, shape
// errors are programming bugs surfaced through panic, and state errors
// are reported back through a construction/load return value.
package nnerrors

import "fmt"

// ConfigError reports a malformed network description: a missing field,
// an unknown layer or activation tag, more than one optimizer, a first
// layer that isn't "input", or fewer than two layers total.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewConfigError builds a ConfigError naming the offending field.
func NewConfigError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}

// ShapeError reports a dimension mismatch or an out-of-range index. These
// are programming bugs, not recoverable conditions: construct one and
// pass it to panic.
type ShapeError struct {
	Op   string
	Want []int
	Got  []int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: shape mismatch, want %v got %v", e.Op, e.Want, e.Got)
}

// NewShapeError builds a ShapeError for op, recording the expected and
// actual shapes.
func NewShapeError(op string, want, got []int) *ShapeError {
	return &ShapeError{Op: op, Want: want, Got: got}
}

// StateError reports an operation attempted against a session in the
// wrong lifecycle state: training started with no optimizer attached, or
// a snapshot loaded onto a session that is running or has already taken
// a training step.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string {
	return e.Reason
}

// NewStateError builds a StateError with the given reason.
func NewStateError(reason string) *StateError {
	return &StateError{Reason: reason}
}
