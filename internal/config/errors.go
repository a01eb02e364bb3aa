package config

import (
	"errors"
	"fmt"
)

var (
	// ErrValidationFailed is matched by every *ValidationError.
	ErrValidationFailed = errors.New("config: validation failed")

	// ErrFileNotFound is returned when an explicit config path does not exist.
	ErrFileNotFound = errors.New("config: file not found")
)

// ParseError reports a config file that yaml.v3 rejected.
type ParseError struct {
	File string
	Line int // 0 when the decoder gave no position
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("config: %s:%d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("config: %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Code classifies a validation failure.
type Code string

const (
	CodeOutOfRange  Code = "out_of_range"
	CodeInvalidEnum Code = "invalid_enum"
	CodePattern     Code = "pattern_mismatch"
	CodeRequired    Code = "required_missing"
)

// ValidationError names the setting that failed Validate, by its YAML key.
type ValidationError struct {
	Field  string
	Value  any
	Code   Code
	Reason string
}

func invalid(field string, value any, code Code, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Code: code, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s %v: %s", e.Field, e.Value, e.Reason)
}

// Is matches ErrValidationFailed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}
