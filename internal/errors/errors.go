package errors

import (
	"fmt"
	"time"
)

// Error types for the reduction engine
type ErrorType string

const (
	// Reduction errors
	ErrorTypeReduce    ErrorType = "reduce"
	ErrorTypeSpeculate ErrorType = "speculate"
	ErrorTypeParse     ErrorType = "parse"

	// File errors
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypePermission   ErrorType = "permission"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"

	// Internal errors
	ErrorTypeInternal ErrorType = "internal"
)

// ReduceError represents a failure while reducing one source unit
type ReduceError struct {
	Type        ErrorType
	Path        string
	Reducer     string
	Operation   string
	Underlying  error
	Timestamp   time.Time
	Recoverable bool
}

// NewReduceError creates a new reduction error with context
func NewReduceError(op string, err error) *ReduceError {
	return &ReduceError{
		Type:       ErrorTypeReduce,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// NewSpeculateError creates an error for a failed speculative binding
func NewSpeculateError(op string, err error) *ReduceError {
	e := NewReduceError(op, err)
	e.Type = ErrorTypeSpeculate
	e.Recoverable = true
	return e
}

// WithPath adds the source path to the error
func (e *ReduceError) WithPath(path string) *ReduceError {
	e.Path = path
	return e
}

// WithReducer names the reducer that was running
func (e *ReduceError) WithReducer(name string) *ReduceError {
	e.Reducer = name
	return e
}

// WithRecoverable marks the error as recoverable
func (e *ReduceError) WithRecoverable(recoverable bool) *ReduceError {
	e.Recoverable = recoverable
	return e
}

// Error implements the error interface
func (e *ReduceError) Error() string {
	op := e.Operation
	if e.Reducer != "" {
		op = e.Reducer + " " + op
	}
	if e.Path != "" {
		return fmt.Sprintf("%s %s failed for %s: %v", e.Type, op, e.Path, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Type, op, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *ReduceError) Unwrap() error {
	return e.Underlying
}

// IsRecoverable checks if the unit can continue without this change
func (e *ReduceError) IsRecoverable() bool {
	return e.Recoverable
}

// ParseError represents a parsing error
type ParseError struct {
	Type       ErrorType
	FilePath   string
	Line       int
	Column     int
	Token      string
	Underlying error
	Timestamp  time.Time
}

// NewParseError creates a new parse error
func NewParseError(path string, line, column int, token string, err error) *ParseError {
	return &ParseError{
		Type:       ErrorTypeParse,
		FilePath:   path,
		Line:       line,
		Column:     column,
		Token:      token,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s:%d:%d (near token %q): %v",
		e.FilePath, e.Line, e.Column, e.Token, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Underlying
}

// FileError represents a file-related error
type FileError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewFileError creates a new file error
func NewFileError(op, path string, err error) *FileError {
	errorType := ErrorTypeFileNotFound
	if isPermissionError(err) {
		errorType = ErrorTypePermission
	}

	return &FileError{
		Type:       errorType,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// isPermissionError checks if the error is a permission error
func isPermissionError(err error) bool {
	errStr := err.Error()
	return errStr == "permission denied" || errStr == "access denied"
}

// Error implements the error interface
func (e *FileError) Error() string {
	return fmt.Sprintf("file %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *FileError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Hint       string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithHint attaches a suggestion shown after the message
func (e *ConfigError) WithHint(hint string) *ConfigError {
	e.Hint = hint
	return e
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error
func NewMultiError(errs []error) *MultiError {
	// Filter out nil errors
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// ErrorOrNil returns nil when no errors were collected
func (e *MultiError) ErrorOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
