// Package errors defines application-specific error types and sentinel errors.
package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// Sentinel errors for common conditions.
var (
	ErrBufferFull        = errors.New("buffer is full")
	ErrNoData            = errors.New("no data")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrPublisherClosed   = errors.New("publisher is closed")
	ErrConnectionLost    = errors.New("connection lost")
)

// FileNotFoundError reports a missing input file or database.
type FileNotFoundError struct {
	Path string
	Err  error
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// Unwrap returns the underlying filesystem error, or fs.ErrNotExist.
func (e *FileNotFoundError) Unwrap() error {
	if e.Err == nil {
		return fs.ErrNotExist
	}
	return e.Err
}

// DecodingError reports that no candidate encoding could decode a file.
type DecodingError struct {
	Path      string
	Encodings []string
	Err       error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decoding error: path=%s tried=[%s]: %v",
		e.Path, strings.Join(e.Encodings, ", "), e.Err)
}

func (e *DecodingError) Unwrap() error {
	return e.Err
}

// ParseError reports malformed tabular content in a decoded file.
type ParseError struct {
	Path     string
	Encoding string
	Line     int
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: path=%s encoding=%s line=%d: %v",
		e.Path, e.Encoding, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SchemaError reports a missing or mistyped column required by a step.
type SchemaError struct {
	Step   string
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: step=%s column=%s: %s", e.Step, e.Column, e.Reason)
}

// ValidationError reports a clean-record invariant violation.
type ValidationError struct {
	Row    int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: row=%d field=%s: %s", e.Row, e.Field, e.Reason)
}

// SerializationError reports a failure writing one output format.
type SerializationError struct {
	Format string
	Path   string
	Err    error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization error: format=%s path=%s: %v", e.Format, e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// QueryError reports a failed read-back query. The driver error is kept.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %q: %v", e.Query, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// StorageError represents a storage operation failure.
type StorageError struct {
	Operation string
	Path      string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: operation=%s path=%s: %v",
		e.Operation, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// PhaseError attributes an error to a pipeline phase.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Retryable defines an interface for errors that can indicate if they are retryable.
type Retryable interface {
	error
	IsRetryable() bool
}

// IsRetryable checks if an error is retryable.
// It first checks if the error implements the Retryable interface,
// then falls back to checking sentinel errors.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var retryable Retryable
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}

	if errors.Is(err, ErrConnectionLost) {
		return true
	}

	return false
}

// IsRetryable determines if a StorageError is retryable based on the operation type.
func (e *StorageError) IsRetryable() bool {
	return e.Operation == "upload" || e.Operation == "create"
}

// PhaseOf returns the phase name carried by err, or "" if none.
func PhaseOf(err error) string {
	var pe *PhaseError
	if errors.As(err, &pe) {
		return pe.Phase
	}
	return ""
}
