package invoice

import (
	"errors"
	"fmt"
	"strings"

	"invoiceagent/pkg/models"
)

// Common invoice processing errors
var (
	// ErrEmptyInput is returned when an inbound file holds no segments at all.
	ErrEmptyInput = errors.New("input contains no X12 segments")

	// ErrReadFailed is returned when an inbound file cannot be read.
	ErrReadFailed = errors.New("failed to read inbound file")

	// ErrInvalid is matched by every ValidationError.
	ErrInvalid = errors.New("invoice failed validation")

	// ErrArtifactWrite is returned when the processed or rejected JSON cannot be written.
	ErrArtifactWrite = errors.New("failed to write invoice artifact")

	// ErrNonFiniteAmount is returned for NaN or infinite amounts.
	ErrNonFiniteAmount = errors.New("amount is not a finite number")
)

// ProcessingError wraps errors with the operation and file that failed.
type ProcessingError struct {
	// Op is the operation that failed (e.g., "read", "post", "record").
	Op string

	// Path is the inbound file being processed, if any.
	Path string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ProcessingError) Error() string {
	var b strings.Builder
	b.WriteString("invoice: ")
	b.WriteString(e.Op)
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	b.WriteString(" failed")
	if e.Details != "" {
		fmt.Fprintf(&b, ": %s", e.Details)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ProcessingError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewProcessingError creates a new ProcessingError.
func NewProcessingError(op, path string, err error, details string) *ProcessingError {
	return &ProcessingError{
		Op:      op,
		Path:    path,
		Err:     err,
		Details: details,
	}
}

// WrapProcessingError wraps an error as a ProcessingError if it isn't already one.
func WrapProcessingError(op, path string, err error, details string) error {
	if err == nil {
		return nil
	}

	var procErr *ProcessingError
	if errors.As(err, &procErr) {
		return err // Already wrapped
	}

	return NewProcessingError(op, path, err, details)
}

// ValidationError carries the diagnostics of a document that failed validation.
type ValidationError struct {
	Diagnostics []models.Diagnostic
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		parts = append(parts, d.String())
	}
	return fmt.Sprintf("invoice failed validation: %s", strings.Join(parts, "; "))
}

// Unwrap returns ErrInvalid.
func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// AsError returns a *ValidationError for a non-empty diagnostic list and nil otherwise.
func AsError(diags []models.Diagnostic) error {
	if len(diags) == 0 {
		return nil
	}
	return &ValidationError{Diagnostics: diags}
}
