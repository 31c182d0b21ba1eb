package ingest

import (
	"errors"
	"fmt"
)

// Row-level failure causes.
var (
	ErrMissingField = errors.New("missing required field")
	ErrNotNumeric   = errors.New("not a finite number")
	ErrNotInteger   = errors.New("not an integer")
	ErrBadDate      = errors.New("unparseable date")
	ErrOutOfRange   = errors.New("value out of range")
	ErrMalformedRow = errors.New("malformed row")
	ErrDuplicate    = errors.New("duplicate symbol")
)

// ValidationError rejects a single row. It never aborts the batch.
type ValidationError struct {
	Row   int // 1-based data row, header excluded
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("row %d: %s=%q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StructuralError means the input as a whole could not be read.
type StructuralError struct {
	Source string
	Err    error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Source, e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }

// Reason is a short label for the failure cause, used as a metric label.
func (e *ValidationError) Reason() string {
	switch {
	case errors.Is(e.Err, ErrMissingField):
		return "missing_field"
	case errors.Is(e.Err, ErrNotNumeric):
		return "not_numeric"
	case errors.Is(e.Err, ErrNotInteger):
		return "not_integer"
	case errors.Is(e.Err, ErrBadDate):
		return "bad_date"
	case errors.Is(e.Err, ErrOutOfRange):
		return "out_of_range"
	case errors.Is(e.Err, ErrMalformedRow):
		return "malformed"
	case errors.Is(e.Err, ErrDuplicate):
		return "duplicate"
	default:
		return "invalid"
	}
}
