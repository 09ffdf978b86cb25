// Package errs defines the typed failures a pipeline run can end with. Every
// error carries a stable code so logs, metrics and the run store can group
// failures without string matching.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes
const (
	CodeNotFound         = "NOT_FOUND"
	CodeColumnNotFound   = "COLUMN_NOT_FOUND"
	CodeInsufficientData = "INSUFFICIENT_DATA"
	CodeColumnType       = "COLUMN_TYPE"
	CodeWrite            = "WRITE_FAILED"
	CodeUnknown          = "UNKNOWN"
)

// Coder is implemented by every error in this package.
type Coder interface {
	Code() string
}

// NotFoundError reports an input path that does not resolve to a readable file.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("input not found: %s: %v", e.Path, e.Err)
}

func (e *NotFoundError) Unwrap() error { return e.Err }
func (e *NotFoundError) Code() string  { return CodeNotFound }

// ColumnNotFoundError reports a required column missing from a dataset.
type ColumnNotFoundError struct {
	Dataset string
	Column  string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column %q not found in %s dataset", e.Column, e.Dataset)
}

func (e *ColumnNotFoundError) Code() string { return CodeColumnNotFound }

// InsufficientDataError reports a statistic that is undefined for a column,
// e.g. the mean of a column with no non-null values.
type InsufficientDataError struct {
	Dataset   string
	Column    string
	Statistic string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("cannot compute %s of column %q in %s dataset: no non-null values", e.Statistic, e.Column, e.Dataset)
}

func (e *InsufficientDataError) Code() string { return CodeInsufficientData }

// ColumnTypeError reports a cell that cannot be read as the type a stage needs.
type ColumnTypeError struct {
	Dataset string
	Column  string
	Row     int
	Value   string
	Err     error
}

func (e *ColumnTypeError) Error() string {
	return fmt.Sprintf("column %q in %s dataset, row %d: value %q is not numeric", e.Column, e.Dataset, e.Row, e.Value)
}

func (e *ColumnTypeError) Unwrap() error { return e.Err }
func (e *ColumnTypeError) Code() string  { return CodeColumnType }

// WriteError reports a persistence failure. Written lists files that were
// completely written before the failure; writes are not transactional, so a
// non-empty Written means the output directory holds a partial result.
type WriteError struct {
	Path    string
	Written []string
	Err     error
}

func (e *WriteError) Error() string {
	msg := fmt.Sprintf("write %s: %v", e.Path, e.Err)
	if len(e.Written) > 0 {
		msg += fmt.Sprintf(" (already written: %s)", strings.Join(e.Written, ", "))
	}
	return msg
}

func (e *WriteError) Unwrap() error { return e.Err }
func (e *WriteError) Code() string  { return CodeWrite }

// Code returns the code of the first error in err's chain that has one,
// or CodeUnknown.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var c Coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodeUnknown
}
