package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn is returned when the header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
	// ErrOutOfRange is returned when a market share falls outside [0,100] after conversion.
	ErrOutOfRange = errors.New("value out of range")
	// ErrEmptyFile is returned when the file has no header row.
	ErrEmptyFile = errors.New("dataset file is empty")
)

// ParseError reports a cell that could not be turned into a record field.
// Row is 1-based and counts the header as row 1, matching spreadsheet numbering.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d, column %q: cannot use %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
