// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages

import "fmt"

// ErrOpenFile is returned when an input file cannot be opened.
type ErrOpenFile struct {
	Path string
	Err  error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("open %s: %v", e.Path, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// ErrReadFile is returned when an input file fails part way through.
type ErrReadFile struct {
	Path string
	Err  error
}

func (e *ErrReadFile) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ErrReadFile) Unwrap() error {
	return e.Err
}

// ErrParseRow is returned when a well-formed row holds an invalid value.
type ErrParseRow struct {
	Path string
	Line int
	Err  error
}

func (e *ErrParseRow) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *ErrParseRow) Unwrap() error {
	return e.Err
}

// ErrReadRow is returned when a row is not valid CSV or has the wrong
// number of fields.
type ErrReadRow struct {
	Path string
	Line int
	Err  error
}

func (e *ErrReadRow) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *ErrReadRow) Unwrap() error {
	return e.Err
}

// Error code constants for diagnostics.
const (
	ErrCodeOpenFile = "OPEN_FILE"
	ErrCodeReadFile = "READ_FILE"
	ErrCodeParseRow = "PARSE_ROW"
	ErrCodeReadRow  = "READ_ROW"
	ErrCodeUnknown  = "UNKNOWN"
)

// Informational codes.
const (
	CodeProcessFile         = "PROCESS_FILE"
	CodeSkipIngested        = "SKIP_INGESTED"
	CodeImplausibleCapacity = "IMPLAUSIBLE_CAPACITY"
)

// ErrorCode returns the error code string for a given error.
func ErrorCode(err error) string {
	switch err.(type) {
	case *ErrOpenFile:
		return ErrCodeOpenFile
	case *ErrReadFile:
		return ErrCodeReadFile
	case *ErrParseRow:
		return ErrCodeParseRow
	case *ErrReadRow:
		return ErrCodeReadRow
	default:
		return ErrCodeUnknown
	}
}
