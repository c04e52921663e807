// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package rows reads header-row CSV files as named-field records.
//
// A malformed row is reported as a *RowError and the reader stays usable;
// any other error ends the stream.
package rows

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Row is one data row. Its fields are only valid until the next call to Read.
type Row struct {
	Line   int
	header map[string]int
	fields []string
}

// Get returns the raw text of the named column.
func (r Row) Get(name string) (string, bool) {
	i, ok := r.header[name]
	if !ok || i >= len(r.fields) {
		return "", false
	}
	return r.fields[i], true
}

// Value is Get without the presence flag.
func (r Row) Value(name string) string {
	v, _ := r.Get(name)
	return v
}

// RowError is a failure scoped to one row.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Reader yields the rows of a CSV stream keyed by the header row.
type Reader struct {
	csv     *csv.Reader
	columns []string
	header  map[string]int
}

// NewReader reads the header row from r.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header row")
		}
		return nil, fmt.Errorf("header: %w", err)
	}
	rdr := &Reader{
		csv:     cr,
		columns: make([]string, len(header)),
		header:  make(map[string]int, len(header)),
	}
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		rdr.columns[i] = name
		if _, dup := rdr.header[name]; !dup {
			rdr.header[name] = i
		}
	}
	// every data row must have as many fields as the header
	cr.FieldsPerRecord = len(header)
	return rdr, nil
}

// Columns returns the header names in file order.
func (r *Reader) Columns() []string {
	return r.columns
}

// Has reports whether the header names the column.
func (r *Reader) Has(name string) bool {
	_, ok := r.header[name]
	return ok
}

// Read returns the next row, io.EOF at the end of the stream, a *RowError
// for a malformed row, or the underlying read error.
func (r *Reader) Read() (Row, error) {
	fields, err := r.csv.Read()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return Row{}, &RowError{Line: pe.StartLine, Err: pe.Err}
		}
		return Row{}, err
	}
	line, _ := r.csv.FieldPos(0)
	return Row{Line: line, header: r.header, fields: fields}, nil
}
