// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package csvfile reads and writes aggregated tables as CSV files.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/mdhender/drivestats"
	"github.com/mdhender/drivestats/model"
	"github.com/mdhender/drivestats/parsers"
	"github.com/mdhender/drivestats/rows"
	"github.com/spf13/afero"
)

// DefaultMode is the permission of a newly written table.
const DefaultMode = 0o644

// WriteTable writes t to path. The rows go to a temporary file in the same
// directory which is then renamed over path, so readers never see a partial
// table and an existing file can be read before it is replaced.
func WriteTable(fs afero.Fs, path string, t *model.Table) error {
	tmp, err := afero.TempFile(fs, filepath.Dir(path), "drivestats-*.csv")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	// removing after a successful rename fails harmlessly
	defer fs.Remove(tmpName)

	if err := Encode(tmp, t); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	// the temp file is private; the table keeps the mode of the file it replaces
	mode := os.FileMode(DefaultMode)
	if fi, err := fs.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := fs.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := fs.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// Encode writes the header and one row per drive, sorted by model and
// serial number. Unset values, unused failure slots and zero counters are
// written as empty cells. Models without drives are not written.
func Encode(w io.Writer, t *model.Table) error {
	cw := csv.NewWriter(w)
	header := parsers.AggregateHeader(t.MaxFailure)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	failures := len(parsers.AggregatePrefix)
	months := failures + t.MaxFailure
	for _, name := range sortedKeys(t.Models) {
		ms := t.Models[name]
		capacity := formatOptional(ms.CapacityBytes)
		for _, serial := range sortedKeys(ms.Drives) {
			ds := ms.Drives[serial]
			clear(record)
			record[0], record[1], record[2] = name, serial, capacity
			record[3] = formatOptional(ds.InitialPowerOnHour)
			for i, d := range ds.FailureDates {
				record[failures+i] = d.String()
			}
			for i, n := range ds.DriveDays {
				if n != 0 {
					record[months+i] = strconv.FormatUint(n, 10)
				}
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTable loads an aggregated file. Rows are folded in with the same
// rules as a merge, so a file with repeated keys still loads.
func ReadTable(fs afero.Fs, path string, policy model.CapacityPolicy, rep drivestats.Reporter) (*model.Table, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := Decode(f, policy, rep)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Decode reads an aggregated table. Any bad row fails the whole table.
func Decode(r io.Reader, policy model.CapacityPolicy, rep drivestats.Reporter) (*model.Table, error) {
	rdr, err := rows.NewReader(r)
	if err != nil {
		return nil, err
	}
	schema, err := parsers.NewSchema(rdr.Columns())
	if err != nil {
		return nil, err
	}

	t := model.NewTable()
	t.Policy = policy
	for {
		row, err := rdr.Read()
		if errors.Is(err, io.EOF) {
			return t, nil
		} else if err != nil {
			return nil, err
		}
		dr, err := schema.ParseDriveRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", row.Line, err)
		}
		t.MergeDrive(dr.Model, dr.Serial, dr.CapacityBytes, dr.Stats, rep)
	}
}

// Exists reports whether path names an existing file.
func Exists(fs afero.Fs, path string) (bool, error) {
	return afero.Exists(fs, path)
}

func formatOptional(p *uint64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatUint(*p, 10)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
