// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Output formats.
const (
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

// OutputFormat returns the explicit format, or the format implied by the
// extension of path when format is empty. Unknown formats are an error.
func OutputFormat(format, path string) (string, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatSQLite:
		return FormatSQLite, nil
	case "":
	default:
		return "", fmt.Errorf("format %q: want %s or %s", format, FormatCSV, FormatSQLite)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	}
	return FormatCSV, nil
}
