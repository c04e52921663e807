// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages

import (
	"iter"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mdhender/drivestats"
	"github.com/spf13/afero"
)

// WalkFiles lazily yields every regular file under root, in lexical order.
// A root that is a file yields just that file. Entries that cannot be read
// are reported and skipped.
func WalkFiles(fs afero.Fs, root string, rep drivestats.Reporter) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				drivestats.Report(rep, drivestats.Diagnostic{
					Severity: slog.LevelError,
					Code:     ErrCodeOpenFile,
					Path:     path,
					Message:  err.Error(),
				})
				if info != nil && info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}
