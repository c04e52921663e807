// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mdhender/drivestats"
	"github.com/mdhender/drivestats/model"
	"github.com/mdhender/drivestats/parsers"
	"github.com/mdhender/drivestats/rows"
	"github.com/spf13/afero"
)

// WorkerStats counts what a worker did with the files it claimed.
type WorkerStats struct {
	Files        int64 // files folded into the table
	FilesFailed  int64
	FilesSkipped int64 // already in the ledger
	Rows         int64 // rows applied
	RowsFailed   int64
}

func (s *WorkerStats) add(o WorkerStats) {
	s.Files += o.Files
	s.FilesFailed += o.FilesFailed
	s.FilesSkipped += o.FilesSkipped
	s.Rows += o.Rows
	s.RowsFailed += o.RowsFailed
}

// Worker claims paths from a shared queue and folds every valid row into
// its own table. Nothing but the queue is shared with other workers.
type Worker struct {
	id     int
	fs     afero.Fs
	queue  *Queue
	cfg    *parsers.Config
	rep    drivestats.Reporter
	ledger Ledger
	digest bool

	table    *model.Table
	stats    WorkerStats
	ingested []IngestedFile
	pending  []pendingRow // parsed rows of the current file
}

type pendingRow struct {
	rec  model.Record
	line int
}

// NewWorker creates a worker with an empty table.
func NewWorker(id int, fs afero.Fs, queue *Queue, opts IngestOptions) *Worker {
	opts = opts.withDefaults()
	table := model.NewTable()
	table.Policy = opts.Policy
	return &Worker{
		id:     id,
		fs:     fs,
		queue:  queue,
		cfg:    opts.Parser,
		rep:    opts.Reporter,
		ledger: opts.Ledger,
		digest: opts.Fingerprint || opts.Ledger != nil,
		table:  table,
	}
}

// Table returns the worker's table. It must not be used while Run is active.
func (w *Worker) Table() *model.Table {
	return w.table
}

// Stats returns the worker's counters.
func (w *Worker) Stats() WorkerStats {
	return w.stats
}

// Ingested returns the files folded into the table, with their digests when
// fingerprinting is on.
func (w *Worker) Ingested() []IngestedFile {
	return w.ingested
}

// Run processes paths until the queue is empty. File failures are reported
// and never stop the worker.
func (w *Worker) Run() {
	for {
		path, ok := w.queue.Next()
		if !ok {
			return
		}
		_ = w.ProcessFile(path)
	}
}

// ProcessFile folds one file into the table. Row failures are reported and
// skipped. The returned error is the file failure, already reported. A file
// that fails contributes no rows, so a later run can ingest it again.
func (w *Worker) ProcessFile(path string) (err error) {
	rep := &fileReporter{rep: w.rep, path: path}
	rep.Report(drivestats.Diagnostic{
		Severity: slog.LevelInfo,
		Code:     CodeProcessFile,
		Message:  fmt.Sprintf("worker %d: processing", w.id),
	})
	defer func() {
		if r := recover(); r != nil {
			err = &ErrReadFile{Path: path, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			w.stats.FilesFailed++
			rep.Report(drivestats.Diagnostic{
				Severity: slog.LevelError,
				Code:     ErrorCode(err),
				Message:  errors.Unwrap(err).Error(),
			})
		}
	}()

	f, err := w.fs.Open(path)
	if err != nil {
		return &ErrOpenFile{Path: path, Err: err}
	}
	defer f.Close()

	var digest string
	if w.digest {
		if digest, err = Fingerprint(f); err != nil {
			return &ErrReadFile{Path: path, Err: err}
		}
		if w.ledger != nil && w.ledger.Ingested(digest) {
			w.stats.FilesSkipped++
			rep.Report(drivestats.Diagnostic{
				Severity: slog.LevelInfo,
				Code:     CodeSkipIngested,
				Message:  "already ingested " + digest,
			})
			return nil
		}
		if _, err = f.Seek(0, io.SeekStart); err != nil {
			return &ErrReadFile{Path: path, Err: err}
		}
	}

	// rows are only applied once the whole file has been read
	if err := w.readRows(f, path, rep); err != nil {
		return err
	}
	for _, p := range w.pending {
		w.table.Apply(p.rec, lineReporter{rep: rep, line: p.line})
	}
	n := int64(len(w.pending))
	w.stats.Files++
	w.stats.Rows += n
	w.ingested = append(w.ingested, IngestedFile{Path: path, Digest: digest, Rows: n})
	return nil
}

// readRows parses every valid row of r into w.pending.
func (w *Worker) readRows(r io.Reader, path string, rep drivestats.Reporter) error {
	w.pending = w.pending[:0]
	rdr, err := rows.NewReader(r)
	if err != nil {
		return &ErrReadFile{Path: path, Err: err}
	}
	cfg := w.cfg.ForFile(path)
	minCap, maxCap := cfg.CapacityRange()

	for {
		row, err := rdr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var re *rows.RowError
		if errors.As(err, &re) {
			w.rowFailed(rep, &ErrReadRow{Path: path, Line: re.Line, Err: re.Err}, re.Line)
			continue
		} else if err != nil {
			return &ErrReadFile{Path: path, Err: err}
		}

		rec, err := parsers.ParseRecord(row, cfg)
		if err != nil {
			w.rowFailed(rep, &ErrParseRow{Path: path, Line: row.Line, Err: err}, row.Line)
			continue
		}
		if rec.RejectedCapacity != nil {
			rep.Report(drivestats.Diagnostic{
				Severity: slog.LevelInfo,
				Code:     CodeImplausibleCapacity,
				Line:     row.Line,
				Model:    rec.Model,
				Serial:   rec.Serial,
				Message:  fmt.Sprintf("capacity %d outside [%d, %d]", *rec.RejectedCapacity, minCap, maxCap),
			})
		}
		w.pending = append(w.pending, pendingRow{rec: rec, line: row.Line})
	}
}

func (w *Worker) rowFailed(rep drivestats.Reporter, err error, line int) {
	w.stats.RowsFailed++
	rep.Report(drivestats.Diagnostic{
		Severity: slog.LevelWarn,
		Code:     ErrorCode(err),
		Line:     line,
		Message:  errors.Unwrap(err).Error(),
	})
}

// fileReporter fills in the path of diagnostics raised while reading a file.
type fileReporter struct {
	rep  drivestats.Reporter
	path string
}

func (r *fileReporter) Report(d drivestats.Diagnostic) {
	if d.Path == "" {
		d.Path = r.path
	}
	drivestats.Report(r.rep, d)
}

// lineReporter fills in the line of anomalies raised while applying a row.
type lineReporter struct {
	rep  drivestats.Reporter
	line int
}

func (r lineReporter) Report(d drivestats.Diagnostic) {
	if d.Line == 0 {
		d.Line = r.line
	}
	drivestats.Report(r.rep, d)
}
