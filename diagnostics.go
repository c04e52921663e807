// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package drivestats

import (
	"fmt"
	"log"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

// Diagnostic is a row failure, file failure or data anomaly found while
// aggregating. Diagnostics never change what gets aggregated.
type Diagnostic struct {
	Severity slog.Level // Error, Warn, Info
	Code     string     // "PARSE_ROW", "CAPACITY_CHANGED", ...
	Path     string     // input file, if known
	Line     int        // 1-based line in Path, 0 when not row scoped
	Model    string
	Serial   string
	Message  string
}

// String formats the diagnostic as "warn: path:line: CODE: model/serial: message".
// Empty parts are left out.
func (d Diagnostic) String() string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(d.Severity.String()))
	sb.WriteString(": ")
	if d.Path != "" {
		sb.WriteString(d.Path)
		if d.Line > 0 {
			fmt.Fprintf(&sb, ":%d", d.Line)
		}
		sb.WriteString(": ")
	}
	if d.Code != "" {
		sb.WriteString(d.Code)
		sb.WriteString(": ")
	}
	if d.Model != "" || d.Serial != "" {
		fmt.Fprintf(&sb, "%s/%s: ", d.Model, d.Serial)
	}
	sb.WriteString(d.Message)
	return sb.String()
}

// Reporter receives diagnostics as they happen.
// Implementations must be safe for concurrent use by workers.
type Reporter interface {
	Report(d Diagnostic)
}

// Report sends d to rep. A nil rep drops it.
func Report(rep Reporter, d Diagnostic) {
	if rep != nil {
		rep.Report(d)
	}
}

// Counts is the number of diagnostics seen per severity.
type Counts struct {
	Info  int64
	Warn  int64
	Error int64
}

// LogReporter writes every diagnostic to a logger immediately and keeps
// per-severity counts for the run summary. Info diagnostics are only
// printed when verbose is set, but they are always counted.
type LogReporter struct {
	logger  *log.Logger
	verbose bool

	info, warn, errs atomic.Int64

	mu     sync.Mutex
	byCode map[string]int64
}

// NewLogReporter returns a reporter that writes to logger.
// A nil logger writes through the standard logger.
func NewLogReporter(logger *log.Logger, verbose bool) *LogReporter {
	return &LogReporter{logger: logger, verbose: verbose}
}

func (r *LogReporter) Report(d Diagnostic) {
	r.mu.Lock()
	if r.byCode == nil {
		r.byCode = make(map[string]int64)
	}
	r.byCode[d.Code]++
	r.mu.Unlock()

	switch {
	case d.Severity >= slog.LevelError:
		r.errs.Add(1)
	case d.Severity >= slog.LevelWarn:
		r.warn.Add(1)
	default:
		r.info.Add(1)
		if !r.verbose {
			return
		}
	}
	if r.logger != nil {
		r.logger.Print(d.String())
	} else {
		log.Print(d.String())
	}
}

// Counts returns the tallies so far.
func (r *LogReporter) Counts() Counts {
	return Counts{
		Info:  r.info.Load(),
		Warn:  r.warn.Load(),
		Error: r.errs.Load(),
	}
}

// CodeCount returns how many diagnostics with any of the codes were reported.
func (r *LogReporter) CodeCount(codes ...string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, code := range codes {
		n += r.byCode[code]
	}
	return n
}

// Collector keeps every diagnostic in memory. Used by tests and by callers
// that want to inspect diagnostics after a run.
type Collector struct {
	mu          sync.Mutex
	diagnostics []Diagnostic
}

func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	c.diagnostics = append(c.diagnostics, d)
	c.mu.Unlock()
}

// Diagnostics returns a copy of the collected diagnostics.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Diagnostic(nil), c.diagnostics...)
}

// WithCode returns the collected diagnostics that have the given code.
func (c *Collector) WithCode(code string) []Diagnostic {
	var list []Diagnostic
	for _, d := range c.Diagnostics() {
		if d.Code == code {
			list = append(list, d)
		}
	}
	return list
}
