// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages

import (
	"iter"
	"runtime"

	"github.com/mdhender/drivestats"
	"github.com/mdhender/drivestats/model"
	"github.com/mdhender/drivestats/parsers"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// IngestOptions configures a run. The zero value is usable.
type IngestOptions struct {
	Workers   int    // defaults to runtime.NumCPU()
	Extension string // defaults to DefaultExtension
	Parser    *parsers.Config
	Policy    model.CapacityPolicy
	Reporter  drivestats.Reporter

	// Ledger skips files ingested by an earlier run. It may be nil.
	Ledger Ledger
	// Fingerprint computes file digests even without a ledger.
	Fingerprint bool
}

func (o IngestOptions) withDefaults() IngestOptions {
	if o.Workers < 1 {
		o.Workers = runtime.NumCPU()
	}
	if o.Extension == "" {
		o.Extension = DefaultExtension
	}
	if o.Parser == nil {
		// the default options cannot fail
		o.Parser, _ = parsers.NewConfig()
	}
	return o
}

// RunStats sums the worker counters of one run.
type RunStats struct {
	WorkerStats
	Workers  int
	Ingested []IngestedFile
}

// Ingest runs a fixed pool of workers over paths and folds their tables,
// in worker order, into a new table. Per-file and per-row failures are
// reported through opts.Reporter and never end the run.
func Ingest(fs afero.Fs, paths iter.Seq[string], opts IngestOptions) (*model.Table, RunStats) {
	opts = opts.withDefaults()

	queue := NewQueue(paths, opts.Extension)
	defer queue.Stop()

	workers := make([]*Worker, opts.Workers)
	for i := range workers {
		workers[i] = NewWorker(i+1, fs, queue, opts)
	}

	var g errgroup.Group
	for _, w := range workers {
		g.Go(func() error {
			w.Run()
			return nil
		})
	}
	_ = g.Wait()

	table := model.NewTable()
	table.Policy = opts.Policy
	stats := RunStats{Workers: len(workers)}
	for _, w := range workers {
		table.Merge(w.Table(), opts.Reporter)
		stats.add(w.Stats())
		stats.Ingested = append(stats.Ingested, w.Ingested()...)
	}
	return table, stats
}
