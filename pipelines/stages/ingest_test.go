// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages_test

import (
	"fmt"
	"slices"
	"testing"

	"github.com/mdhender/drivestats"
	"github.com/mdhender/drivestats/model"
	"github.com/mdhender/drivestats/parsers"
	"github.com/mdhender/drivestats/pipelines/stages"
	"github.com/spf13/afero"
)

func TestIngest_TwoFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/data/2013-01-01.csv", header+"2013-01-01,S1,X,1000000000,0\n")
	writeFile(t, fs, "/data/2013-01-02.csv", header+"2013-01-02,S1,X,-1,1\n")

	// admit 1 GB so the first row carries a plausible capacity
	cfg, err := parsers.NewConfig(parsers.WithCapacityRange(1_000_000_000, model.MaxCapacityBytes))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	rep := &drivestats.Collector{}
	table, stats := stages.Ingest(fs, stages.WalkFiles(fs, "/data", rep), stages.IngestOptions{
		Workers:  2,
		Parser:   cfg,
		Reporter: rep,
	})

	if stats.Files != 2 || stats.Rows != 2 || stats.Workers != 2 {
		t.Errorf("stats: got %+v", stats)
	}
	ms := table.Models["X"]
	if ms == nil || ms.CapacityBytes == nil || *ms.CapacityBytes != 1000000000 {
		t.Fatalf("capacity: want 1000000000")
	}
	ds := table.Drive("X", "S1")
	if ds == nil {
		t.Fatalf("drive S1 missing")
	}
	if ds.DriveDays[0] != 2 {
		t.Errorf("2013-01: want 2, got %d", ds.DriveDays[0])
	}
	if len(ds.FailureDates) != 1 || ds.FailureDates[0].String() != "2013-01-02" {
		t.Errorf("failure dates: want [2013-01-02], got %v", ds.FailureDates)
	}
	if table.MaxFailure != 1 {
		t.Errorf("max failure: want 1, got %d", table.MaxFailure)
	}
	// only the per-file progress lines
	if n, progress := len(rep.Diagnostics()), len(rep.WithCode(stages.CodeProcessFile)); n != 2 || progress != 2 {
		t.Errorf("want two PROCESS_FILE diagnostics only, got %v", rep.Diagnostics())
	}
}

func TestIngest_MalformedFileDoesNotStopRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/data/a/2013-01-01.csv", header+"2013-01-01,S1,M,,0\n")
	writeFile(t, fs, "/data/b/2013-01-02.csv", "\"unterminated\n")
	writeFile(t, fs, "/data/b/notes.txt", "ignored")
	writeFile(t, fs, "/data/c/2013-01-03.csv", header+"2013-01-03,S1,M,,0\n")

	rep := &drivestats.Collector{}
	table, stats := stages.Ingest(fs, stages.WalkFiles(fs, "/data", rep), stages.IngestOptions{Workers: 3, Reporter: rep})

	if ds := table.Drive("M", "S1"); ds == nil || ds.DriveDays[0] != 2 {
		t.Errorf("want 2 drive-days from the good files")
	}
	if stats.Files != 2 || stats.FilesFailed != 1 {
		t.Errorf("stats: got %+v", stats)
	}
	if len(rep.WithCode(stages.ErrCodeReadFile)) != 1 {
		t.Errorf("want one READ_FILE diagnostic, got %v", rep.Diagnostics())
	}
}

func TestIngest_IndependentOfWorkerCount(t *testing.T) {
	fs := afero.NewMemMapFs()
	for day := 1; day <= 28; day++ {
		data := header
		for s := 0; s < 5; s++ {
			failure := 0
			if (day+s)%11 == 0 {
				failure = 1
			}
			data += fmt.Sprintf("2014-02-%02d,S%d,M%d,%d,%d\n", day, s, s%2, 4000787030016+uint64(day%3)*1000, failure)
		}
		writeFile(t, fs, fmt.Sprintf("/data/2014-02-%02d.csv", day), data)
	}

	run := func(workers int) *model.Table {
		table, stats := stages.Ingest(fs, stages.WalkFiles(fs, "/data", nil), stages.IngestOptions{Workers: workers})
		if stats.Files != 28 || stats.Rows != 140 {
			t.Fatalf("workers %d: stats %+v", workers, stats)
		}
		return table
	}

	want := run(1)
	for _, workers := range []int{2, 3, 8} {
		got := run(workers)
		if err := equalTables(want, got); err != nil {
			t.Errorf("workers %d: %v", workers, err)
		}
	}
}

func TestIngest_LedgerCollectsDigests(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/data/2013-01-01.csv", header+"2013-01-01,S1,M,,0\n")
	writeFile(t, fs, "/data/2013-01-02.csv", header+"2013-01-02,S1,M,,0\n")

	_, stats := stages.Ingest(fs, stages.WalkFiles(fs, "/data", nil), stages.IngestOptions{Workers: 2, Fingerprint: true})
	if len(stats.Ingested) != 2 {
		t.Fatalf("ingested: want 2, got %d", len(stats.Ingested))
	}
	seen := stages.DigestSet{}
	for _, f := range stats.Ingested {
		seen[f.Digest] = true
	}

	table, stats := stages.Ingest(fs, stages.WalkFiles(fs, "/data", nil), stages.IngestOptions{Workers: 2, Ledger: seen})
	if table.DriveCount() != 0 || stats.FilesSkipped != 2 {
		t.Errorf("second run: want everything skipped, got %+v", stats)
	}
}

func TestWalkFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/data/2013/b.csv", "")
	writeFile(t, fs, "/data/2013/a.csv", "")
	writeFile(t, fs, "/data/z.csv", "")

	got := slices.Collect(stages.WalkFiles(fs, "/data", nil))
	want := []string{"/data/2013/a.csv", "/data/2013/b.csv", "/data/z.csv"}
	if !slices.Equal(got, want) {
		t.Errorf("want %v, got %v", want, got)
	}

	got = slices.Collect(stages.WalkFiles(fs, "/data/z.csv", nil))
	if !slices.Equal(got, []string{"/data/z.csv"}) {
		t.Errorf("single file: got %v", got)
	}

	rep := &drivestats.Collector{}
	if got = slices.Collect(stages.WalkFiles(fs, "/nowhere", rep)); len(got) != 0 {
		t.Errorf("missing root: got %v", got)
	}
	if len(rep.WithCode(stages.ErrCodeOpenFile)) != 1 {
		t.Errorf("missing root: want one OPEN_FILE diagnostic")
	}
}

// equalTables compares the content of two tables.
func equalTables(a, b *model.Table) error {
	if a.MaxFailure != b.MaxFailure {
		return fmt.Errorf("max failure %d != %d", a.MaxFailure, b.MaxFailure)
	}
	if len(a.Models) != len(b.Models) {
		return fmt.Errorf("models %d != %d", len(a.Models), len(b.Models))
	}
	for name, ma := range a.Models {
		mb, ok := b.Models[name]
		if !ok {
			return fmt.Errorf("model %s missing", name)
		}
		if (ma.CapacityBytes == nil) != (mb.CapacityBytes == nil) ||
			(ma.CapacityBytes != nil && *ma.CapacityBytes != *mb.CapacityBytes) {
			return fmt.Errorf("model %s: capacity differs", name)
		}
		if len(ma.Drives) != len(mb.Drives) {
			return fmt.Errorf("model %s: drives %d != %d", name, len(ma.Drives), len(mb.Drives))
		}
		for serial, da := range ma.Drives {
			db, ok := mb.Drives[serial]
			if !ok {
				return fmt.Errorf("%s/%s missing", name, serial)
			}
			if da.DriveDays != db.DriveDays {
				return fmt.Errorf("%s/%s: counters differ", name, serial)
			}
			if !slices.Equal(da.FailureDates, db.FailureDates) {
				return fmt.Errorf("%s/%s: failure dates %v != %v", name, serial, da.FailureDates, db.FailureDates)
			}
		}
	}
	return nil
}
