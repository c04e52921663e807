// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package model

import (
	"fmt"
	"log/slog"

	"github.com/mdhender/drivestats"
)

// Merge folds from into t using the same rules as Apply:
//
//   - model capacity follows t.Policy and reports changes,
//   - monthly counters are summed element by element,
//   - a drive created by the merge takes from's initial power-on hour,
//     an existing drive keeps its own,
//   - failure dates are merged in order, keeping duplicates.
//
// With the default policy the result depends only on the set of records
// behind t and from, not on how they were split or the order of merges.
// Merge copies what it needs; from is not modified and may be reused.
func (t *Table) Merge(from *Table, rep drivestats.Reporter) {
	if from == nil {
		return
	}
	for name, fms := range from.Models {
		ms := t.model(name)
		if fms.CapacityBytes != nil {
			t.updateCapacity(name, ms, *fms.CapacityBytes, rep)
		}
		for serial, fds := range fms.Drives {
			t.mergeDrive(name, ms, serial, fds, rep)
		}
	}
}

// MergeDrive folds one drive accumulator, and the capacity recorded for its
// model, into t. It is how persisted rows are loaded back into a table.
// A nil capacity leaves the model's capacity alone.
func (t *Table) MergeDrive(modelName, serial string, capacity *uint64, ds *DriveStats, rep drivestats.Reporter) {
	ms := t.model(modelName)
	if capacity != nil {
		t.updateCapacity(modelName, ms, *capacity, rep)
	}
	if ds != nil {
		t.mergeDrive(modelName, ms, serial, ds, rep)
	}
}

func (t *Table) mergeDrive(name string, ms *ModelStats, serial string, fds *DriveStats, rep drivestats.Reporter) {
	ds, ok := ms.Drives[serial]
	if !ok {
		ds = fds.clone()
		ms.Drives[serial] = ds
		t.updateMaxFailure(len(ds.FailureDates))
		return
	}
	for i, n := range fds.DriveDays {
		ds.DriveDays[i] += n
	}
	if len(fds.FailureDates) != 0 {
		if len(ds.FailureDates) != 0 && hasDistinctDates(ds.FailureDates, fds.FailureDates) {
			drivestats.Report(rep, drivestats.Diagnostic{
				Severity: slog.LevelWarn,
				Code:     CodeRepeatedFailure,
				Model:    name,
				Serial:   serial,
				Message:  fmt.Sprintf("failed on %s and on %s", formatDates(ds.FailureDates), formatDates(fds.FailureDates)),
			})
		}
		ds.FailureDates = mergeDates(ds.FailureDates, fds.FailureDates)
	}
	t.updateMaxFailure(len(ds.FailureDates))
}

// MergeAll folds every table into a new table, in order.
func MergeAll(policy CapacityPolicy, rep drivestats.Reporter, tables ...*Table) *Table {
	result := NewTable()
	result.Policy = policy
	for _, t := range tables {
		result.Merge(t, rep)
	}
	return result
}

func hasDistinctDates(a, b []Date) bool {
	for _, d := range b {
		if hasOtherDate(a, d) {
			return true
		}
	}
	return false
}
