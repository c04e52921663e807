// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package model

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/mdhender/drivestats"
)

// Anomaly codes. Anomalies are always applied and only reported.
const (
	CodeCapacityChanged = "CAPACITY_CHANGED"
	CodeRepeatedFailure = "REPEATED_FAILURE"
)

// Apply adds one record to the table.
//
// Every record contributes exactly one drive-day to one monthly bucket.
// The drive accumulator is created on the first record for its serial
// number and keeps that record's power-on hours as its baseline.
func (t *Table) Apply(rec Record, rep drivestats.Reporter) {
	ms := t.model(rec.Model)
	if rec.CapacityBytes != nil {
		t.updateCapacity(rec.Model, ms, *rec.CapacityBytes, rep)
	}

	ds, ok := ms.Drives[rec.Serial]
	if !ok {
		ds = newDriveStats(rec.PowerOnHours)
		ms.Drives[rec.Serial] = ds
	}

	ds.DriveDays[rec.Date.Bucket()]++

	if rec.Failure {
		if hasOtherDate(ds.FailureDates, rec.Date) {
			drivestats.Report(rep, drivestats.Diagnostic{
				Severity: slog.LevelWarn,
				Code:     CodeRepeatedFailure,
				Model:    rec.Model,
				Serial:   rec.Serial,
				Message:  fmt.Sprintf("failed on %s, already failed on %s", rec.Date, formatDates(ds.FailureDates)),
			})
		}
		ds.FailureDates = insertDate(ds.FailureDates, rec.Date)
		t.updateMaxFailure(len(ds.FailureDates))
	}
}

// updateCapacity applies the table's capacity policy. A change to an
// already-set value is reported; the report does not affect the outcome.
func (t *Table) updateCapacity(name string, ms *ModelStats, capacity uint64, rep drivestats.Reporter) {
	if ms.CapacityBytes == nil {
		ms.CapacityBytes = &capacity
		return
	}
	old := *ms.CapacityBytes
	if old == capacity {
		return
	}
	if t.Policy == CapacityMonotonicMax && capacity < old {
		return
	}
	drivestats.Report(rep, drivestats.Diagnostic{
		Severity: slog.LevelWarn,
		Code:     CodeCapacityChanged,
		Model:    name,
		Message:  fmt.Sprintf("capacity changed from %d to %d", old, capacity),
	})
	ms.CapacityBytes = &capacity
}

// insertDate inserts d at the first position not less than d.
func insertDate(dates []Date, d Date) []Date {
	i, _ := slices.BinarySearchFunc(dates, d, Date.Compare)
	return slices.Insert(dates, i, d)
}

// mergeDates merges two ascending lists into a new ascending list.
// Equal dates keep their relative order, a's first.
func mergeDates(a, b []Date) []Date {
	out := make([]Date, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if b[j].Before(a[i]) {
			out = append(out, b[j])
			j++
		} else {
			out = append(out, a[i])
			i++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

func hasOtherDate(dates []Date, d Date) bool {
	for _, o := range dates {
		if o != d {
			return true
		}
	}
	return false
}

func formatDates(dates []Date) string {
	s := ""
	for i, d := range dates {
		if i > 0 {
			s += ", "
		}
		s += d.String()
	}
	return s
}
