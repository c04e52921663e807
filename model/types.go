// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package model

import "fmt"

// Plausible capacity window for a physical drive.
const (
	MinCapacityBytes uint64 = 40 * 1000 * 1000 * 1000        // very old drives, 40 GB
	MaxCapacityBytes uint64 = 40 * 1000 * 1000 * 1000 * 1000 // HAMR drives, 40 TB
)

// Record is one parsed drive-day row.
type Record struct {
	Model   string
	Serial  string
	Date    Date
	Failure bool

	// CapacityBytes is nil when the row had no plausible capacity.
	CapacityBytes *uint64
	// RejectedCapacity holds a non-negative capacity that fell outside the
	// plausible window. It is reported but never applied.
	RejectedCapacity *int64
	// PowerOnHours is the raw power-on-hours counter, nil when absent.
	PowerOnHours *uint64
}

// DriveStats accumulates one (model, serial) pair.
type DriveStats struct {
	// DriveDays counts observed drive-days per month, indexed by Date.Bucket.
	DriveDays [CounterCount]uint64
	// InitialPowerOnHour is captured when the accumulator is created and
	// is never overwritten.
	InitialPowerOnHour *uint64
	// FailureDates is sorted ascending and may hold duplicates.
	FailureDates []Date
}

func newDriveStats(powerOnHours *uint64) *DriveStats {
	return &DriveStats{InitialPowerOnHour: copyUint64(powerOnHours)}
}

// clone returns a deep copy that shares no storage with ds.
func (ds *DriveStats) clone() *DriveStats {
	c := &DriveStats{
		DriveDays:          ds.DriveDays,
		InitialPowerOnHour: copyUint64(ds.InitialPowerOnHour),
	}
	if len(ds.FailureDates) != 0 {
		c.FailureDates = append([]Date(nil), ds.FailureDates...)
	}
	return c
}

// TotalDriveDays sums the monthly counters.
func (ds *DriveStats) TotalDriveDays() uint64 {
	var total uint64
	for _, n := range ds.DriveDays {
		total += n
	}
	return total
}

// ModelStats accumulates every drive of one model.
type ModelStats struct {
	Drives map[string]*DriveStats
	// CapacityBytes is nil until a plausible capacity has been seen.
	CapacityBytes *uint64
}

func newModelStats() *ModelStats {
	return &ModelStats{Drives: make(map[string]*DriveStats)}
}

// CapacityPolicy decides how a model's capacity reacts to a new plausible value.
type CapacityPolicy int

const (
	// CapacityMonotonicMax keeps the largest value ever seen. The result does
	// not depend on the order of updates.
	CapacityMonotonicMax CapacityPolicy = iota
	// CapacityReplaceOnChange overwrites with the latest value. This matches
	// older aggregated files but depends on processing order.
	CapacityReplaceOnChange
)

func (p CapacityPolicy) String() string {
	switch p {
	case CapacityMonotonicMax:
		return "max"
	case CapacityReplaceOnChange:
		return "replace"
	default:
		return fmt.Sprintf("CapacityPolicy(%d)", int(p))
	}
}

// ParseCapacityPolicy accepts the names returned by CapacityPolicy.String.
func ParseCapacityPolicy(s string) (CapacityPolicy, error) {
	switch s {
	case "max", "":
		return CapacityMonotonicMax, nil
	case "replace":
		return CapacityReplaceOnChange, nil
	}
	return 0, fmt.Errorf("capacity policy %q: want max or replace", s)
}

// Table is the aggregation of every model seen in a run.
type Table struct {
	Models map[string]*ModelStats
	// MaxFailure is the longest FailureDates list of any drive in the table.
	MaxFailure int
	// Policy is applied to capacity updates made through this table.
	Policy CapacityPolicy
}

// NewTable returns an empty table using the monotonic-max capacity policy.
func NewTable() *Table {
	return &Table{Models: make(map[string]*ModelStats)}
}

// model returns the accumulator for name, creating it on first use.
func (t *Table) model(name string) *ModelStats {
	ms, ok := t.Models[name]
	if !ok {
		ms = newModelStats()
		t.Models[name] = ms
	}
	return ms
}

// Drive returns the accumulator for (model, serial) or nil.
func (t *Table) Drive(model, serial string) *DriveStats {
	if ms, ok := t.Models[model]; ok {
		return ms.Drives[serial]
	}
	return nil
}

// DriveCount is the number of (model, serial) pairs in the table.
func (t *Table) DriveCount() int {
	n := 0
	for _, ms := range t.Models {
		n += len(ms.Drives)
	}
	return n
}

func (t *Table) updateMaxFailure(n int) {
	if n > t.MaxFailure {
		t.MaxFailure = n
	}
}

func copyUint64(p *uint64) *uint64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
