// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package parsers

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/mdhender/drivestats/model"
	"github.com/mdhender/drivestats/rows"
)

// ColInitialPowerOnHour is written by the aggregator; raw files do not have it.
const ColInitialPowerOnHour = "initial_power_on_hour"

const failurePrefix = "failure_"

// AggregatePrefix is the fixed leading part of an aggregated table's header.
var AggregatePrefix = []string{ColModel, ColSerial, ColCapacity, ColInitialPowerOnHour}

// FailureColumn names failure slot n, counting from 1.
func FailureColumn(n int) string {
	return failurePrefix + strconv.Itoa(n)
}

// MonthColumn names the counter column for a bucket, "YYYY-MM".
func MonthColumn(bucket int) string {
	d := model.BucketDate(bucket)
	return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
}

// AggregateHeader is the full header for a table with maxFailure failure slots.
func AggregateHeader(maxFailure int) []string {
	header := make([]string, 0, len(AggregatePrefix)+maxFailure+model.CounterCount)
	header = append(header, AggregatePrefix...)
	for n := 1; n <= maxFailure; n++ {
		header = append(header, FailureColumn(n))
	}
	for b := 0; b < model.CounterCount; b++ {
		header = append(header, MonthColumn(b))
	}
	return header
}

// Schema locates the failure and month columns of an aggregated file.
type Schema struct {
	failures []string       // failure columns in slot order
	months   map[string]int // month column -> bucket
}

// NewSchema checks the header of an aggregated file. Columns it does not
// recognize are ignored.
func NewSchema(columns []string) (*Schema, error) {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}
	for _, c := range AggregatePrefix {
		if !present[c] {
			return nil, fmt.Errorf("aggregated header: missing column %q", c)
		}
	}

	s := &Schema{months: make(map[string]int)}
	type slot struct {
		n    int
		name string
	}
	var slots []slot
	for _, c := range columns {
		if rest, ok := strings.CutPrefix(c, failurePrefix); ok {
			n, err := strconv.Atoi(rest)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("aggregated header: bad failure column %q", c)
			}
			slots = append(slots, slot{n: n, name: c})
			continue
		}
		if len(c) == 7 && c[4] == '-' {
			d, err := model.ParseDate(c + "-01")
			if err != nil {
				return nil, fmt.Errorf("aggregated header: month column %q: %w", c, err)
			}
			s.months[c] = d.Bucket()
		}
	}
	slices.SortFunc(slots, func(a, b slot) int { return a.n - b.n })
	for _, sl := range slots {
		s.failures = append(s.failures, sl.name)
	}
	return s, nil
}

// FailureSlots is the number of failure columns in the header.
func (s *Schema) FailureSlots() int {
	return len(s.failures)
}

// DriveRow is one decoded row of an aggregated file.
type DriveRow struct {
	Model         string
	Serial        string
	CapacityBytes *uint64
	Stats         *model.DriveStats
}

// ParseDriveRow decodes one aggregated row. Empty cells are unset values,
// unused failure slots or zero counters.
func (s *Schema) ParseDriveRow(row rows.Row) (DriveRow, error) {
	dr := DriveRow{
		Model:  StripSpace(row.Value(ColModel)),
		Serial: StripSpace(row.Value(ColSerial)),
		Stats:  &model.DriveStats{},
	}

	var err error
	if dr.CapacityBytes, err = optionalUint(row, ColCapacity); err != nil {
		return DriveRow{}, err
	}
	if dr.Stats.InitialPowerOnHour, err = optionalUint(row, ColInitialPowerOnHour); err != nil {
		return DriveRow{}, err
	}

	for _, c := range s.failures {
		v := strings.TrimSpace(row.Value(c))
		if v == "" {
			continue
		}
		d, err := model.ParseDateLoose(v)
		if err != nil {
			return DriveRow{}, &ErrField{Column: c, Value: v, Err: err}
		}
		dr.Stats.FailureDates = append(dr.Stats.FailureDates, d)
	}
	slices.SortStableFunc(dr.Stats.FailureDates, model.Date.Compare)

	for c, bucket := range s.months {
		v := strings.TrimSpace(row.Value(c))
		if v == "" {
			continue
		}
		n, err := parseCount(v)
		if err != nil {
			return DriveRow{}, &ErrField{Column: c, Value: v, Err: err}
		}
		dr.Stats.DriveDays[bucket] += n
	}

	return dr, nil
}

func optionalUint(row rows.Row, column string) (*uint64, error) {
	v := strings.TrimSpace(row.Value(column))
	if v == "" {
		return nil, nil
	}
	n, err := parseCount(v)
	if err != nil {
		return nil, &ErrField{Column: column, Value: v, Err: err}
	}
	return &n, nil
}
