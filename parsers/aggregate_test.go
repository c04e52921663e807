// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package parsers_test

import (
	"strings"
	"testing"

	"github.com/mdhender/drivestats/model"
	"github.com/mdhender/drivestats/parsers"
	"github.com/mdhender/drivestats/rows"
)

func TestAggregateHeader(t *testing.T) {
	h := parsers.AggregateHeader(2)
	if want := 4 + 2 + model.CounterCount; len(h) != want {
		t.Fatalf("header length: want %d, got %d", want, len(h))
	}
	if got := strings.Join(h[:7], ","); got != "model,serial_number,capacity_bytes,initial_power_on_hour,failure_1,failure_2,2013-01" {
		t.Errorf("header prefix: got %q", got)
	}
	if got := h[len(h)-1]; got != "2023-12" {
		t.Errorf("last column: want 2023-12, got %q", got)
	}
}

func TestSchema_ParseDriveRow(t *testing.T) {
	header := "model,serial_number,capacity_bytes,initial_power_on_hour,failure_2,failure_1,2013-01,2014-02,notes\n"
	input := header +
		"ST4000DM000,Z300,4000787030016,17,2014-02-01,2013-1-5,3,,hello\n" +
		"ST4000DM000,Z301,,,,,,9,\n"
	r, err := rows.NewReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	schema, err := parsers.NewSchema(r.Columns())
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if schema.FailureSlots() != 2 {
		t.Errorf("failure slots: want 2, got %d", schema.FailureSlots())
	}

	row, err := r.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	dr, err := schema.ParseDriveRow(row)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if dr.Model != "ST4000DM000" || dr.Serial != "Z300" {
		t.Errorf("key: got %q/%q", dr.Model, dr.Serial)
	}
	if dr.CapacityBytes == nil || *dr.CapacityBytes != 4000787030016 {
		t.Errorf("capacity: got %v", show(dr.CapacityBytes))
	}
	if dr.Stats.InitialPowerOnHour == nil || *dr.Stats.InitialPowerOnHour != 17 {
		t.Errorf("initial power-on hour: got %v", show(dr.Stats.InitialPowerOnHour))
	}
	if len(dr.Stats.FailureDates) != 2 ||
		dr.Stats.FailureDates[0].String() != "2013-01-05" ||
		dr.Stats.FailureDates[1].String() != "2014-02-01" {
		t.Errorf("failure dates: want sorted [2013-01-05 2014-02-01], got %v", dr.Stats.FailureDates)
	}
	if dr.Stats.DriveDays[0] != 3 || dr.Stats.TotalDriveDays() != 3 {
		t.Errorf("counters: got total %d", dr.Stats.TotalDriveDays())
	}

	row, err = r.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	dr, err = schema.ParseDriveRow(row)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if dr.CapacityBytes != nil || dr.Stats.InitialPowerOnHour != nil || len(dr.Stats.FailureDates) != 0 {
		t.Errorf("empty cells: want unset values, got %+v", dr)
	}
	if b := (model.Date{Year: 2014, Month: 2, Day: 1}).Bucket(); dr.Stats.DriveDays[b] != 9 {
		t.Errorf("2014-02 counter: want 9, got %d", dr.Stats.DriveDays[b])
	}
}

func TestNewSchema_Errors(t *testing.T) {
	for name, columns := range map[string][]string{
		"missing prefix":   {"model", "serial_number"},
		"bad failure slot": {"model", "serial_number", "capacity_bytes", "initial_power_on_hour", "failure_x"},
		"month range":      {"model", "serial_number", "capacity_bytes", "initial_power_on_hour", "2031-01"},
	} {
		if _, err := parsers.NewSchema(columns); err == nil {
			t.Errorf("%s: want error", name)
		}
	}
}

func TestSchema_BadValues(t *testing.T) {
	for name, row := range map[string]string{
		"bad counter":        "M,S,,,many",
		"counter over int64": "M,S,,,9223372036854775808",
		"poh over int64":     "M,S,,9223372036854775808,1",
	} {
		r, err := rows.NewReader(strings.NewReader("model,serial_number,capacity_bytes,initial_power_on_hour,2013-01\n" + row + "\n"))
		if err != nil {
			t.Fatalf("%s: new reader: %v", name, err)
		}
		schema, err := parsers.NewSchema(r.Columns())
		if err != nil {
			t.Fatalf("%s: schema: %v", name, err)
		}
		dr, err := r.Read()
		if err != nil {
			t.Fatalf("%s: read: %v", name, err)
		}
		if _, err := schema.ParseDriveRow(dr); err == nil {
			t.Errorf("%s: want error", name)
		}
	}
}
