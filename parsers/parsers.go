// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package parsers

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/mdhender/drivestats/model"
	"github.com/mdhender/drivestats/rows"
)

var ErrMissing = errors.New("missing value")

// ErrField names the column that made a row invalid.
type ErrField struct {
	Column string
	Value  string
	Err    error
}

func (e *ErrField) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Column, e.Value, e.Err)
}

func (e *ErrField) Unwrap() error {
	return e.Err
}

// ParseRecord turns one daily snapshot row into a Record.
//
// Model and serial number have all whitespace removed. A negative capacity
// means unknown and is dropped; a capacity outside the plausible window is
// kept in RejectedCapacity and not applied. Any other bad value fails the row.
func ParseRecord(row rows.Row, cfg *Config) (model.Record, error) {
	rec := model.Record{
		Model:  StripSpace(row.Value(ColModel)),
		Serial: StripSpace(row.Value(ColSerial)),
	}

	if v := strings.TrimSpace(row.Value(ColDate)); v != "" {
		d, err := model.ParseDate(v)
		if err != nil {
			return model.Record{}, &ErrField{Column: ColDate, Value: v, Err: err}
		}
		rec.Date = d
	} else if cfg.fileDate != nil {
		rec.Date = *cfg.fileDate
	} else {
		return model.Record{}, &ErrField{Column: ColDate, Err: ErrMissing}
	}

	if v := strings.TrimSpace(row.Value(ColCapacity)); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return model.Record{}, &ErrField{Column: ColCapacity, Value: v, Err: err}
		}
		if n >= 0 {
			if c := uint64(n); c < cfg.minCapacity || c > cfg.maxCapacity {
				rec.RejectedCapacity = &n
			} else {
				rec.CapacityBytes = &c
			}
		}
	}

	v := strings.TrimSpace(row.Value(ColFailure))
	if v == "" {
		return model.Record{}, &ErrField{Column: ColFailure, Err: ErrMissing}
	}
	failure, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return model.Record{}, &ErrField{Column: ColFailure, Value: v, Err: err}
	}
	rec.Failure = failure != 0

	if v := strings.TrimSpace(row.Value(cfg.powerOnHoursColumn)); v != "" {
		n, err := parseCount(v)
		if err != nil {
			return model.Record{}, &ErrField{Column: cfg.powerOnHoursColumn, Value: v, Err: err}
		}
		rec.PowerOnHours = &n
	}

	return rec, nil
}

// parseCount parses a non-negative count. Counts above math.MaxInt64 are
// rejected so every stored value fits a signed 64-bit column.
func parseCount(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	} else if n > math.MaxInt64 {
		return 0, strconv.ErrRange
	}
	return n, nil
}

// StripSpace removes every whitespace rune from s.
func StripSpace(s string) string {
	if strings.IndexFunc(s, unicode.IsSpace) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
