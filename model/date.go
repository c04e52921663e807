// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package model

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Supported calendar range. Counters are bucketed by month over these years.
const (
	FirstYear     = 2013
	LastYear      = 2023
	MonthsPerYear = 12

	// CounterCount is the number of monthly buckets per drive.
	CounterCount = (LastYear - FirstYear + 1) * MonthsPerYear
)

var (
	ErrInvalidDate = errors.New("invalid date")
	ErrDateRange   = errors.New("date out of range")
)

// Date is a calendar day in [FirstYear, LastYear].
// The zero value is not a valid Date; use NewDate or ParseDate.
type Date struct {
	Year  int
	Month int
	Day   int
}

// NewDate validates year, month and day against the Gregorian calendar
// and the supported year range.
func NewDate(year, month, day int) (Date, error) {
	if year < FirstYear || year > LastYear {
		return Date{}, fmt.Errorf("%04d-%02d-%02d: %w", year, month, day, ErrDateRange)
	}
	if month < 1 || month > MonthsPerYear {
		return Date{}, fmt.Errorf("%04d-%02d-%02d: month: %w", year, month, day, ErrInvalidDate)
	}
	if day < 1 || day > DaysIn(year, month) {
		return Date{}, fmt.Errorf("%04d-%02d-%02d: day: %w", year, month, day, ErrInvalidDate)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return Date{}, fmt.Errorf("%q: want YYYY-MM-DD: %w", s, ErrInvalidDate)
	}
	return parseParts(s, s[0:4], s[5:7], s[8:10])
}

// ParseDateLoose accepts "YYYY-M-D" as well as "YYYY-MM-DD". Older aggregated
// files wrote failure dates without zero padding.
func ParseDateLoose(s string) (Date, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || len(parts[0]) != 4 || len(parts[1]) == 0 || len(parts[1]) > 2 || len(parts[2]) == 0 || len(parts[2]) > 2 {
		return Date{}, fmt.Errorf("%q: want YYYY-MM-DD: %w", s, ErrInvalidDate)
	}
	return parseParts(s, parts[0], parts[1], parts[2])
}

func parseParts(s, ys, ms, ds string) (Date, error) {
	var n [3]int
	for i, part := range []string{ys, ms, ds} {
		for _, ch := range part {
			if ch < '0' || ch > '9' {
				return Date{}, fmt.Errorf("%q: %w", s, ErrInvalidDate)
			}
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return Date{}, fmt.Errorf("%q: %w", s, ErrInvalidDate)
		}
		n[i] = v
	}
	return NewDate(n[0], n[1], n[2])
}

// DaysIn returns the number of days in the month, honoring leap years.
func DaysIn(year, month int) int {
	switch month {
	case 2:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

// Bucket is the index of the date's month in a drive's counters.
func (d Date) Bucket() int {
	return (d.Year-FirstYear)*MonthsPerYear + (d.Month - 1)
}

// BucketDate returns the first day of the month for a bucket index.
func BucketDate(bucket int) Date {
	return Date{Year: FirstYear + bucket/MonthsPerYear, Month: bucket%MonthsPerYear + 1, Day: 1}
}

// Compare returns -1, 0 or +1 as d is before, equal to or after o.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmp.Compare(d.Year, o.Year)
	case d.Month != o.Month:
		return cmp.Compare(d.Month, o.Month)
	default:
		return cmp.Compare(d.Day, o.Day)
	}
}

func (d Date) Before(o Date) bool {
	return d.Compare(o) < 0
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}
