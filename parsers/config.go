// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package parsers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mdhender/drivestats/model"
)

// Columns read from daily snapshot files.
const (
	ColDate         = "date"
	ColSerial       = "serial_number"
	ColModel        = "model"
	ColCapacity     = "capacity_bytes"
	ColFailure      = "failure"
	ColPowerOnHours = "smart_9_raw"
)

// Config holds the validation rules for raw rows.
// A Config is read-only once built and may be shared by workers.
type Config struct {
	minCapacity        uint64
	maxCapacity        uint64
	powerOnHoursColumn string
	fileDate           *model.Date
}

type Option func(c *Config) error

// NewConfig returns the default rules with the options applied.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		minCapacity:        model.MinCapacityBytes,
		maxCapacity:        model.MaxCapacityBytes,
		powerOnHoursColumn: ColPowerOnHours,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// WithCapacityRange sets the plausible capacity window, inclusive.
func WithCapacityRange(min, max uint64) Option {
	return func(c *Config) error {
		if min > max {
			return fmt.Errorf("capacity range: min %d > max %d", min, max)
		}
		c.minCapacity, c.maxCapacity = min, max
		return nil
	}
}

// WithPowerOnHoursColumn names the column holding the raw power-on-hours counter.
func WithPowerOnHoursColumn(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return fmt.Errorf("power-on-hours column: empty name")
		}
		c.powerOnHoursColumn = name
		return nil
	}
}

// CapacityRange returns the plausible capacity window.
func (c *Config) CapacityRange() (min, max uint64) {
	return c.minCapacity, c.maxCapacity
}

// ForFile returns a copy of c whose fallback date comes from the file name.
// The copy has no fallback date when the name is not a date.
func (c *Config) ForFile(path string) *Config {
	fc := *c
	fc.fileDate = nil
	if d, ok := FileDate(path); ok {
		fc.fileDate = &d
	}
	return &fc
}

// FileDate returns the date in a "YYYY-MM-DD.csv" file name.
func FileDate(path string) (model.Date, bool) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	d, err := model.ParseDate(stem)
	if err != nil {
		return model.Date{}, false
	}
	return d, true
}
