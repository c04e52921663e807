// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package config loads aggregation defaults from an ini file.
//
// The file has a single section:
//
//	[aggregate]
//	workers = 8
//	extension = .csv
//	min-capacity = 40000000000
//	max-capacity = 40000000000000
//	capacity-policy = max
//	power-on-hours-column = smart_9_raw
//	format = csv
//	notify-url = $DRIVESTATS_NOTIFY_URL
//
// Environment variables in values are expanded.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ini "github.com/lars-t-hansen/ini"
	"github.com/mdhender/drivestats/model"
	"github.com/mdhender/drivestats/parsers"
	"github.com/mdhender/drivestats/pipelines/stages"
	"github.com/spf13/afero"
)

// DefaultFile is looked up in the user's home directory.
const DefaultFile = ".drivestats"

// Aggregate holds the settings of the aggregate command.
type Aggregate struct {
	Workers            int // 0 means one per CPU
	Extension          string
	MinCapacity        uint64
	MaxCapacity        uint64
	CapacityPolicy     model.CapacityPolicy
	PowerOnHoursColumn string
	Format             string // "", "csv" or "sqlite"; empty means guess from the output name
	NotifyURL          string
}

// Default returns the built-in settings.
func Default() Aggregate {
	return Aggregate{
		Extension:          stages.DefaultExtension,
		MinCapacity:        model.MinCapacityBytes,
		MaxCapacity:        model.MaxCapacityBytes,
		CapacityPolicy:     model.CapacityMonotonicMax,
		PowerOnHoursColumn: parsers.ColPowerOnHours,
	}
}

// DefaultPath returns $HOME/.drivestats, or "" when HOME is not set.
func DefaultPath() string {
	home := os.Getenv("HOME")
	if home == "" {
		return ""
	}
	return filepath.Join(filepath.Clean(home), DefaultFile)
}

type fields struct {
	workers, extension, minCapacity, maxCapacity *ini.Field
	capacityPolicy, powerOnHoursColumn           *ini.Field
	format, notifyURL                            *ini.Field
}

func newParser() (*ini.Parser, fields) {
	p := ini.NewParser()
	section := p.AddSection("aggregate")
	return p, fields{
		workers:            section.AddString("workers"),
		extension:          section.AddString("extension"),
		minCapacity:        section.AddString("min-capacity"),
		maxCapacity:        section.AddString("max-capacity"),
		capacityPolicy:     section.AddString("capacity-policy"),
		powerOnHoursColumn: section.AddString("power-on-hours-column"),
		format:             section.AddString("format"),
		notifyURL:          section.AddString("notify-url"),
	}
}

// LoadFile applies the settings in path to cfg. It returns false, and no
// error, when the file does not exist.
func LoadFile(fs afero.Fs, path string, cfg *Aggregate) (bool, error) {
	input, err := fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer input.Close()
	if err := Load(input, cfg); err != nil {
		return true, fmt.Errorf("%s: %w", path, err)
	}
	return true, nil
}

// Load applies the settings present in r to cfg. Keys that are absent leave
// cfg unchanged.
func Load(r io.Reader, cfg *Aggregate) error {
	p, f := newParser()
	store, err := p.Parse(r)
	if err != nil {
		return err
	}
	value := func(field *ini.Field) (string, bool) {
		if !field.Present(store) {
			return "", false
		}
		return strings.TrimSpace(os.ExpandEnv(field.StringVal(store))), true
	}

	next := *cfg
	if v, ok := value(f.workers); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("workers: %q is not a worker count", v)
		}
		next.Workers = n
	}
	if v, ok := value(f.extension); ok {
		next.Extension = v
	}
	if v, ok := value(f.minCapacity); ok {
		if next.MinCapacity, err = strconv.ParseUint(v, 10, 64); err != nil {
			return fmt.Errorf("min-capacity: %w", err)
		}
	}
	if v, ok := value(f.maxCapacity); ok {
		if next.MaxCapacity, err = strconv.ParseUint(v, 10, 64); err != nil {
			return fmt.Errorf("max-capacity: %w", err)
		}
	}
	if v, ok := value(f.capacityPolicy); ok {
		if next.CapacityPolicy, err = model.ParseCapacityPolicy(v); err != nil {
			return err
		}
	}
	if v, ok := value(f.powerOnHoursColumn); ok {
		next.PowerOnHoursColumn = v
	}
	if v, ok := value(f.format); ok {
		next.Format = v
	}
	if v, ok := value(f.notifyURL); ok {
		next.NotifyURL = v
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*cfg = next
	return nil
}

// Validate checks settings that do not depend on the output path.
func (a Aggregate) Validate() error {
	if a.Workers < 0 {
		return fmt.Errorf("workers: must not be negative")
	}
	if a.MinCapacity > a.MaxCapacity {
		return fmt.Errorf("capacity range: min %d > max %d", a.MinCapacity, a.MaxCapacity)
	}
	_, err := OutputFormat(a.Format, "")
	return err
}

// ParserConfig builds the row validation rules from the settings.
func (a Aggregate) ParserConfig() (*parsers.Config, error) {
	return parsers.NewConfig(
		parsers.WithCapacityRange(a.MinCapacity, a.MaxCapacity),
		parsers.WithPowerOnHoursColumn(a.PowerOnHoursColumn),
	)
}
