// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/mdhender/drivestats"
	"github.com/mdhender/drivestats/model"
	"github.com/mdhender/drivestats/parsers"
)

// SaveTable replaces the stored table with t in a single transaction.
func (s *SQLiteStore) SaveTable(ctx context.Context, t *model.Table) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return saveTable(ctx, tx, t)
	})
}

func saveTable(ctx context.Context, tx *sql.Tx, t *model.Table) error {
	for _, table := range []string{"failures", "drive_days", "drives", "models"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	insModel, err := tx.PrepareContext(ctx, `INSERT INTO models (name, capacity_bytes) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare models: %w", err)
	}
	defer insModel.Close()
	insDrive, err := tx.PrepareContext(ctx, `INSERT INTO drives (model, serial_number, initial_power_on_hour) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare drives: %w", err)
	}
	defer insDrive.Close()
	insDays, err := tx.PrepareContext(ctx, `INSERT INTO drive_days (model, serial_number, month, drive_days) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare drive_days: %w", err)
	}
	defer insDays.Close()
	insFailure, err := tx.PrepareContext(ctx, `INSERT INTO failures (model, serial_number, seq, failure_date) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare failures: %w", err)
	}
	defer insFailure.Close()

	for _, name := range sortedKeys(t.Models) {
		ms := t.Models[name]
		capacity, err := nullUint64(ms.CapacityBytes)
		if err != nil {
			return fmt.Errorf("model %q: capacity: %w", name, err)
		}
		if _, err := insModel.ExecContext(ctx, name, capacity); err != nil {
			return fmt.Errorf("insert model %q: %w", name, err)
		}
		for _, serial := range sortedKeys(ms.Drives) {
			ds := ms.Drives[serial]
			poh, err := nullUint64(ds.InitialPowerOnHour)
			if err != nil {
				return fmt.Errorf("drive %s/%s: initial power-on hour: %w", name, serial, err)
			}
			if _, err := insDrive.ExecContext(ctx, name, serial, poh); err != nil {
				return fmt.Errorf("insert drive %s/%s: %w", name, serial, err)
			}
			for bucket, n := range ds.DriveDays {
				if n == 0 {
					continue
				}
				days, err := toInt64(n)
				if err != nil {
					return fmt.Errorf("drive %s/%s: drive_days: %w", name, serial, err)
				}
				if _, err := insDays.ExecContext(ctx, name, serial, parsers.MonthColumn(bucket), days); err != nil {
					return fmt.Errorf("insert drive_days %s/%s: %w", name, serial, err)
				}
			}
			for i, d := range ds.FailureDates {
				if _, err := insFailure.ExecContext(ctx, name, serial, i+1, d.String()); err != nil {
					return fmt.Errorf("insert failure %s/%s: %w", name, serial, err)
				}
			}
		}
	}
	return nil
}

type driveKey struct {
	model, serial string
}

// LoadTable rebuilds the stored table. Rows are folded in with the same
// rules as a merge.
func (s *SQLiteStore) LoadTable(ctx context.Context, policy model.CapacityPolicy, rep drivestats.Reporter) (*model.Table, error) {
	capacities := make(map[string]*uint64)
	var names []string
	rows, err := s.db.QueryContext(ctx, `SELECT name, capacity_bytes FROM models ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query models: %w", err)
	}
	for rows.Next() {
		var name string
		var capacity sql.NullInt64
		if err := rows.Scan(&name, &capacity); err != nil {
			rows.Close()
			return nil, err
		}
		capacities[name] = fromNullInt64(capacity)
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	drives := make(map[driveKey]*model.DriveStats)
	var keys []driveKey
	rows, err = s.db.QueryContext(ctx, `SELECT model, serial_number, initial_power_on_hour FROM drives ORDER BY model, serial_number`)
	if err != nil {
		return nil, fmt.Errorf("query drives: %w", err)
	}
	for rows.Next() {
		var k driveKey
		var poh sql.NullInt64
		if err := rows.Scan(&k.model, &k.serial, &poh); err != nil {
			rows.Close()
			return nil, err
		}
		drives[k] = &model.DriveStats{InitialPowerOnHour: fromNullInt64(poh)}
		keys = append(keys, k)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT model, serial_number, month, drive_days FROM drive_days`)
	if err != nil {
		return nil, fmt.Errorf("query drive_days: %w", err)
	}
	for rows.Next() {
		var k driveKey
		var month string
		var n int64
		if err := rows.Scan(&k.model, &k.serial, &month, &n); err != nil {
			rows.Close()
			return nil, err
		}
		ds, ok := drives[k]
		if !ok {
			continue
		}
		d, err := model.ParseDate(month + "-01")
		if err != nil || n < 0 {
			rows.Close()
			return nil, fmt.Errorf("drive_days %s/%s: bad month %q or count %d", k.model, k.serial, month, n)
		}
		ds.DriveDays[d.Bucket()] += uint64(n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT model, serial_number, failure_date FROM failures ORDER BY model, serial_number, seq`)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	for rows.Next() {
		var k driveKey
		var value string
		if err := rows.Scan(&k.model, &k.serial, &value); err != nil {
			rows.Close()
			return nil, err
		}
		ds, ok := drives[k]
		if !ok {
			continue
		}
		d, err := model.ParseDateLoose(value)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failures %s/%s: %w", k.model, k.serial, err)
		}
		ds.FailureDates = append(ds.FailureDates, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	t := model.NewTable()
	t.Policy = policy
	for _, name := range names {
		t.MergeDrive(name, "", capacities[name], nil, rep)
	}
	for _, k := range keys {
		ds := drives[k]
		slices.SortStableFunc(ds.FailureDates, model.Date.Compare)
		t.MergeDrive(k.model, k.serial, nil, ds, rep)
	}
	return t, nil
}

// HasTable reports whether a table has been saved.
func (s *SQLiteStore) HasTable(ctx context.Context) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM models`).Scan(&n); err != nil {
		return false, fmt.Errorf("count models: %w", err)
	}
	return n > 0, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
