// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mdhender/drivestats/model"
	"github.com/mdhender/drivestats/pipelines/stages"
)

// Run is one aggregation run recorded with the table it produced.
type Run struct {
	ID         uuid.UUID
	Input      string
	StartedAt  time.Time
	FinishedAt time.Time
	Stats      stages.RunStats
	// Replace is set when the table was built without the stored one. The
	// ledger of earlier runs is dropped with the rows it described.
	Replace bool
}

// NewRun returns a run with a fresh id, started now.
func NewRun(input string) *Run {
	return &Run{
		ID:        uuid.New(),
		Input:     input,
		StartedAt: time.Now().UTC(),
	}
}

// SaveRun replaces the stored table with t and records the run and the
// files it ingested, all in one transaction. The ledger never names a
// file whose rows are not in the stored table: t must contain the stored
// table unless run.Replace is set, which clears the ledger first.
func (s *SQLiteStore) SaveRun(ctx context.Context, t *model.Table, run *Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := saveTable(ctx, tx, t); err != nil {
			return err
		}
		if run.Replace {
			if _, err := tx.ExecContext(ctx, "DELETE FROM ingested_files"); err != nil {
				return fmt.Errorf("clear ingested_files: %w", err)
			}
		}
		const insertRun = `
			INSERT INTO runs (id, input, started_at, finished_at, workers, files, files_failed, files_skipped, row_count, rows_failed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		st := run.Stats
		if _, err := tx.ExecContext(ctx, insertRun,
			run.ID.String(),
			run.Input,
			run.StartedAt.Format(time.RFC3339),
			run.FinishedAt.Format(time.RFC3339),
			st.Workers,
			st.Files,
			st.FilesFailed,
			st.FilesSkipped,
			st.Rows,
			st.RowsFailed,
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		ins, err := tx.PrepareContext(ctx, `
			INSERT INTO ingested_files (digest, path, row_count, run_id)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (digest) DO NOTHING
		`)
		if err != nil {
			return fmt.Errorf("prepare ingested_files: %w", err)
		}
		defer ins.Close()
		for _, f := range st.Ingested {
			if f.Digest == "" {
				continue
			}
			if _, err := ins.ExecContext(ctx, f.Digest, f.Path, f.Rows, run.ID.String()); err != nil {
				return fmt.Errorf("insert ingested file %s: %w", f.Path, err)
			}
		}
		return nil
	})
}

// Runs returns the recorded runs, oldest first.
func (s *SQLiteStore) Runs(ctx context.Context) ([]Run, error) {
	const query = `
		SELECT id, input, started_at, finished_at, workers, files, files_failed, files_skipped, row_count, rows_failed
		FROM runs
		ORDER BY started_at, id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var id, startedAt, finishedAt string
		if err := rows.Scan(
			&id,
			&r.Input,
			&startedAt,
			&finishedAt,
			&r.Stats.Workers,
			&r.Stats.Files,
			&r.Stats.FilesFailed,
			&r.Stats.FilesSkipped,
			&r.Stats.Rows,
			&r.Stats.RowsFailed,
		); err != nil {
			return nil, err
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("run id %q: %w", id, err)
		}
		if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
			r.StartedAt = t
		}
		if t, err := time.Parse(time.RFC3339, finishedAt); err == nil {
			r.FinishedAt = t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// IngestedDigests returns the ledger as a set that workers may share.
func (s *SQLiteStore) IngestedDigests(ctx context.Context) (stages.DigestSet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT digest FROM ingested_files`)
	if err != nil {
		return nil, fmt.Errorf("query ingested_files: %w", err)
	}
	defer rows.Close()

	set := stages.DigestSet{}
	for rows.Next() {
		var digest string
		if err := rows.Scan(&digest); err != nil {
			return nil, err
		}
		set[digest] = true
	}
	return set, rows.Err()
}
