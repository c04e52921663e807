// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/mdhender/drivestats"
	"github.com/mdhender/drivestats/config"
	"github.com/mdhender/drivestats/model"
	"github.com/mdhender/drivestats/pipelines/stages"
	"github.com/mdhender/drivestats/stores/csvfile"
	store "github.com/mdhender/drivestats/stores/sqlite"
	"github.com/spf13/afero"
)

// tableFile is an aggregated table on disk in either format.
type tableFile struct {
	fs     afero.Fs
	path   string
	format string
	db     *store.SQLiteStore // sqlite only
}

// openTableFile opens path. A sqlite database is created if it does not exist.
func openTableFile(fs afero.Fs, path, format string) (*tableFile, error) {
	tf := &tableFile{fs: fs, path: path, format: format}
	if format == config.FormatSQLite {
		db, err := store.Open(path)
		if err != nil {
			return nil, fmt.Errorf("store: %s: %w", path, err)
		}
		tf.db = db
	}
	return tf, nil
}

func (tf *tableFile) Close() error {
	if tf.db != nil {
		return tf.db.Close()
	}
	return nil
}

// ledger returns the digests of files already folded into the table, or
// nil when the format keeps no ledger.
func (tf *tableFile) ledger(ctx context.Context) (stages.Ledger, error) {
	if tf.db == nil {
		return nil, nil
	}
	return tf.db.IngestedDigests(ctx)
}

// load reads the stored table. It returns false when there is none.
func (tf *tableFile) load(ctx context.Context, policy model.CapacityPolicy, rep drivestats.Reporter) (*model.Table, bool, error) {
	if tf.db != nil {
		ok, err := tf.db.HasTable(ctx)
		if err != nil || !ok {
			return nil, false, err
		}
		t, err := tf.db.LoadTable(ctx, policy, rep)
		return t, err == nil, err
	}
	ok, err := csvfile.Exists(tf.fs, tf.path)
	if err != nil || !ok {
		return nil, false, err
	}
	t, err := csvfile.ReadTable(tf.fs, tf.path, policy, rep)
	return t, err == nil, err
}

// save replaces the stored table. The run is only recorded by formats
// that keep a history.
func (tf *tableFile) save(ctx context.Context, t *model.Table, run *store.Run) error {
	if tf.db != nil {
		return tf.db.SaveRun(ctx, t, run)
	}
	return csvfile.WriteTable(tf.fs, tf.path, t)
}
