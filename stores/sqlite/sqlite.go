// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package store keeps aggregated tables, the run history and the
// ingested-file ledger in a SQLite database.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"math"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore is a SQLite-backed store for aggregated drive statistics.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens the database at path, creating the file and the schema if
// they do not exist.
func Open(path string) (*SQLiteStore, error) {
	// Apply PRAGMA's per-connection via DSN so the pool always has them.
	// modernc.org/sqlite supports repeated _pragma=... parameters.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)",
		path,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close checkpoints the WAL into the main database file and closes the
// connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.db.Close()
		return fmt.Errorf("checkpoint WAL: %w", err)
	}
	return s.db.Close()
}

// Compact rebuilds the database file into minimal disk space.
func (s *SQLiteStore) Compact(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

// withTx runs fn in a transaction, rolling back if fn fails.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ErrOutOfRange is returned for values SQLite cannot store as an INTEGER.
var ErrOutOfRange = errors.New("value exceeds sqlite integer range")

func toInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%d: %w", v, ErrOutOfRange)
	}
	return int64(v), nil
}

func nullUint64(p *uint64) (sql.NullInt64, error) {
	if p == nil {
		return sql.NullInt64{}, nil
	}
	n, err := toInt64(*p)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: n, Valid: true}, nil
}

func fromNullInt64(n sql.NullInt64) *uint64 {
	if !n.Valid || n.Int64 < 0 {
		return nil
	}
	v := uint64(n.Int64)
	return &v
}
