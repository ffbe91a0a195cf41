// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history keeps a SQLite log of completed renames.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultListLimit is used by List when limit <= 0.
const DefaultListLimit = 20

// ErrClosed is returned after Close.
var ErrClosed = errors.New("history is closed")

// Entry is one rename.
type Entry struct {
	ID           string
	OriginalPath string
	NewPath      string
	Model        string
	RenamedAt    time.Time
}

// DB is the rename history.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path and applies
// pending migrations.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The daemon and the CLI may write at the same time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate history: %w", err)
	}
	return &DB{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	// Closing m would close db as well, so only the source is released.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		src.Close()
		return err
	}
	defer src.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Record stores e, filling ID and RenamedAt when empty.
func (h *DB) Record(ctx context.Context, e Entry) error {
	if h == nil || h.db == nil {
		return ErrClosed
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.RenamedAt.IsZero() {
		e.RenamedAt = time.Now()
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO renames (id, original_path, new_path, model, renamed_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.OriginalPath, e.NewPath, e.Model, e.RenamedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("record rename: %w", err)
	}
	return nil
}

// List returns up to limit entries, newest first.
func (h *DB) List(ctx context.Context, limit int) ([]Entry, error) {
	if h == nil || h.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, original_path, new_path, model, renamed_at
		   FROM renames ORDER BY renamed_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list renames: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ms int64
		if err := rows.Scan(&e.ID, &e.OriginalPath, &e.NewPath, &e.Model, &ms); err != nil {
			return nil, err
		}
		e.RenamedAt = time.UnixMilli(ms)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (h *DB) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}
