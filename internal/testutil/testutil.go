// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the sitecms project.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/olegiv/sitecms/internal/logging"
	"github.com/olegiv/sitecms/internal/store"
)

// TestLoggerSilent returns a logger that only reports errors, so soft
// failures exercised by tests stay out of the output.
func TestLoggerSilent() *slog.Logger {
	return logging.New(os.Stderr, "error", "text")
}

// TestStore opens a migrated SQLite database in the test's temp dir and
// returns the content backend and event log over it. The database is closed
// when the test finishes.
func TestStore(t *testing.T) (*store.Backend, *store.EventLog) {
	t.Helper()

	db, err := store.Open(t.Context(), store.DialectSQLite, filepath.Join(t.TempDir(), "sitecms-test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := store.Migrate(db, store.DialectSQLite); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	return store.NewBackend(db, store.DialectSQLite), store.NewEventLog(db, store.DialectSQLite)
}
