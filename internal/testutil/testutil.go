// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the newsdesk project.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/olegiv/newsdesk/internal/retry"
	"github.com/olegiv/newsdesk/internal/store"
)

// TestLogger creates a silent test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestLoggerSilent creates a logger that discards everything.
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestPolicy is a fast retry policy for tests: short timeout, one retry,
// millisecond backoff.
func TestPolicy() retry.Policy {
	return retry.Policy{
		Timeout:    5 * time.Second,
		MaxRetries: 1,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
	}
}

// TestManager creates a migrated SQLite database in a temporary directory.
// The manager is closed when the test ends.
func TestManager(t *testing.T) *store.Manager {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "newsdesk-test.db")
	m, err := store.Open(store.Options{
		URL:    "sqlite:" + dbPath,
		Policy: TestPolicy(),
		Logger: TestLoggerSilent(),
	})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })

	if _, err := m.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return m
}

// TestQueries returns Queries over a fresh TestManager.
func TestQueries(t *testing.T) *store.Queries {
	t.Helper()
	return store.New(TestManager(t))
}
