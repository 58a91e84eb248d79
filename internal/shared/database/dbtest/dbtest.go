// Package dbtest opens throwaway SQLite databases with the real schema for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"hexmap-server/internal/shared/config"
	"hexmap-server/internal/shared/database"
)

// New returns a migrated database living in the test's temp dir
func New(t testing.TB) *database.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hexmap.db")
	db, err := database.Open(database.DriverSQLite, config.SQLiteDSN(path))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("closing test database: %v", err)
		}
	})

	if err := db.RunMigrations(context.Background()); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	return db
}
