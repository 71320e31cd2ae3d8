// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"path/filepath"
	"testing"

	"skillsprint/internal/database"
	"skillsprint/migrations"
)

// NewTestDB opens a migrated SQLite database in a temp dir. It skips the
// test in short mode.
func NewTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "skillsprint.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(migrations.FS); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}
