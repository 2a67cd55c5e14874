// Package testutil provides shared helpers for tests that need a real
// store.
package testutil

import (
	"context"
	"testing"

	"github.com/reconflow/reconflow/internal/storage"
)

// SetupTestDB creates a migrated in-memory store and registers its
// cleanup with the test.
func SetupTestDB(t *testing.T) *storage.SQLiteStore {
	t.Helper()

	store, err := storage.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}
