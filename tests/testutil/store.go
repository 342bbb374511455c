// Package testutil holds shared test fixtures.
package testutil

import (
	"testing"

	"github.com/nhle/taskflow/internal/store"
)

// NewTestStore returns a migrated in-memory SQLite state store, closed
// automatically when the test finishes. Tests that need the real SQL
// watermark guard (rather than MemoryStore's map) go through this.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating state store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing state store: %v", err)
		}
	})
	return s
}
