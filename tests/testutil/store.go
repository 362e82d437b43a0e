package testutil

import (
	"context"
	"testing"

	"github.com/nhle/task-notifier/internal/store"
)

// NewTestStore opens an in-memory SQLiteStore with the state and delivery
// tables migrated. The store is closed when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})
	return s
}

// NewSeededStore is NewTestStore with state already saved.
func NewSeededStore(t *testing.T, state store.State) *store.SQLiteStore {
	t.Helper()

	s := NewTestStore(t)
	if err := s.Save(context.Background(), state); err != nil {
		t.Fatalf("seeding test store: %v", err)
	}
	return s
}
