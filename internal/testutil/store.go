package testutil

import (
	"testing"

	"curator-go/internal/config"
	"curator-go/internal/curator"
	"curator-go/internal/database"
)

// NewTestStore creates a new in-memory SQLite store with schema applied.
// The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) curator.Store {
	t.Helper()

	store, err := database.NewStoreFromConfig(config.DatabaseConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
