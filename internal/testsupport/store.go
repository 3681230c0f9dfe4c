package testsupport

import (
	"context"
	"testing"

	"nightshift/internal/config"
	"nightshift/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewScriptItem creates a generated work item for tests.
func NewScriptItem(t testing.TB, store *queue.Store, customerID, scriptPath string) *queue.Item {
	t.Helper()

	item, err := store.NewScriptItem(context.Background(), customerID, "", scriptPath, "")
	if err != nil {
		t.Fatalf("store.NewScriptItem: %v", err)
	}
	return item
}
