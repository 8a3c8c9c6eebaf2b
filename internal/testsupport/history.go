package testsupport

import (
	"testing"

	"quire/internal/config"
	"quire/internal/history"
)

// MustOpenHistory opens the history database at cfg.History.Path and closes
// it when the test ends.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
