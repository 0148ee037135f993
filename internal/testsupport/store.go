package testsupport

import (
	"testing"

	"cardgraph/internal/config"
	"cardgraph/internal/sessions"
)

// MustOpenStore opens a session store against the test config and registers
// cleanup to close it.
func MustOpenStore(t testing.TB, cfg *config.Config) *sessions.Store {
	t.Helper()

	store, err := sessions.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}
