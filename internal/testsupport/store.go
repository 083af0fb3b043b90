package testsupport

import (
	"testing"

	"dupscan/internal/config"
	"dupscan/internal/session"
)

// MustOpenStore opens a session store for the supplied config and closes it
// when the test finishes.
func MustOpenStore(t testing.TB, cfg *config.Config) *session.Store {
	t.Helper()

	store, err := session.Open(cfg)
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close session store: %v", err)
		}
	})
	return store
}
