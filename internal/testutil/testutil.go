// Package testutil provides shared test helpers for setting up vaults and view stores.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/linkpeek/internal/storage"
	"github.com/starford/linkpeek/internal/workspace"
)

// TestStore creates a temporary SQLite view store that is automatically cleaned up.
func TestStore(t *testing.T) *workspace.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "linkpeek-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	st, err := workspace.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// WriteFile writes content to rel inside dir, creating parent directories.
func WriteFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
