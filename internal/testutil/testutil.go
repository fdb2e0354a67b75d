// Package testutil provides shared test helpers for setting up vaults,
// stores, and index databases.
package testutil

import (
	"log/slog"
	"os"
	"testing"

	"github.com/quillhq/vellum/internal/index"
	"github.com/quillhq/vellum/internal/storage"
	"github.com/quillhq/vellum/internal/store"
	"github.com/quillhq/vellum/internal/watch"
)

// Logger returns a JSON logger that only surfaces errors, keeping test
// output quiet.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// DB creates a temporary SQLite database that is automatically cleaned up.
func DB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "vellum-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Vault creates a temporary vault directory with a storage.Provider.
func Vault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	fs, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, fs
}

// Stores creates entity stores over a fresh temp vault, returning the
// provider and self-write filter alongside so tests can inspect them.
func Stores(t *testing.T) (*store.Stores, storage.Provider, *watch.SelfWriteFilter) {
	t.Helper()
	_, fs := Vault(t)
	filter := watch.NewSelfWriteFilter(watch.DefaultSuppressionWindow)
	return store.New(fs, filter, Logger()), fs, filter
}
