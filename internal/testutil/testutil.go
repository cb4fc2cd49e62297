// Package testutil provides shared test helpers for setting up stores.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/notifsync/internal/models"
	"github.com/starford/notifsync/internal/sequence"
	"github.com/starford/notifsync/internal/storage"
	"github.com/starford/notifsync/internal/store"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestSequence creates a temporary SQLite counter that is automatically cleaned up.
func TestSequence(t *testing.T) *sequence.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "notifsync-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := sequence.Open(dbFile.Name(), "commitments")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestFile returns a storage provider for events.json in a temp dir. When
// content is non-empty it is written first.
func TestFile(t *testing.T, content string) *storage.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.json")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	f, err := storage.NewFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

// TestStore opens a store over a temp file holding content ("" means the
// file is absent and the default seed is written).
func TestStore(t *testing.T, content string, opts ...store.Option) (*store.Store, *storage.File) {
	t.Helper()
	f := TestFile(t, content)
	opts = append([]store.Option{store.WithLogger(Logger())}, opts...)
	s, err := store.Open(context.Background(), f, TestSequence(t), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s, f
}

// Commitment returns a valid commitment with the given id and title.
func Commitment(id, title string) models.Commitment {
	return models.Commitment{
		ID:             id,
		Title:          title,
		Description:    "Details: " + title,
		DateTime:       "2025-04-01T10:00:00",
		Location:       models.DefaultLocation,
		SourceApp:      "Slack",
		NotificationID: "notif-" + title,
		CommitmentType: "meeting",
		Reminded:       models.FlagFalse,
		Duration:       "1 hour",
		Deleted:        models.FlagFalse,
	}
}
