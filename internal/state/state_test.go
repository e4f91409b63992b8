package state

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/metcalfc/readaloud/internal/document"
)

func TestComputeHash(t *testing.T) {
	hash1 := ComputeHash([]byte("Hello, World!"))
	hash2 := ComputeHash([]byte("Different content"))
	hash3 := ComputeHash([]byte("Hello, World!"))

	// Same content = same hash
	if hash1 != hash3 {
		t.Errorf("Same content should produce same hash: %s != %s", hash1, hash3)
	}

	// Different content = different hash
	if hash1 == hash2 {
		t.Errorf("Different content should produce different hash")
	}

	// Hash should be 32 hex chars
	if len(hash1) != 32 {
		t.Errorf("Hash should be 32 chars, got %d", len(hash1))
	}
}

func TestComputeHashUsesPrefix(t *testing.T) {
	prefix := strings.Repeat("a", hashBytes)
	if ComputeHash([]byte(prefix+"tail one")) != ComputeHash([]byte(prefix+"tail two")) {
		t.Error("bytes past the hashed prefix should not change the id")
	}
	if len(ComputeHash([]byte("tiny"))) != 32 {
		t.Error("Hash should be 32 chars even for small input")
	}
}

func TestStateDir(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg")
	if got := StateDir(); got != filepath.Join("/tmp/xdg", "readaloud") {
		t.Errorf("StateDir() = %q", got)
	}
}

func sampleDocument() *document.Document {
	return &document.Document{
		ID:     "abcdef1234567890abcdef1234567890",
		Title:  "Sample",
		Author: "Someone",
		Format: document.FormatEPUB,
		Blocks: []document.Block{
			{Words: []string{"The", "quick", "fox"}, Start: 0},
			{Words: []string{"jumps", "now"}, Start: 3},
		},
		Chapters:   []document.Chapter{{Title: "One", Start: 0}, {Title: "Two", Start: 3, Page: 2}},
		Raw:        []byte("raw payload"),
		Cursor:     2,
		ImportedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Bookmarks: []document.Bookmark{
			{ID: "01HZY", Index: 3, Label: "jumps now", CreatedAt: time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)},
		},
	}
}

// gateways returns one fresh instance of every store implementation.
func gateways(t *testing.T) map[string]Gateway {
	t.Helper()
	dir := t.TempDir()

	files, err := NewFileStore(filepath.Join(dir, "files"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	db, err := NewSQLiteStore(filepath.Join(dir, "db", "library.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return map[string]Gateway{
		"file":   files,
		"sqlite": db,
		"memory": NewMemoryStore(),
	}
}

func TestGatewayRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			want := sampleDocument()
			if err := store.Put(ctx, want); err != nil {
				t.Fatalf("Put failed: %v", err)
			}

			got, err := store.Get(ctx, want.ID)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.Title != want.Title || got.Author != want.Author || got.Format != want.Format {
				t.Errorf("metadata = %q/%q/%q", got.Title, got.Author, got.Format)
			}
			if got.TotalWords() != 5 || len(got.Blocks) != 2 || got.Blocks[1].Words[1] != "now" {
				t.Errorf("blocks = %+v", got.Blocks)
			}
			if len(got.Chapters) != 2 || got.Chapters[1] != want.Chapters[1] {
				t.Errorf("chapters = %+v", got.Chapters)
			}
			if string(got.Raw) != "raw payload" {
				t.Errorf("raw = %q", got.Raw)
			}
			if got.Cursor != 2 {
				t.Errorf("cursor = %d, want 2", got.Cursor)
			}
			if !got.ImportedAt.Equal(want.ImportedAt) {
				t.Errorf("imported at = %v", got.ImportedAt)
			}
			if len(got.Bookmarks) != 1 || got.Bookmarks[0].Label != "jumps now" || !got.Bookmarks[0].CreatedAt.Equal(want.Bookmarks[0].CreatedAt) {
				t.Errorf("bookmarks = %+v", got.Bookmarks)
			}
		})
	}
}

func TestGatewayUpdateProgress(t *testing.T) {
	ctx := context.Background()
	for name, store := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			doc := sampleDocument()
			if err := store.Put(ctx, doc); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			if err := store.UpdateProgress(ctx, doc.ID, 4); err != nil {
				t.Fatalf("UpdateProgress failed: %v", err)
			}
			got, err := store.Get(ctx, doc.ID)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.Cursor != 4 {
				t.Errorf("Expected 4, got %d", got.Cursor)
			}

			if err := store.UpdateProgress(ctx, "missing", 1); !errors.Is(err, ErrNotFound) {
				t.Errorf("UpdateProgress(missing) = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestGatewayBookmarksReplaced(t *testing.T) {
	ctx := context.Background()
	for name, store := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			doc := sampleDocument()
			store.Put(ctx, doc)

			doc.Bookmarks = nil
			if err := store.Put(ctx, doc); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			got, err := store.Get(ctx, doc.ID)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if len(got.Bookmarks) != 0 {
				t.Errorf("bookmarks = %+v, want none", got.Bookmarks)
			}
		})
	}
}

func TestGatewayDeleteAndList(t *testing.T) {
	ctx := context.Background()
	for name, store := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			older := sampleDocument()
			newer := sampleDocument()
			newer.ID = "11111111111111111111111111111111"
			newer.Title = "Newer"
			newer.ImportedAt = older.ImportedAt.Add(time.Hour)
			if err := store.Put(ctx, older); err != nil {
				t.Fatalf("Put older failed: %v", err)
			}
			if err := store.Put(ctx, newer); err != nil {
				t.Fatalf("Put newer failed: %v", err)
			}

			list, err := store.List(ctx)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(list) != 2 || list[0].Title != "Newer" || list[1].TotalWords != 5 {
				t.Fatalf("list = %+v", list)
			}

			if err := store.Delete(ctx, older.ID); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, err := store.Get(ctx, older.ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after delete = %v, want ErrNotFound", err)
			}
			if err := store.Delete(ctx, older.ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("second Delete = %v, want ErrNotFound", err)
			}

			list, _ = store.List(ctx)
			if len(list) != 1 {
				t.Errorf("Expected 1 document after delete, got %d", len(list))
			}
		})
	}
}

func TestGatewayBookmarkIDsScopedToDocument(t *testing.T) {
	ctx := context.Background()
	for name, store := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			a := sampleDocument()
			b := sampleDocument()
			b.ID = "22222222222222222222222222222222"
			b.Bookmarks[0].Label = "other label"
			if err := store.Put(ctx, a); err != nil {
				t.Fatalf("Put a failed: %v", err)
			}
			if err := store.Put(ctx, b); err != nil {
				t.Fatalf("Put b with the same bookmark id failed: %v", err)
			}

			gotA, err := store.Get(ctx, a.ID)
			if err != nil {
				t.Fatalf("Get a failed: %v", err)
			}
			gotB, err := store.Get(ctx, b.ID)
			if err != nil {
				t.Fatalf("Get b failed: %v", err)
			}
			if len(gotA.Bookmarks) != 1 || gotA.Bookmarks[0].Label != "jumps now" {
				t.Errorf("a bookmarks = %+v", gotA.Bookmarks)
			}
			if len(gotB.Bookmarks) != 1 || gotB.Bookmarks[0].Label != "other label" {
				t.Errorf("b bookmarks = %+v", gotB.Bookmarks)
			}

			if err := store.Delete(ctx, a.ID); err != nil {
				t.Fatalf("Delete a failed: %v", err)
			}
			gotB, err = store.Get(ctx, b.ID)
			if err != nil {
				t.Fatalf("Get b after deleting a failed: %v", err)
			}
			if len(gotB.Bookmarks) != 1 {
				t.Errorf("b lost its bookmark when a was deleted: %+v", gotB.Bookmarks)
			}
		})
	}
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	doc := sampleDocument()
	store.Put(ctx, doc)

	doc.Blocks[0].Start = 99
	doc.Bookmarks[0].Label = "changed"

	got, _ := store.Get(ctx, doc.ID)
	if got.Bookmarks[0].Label != "jumps now" {
		t.Error("store should not alias caller bookmarks")
	}
}

func TestFileStorePersistence(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", tmpDir)
	ctx := context.Background()

	// Create store and set position
	store1, err := NewFileStore("")
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	doc := sampleDocument()
	store1.Put(ctx, doc)
	store1.UpdateProgress(ctx, doc.ID, 3)

	// Create new store instance - should load persisted data
	store2, err := NewFileStore("")
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	got, err := store2.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Cursor != 3 {
		t.Errorf("Expected 3 from persisted state, got %d", got.Cursor)
	}
}
