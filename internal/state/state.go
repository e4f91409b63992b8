// Package state persists documents, reading positions and bookmarks.
package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"

	"github.com/metcalfc/readaloud/internal/document"
)

const hashBytes = 8192 // First 8KB for content hash

// ErrNotFound is returned when a document id is unknown.
var ErrNotFound = errors.New("document not found")

// Gateway stores documents. UpdateProgress only touches the cursor; Put
// replaces the whole document including bookmarks.
type Gateway interface {
	Get(ctx context.Context, id string) (*document.Document, error)
	Put(ctx context.Context, doc *document.Document) error
	UpdateProgress(ctx context.Context, id string, index int) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]document.Summary, error)
	Close() error
}

// StateDir returns XDG_STATE_HOME/readaloud or ~/.local/state/readaloud
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "readaloud")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "readaloud")
}

// ComputeHash derives a document id from its leading bytes.
func ComputeHash(data []byte) string {
	if len(data) > hashBytes {
		data = data[:hashBytes]
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16]) // First 16 bytes = 32 hex chars
}

// clone deep-copies the parts of a document a store hands out.
func clone(doc *document.Document) *document.Document {
	out := *doc
	out.Blocks = append([]document.Block(nil), doc.Blocks...)
	out.Chapters = append([]document.Chapter(nil), doc.Chapters...)
	out.Bookmarks = append([]document.Bookmark(nil), doc.Bookmarks...)
	out.Raw = append([]byte(nil), doc.Raw...)
	return &out
}
