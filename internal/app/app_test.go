package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metcalfc/readaloud/internal/config"
	"github.com/metcalfc/readaloud/internal/document"
	"github.com/metcalfc/readaloud/internal/logger"
	"github.com/metcalfc/readaloud/internal/reader"
	"github.com/metcalfc/readaloud/internal/state"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Library.Store = "memory"
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := New(cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestImportText(t *testing.T) {
	a := newTestApp(t, nil)
	ctx := context.Background()
	path := writeFile(t, "field-notes.txt", "The quick fox.\n\nJumps now.")

	var statuses []string
	doc, existed, err := a.Import(ctx, path, func(s string) { statuses = append(statuses, s) })
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, "field-notes", doc.Title)
	assert.Equal(t, document.FormatText, doc.Format)
	assert.Equal(t, 5, doc.TotalWords())
	assert.Equal(t, state.ComputeHash([]byte("The quick fox.\n\nJumps now.")), doc.ID)
	assert.NotEmpty(t, statuses)
	assert.Nil(t, doc.Raw)

	again, existed, err := a.Import(ctx, path, nil)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, doc.ID, again.ID)

	list, err := a.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestImportMarkdownChapters(t *testing.T) {
	a := newTestApp(t, nil)
	path := writeFile(t, "guide.md", "# Intro\n\nFirst words here.\n\n# Usage\n\nMore words follow.")

	doc, _, err := a.Import(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, document.FormatMarkdown, doc.Format)
	require.Len(t, doc.Chapters, 2)
	assert.Equal(t, "Usage", doc.Chapters[1].Title)
}

func TestImportFailures(t *testing.T) {
	a := newTestApp(t, nil)
	ctx := context.Background()

	_, _, err := a.Import(ctx, writeFile(t, "blank.txt", " \n\t "), nil)
	assert.ErrorIs(t, err, reader.ErrEmptyDocument)

	_, _, err = a.Import(ctx, filepath.Join(t.TempDir(), "missing.txt"), nil)
	assert.Error(t, err)

	_, _, err = a.ImportBytes(ctx, "broken.epub", []byte("not a zip"), nil)
	assert.ErrorIs(t, err, reader.ErrCorruptArchive)
}

func TestResolve(t *testing.T) {
	a := newTestApp(t, nil)
	ctx := context.Background()

	one, _, err := a.ImportBytes(ctx, "one.txt", []byte("first document"), nil)
	require.NoError(t, err)
	two, _, err := a.ImportBytes(ctx, "two.txt", []byte("second document"), nil)
	require.NoError(t, err)

	got, err := a.Resolve(ctx, one.ID)
	require.NoError(t, err)
	assert.Equal(t, one.ID, got.ID)

	got, err = a.Resolve(ctx, two.ID[:12])
	require.NoError(t, err)
	assert.Equal(t, two.ID, got.ID)

	_, err = a.Resolve(ctx, "")
	assert.Error(t, err)

	_, err = a.Resolve(ctx, "zzzz")
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestOpenSystemBackend(t *testing.T) {
	a := newTestApp(t, nil)
	ctx := context.Background()

	doc, _, err := a.ImportBytes(ctx, "book.txt", []byte("one two three four"), nil)
	require.NoError(t, err)
	require.NoError(t, a.Store().UpdateProgress(ctx, doc.ID, 2))
	doc, err = a.Resolve(ctx, doc.ID)
	require.NoError(t, err)

	c, err := a.Open(ctx, doc, false)
	require.NoError(t, err)
	s := c.Snapshot()
	assert.Equal(t, 2, s.Cursor)
	assert.Equal(t, "system", s.Backend)
	require.NoError(t, c.Close())
}

func TestOpenFresh(t *testing.T) {
	a := newTestApp(t, nil)
	ctx := context.Background()

	doc, _, err := a.ImportBytes(ctx, "book.txt", []byte("one two three four"), nil)
	require.NoError(t, err)
	doc.Cursor = 3

	c, err := a.Open(ctx, doc, true)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, 0, c.Snapshot().Cursor)

	stored, err := a.Store().Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Cursor)
}

func TestOpenRemoteBackend(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) {
		cfg.Playback.Backend = "remote"
		cfg.Synthesis.Mode = "mock"
	})
	ctx := context.Background()

	doc, _, err := a.ImportBytes(ctx, "book.txt", []byte("one two three"), nil)
	require.NoError(t, err)

	c, err := a.Open(ctx, doc, false)
	require.NoError(t, err)
	defer c.Close()
	s := c.Snapshot()
	assert.Equal(t, "remote", s.Backend)
	assert.False(t, s.FellBack)
}

func TestOpenRemoteNATSWithoutServer(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) {
		cfg.Playback.Backend = "remote"
		cfg.Synthesis.Mode = "nats"
		cfg.Synthesis.NATSURL = "nats://127.0.0.1:1"
	})
	doc, _, err := a.ImportBytes(context.Background(), "book.txt", []byte("one two three"), nil)
	require.NoError(t, err)

	_, err = a.Open(context.Background(), doc, false)
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	a := newTestApp(t, nil)
	ctx := context.Background()

	doc, _, err := a.ImportBytes(ctx, "gone.txt", []byte("short lived"), nil)
	require.NoError(t, err)
	require.NoError(t, a.Remove(ctx, doc.ID[:8]))

	_, err = a.Store().Get(ctx, doc.ID)
	assert.ErrorIs(t, err, state.ErrNotFound)
	assert.Error(t, a.Remove(ctx, doc.ID))
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenStore(config.LibraryConfig{Store: "json", Path: filepath.Join(dir, "json")})
	require.NoError(t, err)
	assert.IsType(t, &state.FileStore{}, s)
	require.NoError(t, s.Close())

	s, err = OpenStore(config.LibraryConfig{Store: "sqlite", Path: filepath.Join(dir, "library.db")})
	require.NoError(t, err)
	assert.IsType(t, &state.SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = OpenStore(config.LibraryConfig{Store: "redis"})
	assert.Error(t, err)
}
