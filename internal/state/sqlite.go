package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/metcalfc/readaloud/internal/document"
)

// SQLiteStore implements Gateway using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		author      TEXT,
		format      TEXT NOT NULL,
		blocks      TEXT NOT NULL,
		chapters    TEXT NOT NULL,
		raw         BLOB,
		cursor      INTEGER NOT NULL DEFAULT 0,
		total_words INTEGER NOT NULL DEFAULT 0,
		imported_at TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_imported ON documents(imported_at DESC);

	CREATE TABLE IF NOT EXISTS bookmarks (
		id          TEXT NOT NULL,
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		word_index  INTEGER NOT NULL,
		label       TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		PRIMARY KEY (document_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_bookmarks_document ON bookmarks(document_id, word_index);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*document.Document, error) {
	var (
		doc                     document.Document
		author                  sql.NullString
		blocks, chapters, impAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, author, format, blocks, chapters, raw, cursor, imported_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Title, &author, &doc.Format, &blocks, &chapters, &doc.Raw, &doc.Cursor, &impAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	doc.Author = author.String
	doc.ImportedAt, _ = time.Parse(time.RFC3339Nano, impAt)
	if err := json.Unmarshal([]byte(blocks), &doc.Blocks); err != nil {
		return nil, fmt.Errorf("decode blocks: %w", err)
	}
	if err := json.Unmarshal([]byte(chapters), &doc.Chapters); err != nil {
		return nil, fmt.Errorf("decode chapters: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, word_index, label, created_at FROM bookmarks
		 WHERE document_id = ? ORDER BY word_index, created_at`, id)
	if err != nil {
		return nil, fmt.Errorf("get bookmarks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			b         document.Bookmark
			createdAt string
		)
		if err := rows.Scan(&b.ID, &b.Index, &b.Label, &createdAt); err != nil {
			return nil, err
		}
		b.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		doc.Bookmarks = append(doc.Bookmarks, b)
	}
	return &doc, rows.Err()
}

func (s *SQLiteStore) Put(ctx context.Context, doc *document.Document) error {
	blocks, err := json.Marshal(doc.Blocks)
	if err != nil {
		return err
	}
	chapters, err := json.Marshal(doc.Chapters)
	if err != nil {
		return err
	}
	if doc.Chapters == nil {
		chapters = []byte("[]")
	}
	now := time.Now().UTC()
	importedAt := doc.ImportedAt
	if importedAt.IsZero() {
		importedAt = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, title, author, format, blocks, chapters, raw, cursor, total_words, imported_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, author = excluded.author, format = excluded.format,
			blocks = excluded.blocks, chapters = excluded.chapters, raw = excluded.raw,
			cursor = excluded.cursor, total_words = excluded.total_words, updated_at = excluded.updated_at`,
		doc.ID, doc.Title, doc.Author, string(doc.Format), string(blocks), string(chapters), doc.Raw,
		doc.Cursor, doc.TotalWords(), importedAt.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookmarks WHERE document_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("clear bookmarks: %w", err)
	}
	for _, b := range doc.Bookmarks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO bookmarks (id, document_id, word_index, label, created_at) VALUES (?, ?, ?, ?, ?)`,
			b.ID, doc.ID, b.Index, b.Label, b.CreatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("put bookmark: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) UpdateProgress(ctx context.Context, id string, index int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET cursor = ?, updated_at = ? WHERE id = ?`,
		index, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]document.Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, author, format, cursor, total_words, imported_at
		 FROM documents ORDER BY imported_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []document.Summary
	for rows.Next() {
		var (
			sum    document.Summary
			author sql.NullString
			impAt  string
		)
		if err := rows.Scan(&sum.ID, &sum.Title, &author, &sum.Format, &sum.Cursor, &sum.TotalWords, &impAt); err != nil {
			return nil, err
		}
		sum.Author = author.String
		sum.ImportedAt, _ = time.Parse(time.RFC3339Nano, impAt)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
