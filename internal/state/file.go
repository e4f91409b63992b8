package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/metcalfc/readaloud/internal/document"
)

const (
	stateFileName = "reading_positions.json"
	documentsDir  = "documents"
)

// ReadingState stores position for a single document
type ReadingState struct {
	WordIndex int `json:"word_index"`
}

// FileStore keeps one JSON file per document plus a shared positions file,
// so progress writes do not rewrite whole books.
type FileStore struct {
	dir       string
	positions map[string]ReadingState
	mu        sync.RWMutex
}

// NewFileStore creates or loads state under dir. An empty dir means StateDir().
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = StateDir()
	}
	if err := os.MkdirAll(filepath.Join(dir, documentsDir), 0755); err != nil {
		return nil, err
	}

	store := &FileStore{
		dir:       dir,
		positions: make(map[string]ReadingState),
	}
	if err := store.load(); err != nil {
		// Non-fatal - start with empty positions
		store.positions = make(map[string]ReadingState)
	}
	return store, nil
}

func (s *FileStore) docPath(id string) string {
	return filepath.Join(s.dir, documentsDir, id+".json")
}

func (s *FileStore) rawPath(id string) string {
	return filepath.Join(s.dir, documentsDir, id+".raw")
}

func (s *FileStore) Get(ctx context.Context, id string) (*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(id)
}

func (s *FileStore) read(id string) (*document.Document, error) {
	data, err := os.ReadFile(s.docPath(id))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var doc document.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	if raw, err := os.ReadFile(s.rawPath(id)); err == nil {
		doc.Raw = raw
	}
	if pos, ok := s.positions[id]; ok {
		doc.Cursor = pos.WordIndex
	}
	return &doc, nil
}

func (s *FileStore) Put(ctx context.Context, doc *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.docPath(doc.ID), data, 0644); err != nil {
		return err
	}
	if len(doc.Raw) > 0 {
		if err := os.WriteFile(s.rawPath(doc.ID), doc.Raw, 0644); err != nil {
			return err
		}
	}
	s.positions[doc.ID] = ReadingState{WordIndex: doc.Cursor}
	return s.save()
}

func (s *FileStore) UpdateProgress(ctx context.Context, id string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.docPath(id)); os.IsNotExist(err) {
		return ErrNotFound
	}
	s.positions[id] = ReadingState{WordIndex: index}
	return s.save()
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.docPath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	os.Remove(s.rawPath(id))
	delete(s.positions, id)
	return s.save()
}

func (s *FileStore) List(ctx context.Context) ([]document.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(s.dir, documentsDir))
	if err != nil {
		return nil, err
	}
	var out []document.Summary
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".json")]
		doc, err := s.read(id)
		if err != nil {
			continue
		}
		out = append(out, doc.Summarize())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ImportedAt.After(out[j].ImportedAt) })
	return out, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) load() error {
	data, err := os.ReadFile(filepath.Join(s.dir, stateFileName))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &s.positions)
}

func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.positions, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, stateFileName), data, 0644)
}
