package store

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rapidmidiex/rmxscore/score"
)

// Memory keeps documents in a map. When opened with a path, every write is
// followed by a gob snapshot of all documents to that file.
type Memory struct {
	mu    sync.RWMutex
	docs  map[string]score.Document
	order []string
	path  string
}

// snapshot is the on-disk form of a Memory store.
type snapshot struct {
	Docs []score.Document
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]score.Document)}
}

// OpenFile loads the snapshot at path, if it exists, and keeps saving to it.
func OpenFile(path string) (*Memory, error) {
	m := NewMemory()
	m.path = path

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode store %s: %w", path, err)
	}
	for _, doc := range snap.Docs {
		m.docs[doc.ID] = doc.Normalize()
		m.order = append(m.order, doc.ID)
	}
	return m, nil
}

func (m *Memory) Create(ctx context.Context, doc score.Document) (score.Document, error) {
	if err := ctx.Err(); err != nil {
		return score.Document{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc = clone(doc.Normalize())
	doc.ID = NewID()
	m.docs[doc.ID] = doc
	m.order = append(m.order, doc.ID)
	if err := m.save(); err != nil {
		delete(m.docs, doc.ID)
		m.order = m.order[:len(m.order)-1]
		return score.Document{}, err
	}
	return clone(doc), nil
}

func (m *Memory) Get(ctx context.Context, id string) (score.Document, error) {
	if err := ctx.Err(); err != nil {
		return score.Document{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[id]
	if !ok {
		return score.Document{}, fmt.Errorf("get %q: %w", id, ErrNotFound)
	}
	return clone(doc), nil
}

func (m *Memory) Update(ctx context.Context, id string, p Patch) (score.Document, error) {
	if err := ctx.Err(); err != nil {
		return score.Document{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[id]
	if !ok {
		return score.Document{}, fmt.Errorf("update %q: %w", id, ErrNotFound)
	}
	prev := doc
	doc = p.Apply(doc)
	m.docs[id] = doc
	if err := m.save(); err != nil {
		m.docs[id] = prev
		return score.Document{}, err
	}
	return clone(doc), nil
}

func (m *Memory) List(ctx context.Context) ([]score.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]score.Document, 0, len(m.order))
	for _, id := range m.order {
		docs = append(docs, clone(m.docs[id]))
	}
	return docs, nil
}

// save writes the snapshot next to the target and renames it into place.
// Callers hold mu.
func (m *Memory) save() error {
	if m.path == "" {
		return nil
	}
	snap := snapshot{Docs: make([]score.Document, 0, len(m.order))}
	for _, id := range m.order {
		snap.Docs = append(snap.Docs, m.docs[id])
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), filepath.Base(m.path)+".*")
	if err != nil {
		return fmt.Errorf("save store: %w", err)
	}
	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save store: %w", err)
	}
	return os.Rename(tmp.Name(), m.path)
}
