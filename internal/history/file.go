package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileBackend keeps all records in a single JSON file. Intended for local
// runs where standing up postgres is not worth it; every write rewrites
// the whole file.
type FileBackend struct {
	mu   sync.Mutex
	path string
}

func NewFileBackend(path string) (*FileBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("history: file path must be non-empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create dir: %w", err)
		}
	}
	return &FileBackend{path: path}, nil
}

func (b *FileBackend) load() (map[string]Record, error) {
	raw, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return map[string]Record{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return map[string]Record{}, nil
	}
	var recs map[string]Record
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("history: decode %s: %w", b.path, err)
	}
	return recs, nil
}

func (b *FileBackend) save(recs map[string]Record) error {
	raw, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return err
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, b.path)
}

func (b *FileBackend) Put(_ context.Context, rec Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	recs, err := b.load()
	if err != nil {
		return err
	}
	recs[rec.ID] = rec
	return b.save(recs)
}

func (b *FileBackend) Get(_ context.Context, id string) (Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	recs, err := b.load()
	if err != nil {
		return Record{}, err
	}
	rec, ok := recs[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (b *FileBackend) List(_ context.Context, limit int) ([]Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	recs, err := b.load()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (b *FileBackend) Close() error { return nil }
