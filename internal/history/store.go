// Package history records pipeline runs so clients can poll status and
// fetch results after the fact. Two backends are provided: postgres for
// deployments and a JSON file for local runs.
package history

import (
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

var ErrNotFound = errors.New("history: request not found")

// Record is one pipeline run as exposed to clients.
type Record struct {
	ID          string         `json:"request_id"`
	UserInput   string         `json:"user_input"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Result      map[string]any `json:"result,omitempty"`
}

// Backend is the persistence contract shared by postgres and file stores.
type Backend interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// Store fronts a Backend with a small read cache. Writes go through to the
// backend and refresh the cache entry.
type Store struct {
	backend Backend
	cache   *lru.Cache[string, Record]
}

func New(backend Backend) (*Store, error) {
	cache, err := lru.New[string, Record](256)
	if err != nil {
		return nil, err
	}
	return &Store{backend: backend, cache: cache}, nil
}

// NewFromConfig selects the backend: a non-empty DSN means postgres,
// otherwise the file store.
func NewFromConfig(dsn, path string) (*Store, error) {
	var (
		backend Backend
		err     error
	)
	if dsn != "" {
		backend, err = NewPostgresBackend(dsn)
	} else {
		backend, err = NewFileBackend(path)
	}
	if err != nil {
		return nil, err
	}
	return New(backend)
}

func (s *Store) Put(ctx context.Context, rec Record) error {
	if err := s.backend.Put(ctx, rec); err != nil {
		return err
	}
	s.cache.Add(rec.ID, rec)
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	if rec, ok := s.cache.Get(id); ok {
		return rec, nil
	}
	rec, err := s.backend.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	s.cache.Add(id, rec)
	return rec, nil
}

func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	return s.backend.List(ctx, limit)
}

func (s *Store) Close() error {
	return s.backend.Close()
}
