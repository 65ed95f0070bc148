package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newFileStore(t *testing.T) *Store {
	t.Helper()
	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)
	store, err := New(backend)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStorePutGetRoundTrip(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := Record{
		ID:        "req-1",
		UserInput: "Build a CRM",
		Status:    "processing",
		CreatedAt: created,
	}
	require.NoError(t, store.Put(ctx, rec))

	got, err := store.Get(ctx, "req-1")
	require.NoError(t, err)
	require.Equal(t, "Build a CRM", got.UserInput)
	require.Equal(t, "processing", got.Status)
	require.True(t, got.CreatedAt.Equal(created))
}

func TestStoreGetMissing(t *testing.T) {
	store := newFileStore(t)

	_, err := store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreUpdateReplacesStatusAndResult(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	rec := Record{ID: "req-2", UserInput: "x", Status: "processing", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Put(ctx, rec))

	done := time.Now().UTC()
	rec.Status = "completed"
	rec.CompletedAt = &done
	rec.Result = map[string]any{"success": true}
	require.NoError(t, store.Put(ctx, rec))

	got, err := store.Get(ctx, "req-2")
	require.NoError(t, err)
	require.Equal(t, "completed", got.Status)
	require.NotNil(t, got.CompletedAt)
	require.Equal(t, true, got.Result["success"])
}

func TestStoreListNewestFirst(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Put(ctx, Record{
			ID:        id,
			UserInput: id,
			Status:    "completed",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	recs, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "c", recs[0].ID)
	require.Equal(t, "b", recs[1].ID)
}

func TestFileBackendSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	ctx := context.Background()

	first, err := NewFileBackend(path)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, Record{ID: "r1", UserInput: "x", Status: "completed", CreatedAt: time.Now().UTC()}))

	second, err := NewFileBackend(path)
	require.NoError(t, err)
	got, err := second.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "x", got.UserInput)
}
