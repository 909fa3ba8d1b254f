package embedcache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clipdex/clipdex/internal/config"
)

func newSqliteTestStore(t *testing.T) Store {
	t.Helper()
	store, err := New(config.CacheConfig{
		Backend: "sqlite",
		DBPath:  filepath.Join(t.TempDir(), "cache.db"),
	}, "clip-test")
	require.NoError(t, err)
	return store
}

func TestSqliteStore_PutGet(t *testing.T) {
	store := newSqliteTestStore(t)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Put(ctx, "h1", []float32{0.25, -0.5, 1}))
	values, ok, err := store.Get(ctx, "h1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float32{0.25, -0.5, 1}, values)
}

func TestSqliteStore_PutOverwrites(t *testing.T) {
	store := newSqliteTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "h1", []float32{1}))
	require.NoError(t, store.Put(ctx, "h1", []float32{2}))
	values, ok, err := store.Get(ctx, "h1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float32{2}, values)
}

func TestSqliteStore_DeleteBefore(t *testing.T) {
	store := newSqliteTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "h1", []float32{1}))
	pruner, ok := store.(Pruner)
	require.True(t, ok)

	deleted, err := pruner.DeleteBefore(ctx, time.Now().Add(time.Hour).Unix())
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	_, found, err := store.Get(ctx, "h1")
	require.NoError(t, err)
	require.False(t, found)
}
