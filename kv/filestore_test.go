package kv

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileStore(t *testing.T, maxBytes int64) *FileStore {
	t.Helper()
	store, err := NewFileStore(afero.NewMemMapFs(), "/cache", maxBytes)
	require.NoError(t, err)
	return store
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := newFileStore(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "sales.csv", []byte(`{"a":1}`)))

	got, err := store.Get(ctx, "sales.csv")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), got)

	require.NoError(t, store.Delete(ctx, "sales.csv"))
	_, err = store.Get(ctx, "sales.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreKeysEscaping(t *testing.T) {
	store := newFileStore(t, 0)
	ctx := context.Background()

	// Keys can carry characters the filesystem would mangle.
	names := []string{"sales report.csv", "a/b.csv", "metrics?.csv"}
	for _, name := range names {
		require.NoError(t, store.Put(ctx, name, []byte("x")))
	}

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, names, keys)
}

func TestFileStoreQuota(t *testing.T) {
	store := newFileStore(t, 16)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a.csv", []byte("0123456789")))

	err := store.Put(ctx, "b.csv", []byte("0123456789"))
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// The rejected file is not listed afterward.
	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv"}, keys)
}

func TestFileStoreQuotaOverwriteExistingKey(t *testing.T) {
	store := newFileStore(t, 16)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a.csv", []byte("0123456789")))
	// Overwriting an existing record counts against the freed size, not on
	// top of it.
	require.NoError(t, store.Put(ctx, "a.csv", []byte("0123456789abcdef")))
}

func TestFileStoreGetMissing(t *testing.T) {
	store := newFileStore(t, 0)

	_, err := store.Get(context.Background(), "nope.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreClear(t *testing.T) {
	store := newFileStore(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a.csv", []byte("a")))
	require.NoError(t, store.Put(ctx, "b.csv", []byte("b")))
	require.NoError(t, store.Clear(ctx))

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFileStoreUnavailableBacking(t *testing.T) {
	readonly := afero.NewReadOnlyFs(afero.NewMemMapFs())

	_, err := NewFileStore(readonly, "/cache", 0)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFileStoreNilFs(t *testing.T) {
	_, err := NewFileStore(nil, "/cache", 0)
	assert.ErrorIs(t, err, ErrUnavailable)
}
