package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plotwise/chartcache/core"
	"github.com/plotwise/chartcache/kv"
)

// testPolicy keeps small fixtures eligible.
var testPolicy = EligibilityPolicy{MinBytes: 1, MaxBytes: 10 * 1024 * 1024}

func newTestStore(t *testing.T) kv.Store {
	t.Helper()
	store, err := kv.NewFileStore(afero.NewMemMapFs(), "/cache", 0)
	require.NoError(t, err)
	return store
}

func newTestRepo(t *testing.T) (*Repository, kv.Store) {
	t.Helper()
	store := newTestStore(t)
	return NewRepository(store, testPolicy), store
}

func testFileData(name string, rows int) *FileData {
	data := &FileData{
		FileID:     "file-" + name,
		FileName:   name,
		Columns:    []string{"date", "amount"},
		UploadedAt: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
	}
	for i := 0; i < rows; i++ {
		data.Rows = append(data.Rows, core.Row{
			"date":   fmt.Sprintf("2025-03-%02d", i%28+1),
			"amount": float64(i * 10),
		})
	}
	data.RowCount = rows
	return data
}

func TestRepositoryRoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	stored := testFileData("sales.csv", 25)
	require.NoError(t, repo.Store(ctx, stored))

	loaded, err := repo.Load(ctx, "sales.csv")
	require.NoError(t, err)

	assert.Equal(t, stored.FileID, loaded.FileID)
	assert.Equal(t, stored.FileName, loaded.FileName)
	assert.Equal(t, stored.Columns, loaded.Columns)
	assert.Equal(t, stored.Rows, loaded.Rows)
	assert.Equal(t, 25, loaded.RowCount)
	assert.Greater(t, loaded.CompressedSizeKB, 0.0)
	assert.True(t, loaded.UploadedAt.Equal(stored.UploadedAt))
}

func TestRepositoryIsEligible(t *testing.T) {
	repo := NewRepository(nil, EligibilityPolicy{MinBytes: 512, MaxBytes: 4096})

	tests := []struct {
		name string
		size int64
		want bool
	}{
		{"below lower bound", 511, false},
		{"at lower bound", 512, true},
		{"inside range", 2048, true},
		{"just below upper bound", 4095, true},
		{"at upper bound", 4096, false},
		{"above upper bound", 8192, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repo.IsEligible(tt.size))
		})
	}
}

func TestRepositoryStoreRejectsIneligible(t *testing.T) {
	store := newTestStore(t)
	// Bounds no realistic payload satisfies, so Store must refuse.
	repo := NewRepository(store, EligibilityPolicy{MinBytes: 1, MaxBytes: 2})
	ctx := context.Background()

	err := repo.Store(ctx, testFileData("big.csv", 10))
	assert.ErrorIs(t, err, ErrNotEligible)

	// Rejection does not persist anything.
	assert.False(t, repo.Exists(ctx, "big.csv"))
	names, err := repo.ListFileNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestRepositoryLoadMiss(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.Load(context.Background(), "nope.csv")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRepositoryLoadCorruptRecord(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{"file_name": truncated`},
		{"row count mismatch", `{"file_name":"x.csv","columns":["a"],"rows":[{"a":1}],"row_count":5}`},
		{"row missing column", `{"file_name":"x.csv","columns":["a","b"],"rows":[{"a":1,"c":2}],"row_count":1}`},
		{"missing file name", `{"columns":["a"],"rows":[],"row_count":0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "x.csv", []byte(tt.payload)))

			_, err := repo.Load(ctx, "x.csv")
			assert.ErrorIs(t, err, ErrCorruptRecord)
		})
	}
}

func TestRepositorySweepCorrupt(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, testFileData("good.csv", 5)))
	require.NoError(t, store.Put(ctx, "bad.csv", []byte("garbage")))

	removed, err := repo.SweepCorrupt(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bad.csv"}, removed)

	assert.True(t, repo.Exists(ctx, "good.csv"))
	assert.False(t, repo.Exists(ctx, "bad.csv"))
}

func TestRepositoryRemove(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, testFileData("sales.csv", 5)))
	require.NoError(t, repo.Remove(ctx, "sales.csv"))
	assert.False(t, repo.Exists(ctx, "sales.csv"))

	assert.ErrorIs(t, repo.Remove(ctx, "sales.csv"), ErrCacheMiss)
}

func TestRepositoryQuotaExceeded(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := kv.NewFileStore(fs, "/cache", 2048)
	require.NoError(t, err)
	repo := NewRepository(store, testPolicy)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, testFileData("small.csv", 10)))

	err = repo.Store(ctx, testFileData("big.csv", 100))
	assert.ErrorIs(t, err, kv.ErrQuotaExceeded)

	names, err := repo.ListFileNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"small.csv"}, names)
}

func TestRepositoryStorageInfo(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, testFileData("a.csv", 10)))
	require.NoError(t, repo.Store(ctx, testFileData("b.csv", 20)))
	// Corrupt entries are skipped, not counted and not fatal.
	require.NoError(t, store.Put(ctx, "bad.csv", []byte("garbage")))

	info, err := repo.StorageInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, info.FileCount)
	assert.Greater(t, info.TotalSizeKB, 0.0)
	assert.InDelta(t, info.TotalSizeKB/1024, info.TotalSizeMB, 0.01)
}

func TestRepositoryClearResetsStorageInfo(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, testFileData("a.csv", 10)))
	require.NoError(t, repo.Clear(ctx))

	info, err := repo.StorageInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, StorageInfo{FileCount: 0, TotalSizeKB: 0, TotalSizeMB: 0}, info)
}
