package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"lunaalba-client/internal/core/store"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	fs, err := store.NewFileStore(path)
	require.NoError(t, err)

	_, err = fs.Get(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, fs.Set(ctx, "token", "abc123"))
	v, err := fs.Get(ctx, "token")
	require.NoError(t, err)
	require.Equal(t, "abc123", v)

	require.NoError(t, fs.Delete(ctx, "token"))
	_, err = fs.Get(ctx, "token")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Deleting an absent key is a no-op.
	require.NoError(t, fs.Delete(ctx, "token"))
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	fs, err := store.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, fs.Set(ctx, "refresh", "tok-1"))
	require.NoError(t, fs.Set(ctx, "other", "tok-2"))

	reopened, err := store.NewFileStore(path)
	require.NoError(t, err)

	v, err := reopened.Get(ctx, "refresh")
	require.NoError(t, err)
	require.Equal(t, "tok-1", v)
	v, err = reopened.Get(ctx, "other")
	require.NoError(t, err)
	require.Equal(t, "tok-2", v)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()

	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, store.SaveJSON(ctx, ms, "rec", record{Name: "a", Count: 3}))

	var got record
	require.NoError(t, store.GetJSON(ctx, ms, "rec", &got))
	require.Equal(t, record{Name: "a", Count: 3}, got)

	err := store.GetJSON(ctx, ms, "absent", &got)
	require.ErrorIs(t, err, store.ErrNotFound)
}
