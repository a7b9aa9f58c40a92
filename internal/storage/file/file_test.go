package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipts/internal/storage"
)

func TestFile_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	first := New(path)
	_, err := first.Get(ctx, "token")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, first.Set(ctx, "token", "a"))
	require.NoError(t, first.Set(ctx, "refreshToken", "r"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second := New(path)
	v, err := second.Get(ctx, "refreshToken")
	require.NoError(t, err)
	assert.Equal(t, "r", v)

	require.NoError(t, second.Delete(ctx, "token", "refreshToken"))
	_, err = first.Get(ctx, "token")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFile_Corrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := New(path).Get(context.Background(), "token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}

func TestFile_SetMany(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	repo := New(path)

	require.NoError(t, repo.Set(ctx, "darkMode", "true"))
	require.NoError(t, repo.SetMany(ctx, map[string]string{"token": "a", "refreshToken": "r"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"darkMode":"true","token":"a","refreshToken":"r"}`, string(raw))
}
