package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipts/internal/storage"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, "token")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set(ctx, "token", "a"))
	require.NoError(t, s.Set(ctx, "refreshToken", "r"))

	v, err := s.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	require.NoError(t, s.Delete(ctx, "token", "refreshToken", "missing"))

	_, err = s.Get(ctx, "refreshToken")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemory_SetMany(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.SetMany(ctx, map[string]string{"token": "a", "refreshToken": "r"}))

	v, err := s.Get(ctx, "refreshToken")
	require.NoError(t, err)
	assert.Equal(t, "r", v)
}
