package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipts/internal/storage"
	"receipts/internal/storage/memory"
)

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore(memory.New())

	access, err := s.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, access)

	require.NoError(t, s.Save(ctx, "A", "R"))

	access, err = s.AccessToken(ctx)
	require.NoError(t, err)
	refresh, err := s.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", access)
	assert.Equal(t, "R", refresh)

	require.NoError(t, s.Clear(ctx))

	pair, err := s.Pair(ctx)
	require.NoError(t, err)
	assert.Empty(t, pair.AccessToken)
	assert.Empty(t, pair.RefreshToken)
}

func TestStore_NoFormatValidation(t *testing.T) {
	ctx := context.Background()
	s := NewStore(memory.New())

	require.NoError(t, s.Save(ctx, "not a jwt at all", ""))
	access, err := s.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "not a jwt at all", access)
}

// recordingStorage считает записи и падает на SetMany по требованию.
type recordingStorage struct {
	storage.Storage
	sets     int
	batches  []map[string]string
	failMany error
}

func (r *recordingStorage) Set(ctx context.Context, key, value string) error {
	r.sets++
	return r.Storage.Set(ctx, key, value)
}

func (r *recordingStorage) SetMany(ctx context.Context, values map[string]string) error {
	if r.failMany != nil {
		return r.failMany
	}
	r.batches = append(r.batches, values)
	return r.Storage.SetMany(ctx, values)
}

func TestStore_SaveWritesPairAtOnce(t *testing.T) {
	ctx := context.Background()
	rec := &recordingStorage{Storage: memory.New()}
	s := NewStore(rec)

	require.NoError(t, s.Save(ctx, "A", "R"))

	assert.Zero(t, rec.sets)
	require.Len(t, rec.batches, 1)
	assert.Equal(t, map[string]string{AccessKey: "A", RefreshKey: "R"}, rec.batches[0])
}

func TestStore_SaveFailureKeepsOldPair(t *testing.T) {
	ctx := context.Background()
	rec := &recordingStorage{Storage: memory.New()}
	s := NewStore(rec)
	require.NoError(t, s.Save(ctx, "A1", "R1"))

	rec.failMany = errors.New("disk full")
	require.Error(t, s.Save(ctx, "A2", "R2"))

	pair, err := s.Pair(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A1", pair.AccessToken)
	assert.Equal(t, "R1", pair.RefreshToken)
}

func TestStore_NonPersistent(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.Noop{})

	require.NoError(t, s.Save(ctx, "A", "R"))
	access, err := s.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, access)
	require.NoError(t, s.Clear(ctx))
}

func TestInspect(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"session": "user-1:cli",
		"email":   "john@example.com",
		"exp":     exp.Unix(),
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)

	claims, err := Inspect(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1:cli", claims.Subject)
	assert.Equal(t, "john@example.com", claims.Email)
	assert.True(t, exp.Equal(claims.ExpiresAt))
	assert.False(t, claims.Expired(time.Now()))
	assert.True(t, claims.Expired(exp.Add(time.Second)))
}

func TestInspect_Opaque(t *testing.T) {
	_, err := Inspect("opaque-token")
	assert.ErrorIs(t, err, ErrNotJWT)

	_, err = Inspect("")
	assert.ErrorIs(t, err, ErrNotJWT)
}
