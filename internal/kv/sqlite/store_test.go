package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetMissingKey(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "kv.db"))

	_, ok, err := s.Get(context.Background(), "ngo-registrations")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetOverwrites(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "kv.db"))
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "ngo-registrations", "[1,2]"))
	require.NoError(t, s.Set(ctx, "ngo-registrations", "[2]"))

	v, ok, err := s.Get(ctx, "ngo-registrations")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[2]", v)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	ctx := context.Background()

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "k", "[3,7]"))
	require.NoError(t, first.Close())

	second := openTestStore(t, path)
	v, ok, err := second.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[3,7]", v)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestNilStore(t *testing.T) {
	var s *Store
	assert.NoError(t, s.Close())
	assert.Error(t, s.Set(context.Background(), "k", "v"))
}
