package registration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ngoexplorer/internal/kv"
)

func TestToggleIsInvolution(t *testing.T) {
	sets := []Set{NewSet(), NewSet(1), NewSet(1, 2, 3), NewSet(5, 9)}
	for _, s := range sets {
		for _, id := range []int{1, 4, 9} {
			twice := Toggle(Toggle(s, id), id)
			assert.True(t, twice.Equal(s), "toggle twice of %v with %d gave %v", s.IDs(), id, twice.IDs())
		}
	}
}

func TestToggleChangesByExactlyOne(t *testing.T) {
	s := NewSet(1, 2)

	added := Toggle(s, 3)
	assert.Equal(t, []int{1, 2, 3}, added.IDs())

	removed := Toggle(s, 2)
	assert.Equal(t, []int{1}, removed.IDs())

	assert.Equal(t, []int{1, 2}, s.IDs(), "input set must not change")
}

func TestZeroSet(t *testing.T) {
	var s Set
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Has(1))
	assert.Equal(t, []int{1}, Toggle(s, 1).IDs())
}

func TestNewSetDeduplicates(t *testing.T) {
	assert.Equal(t, []int{3, 7}, NewSet(7, 3, 7, 3).IDs())
}

func TestPersistLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, want := range []Set{NewSet(), NewSet(42), NewSet(12, 1, 5)} {
		store := kv.NewMemory()
		require.NoError(t, Persist(ctx, store, DefaultKey, want))

		got, err := Load(ctx, store, DefaultKey)
		require.NoError(t, err)
		assert.True(t, got.Equal(want), "want %v got %v", want.IDs(), got.IDs())
	}
}

func TestPersistWritesJSONArray(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	require.NoError(t, Persist(ctx, store, DefaultKey, NewSet(7, 3)))
	raw, ok, err := store.Get(ctx, DefaultKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "[3,7]", raw)

	require.NoError(t, Persist(ctx, store, DefaultKey, NewSet()))
	raw, _, _ = store.Get(ctx, DefaultKey)
	assert.Equal(t, "[]", raw)
}

func TestLoadAbsentSlotIsEmpty(t *testing.T) {
	s, err := Load(context.Background(), kv.NewMemory(), DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestLoadMalformed(t *testing.T) {
	ctx := context.Background()
	for _, raw := range []string{"{", `["a"]`, `{"id":1}`, "null", "1.5", `[1.5]`} {
		store := kv.NewMemory()
		require.NoError(t, store.Set(ctx, DefaultKey, raw))

		_, err := Load(ctx, store, DefaultKey)
		assert.ErrorIs(t, err, ErrMalformed, "raw %q", raw)
	}
}

func TestLoadDuplicatesCollapse(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, DefaultKey, "[3,3,7]"))

	s, err := Load(ctx, store, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 7}, s.IDs())
}

func TestRegistrySurvivesRestart(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	r, err := Open(ctx, store, DefaultKey, PolicyFail)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Count())

	_, err = r.Toggle(ctx, 3)
	require.NoError(t, err)
	_, err = r.Toggle(ctx, 7)
	require.NoError(t, err)

	reopened, err := Open(ctx, store, DefaultKey, PolicyFail)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Count())
	assert.True(t, reopened.Has(3))
	assert.True(t, reopened.Has(7))
}

func TestRegistryFoldMatchesReload(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	seq := []int{1, 2, 1, 5, 2, 2, 9}

	r, err := Open(ctx, store, DefaultKey, PolicyFail)
	require.NoError(t, err)
	want := NewSet()
	for _, id := range seq {
		_, err := r.Toggle(ctx, id)
		require.NoError(t, err)
		want = Toggle(want, id)
	}

	reopened, err := Open(ctx, store, DefaultKey, PolicyFail)
	require.NoError(t, err)
	assert.True(t, reopened.Set().Equal(want))
	assert.Equal(t, []int{2, 5, 9}, reopened.Set().IDs())
}

func TestOpenMalformedPolicies(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, DefaultKey, "not json"))

	_, err := Open(ctx, store, DefaultKey, PolicyFail)
	assert.ErrorIs(t, err, ErrMalformed)

	r, err := Open(ctx, store, DefaultKey, PolicyReset)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Count())

	raw, _, _ := store.Get(ctx, DefaultKey)
	assert.Equal(t, "not json", raw, "reset must not rewrite the slot on open")

	_, err = r.Toggle(ctx, 4)
	require.NoError(t, err)
	raw, _, _ = store.Get(ctx, DefaultKey)
	assert.Equal(t, "[4]", raw)
}

func TestOpenCorruptFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registrations.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	store, err := kv.NewFile(path)
	require.NoError(t, err)

	_, err = Open(ctx, store, DefaultKey, PolicyFail)
	assert.ErrorIs(t, err, kv.ErrCorrupt)

	r, err := Open(ctx, store, DefaultKey, PolicyReset)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Count())

	_, err = r.Toggle(ctx, 6)
	require.NoError(t, err)
	reopened, err := Open(ctx, store, DefaultKey, PolicyFail)
	require.NoError(t, err)
	assert.Equal(t, []int{6}, reopened.Set().IDs())
}

type failingStore struct {
	kv.Store
	setErr error
}

func (f failingStore) Set(context.Context, string, string) error { return f.setErr }

func TestToggleWriteFailureKeepsSet(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	store := failingStore{Store: kv.NewMemory(), setErr: boom}

	r, err := Open(ctx, store, DefaultKey, PolicyFail)
	require.NoError(t, err)

	notified := 0
	r.Subscribe(func(Set) { notified++ })

	_, err = r.Toggle(ctx, 1)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, 0, notified)
}

func TestSubscribeAndCancel(t *testing.T) {
	ctx := context.Background()
	r, err := Open(ctx, kv.NewMemory(), "", PolicyFail)
	require.NoError(t, err)

	var seen []int
	cancel := r.Subscribe(func(s Set) { seen = append(seen, s.Len()) })

	_, err = r.Toggle(ctx, 1)
	require.NoError(t, err)
	_, err = r.Toggle(ctx, 2)
	require.NoError(t, err)
	cancel()
	_, err = r.Toggle(ctx, 3)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, seen)
}

func TestOpenNilStore(t *testing.T) {
	_, err := Open(context.Background(), nil, DefaultKey, PolicyFail)
	assert.Error(t, err)
}
