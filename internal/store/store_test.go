package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{"memory": NewMemory(), "sqlite": sq}
}

func TestStore_SetGetRemove(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			got, err := s.Get(ctx, "missing")
			require.NoError(t, err)
			assert.Empty(t, got)

			require.NoError(t, s.Set(ctx, map[string][]byte{
				"a": []byte(`{"n":1}`),
				"b": []byte(`{"n":2}`),
			}))

			got, err = s.Get(ctx, "a", "b", "missing")
			require.NoError(t, err)
			assert.Equal(t, []byte(`{"n":1}`), got["a"])
			assert.Equal(t, []byte(`{"n":2}`), got["b"])
			_, ok := got["missing"]
			assert.False(t, ok)

			// Overwrite upserts.
			require.NoError(t, s.Set(ctx, map[string][]byte{"a": []byte(`{"n":3}`)}))
			got, err = s.Get(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, []byte(`{"n":3}`), got["a"])

			require.NoError(t, s.Remove(ctx, "a"))
			got, err = s.Get(ctx, "a", "b")
			require.NoError(t, err)
			_, ok = got["a"]
			assert.False(t, ok)
			assert.Contains(t, got, "b")
		})
	}
}

func TestStore_EmptyKeyList(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Get(context.Background())
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, map[string][]byte{"k": []byte("v")}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got["k"])
}

func TestMemory_CopiesValues(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	val := []byte("original")
	require.NoError(t, m.Set(ctx, map[string][]byte{"k": val}))
	val[0] = 'X'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got["k"])

	// Mutating the returned slice must not leak back into the store.
	got["k"][0] = 'Y'
	got2, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got2["k"])
}
