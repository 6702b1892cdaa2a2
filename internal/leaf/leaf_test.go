package leaf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starfinanz/realm-core/internal/memstore"
)

func TestLeafAppendAndGet(t *testing.T) {
	store := memstore.New()
	l, err := New(store, 0)
	require.NoError(t, err)

	for _, v := range []int64{10, 20, 30} {
		require.NoError(t, l.Append(v))
	}

	assert.Equal(t, 3, l.Size())
	assert.Equal(t, int64(10), l.Get(0))
	assert.Equal(t, int64(20), l.Get(1))
	assert.Equal(t, int64(30), l.Get(2))
}

func TestLeafInsertShiftsRight(t *testing.T) {
	store := memstore.New()
	l, err := New(store, 0)
	require.NoError(t, err)
	require.NoError(t, l.Append(1))
	require.NoError(t, l.Append(3))
	require.NoError(t, l.Insert(1, 2))

	assert.Equal(t, []int64{1, 2, 3}, collect(l))
}

func TestLeafEraseShiftsLeft(t *testing.T) {
	store := memstore.New()
	l, err := New(store, 0)
	require.NoError(t, err)
	for _, v := range []int64{1, 2, 3} {
		require.NoError(t, l.Append(v))
	}
	l.Erase(1)

	assert.Equal(t, []int64{1, 3}, collect(l))
}

func TestLeafFindFirst(t *testing.T) {
	store := memstore.New()
	l, err := New(store, 0)
	require.NoError(t, err)
	for _, v := range []int64{5, 3, 3, 7} {
		require.NoError(t, l.Append(v))
	}

	assert.Equal(t, 1, l.FindFirst(3))
	assert.Equal(t, -1, l.FindFirst(99))
}

func TestLeafGrowsBeyondInitialCapacity(t *testing.T) {
	store := memstore.New()
	l, err := New(store, 1)
	require.NoError(t, err)
	for i := int64(0); i < 100; i++ {
		require.NoError(t, l.Append(i))
	}
	assert.Equal(t, 100, l.Size())
	for i := int64(0); i < 100; i++ {
		assert.Equal(t, i, l.Get(int(i)))
	}
}

func TestLeafDestroyFreesStorage(t *testing.T) {
	store := memstore.New()
	l, err := New(store, 0)
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())
	l.Destroy()
	assert.Equal(t, 0, store.Len())
}

func TestLeafOpenReconstitutes(t *testing.T) {
	store := memstore.New()
	l, err := New(store, 0)
	require.NoError(t, err)
	require.NoError(t, l.Append(42))
	ref := l.Ref()

	reopened := Open(store, ref)
	assert.Equal(t, 1, reopened.Size())
	assert.Equal(t, int64(42), reopened.Get(0))
}

func collect(l *Leaf) []int64 {
	out := make([]int64, 0, l.Size())
	l.Each(func(_ int, v int64) bool {
		out = append(out, v)
		return true
	})
	return out
}
