package linklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starfinanz/realm-core/internal/memstore"
	"github.com/starfinanz/realm-core/pkg/linkcore"
)

func noopCascadeHook(linkcore.TableIndex, linkcore.RowIndex) {}

func TestListAddAndGet(t *testing.T) {
	store := memstore.New()
	col, err := New(store, 0, 0, 1, linkcore.Weak, 1, 3)
	require.NoError(t, err)

	l := col.Get(0)
	assert.Equal(t, 0, l.Size())
	require.NoError(t, l.Add(0))
	require.NoError(t, l.Add(1))
	require.NoError(t, l.Add(0))

	assert.Equal(t, 3, l.Size())
	assert.Equal(t, linkcore.RowIndex(0), l.Get(0))
	assert.Equal(t, linkcore.RowIndex(1), l.Get(1))
	assert.Equal(t, linkcore.RowIndex(0), l.Get(2))
	assert.Equal(t, 2, col.Backlink().GetBacklinkCount(0))
	assert.Equal(t, 1, col.Backlink().GetBacklinkCount(1))
}

func TestListGetReturnsSharedHandle(t *testing.T) {
	store := memstore.New()
	col, err := New(store, 0, 0, 1, linkcore.Weak, 1, 1)
	require.NoError(t, err)

	a := col.Get(0)
	b := col.Get(0)
	require.NoError(t, a.Add(0))

	assert.Equal(t, 1, b.Size(), "Get should return the same live handle for a live row")
}

func TestListInsertAtPosition(t *testing.T) {
	store := memstore.New()
	col, err := New(store, 0, 0, 1, linkcore.Weak, 1, 3)
	require.NoError(t, err)
	l := col.Get(0)
	require.NoError(t, l.Add(0))
	require.NoError(t, l.Add(2))

	require.NoError(t, l.Insert(1, 1))
	assert.Equal(t, []linkcore.RowIndex{0, 1, 2}, collect(l))
}

func TestListInsertOutOfRange(t *testing.T) {
	store := memstore.New()
	col, err := New(store, 0, 0, 1, linkcore.Weak, 1, 1)
	require.NoError(t, err)
	l := col.Get(0)

	err = l.Insert(5, 0)
	assert.ErrorIs(t, err, linkcore.ErrLinkIndexOutOfRange)
}

func TestListSetReplacesElementAndBacklinks(t *testing.T) {
	store := memstore.New()
	col, err := New(store, 0, 0, 1, linkcore.Weak, 1, 2)
	require.NoError(t, err)
	l := col.Get(0)
	require.NoError(t, l.Add(0))

	old, err := l.Set(0, 1, noopCascadeHook)
	require.NoError(t, err)
	assert.Equal(t, linkcore.RowIndex(0), old)
	assert.Equal(t, linkcore.RowIndex(1), l.Get(0))
	assert.Equal(t, 0, col.Backlink().GetBacklinkCount(0))
	assert.Equal(t, 1, col.Backlink().GetBacklinkCount(1))
}

func TestListSetStrongLinkTriggersCascadeCheck(t *testing.T) {
	store := memstore.New()
	col, err := New(store, 0, 0, 1, linkcore.Strong, 1, 2)
	require.NoError(t, err)
	l := col.Get(0)
	require.NoError(t, l.Add(0))

	called := false
	_, err = l.Set(0, 1, func(table linkcore.TableIndex, row linkcore.RowIndex) {
		called = true
		assert.Equal(t, linkcore.TableIndex(1), table)
		assert.Equal(t, linkcore.RowIndex(0), row)
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestListMoveRotatesElements(t *testing.T) {
	store := memstore.New()
	col, err := New(store, 0, 0, 1, linkcore.Weak, 1, 3)
	require.NoError(t, err)
	l := col.Get(0)
	for _, v := range []linkcore.RowIndex{0, 1, 2} {
		require.NoError(t, l.Add(v))
	}

	require.NoError(t, l.Move(0, 2))
	assert.Equal(t, []linkcore.RowIndex{1, 2, 0}, collect(l))
}

func TestListSwapCanonicalizesOrder(t *testing.T) {
	store := memstore.New()
	col, err := New(store, 0, 0, 1, linkcore.Weak, 1, 3)
	require.NoError(t, err)
	l := col.Get(0)
	for _, v := range []linkcore.RowIndex{0, 1, 2} {
		require.NoError(t, l.Add(v))
	}

	require.NoError(t, l.Swap(2, 0))
	assert.Equal(t, []linkcore.RowIndex{2, 1, 0}, collect(l))
}

func TestListRemoveDestroysSequenceWhenLastElement(t *testing.T) {
	store := memstore.New()
	col, err := New(store, 0, 0, 1, linkcore.Weak, 1, 1)
	require.NoError(t, err)
	l := col.Get(0)
	require.NoError(t, l.Add(0))
	before := store.Len()

	old, err := l.Remove(0, noopCascadeHook)
	require.NoError(t, err)
	assert.Equal(t, linkcore.RowIndex(0), old)
	assert.Equal(t, 0, l.Size())
	assert.Less(t, store.Len(), before)
	assert.Equal(t, 0, col.Backlink().GetBacklinkCount(0))
}

func TestListClearRemovesEveryElementOnce(t *testing.T) {
	store := memstore.New()
	col, err := New(store, 0, 0, 1, linkcore.Strong, 1, 2)
	require.NoError(t, err)
	l := col.Get(0)
	require.NoError(t, l.Add(0))
	require.NoError(t, l.Add(0))
	require.NoError(t, l.Add(1))

	var checkedTargets []linkcore.RowIndex
	require.NoError(t, l.Clear(func(_ linkcore.TableIndex, row linkcore.RowIndex) {
		checkedTargets = append(checkedTargets, row)
	}))

	assert.Equal(t, 0, l.Size())
	assert.ElementsMatch(t, []linkcore.RowIndex{0, 1}, checkedTargets)
}

func TestListDetachedAccessorFailsPredictably(t *testing.T) {
	store := memstore.New()
	col, err := New(store, 0, 0, 1, linkcore.Weak, 2, 1)
	require.NoError(t, err)
	l := col.Get(0)
	require.NoError(t, l.Add(0))

	col.EraseRows(0, 1, 2, false)

	err = l.Add(0)
	assert.ErrorIs(t, err, linkcore.ErrDetachedAccessor)
}

func TestListSurvivesRowMotion(t *testing.T) {
	store := memstore.New()
	col, err := New(store, 0, 0, 1, linkcore.Weak, 3, 1)
	require.NoError(t, err)

	l := col.Get(2)
	require.NoError(t, l.Add(0))

	col.MoveLastRowOver(0, 3, false)

	assert.Equal(t, linkcore.RowIndex(0), l.Row())
	assert.Equal(t, 1, l.Size())
}

func collect(l *List) []linkcore.RowIndex {
	out := make([]linkcore.RowIndex, 0, l.Size())
	for i := 0; i < l.Size(); i++ {
		out = append(out, l.Get(i))
	}
	return out
}
