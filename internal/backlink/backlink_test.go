package backlink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starfinanz/realm-core/internal/memstore"
	"github.com/starfinanz/realm-core/pkg/linkcore"
)

// fakeForward is a minimal ForwardSide double that records the slots it
// was asked to adjust or clear, for tests that only care about backlink
// bookkeeping and not a real link/link-list column.
type fakeForward struct {
	table    linkcore.TableIndex
	index    int
	strength linkcore.LinkStrength

	nullified []linkcore.RowIndex
	adjusted  []linkcore.RowIndex
}

func (f *fakeForward) TableIndex() linkcore.TableIndex    { return f.table }
func (f *fakeForward) ColumnIndex() int                   { return f.index }
func (f *fakeForward) Strength() linkcore.LinkStrength    { return f.strength }
func (f *fakeForward) NullifyOccurrence(origin, target linkcore.RowIndex) {
	f.nullified = append(f.nullified, origin)
}
func (f *fakeForward) AdjustForwardTarget(origin, oldTarget, newTarget linkcore.RowIndex) {
	f.adjusted = append(f.adjusted, origin)
}

func newTestColumn(t *testing.T, rowCount int) (*Column, *memstore.Store, *fakeForward) {
	t.Helper()
	store := memstore.New()
	fwd := &fakeForward{strength: linkcore.Strong}
	col, err := NewColumn(store, fwd, rowCount)
	require.NoError(t, err)
	return col, store, fwd
}

func TestBacklinkSingletonPromotesToSequence(t *testing.T) {
	col, _, _ := newTestColumn(t, 1)

	require.NoError(t, col.AddBacklink(0, 10))
	assert.Equal(t, 1, col.GetBacklinkCount(0))
	assert.Equal(t, linkcore.RowIndex(10), col.GetBacklink(0, 0))

	require.NoError(t, col.AddBacklink(0, 20))
	assert.Equal(t, 2, col.GetBacklinkCount(0))

	require.NoError(t, col.AddBacklink(0, 30))
	assert.Equal(t, 3, col.GetBacklinkCount(0))
}

func TestBacklinkRemoveOneDemotesToSingleton(t *testing.T) {
	col, _, _ := newTestColumn(t, 1)
	require.NoError(t, col.AddBacklink(0, 10))
	require.NoError(t, col.AddBacklink(0, 20))

	col.RemoveOneBacklink(0, 10)
	assert.Equal(t, 1, col.GetBacklinkCount(0))
	assert.Equal(t, linkcore.RowIndex(20), col.GetBacklink(0, 0))

	col.RemoveOneBacklink(0, 20)
	assert.Equal(t, 0, col.GetBacklinkCount(0))
}

func TestBacklinkRemoveOneMissingPanics(t *testing.T) {
	col, _, _ := newTestColumn(t, 1)
	require.NoError(t, col.AddBacklink(0, 10))
	assert.Panics(t, func() { col.RemoveOneBacklink(0, 99) })
}

func TestBacklinkUpdateBacklinkSingletonAndSequence(t *testing.T) {
	col, _, _ := newTestColumn(t, 1)
	require.NoError(t, col.AddBacklink(0, 10))
	col.UpdateBacklink(0, 10, 11)
	assert.Equal(t, linkcore.RowIndex(11), col.GetBacklink(0, 0))

	require.NoError(t, col.AddBacklink(0, 12))
	col.UpdateBacklink(0, 12, 13)
	found := false
	for i := 0; i < col.GetBacklinkCount(0); i++ {
		if col.GetBacklink(0, i) == 13 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBacklinkSwapBacklinks(t *testing.T) {
	col, _, _ := newTestColumn(t, 1)
	require.NoError(t, col.AddBacklink(0, 10))
	require.NoError(t, col.AddBacklink(0, 20))
	require.NoError(t, col.AddBacklink(0, 30))

	col.SwapBacklinks(0, 10, 20)

	var got []linkcore.RowIndex
	for i := 0; i < col.GetBacklinkCount(0); i++ {
		got = append(got, col.GetBacklink(0, i))
	}
	assert.ElementsMatch(t, []linkcore.RowIndex{20, 10, 30}, got)
}

func TestBacklinkForEachLinkDestroy(t *testing.T) {
	col, store, _ := newTestColumn(t, 1)
	require.NoError(t, col.AddBacklink(0, 10))
	require.NoError(t, col.AddBacklink(0, 20))
	before := store.Len()

	var seen []linkcore.RowIndex
	col.ForEachLink(0, true, func(o linkcore.RowIndex) { seen = append(seen, o) })

	assert.ElementsMatch(t, []linkcore.RowIndex{10, 20}, seen)
	assert.Equal(t, 0, col.GetBacklinkCount(0))
	assert.Less(t, store.Len(), before, "destroy should free the spilled sequence")
}

func TestBacklinkEraseRowsRequiresEmpty(t *testing.T) {
	col, _, _ := newTestColumn(t, 2)
	require.NoError(t, col.AddBacklink(0, 10))
	assert.Panics(t, func() { col.EraseRows(0, 1) })

	col.RemoveOneBacklink(0, 10)
	assert.NotPanics(t, func() { col.EraseRows(0, 1) })
}

func TestBacklinkMoveLastRowOverRetargets(t *testing.T) {
	col, _, fwd := newTestColumn(t, 3)
	require.NoError(t, col.AddBacklink(2, 10))
	require.NoError(t, col.AddBacklink(2, 20))

	col.MoveLastRowOver(0, 3, true)

	assert.Equal(t, 2, col.GetBacklinkCount(0))
	assert.ElementsMatch(t, []linkcore.RowIndex{10, 20}, fwd.adjusted)
}

func TestBacklinkMoveLastRowOverPanicsIfTargetStillLinked(t *testing.T) {
	col, _, _ := newTestColumn(t, 2)
	require.NoError(t, col.AddBacklink(0, 10))
	assert.Panics(t, func() { col.MoveLastRowOver(0, 2, true) })
}

func TestBacklinkSwapRowsRetargetsBothSides(t *testing.T) {
	col, _, fwd := newTestColumn(t, 2)
	require.NoError(t, col.AddBacklink(0, 10))
	require.NoError(t, col.AddBacklink(1, 20))

	col.SwapRows(0, 1)

	assert.Equal(t, linkcore.RowIndex(20), col.GetBacklink(0, 0))
	assert.Equal(t, linkcore.RowIndex(10), col.GetBacklink(1, 0))
	assert.ElementsMatch(t, []linkcore.RowIndex{10, 20}, fwd.adjusted)
}
