package cascade

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starfinanz/realm-core/internal/backlink"
	"github.com/starfinanz/realm-core/internal/memstore"
	"github.com/starfinanz/realm-core/pkg/linkcore"
)

// fakeGraph is a minimal Graph double wired entirely from backlink.Column
// values so BreakBacklinksTo's traversal can be exercised without pulling
// in linkcolumn or linklist.
type fakeGraph struct {
	incoming map[linkcore.TableIndex][]*backlink.Column
	outgoing map[linkcore.TableIndex][]OutgoingColumn
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		incoming: make(map[linkcore.TableIndex][]*backlink.Column),
		outgoing: make(map[linkcore.TableIndex][]OutgoingColumn),
	}
}

func (g *fakeGraph) IncomingBacklinks(table linkcore.TableIndex) []*backlink.Column {
	return g.incoming[table]
}

func (g *fakeGraph) OutgoingColumns(table linkcore.TableIndex) []OutgoingColumn {
	return g.outgoing[table]
}

// fakeForward is a ForwardSide double that models exactly one outgoing
// slot per origin row. It is the ForwardSide of the backlink.Column under
// test and also implements OutgoingColumn itself, so BreakBacklinksTo's
// second phase (clearing a removed row's own outgoing contribution) has
// something to call.
type fakeForward struct {
	table    linkcore.TableIndex
	index    int
	target   linkcore.TableIndex
	strength linkcore.LinkStrength
	backlink *backlink.Column

	slots map[linkcore.RowIndex]linkcore.RowIndex
}

func (f *fakeForward) TableIndex() linkcore.TableIndex { return f.table }
func (f *fakeForward) ColumnIndex() int                { return f.index }
func (f *fakeForward) Strength() linkcore.LinkStrength { return f.strength }
func (f *fakeForward) Target() linkcore.TableIndex     { return f.target }

func (f *fakeForward) NullifyOccurrence(origin, target linkcore.RowIndex) {
	delete(f.slots, origin)
}

func (f *fakeForward) AdjustForwardTarget(origin, oldTarget, newTarget linkcore.RowIndex) {
	f.slots[origin] = newTarget
}

func (f *fakeForward) link(origin, target linkcore.RowIndex) {
	f.slots[origin] = target
	if err := f.backlink.AddBacklink(target, origin); err != nil {
		panic(err)
	}
}

// BacklinkCount and BreakOwnOutgoing implement OutgoingColumn.
func (f *fakeForward) BacklinkCount(target linkcore.RowIndex) int {
	return f.backlink.GetBacklinkCount(target)
}

func (f *fakeForward) BreakOwnOutgoing(row linkcore.RowIndex) []linkcore.RowIndex {
	target, ok := f.slots[row]
	if !ok {
		return nil
	}
	f.backlink.RemoveOneBacklink(target, row)
	delete(f.slots, row)
	return []linkcore.RowIndex{target}
}

func newFakeForward(t *testing.T, table linkcore.TableIndex, index int, target linkcore.TableIndex, strength linkcore.LinkStrength, targetRowCount int) *fakeForward {
	store := memstore.New()
	f := &fakeForward{table: table, index: index, target: target, strength: strength, slots: map[linkcore.RowIndex]linkcore.RowIndex{}}
	bc, err := backlink.NewColumn(store, f, targetRowCount)
	if err != nil {
		t.Fatalf("backlink.NewColumn: %v", err)
	}
	f.backlink = bc
	return f
}

const (
	tableA linkcore.TableIndex = 0
	tableB linkcore.TableIndex = 1
)

func TestBreakBacklinksToNullifiesWeakLinks(t *testing.T) {
	g := newFakeGraph()
	fwd := newFakeForward(t, tableA, 0, tableB, linkcore.Weak, 1)
	fwd.link(5, 0)
	g.incoming[tableB] = []*backlink.Column{fwd.backlink}

	state := linkcore.NewCascadeState(true)
	CheckBreakBacklinksTo(g, linkcore.RowRef{Table: tableB, Row: 0}, state)

	_, ok := fwd.slots[5]
	assert.False(t, ok, "NullifyOccurrence should have deleted the weak origin's slot")
	assert.Len(t, state.Links, 1)
	assert.Equal(t, tableA, state.Links[0].OriginTable)
	assert.Equal(t, linkcore.RowIndex(5), state.Links[0].OriginRow)
	assert.Equal(t, linkcore.RowIndex(0), state.Links[0].OldTarget)
	// The target row itself is queued for removal; the weak origin is not.
	assert.Equal(t, []linkcore.RowRef{{Table: tableB, Row: 0}}, state.Rows)
}

func TestBreakBacklinksToRemovesStrongOrigins(t *testing.T) {
	g := newFakeGraph()
	fwd := newFakeForward(t, tableA, 0, tableB, linkcore.Strong, 1)
	fwd.link(7, 0)
	g.incoming[tableB] = []*backlink.Column{fwd.backlink}
	g.outgoing[tableA] = []OutgoingColumn{fwd}

	state := linkcore.NewCascadeState(true)
	CheckBreakBacklinksTo(g, linkcore.RowRef{Table: tableB, Row: 0}, state)

	assert.ElementsMatch(t, []linkcore.RowRef{
		{Table: tableB, Row: 0},
		{Table: tableA, Row: 7},
	}, state.Rows)
	assert.Empty(t, state.Links, "a strong link removal is not a nullification")
}

func TestBreakBacklinksToTransitiveStrongChain(t *testing.T) {
	// tableA row2 --strong--> tableB row0 --strong--> tableC row0
	g := newFakeGraph()
	const tableC linkcore.TableIndex = 2

	abFwd := newFakeForward(t, tableA, 0, tableB, linkcore.Strong, 1)
	abFwd.link(2, 0)
	g.incoming[tableB] = []*backlink.Column{abFwd.backlink}
	g.outgoing[tableA] = []OutgoingColumn{abFwd}

	bcFwd := newFakeForward(t, tableB, 0, tableC, linkcore.Strong, 1)
	bcFwd.link(0, 0)
	g.incoming[tableC] = []*backlink.Column{bcFwd.backlink}
	g.outgoing[tableB] = []OutgoingColumn{bcFwd}

	state := linkcore.NewCascadeState(true)
	CheckBreakBacklinksTo(g, linkcore.RowRef{Table: tableC, Row: 0}, state)

	assert.ElementsMatch(t, []linkcore.RowRef{
		{Table: tableC, Row: 0},
		{Table: tableB, Row: 0},
		{Table: tableA, Row: 2},
	}, state.Rows)
}

func TestCheckBreakBacklinksToDoesNotRevisitRows(t *testing.T) {
	g := newFakeGraph()
	state := linkcore.NewCascadeState(true)
	ref := linkcore.RowRef{Table: tableA, Row: 3}

	CheckBreakBacklinksTo(g, ref, state)
	assert.Len(t, state.Rows, 1)
	CheckBreakBacklinksTo(g, ref, state)
	assert.Len(t, state.Rows, 1, "a row already queued must not be traversed twice")
}

// fakeRemover records the order MoveLastRowOverBrokenReciprocal is called in.
type fakeRemover struct {
	calls []linkcore.RowRef
}

func (r *fakeRemover) MoveLastRowOverBrokenReciprocal(table linkcore.TableIndex, row linkcore.RowIndex) {
	r.calls = append(r.calls, linkcore.RowRef{Table: table, Row: row})
}

func TestApplyProcessesEachTableDescending(t *testing.T) {
	state := linkcore.NewCascadeState(false)
	state.InsertRow(linkcore.RowRef{Table: tableA, Row: 1})
	state.InsertRow(linkcore.RowRef{Table: tableA, Row: 3})
	state.InsertRow(linkcore.RowRef{Table: tableA, Row: 5})
	state.InsertRow(linkcore.RowRef{Table: tableB, Row: 0})

	remover := &fakeRemover{}
	Apply(remover, state)

	assert.Equal(t, []linkcore.RowRef{
		{Table: tableA, Row: 5},
		{Table: tableA, Row: 3},
		{Table: tableA, Row: 1},
		{Table: tableB, Row: 0},
	}, remover.calls)
}
