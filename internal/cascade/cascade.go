// Package cascade implements the cascade engine: given a row that is
// being removed (directly, or because a strong link into it just
// vanished), it walks the backlink graph to determine the full
// transitive closure of further removals and weak-link nullifications,
// accumulating them into a linkcore.CascadeState for the caller to
// notify and then apply.
package cascade

import (
	"github.com/starfinanz/realm-core/internal/backlink"
	"github.com/starfinanz/realm-core/pkg/linkcore"
)

// OutgoingColumn is implemented by linkcolumn.Column and linklist.Column
// so the engine can clear a row's own outgoing contribution during
// removal without importing either concrete package.
type OutgoingColumn interface {
	// ColumnIndex identifies this column among its table's other outgoing
	// columns, checked against a CascadeState's link-list stop cutoff.
	ColumnIndex() int
	Target() linkcore.TableIndex
	Strength() linkcore.LinkStrength
	// BreakOwnOutgoing clears row's entire outgoing contribution on this
	// column and returns the distinct target rows it referenced.
	BreakOwnOutgoing(row linkcore.RowIndex) []linkcore.RowIndex
	// BacklinkCount reports the current backlink count at target,
	// checked by the caller after BreakOwnOutgoing to decide whether a
	// further cascade check is warranted.
	BacklinkCount(target linkcore.RowIndex) int
}

// Graph is implemented by the table/group wiring layer. It lets the
// engine discover, for any table, the backlink columns receiving
// incoming links and the outgoing link/link-list columns it owns,
// without importing that layer (which in turn imports this package).
type Graph interface {
	IncomingBacklinks(table linkcore.TableIndex) []*backlink.Column
	OutgoingColumns(table linkcore.TableIndex) []OutgoingColumn
}

// CheckBreakBacklinksTo implements check_cascade_break_backlinks_to: it
// inserts row into state.Rows in sorted position if absent, and recurses
// into BreakBacklinksTo only on a fresh insert. Because every recursive
// step attempts this insert before traversing further, cycles cannot
// cause unbounded recursion.
func CheckBreakBacklinksTo(g Graph, row linkcore.RowRef, state *linkcore.CascadeState) {
	if state.ShouldStopAtTable(row.Table) {
		return
	}
	if !state.InsertRow(row) {
		return
	}
	BreakBacklinksTo(g, row, state)
}

// BreakBacklinksTo implements cascade_break_backlinks_to(target_row,
// state) for every column of target's table: first it severs every
// incoming forward link pointing at target (nullifying weak ones and
// queuing strong origins for removal in turn), then it clears target's
// own outgoing contributions (queuing further strong targets that just
// emptied out). target is assumed already present in state.Rows; the
// caller (CheckBreakBacklinksTo, or the top-level entry point) is
// responsible for that.
func BreakBacklinksTo(g Graph, target linkcore.RowRef, state *linkcore.CascadeState) {
	for _, bc := range g.IncomingBacklinks(target.Table) {
		fwd := bc.Forward()
		bc.ForEachLink(target.Row, true, func(origin linkcore.RowIndex) {
			fwd.NullifyOccurrence(origin, target.Row)
			switch fwd.Strength() {
			case linkcore.Strong:
				CheckBreakBacklinksTo(g, linkcore.RowRef{Table: fwd.TableIndex(), Row: origin}, state)
			default:
				state.AppendNullification(linkcore.LinkNullification{
					OriginTable:  fwd.TableIndex(),
					OriginColumn: fwd.ColumnIndex(),
					OriginRow:    origin,
					OldTarget:    target.Row,
				})
			}
		})
	}

	for _, col := range g.OutgoingColumns(target.Table) {
		if state.ShouldStopAtLinkListCell(target.Table, col.ColumnIndex(), target.Row) {
			// This exact cell is already being unwound element by element
			// by the Clear call that set the cutoff; processing it again
			// here would double-remove the backlinks it is still in the
			// middle of removing itself.
			continue
		}
		touched := col.BreakOwnOutgoing(target.Row)
		if col.Strength() != linkcore.Strong {
			continue
		}
		for _, t := range touched {
			if col.BacklinkCount(t) == 0 {
				CheckBreakBacklinksTo(g, linkcore.RowRef{Table: col.Target(), Row: t}, state)
			}
		}
	}
}

// RowRemover is implemented by the table/group wiring layer to apply the
// row removals a finished traversal accumulated.
type RowRemover interface {
	// MoveLastRowOverBrokenReciprocal removes row from table by moving
	// its last row into place, with broken_reciprocal=true: the caller
	// must have already severed every incoming and outgoing link to it
	// (which BreakBacklinksTo guarantees for every row in state.Rows by
	// the time traversal finishes).
	MoveLastRowOverBrokenReciprocal(table linkcore.TableIndex, row linkcore.RowIndex)
}

// Apply issues MoveLastRowOverBrokenReciprocal for every row in
// state.Rows. Within each table the rows are applied from the highest
// recorded index down to the lowest: MoveLastRowOver(at) relocates
// whatever currently sits at the table's last position into at, so
// removing a lower index first would silently invalidate a higher,
// not-yet-applied index recorded against the pre-cascade row space.
// Processing descending keeps every pending index valid throughout.
// state.Rows is sorted ascending by
// (table, row) for the notification's benefit; tables are otherwise
// applied in the order their first row was encountered.
func Apply(remover RowRemover, state *linkcore.CascadeState) {
	order := make([]linkcore.TableIndex, 0)
	byTable := make(map[linkcore.TableIndex][]linkcore.RowIndex)
	for _, ref := range state.Rows {
		if _, ok := byTable[ref.Table]; !ok {
			order = append(order, ref.Table)
		}
		byTable[ref.Table] = append(byTable[ref.Table], ref.Row)
	}
	for _, t := range order {
		rows := byTable[t]
		for i := len(rows) - 1; i >= 0; i-- {
			remover.MoveLastRowOverBrokenReciprocal(t, rows[i])
		}
	}
}
