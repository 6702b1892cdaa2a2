package group

import (
	"github.com/starfinanz/realm-core/internal/backlink"
	"github.com/starfinanz/realm-core/internal/cascade"
	"github.com/starfinanz/realm-core/internal/linkcolumn"
	"github.com/starfinanz/realm-core/internal/linklist"
	"github.com/starfinanz/realm-core/pkg/linkcore"
)

// Table owns a row count, the outgoing link and link-list columns it is
// the origin of, and the incoming backlink columns it is the target of
// (one per distinct origin (table, column) pair that links into it).
type Table struct {
	group *Group
	index linkcore.TableIndex

	rowCount int

	outgoingLink []*linkcolumn.Column
	outgoingList []*linklist.Column
	incoming     []*backlink.Column
}

// Index returns this table's stable TableIndex within its Group.
func (t *Table) Index() linkcore.TableIndex { return t.index }

// RowCount returns the table's current row count.
func (t *Table) RowCount() int { return t.rowCount }

// AddLinkColumn creates a single-valued link column on t pointing at
// target with the given strength, and returns its column index.
func (t *Table) AddLinkColumn(target *Table, strength linkcore.LinkStrength) (int, error) {
	col, err := newLinkColumn(t.group.alloc, t, target, strength)
	if err != nil {
		return 0, err
	}
	t.outgoingLink = append(t.outgoingLink, col)
	return col.ColumnIndex(), nil
}

// AddLinkListColumn creates a link-list column on t pointing at target
// with the given strength, and returns its column index.
func (t *Table) AddLinkListColumn(target *Table, strength linkcore.LinkStrength) (int, error) {
	col, err := newLinkListColumn(t.group.alloc, t, target, strength, t.group.repl)
	if err != nil {
		return 0, err
	}
	t.outgoingList = append(t.outgoingList, col)
	return col.ColumnIndex(), nil
}

func (t *Table) linkColumn(index int) (*linkcolumn.Column, error) {
	for _, c := range t.outgoingLink {
		if c.ColumnIndex() == index {
			return c, nil
		}
	}
	return nil, linkcore.ErrColumnNotFound
}

func (t *Table) listColumn(index int) (*linklist.Column, error) {
	for _, c := range t.outgoingList {
		if c.ColumnIndex() == index {
			return c, nil
		}
	}
	return nil, linkcore.ErrColumnNotFound
}

func (t *Table) checkRow(row linkcore.RowIndex) error {
	if row < 0 || int(row) >= t.rowCount {
		return linkcore.ErrRowOutOfRange
	}
	return nil
}

// GetLink reads column's slot at row.
func (t *Table) GetLink(column int, row linkcore.RowIndex) (linkcore.RowIndex, error) {
	if err := t.checkRow(row); err != nil {
		return linkcore.NullRow, err
	}
	c, err := t.linkColumn(column)
	if err != nil {
		return linkcore.NullRow, err
	}
	return c.GetLink(row), nil
}

// SetLink writes target into column's slot at row, returning the
// previous target and the cascade notification it triggered, if any.
func (t *Table) SetLink(column int, row, target linkcore.RowIndex) (linkcore.RowIndex, linkcore.CascadeNotification, error) {
	if err := t.checkRow(row); err != nil {
		return linkcore.NullRow, linkcore.CascadeNotification{}, err
	}
	c, err := t.linkColumn(column)
	if err != nil {
		return linkcore.NullRow, linkcore.CascadeNotification{}, err
	}
	state := linkcore.NewCascadeState(t.group.cfg.TrackLinkNullifications)
	prev := c.GetLink(row)
	cascadeCheck := t.group.cascadeHook(state)
	replicated := false
	replicate := func() {
		if !replicated {
			replicated = true
			t.group.repl.SetLink(t.index, column, row, target, prev)
		}
	}
	old, err := c.SetLink(row, target, func(table linkcore.TableIndex, r linkcore.RowIndex) {
		replicate()
		cascadeCheck(table, r)
	})
	if err != nil {
		return old, linkcore.CascadeNotification{}, err
	}
	replicate()
	return old, t.group.finish(state), nil
}

// NullifyLink is SetLink(column, row, linkcore.NullRow).
func (t *Table) NullifyLink(column int, row linkcore.RowIndex) (linkcore.CascadeNotification, error) {
	_, n, err := t.SetLink(column, row, linkcore.NullRow)
	return n, err
}

// LinkList returns the accessor handle for column's list at row.
func (t *Table) LinkList(column int, row linkcore.RowIndex) (*linklist.List, error) {
	if err := t.checkRow(row); err != nil {
		return nil, err
	}
	c, err := t.listColumn(column)
	if err != nil {
		return nil, err
	}
	return c.Get(row), nil
}

// LinkListSet replaces the element at position i of column's list at
// row, returning the previous target and any cascade it triggered.
func (t *Table) LinkListSet(column int, row linkcore.RowIndex, i int, target linkcore.RowIndex) (linkcore.RowIndex, linkcore.CascadeNotification, error) {
	list, err := t.LinkList(column, row)
	if err != nil {
		return linkcore.NullRow, linkcore.CascadeNotification{}, err
	}
	state := linkcore.NewCascadeState(t.group.cfg.TrackLinkNullifications)
	old, err := list.Set(i, target, t.group.cascadeHook(state))
	if err != nil {
		return old, linkcore.CascadeNotification{}, err
	}
	return old, t.group.finish(state), nil
}

// LinkListRemove erases position i of column's list at row, returning
// the previous target and any cascade it triggered.
func (t *Table) LinkListRemove(column int, row linkcore.RowIndex, i int) (linkcore.RowIndex, linkcore.CascadeNotification, error) {
	list, err := t.LinkList(column, row)
	if err != nil {
		return linkcore.NullRow, linkcore.CascadeNotification{}, err
	}
	state := linkcore.NewCascadeState(t.group.cfg.TrackLinkNullifications)
	old, err := list.Remove(i, t.group.cascadeHook(state))
	if err != nil {
		return old, linkcore.CascadeNotification{}, err
	}
	return old, t.group.finish(state), nil
}

// LinkListClear erases every element of column's list at row, returning
// the aggregate cascade it triggered. The cascade state is marked with
// this exact cell as a stop cutoff before Clear runs: Clear unwinds the
// cell's own backlinks itself, so if a cascade it triggers loops back
// around to this same cell, the generic traversal must not process it a
// second time.
func (t *Table) LinkListClear(column int, row linkcore.RowIndex) (linkcore.CascadeNotification, error) {
	list, err := t.LinkList(column, row)
	if err != nil {
		return linkcore.CascadeNotification{}, err
	}
	state := linkcore.NewCascadeState(t.group.cfg.TrackLinkNullifications)
	col := column
	state.StopOnLinkListTable = t.index
	state.StopOnLinkListColumn = &col
	state.StopOnLinkListRow = row
	if err := list.Clear(t.group.cascadeHook(state)); err != nil {
		return linkcore.CascadeNotification{}, err
	}
	return t.group.finish(state), nil
}

// LinkListRemoveTargetRow removes the target row referenced at position
// i of column's list at row (not just the link), via the target table's
// cascade-aware MoveLastRowOver, which removes every remaining incoming
// link to it automatically.
func (t *Table) LinkListRemoveTargetRow(column int, row linkcore.RowIndex, i int) (linkcore.CascadeNotification, error) {
	list, err := t.LinkList(column, row)
	if err != nil {
		return linkcore.CascadeNotification{}, err
	}
	c, err := t.listColumn(column)
	if err != nil {
		return linkcore.CascadeNotification{}, err
	}
	if i < 0 || i >= list.Size() {
		return linkcore.CascadeNotification{}, linkcore.ErrLinkIndexOutOfRange
	}
	target := list.Get(i)
	targetTable, err := t.group.Table(c.Target())
	if err != nil {
		return linkcore.CascadeNotification{}, err
	}
	return targetTable.MoveLastRowOver(target)
}

// LinkListRemoveAllTargetRows removes every target row referenced by
// column's list at row, via repeated cascade-aware MoveLastRowOver
// calls, returning the union of every notification raised.
func (t *Table) LinkListRemoveAllTargetRows(column int, row linkcore.RowIndex) (linkcore.CascadeNotification, error) {
	var all linkcore.CascadeNotification
	for {
		list, err := t.LinkList(column, row)
		if err != nil {
			return all, err
		}
		if list.Size() == 0 {
			return all, nil
		}
		n, err := t.LinkListRemoveTargetRow(column, row, 0)
		if err != nil {
			return all, err
		}
		all.Rows = append(all.Rows, n.Rows...)
		all.Links = append(all.Links, n.Links...)
	}
}

// Clear empties every row of t in a single operation. Unlike
// MoveLastRowOver, it never enumerates t's own cleared rows into the
// resulting notification: the original's whole-table clear treats doing
// so as expensive and pointless, since the caller already knows exactly
// which rows it asked to clear. What the notification does carry is
// everything else a clear disturbs: other tables' weak incoming links
// into t are nullified and reported, other tables' strong incoming
// links cascade to full removal of their own origin row (reported as a
// row, not a link, same as any other strong cascade), and t's own
// strong outgoing links release their targets, cascading further
// removal in other tables if a target's last backlink just vanished.
// state.StopOnTable keeps any of those cascades from ever looping back
// and adding one of t's own rows to the notification, since every row
// of t is gone by the time Clear returns regardless of whether it
// cascaded there directly.
func (t *Table) Clear() (linkcore.CascadeNotification, error) {
	state := linkcore.NewCascadeState(t.group.cfg.TrackLinkNullifications)
	self := t.index
	state.StopOnTable = &self

	priorSize := t.rowCount

	for _, bc := range t.incoming {
		fwd := bc.Forward()
		for row := 0; row < priorSize; row++ {
			bc.ForEachLink(linkcore.RowIndex(row), true, func(origin linkcore.RowIndex) {
				fwd.NullifyOccurrence(origin, linkcore.RowIndex(row))
				switch fwd.Strength() {
				case linkcore.Strong:
					cascade.CheckBreakBacklinksTo(t.group, linkcore.RowRef{Table: fwd.TableIndex(), Row: origin}, state)
				default:
					state.AppendNullification(linkcore.LinkNullification{
						OriginTable:  fwd.TableIndex(),
						OriginColumn: fwd.ColumnIndex(),
						OriginRow:    origin,
						OldTarget:    linkcore.RowIndex(row),
					})
				}
			})
		}
		bc.EraseRows(0, priorSize)
	}

	breakOutgoing := func(col cascade.OutgoingColumn, row linkcore.RowIndex) {
		touched := col.BreakOwnOutgoing(row)
		if col.Strength() != linkcore.Strong {
			return
		}
		for _, target := range touched {
			if col.BacklinkCount(target) == 0 {
				cascade.CheckBreakBacklinksTo(t.group, linkcore.RowRef{Table: col.Target(), Row: target}, state)
			}
		}
	}
	for _, c := range t.outgoingLink {
		for row := 0; row < priorSize; row++ {
			breakOutgoing(c, linkcore.RowIndex(row))
		}
		c.EraseRows(0, priorSize, priorSize, true)
	}
	for _, c := range t.outgoingList {
		for row := 0; row < priorSize; row++ {
			breakOutgoing(c, linkcore.RowIndex(row))
		}
		c.EraseRows(linkcore.RowIndex(0), priorSize, priorSize, true)
	}

	t.rowCount = 0
	return t.group.finish(state), nil
}

// InsertRows grows the table by n rows at position at, fanning the slot
// growth out to every column.
func (t *Table) InsertRows(at, n int) error {
	for _, c := range t.outgoingLink {
		if err := c.InsertRows(at, n); err != nil {
			return err
		}
	}
	for _, c := range t.outgoingList {
		if err := c.InsertRows(linkcore.RowIndex(at), n); err != nil {
			return err
		}
	}
	for _, c := range t.incoming {
		if err := c.InsertRows(at, n); err != nil {
			return err
		}
	}
	t.rowCount += n
	return nil
}

// AddRow appends a single fresh row and returns its index.
func (t *Table) AddRow() (linkcore.RowIndex, error) {
	row := linkcore.RowIndex(t.rowCount)
	if err := t.InsertRows(t.rowCount, 1); err != nil {
		return linkcore.NullRow, err
	}
	return row, nil
}

// EraseRows removes the n rows at [at, at+n) without moving surviving
// rows' relative order. Every removed row must already carry no
// incoming or outgoing links (the caller, typically a prior cascade, is
// responsible). A remaining incoming link is a structural invariant
// failure and panics inside the backlink column; remaining outgoing
// links of the removed rows are not checked.
func (t *Table) EraseRows(at, n int) {
	priorSize := t.rowCount
	for _, c := range t.outgoingLink {
		c.EraseRows(at, n, priorSize, true)
	}
	for _, c := range t.outgoingList {
		c.EraseRows(linkcore.RowIndex(at), n, priorSize, true)
	}
	for _, c := range t.incoming {
		c.EraseRows(at, n)
	}
	t.rowCount -= n
}

// SwapRows exchanges rows a and b. This is pure addressing: the backlink
// columns targeting this table retarget every forward reference to a or
// b accordingly, and this table's own outgoing columns update the
// backlink entries they contributed under their old row index.
func (t *Table) SwapRows(a, b linkcore.RowIndex) {
	for _, c := range t.outgoingLink {
		c.SwapRows(a, b)
	}
	for _, c := range t.outgoingList {
		c.SwapRows(a, b)
	}
	for _, c := range t.incoming {
		c.SwapRows(a, b)
	}
}

// MoveLastRowOver removes row via the cascade-aware primitive: it builds
// a fresh CascadeState seeded with row itself, walks the backlink graph
// to find the transitive closure of further removals and weak-link
// nullifications, delivers the resulting notification, and applies every
// removal it accumulated (including row itself).
func (t *Table) MoveLastRowOver(row linkcore.RowIndex) (linkcore.CascadeNotification, error) {
	if err := t.checkRow(row); err != nil {
		return linkcore.CascadeNotification{}, err
	}
	state := linkcore.NewCascadeState(t.group.cfg.TrackLinkNullifications)
	ref := linkcore.RowRef{Table: t.index, Row: row}
	state.InsertRow(ref)
	cascade.BreakBacklinksTo(t.group, ref, state)
	return t.group.finish(state), nil
}

// RemoveRowRecursive is an alias for MoveLastRowOver: the cascade-aware
// row-removal primitive, named to match the recursive-removal entry
// point a caller reaches for when a row (rather than a link) is the
// thing being removed.
func (t *Table) RemoveRowRecursive(row linkcore.RowIndex) (linkcore.CascadeNotification, error) {
	return t.MoveLastRowOver(row)
}
