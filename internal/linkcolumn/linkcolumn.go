// Package linkcolumn implements the single-valued link column: one slot
// per origin row holding at most one target row index, with its
// reciprocal backlink column kept in sync on every mutation.
package linkcolumn

import (
	"fmt"

	"github.com/starfinanz/realm-core/internal/backlink"
	"github.com/starfinanz/realm-core/internal/leaf"
	"github.com/starfinanz/realm-core/pkg/linkcore"
)

// Column is a single-valued link column. Slot value 0 means null; a
// stored value v>0 means target row v-1.
type Column struct {
	alloc    linkcore.Allocator
	table    linkcore.TableIndex
	index    int
	target   linkcore.TableIndex
	strength linkcore.LinkStrength
	slots    *leaf.Leaf
	backlink *backlink.Column
}

// New allocates a link column with rowCount null slots, originating in
// table at column index, pointing at target with the given strength.
// targetRowCount is the target table's current row count, used to size
// the paired backlink column.
func New(alloc linkcore.Allocator, table linkcore.TableIndex, index int, target linkcore.TableIndex, strength linkcore.LinkStrength, rowCount, targetRowCount int) (*Column, error) {
	slots, err := leaf.New(alloc, rowCount)
	if err != nil {
		return nil, fmt.Errorf("linkcolumn: new: %w", err)
	}
	for i := 0; i < rowCount; i++ {
		if err := slots.Append(0); err != nil {
			return nil, fmt.Errorf("linkcolumn: new: %w", err)
		}
	}
	c := &Column{alloc: alloc, table: table, index: index, target: target, strength: strength, slots: slots}
	bc, err := backlink.NewColumn(alloc, c, targetRowCount)
	if err != nil {
		return nil, fmt.Errorf("linkcolumn: new: %w", err)
	}
	c.backlink = bc
	return c, nil
}

// Backlink returns the paired backlink column, for wiring into the owning
// target table.
func (c *Column) Backlink() *backlink.Column { return c.backlink }

// TableIndex implements backlink.ForwardSide.
func (c *Column) TableIndex() linkcore.TableIndex { return c.table }

// ColumnIndex implements backlink.ForwardSide.
func (c *Column) ColumnIndex() int { return c.index }

// Strength implements backlink.ForwardSide.
func (c *Column) Strength() linkcore.LinkStrength { return c.strength }

// Target returns the table this column's links point into.
func (c *Column) Target() linkcore.TableIndex { return c.target }

// GetLink reads row's slot, translating 0 to linkcore.NullRow.
func (c *Column) GetLink(row linkcore.RowIndex) linkcore.RowIndex {
	v := c.slots.Get(int(row))
	if v == 0 {
		return linkcore.NullRow
	}
	return linkcore.RowIndex(v - 1)
}

// NullifyOccurrence implements backlink.ForwardSide: it clears origin's
// slot outright (a link column holds at most one value, so "one
// occurrence" is the whole slot), asserting it actually held target.
func (c *Column) NullifyOccurrence(origin, target linkcore.RowIndex) {
	if c.GetLink(origin) != target {
		panic("linkcolumn: NullifyOccurrence: slot does not hold target")
	}
	c.slots.Set(int(origin), 0)
}

// AdjustForwardTarget implements backlink.ForwardSide: rewrites origin's
// slot from oldTarget to newTarget without touching backlink state.
func (c *Column) AdjustForwardTarget(origin, oldTarget, newTarget linkcore.RowIndex) {
	if c.GetLink(origin) != oldTarget {
		panic("linkcolumn: AdjustForwardTarget: slot does not hold oldTarget")
	}
	c.slots.Set(int(origin), int64(newTarget)+1)
}

// SetLink writes newTarget into row's slot (linkcore.NullRow for null),
// returning the previous target. It updates the paired backlink column
// and, if this column is strong and the old target just lost its last
// backlink contribution through this column, queues a cascade check on
// old_target via cascade.CheckBreakBacklinksTo (the caller supplies the
// traversal hook so this package never imports the cascade package
// directly and stays a pure leaf of the dependency graph).
func (c *Column) SetLink(row, newTarget linkcore.RowIndex, cascadeCheck func(table linkcore.TableIndex, row linkcore.RowIndex)) (linkcore.RowIndex, error) {
	old := c.GetLink(row)
	if old == newTarget {
		return old, nil
	}
	if old != linkcore.NullRow {
		c.backlink.RemoveOneBacklink(old, row)
	}
	if newTarget == linkcore.NullRow {
		c.slots.Set(int(row), 0)
	} else {
		if err := c.backlink.AddBacklink(newTarget, row); err != nil {
			return old, fmt.Errorf("linkcolumn: set link: %w", err)
		}
		c.slots.Set(int(row), int64(newTarget)+1)
	}
	if old != linkcore.NullRow && c.strength == linkcore.Strong && c.backlink.GetBacklinkCount(old) == 0 {
		cascadeCheck(c.target, old)
	}
	return old, nil
}

// NullifyLink is SetLink(row, NullRow, ...).
func (c *Column) NullifyLink(row linkcore.RowIndex, cascadeCheck func(linkcore.TableIndex, linkcore.RowIndex)) (linkcore.RowIndex, error) {
	return c.SetLink(row, linkcore.NullRow, cascadeCheck)
}

// InsertLink shifts the column at row and writes target (or null),
// registering a backlink if non-null.
func (c *Column) InsertLink(row linkcore.RowIndex, target linkcore.RowIndex) error {
	v := int64(0)
	if target != linkcore.NullRow {
		v = int64(target) + 1
	}
	if err := c.slots.Insert(int(row), v); err != nil {
		return fmt.Errorf("linkcolumn: insert link: %w", err)
	}
	if target != linkcore.NullRow {
		if err := c.backlink.AddBacklink(target, row); err != nil {
			return fmt.Errorf("linkcolumn: insert link: %w", err)
		}
	}
	return nil
}

// InsertNullLink is InsertLink(row, NullRow).
func (c *Column) InsertNullLink(row linkcore.RowIndex) error {
	return c.InsertLink(row, linkcore.NullRow)
}

// BreakOwnOutgoing implements the cascade package's OutgoingColumn
// contract: it clears row's own outgoing contribution entirely and
// reports the (at most one) target row touched, for the caller to check
// whether its backlink count reached zero.
func (c *Column) BreakOwnOutgoing(row linkcore.RowIndex) []linkcore.RowIndex {
	old := c.GetLink(row)
	if old == linkcore.NullRow {
		return nil
	}
	c.backlink.RemoveOneBacklink(old, row)
	c.slots.Set(int(row), 0)
	return []linkcore.RowIndex{old}
}

// BacklinkCount implements the cascade package's OutgoingColumn
// contract.
func (c *Column) BacklinkCount(target linkcore.RowIndex) int {
	return c.backlink.GetBacklinkCount(target)
}

// InsertRows implements the row-motion protocol for a freshly inserted
// range of the origin table's own rows: the new slots start null.
func (c *Column) InsertRows(at, n int) error {
	for i := 0; i < n; i++ {
		if err := c.slots.Insert(at, 0); err != nil {
			return fmt.Errorf("linkcolumn: insert rows: %w", err)
		}
	}
	return nil
}

// EraseRows implements the row-motion protocol for the origin table's own
// erased rows [at, at+n). Every erased row's own outgoing contribution
// must already have been broken (brokenReciprocal) by the caller before
// this is invoked; rows shifting down past the erased range have their
// backlink-recorded origin index decremented to match.
func (c *Column) EraseRows(at, n, priorSize int, brokenReciprocal bool) {
	if !brokenReciprocal {
		panic("linkcolumn: EraseRows requires brokenReciprocal")
	}
	for r := at + n; r < priorSize; r++ {
		if t := c.GetLink(linkcore.RowIndex(r)); t != linkcore.NullRow {
			c.backlink.UpdateBacklink(t, linkcore.RowIndex(r), linkcore.RowIndex(r-n))
		}
	}
	for i := 0; i < n; i++ {
		c.slots.Erase(at)
	}
}

// MoveLastRowOver implements the row-motion protocol for removing row at
// by moving the last row into its place.
func (c *Column) MoveLastRowOver(at, priorSize int, brokenReciprocal bool) {
	if !brokenReciprocal {
		panic("linkcolumn: MoveLastRowOver requires brokenReciprocal")
	}
	last := priorSize - 1
	if at != last {
		if t := c.GetLink(linkcore.RowIndex(last)); t != linkcore.NullRow {
			c.backlink.UpdateBacklink(t, linkcore.RowIndex(last), linkcore.RowIndex(at))
		}
		c.slots.Set(at, c.slots.Get(last))
	}
	c.slots.Erase(last)
}

// SwapRows implements the row-motion protocol for exchanging rows a and
// b of the origin table.
func (c *Column) SwapRows(a, b linkcore.RowIndex) {
	if a == b {
		return
	}
	va := c.slots.Get(int(a))
	vb := c.slots.Get(int(b))
	if ta := c.GetLink(a); ta != linkcore.NullRow {
		c.backlink.UpdateBacklink(ta, a, b)
	}
	if tb := c.GetLink(b); tb != linkcore.NullRow {
		c.backlink.UpdateBacklink(tb, b, a)
	}
	c.slots.Set(int(a), vb)
	c.slots.Set(int(b), va)
}

var _ backlink.ForwardSide = (*Column)(nil)
