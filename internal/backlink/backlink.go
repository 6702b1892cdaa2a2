// Package backlink implements the backlink column: for each row of a
// target table, the automatically maintained multiset of origin row
// indices that currently link to it. Storage uses a tagged encoding so
// the overwhelmingly common case (zero or one backlink) costs nothing
// beyond the slot itself; multisets of size two or more spill into a
// heap-allocated leaf.Leaf sequence.
package backlink

import (
	"fmt"

	"github.com/starfinanz/realm-core/internal/leaf"
	"github.com/starfinanz/realm-core/pkg/linkcore"
)

// ForwardSide is implemented by the forward (link or link-list) column a
// Column is paired with. It lets the backlink column reach back into its
// forward counterpart during cascade traversal and row retargeting
// without either package importing the other's concrete type.
type ForwardSide interface {
	TableIndex() linkcore.TableIndex
	ColumnIndex() int
	Strength() linkcore.LinkStrength

	// NullifyOccurrence clears exactly one occurrence of target from
	// origin's forward storage: the whole slot for a link column, or one
	// matching element for a link-list column. It does not touch
	// backlink bookkeeping; the caller (Column) owns that.
	NullifyOccurrence(origin, target linkcore.RowIndex)

	// AdjustForwardTarget rewrites every stored reference origin holds
	// to oldTarget so it instead reads newTarget. Used when the target
	// row's address changes under move-last-over or swap, not when the
	// link itself changes.
	AdjustForwardTarget(origin, oldTarget, newTarget linkcore.RowIndex)
}

// Column is the backlink column paired 1:1 with a single forward (link or
// link-list) column. It holds one tagged slot per row of the target
// table.
type Column struct {
	alloc   linkcore.Allocator
	slots   *leaf.Leaf
	forward ForwardSide
}

// NewColumn allocates a backlink column with rowCount empty slots, paired
// with forward.
func NewColumn(alloc linkcore.Allocator, forward ForwardSide, rowCount int) (*Column, error) {
	slots, err := leaf.New(alloc, rowCount)
	if err != nil {
		return nil, fmt.Errorf("backlink: new column: %w", err)
	}
	for i := 0; i < rowCount; i++ {
		if err := slots.Append(0); err != nil {
			return nil, fmt.Errorf("backlink: new column: %w", err)
		}
	}
	return &Column{alloc: alloc, slots: slots, forward: forward}, nil
}

// Forward returns the forward column this backlink column is paired with.
func (c *Column) Forward() ForwardSide { return c.forward }

func tagSingleton(o linkcore.RowIndex) int64 { return int64(o)<<1 | 1 }
func untagSingleton(v int64) linkcore.RowIndex { return linkcore.RowIndex(v >> 1) }
func tagSequence(ref linkcore.Ref) int64       { return int64(ref) << 1 }
func untagSequence(v int64) linkcore.Ref       { return linkcore.Ref(v >> 1) }

func isEmpty(v int64) bool    { return v == 0 }
func isSingleton(v int64) bool { return v&1 == 1 }

// GetBacklinkCount returns the number of origins currently linking to t.
func (c *Column) GetBacklinkCount(t linkcore.RowIndex) int {
	v := c.slots.Get(int(t))
	switch {
	case isEmpty(v):
		return 0
	case isSingleton(v):
		return 1
	default:
		return leaf.Open(c.alloc, untagSequence(v)).Size()
	}
}

// GetBacklink returns the k-th origin (in storage order, not semantic
// order) linking to t. k must be in [0, GetBacklinkCount(t)).
func (c *Column) GetBacklink(t linkcore.RowIndex, k int) linkcore.RowIndex {
	v := c.slots.Get(int(t))
	switch {
	case isEmpty(v):
		panic("backlink: GetBacklink on empty multiset")
	case isSingleton(v):
		if k != 0 {
			panic("backlink: GetBacklink index out of range")
		}
		return untagSingleton(v)
	default:
		return linkcore.RowIndex(leaf.Open(c.alloc, untagSequence(v)).Get(k))
	}
}

// AddBacklink grows the multiset at t by one occurrence of o.
func (c *Column) AddBacklink(t linkcore.RowIndex, o linkcore.RowIndex) error {
	v := c.slots.Get(int(t))
	switch {
	case isEmpty(v):
		c.slots.Set(int(t), tagSingleton(o))
		return nil
	case isSingleton(v):
		existing := untagSingleton(v)
		seq, err := leaf.New(c.alloc, 2)
		if err != nil {
			return fmt.Errorf("backlink: add: %w", err)
		}
		if err := seq.Append(int64(existing)); err != nil {
			return fmt.Errorf("backlink: add: %w", err)
		}
		if err := seq.Append(int64(o)); err != nil {
			return fmt.Errorf("backlink: add: %w", err)
		}
		c.slots.Set(int(t), tagSequence(seq.Ref()))
		return nil
	default:
		seq := leaf.Open(c.alloc, untagSequence(v))
		if err := seq.Append(int64(o)); err != nil {
			return fmt.Errorf("backlink: add: %w", err)
		}
		c.slots.Set(int(t), tagSequence(seq.Ref()))
		return nil
	}
}

// RemoveOneBacklink removes exactly one occurrence of o from the
// multiset at t. It panics if o does not occur: the caller is expected
// to have checked L1/L2 holds before calling (a missing backlink at this
// point is a structural invariant failure, not user error).
func (c *Column) RemoveOneBacklink(t linkcore.RowIndex, o linkcore.RowIndex) {
	v := c.slots.Get(int(t))
	switch {
	case isEmpty(v):
		panic("backlink: RemoveOneBacklink on empty multiset")
	case isSingleton(v):
		if untagSingleton(v) != o {
			panic("backlink: RemoveOneBacklink: origin not present")
		}
		c.slots.Set(int(t), 0)
	default:
		seq := leaf.Open(c.alloc, untagSequence(v))
		i := seq.FindFirst(int64(o))
		if i < 0 {
			panic("backlink: RemoveOneBacklink: origin not present")
		}
		seq.Erase(i)
		switch seq.Size() {
		case 1:
			remaining := linkcore.RowIndex(seq.Get(0))
			seq.Destroy()
			c.slots.Set(int(t), tagSingleton(remaining))
		default:
			c.slots.Set(int(t), tagSequence(seq.Ref()))
		}
	}
}

// UpdateBacklink replaces one occurrence of oOld with oNew in the
// multiset at t, used by row motion when an origin row's own index
// changes.
func (c *Column) UpdateBacklink(t linkcore.RowIndex, oOld, oNew linkcore.RowIndex) {
	v := c.slots.Get(int(t))
	switch {
	case isEmpty(v):
		panic("backlink: UpdateBacklink on empty multiset")
	case isSingleton(v):
		if untagSingleton(v) != oOld {
			panic("backlink: UpdateBacklink: origin not present")
		}
		c.slots.Set(int(t), tagSingleton(oNew))
	default:
		seq := leaf.Open(c.alloc, untagSequence(v))
		i := seq.FindFirst(int64(oOld))
		if i < 0 {
			panic("backlink: UpdateBacklink: origin not present")
		}
		seq.Set(i, int64(oNew))
	}
}

// SwapBacklinks exchanges every occurrence of o1 with o2 and vice versa
// within the multiset at t, used when rows o1 and o2 of the origin table
// trade row indices.
func (c *Column) SwapBacklinks(t linkcore.RowIndex, o1, o2 linkcore.RowIndex) {
	v := c.slots.Get(int(t))
	switch {
	case isEmpty(v):
		return
	case isSingleton(v):
		switch untagSingleton(v) {
		case o1:
			c.slots.Set(int(t), tagSingleton(o2))
		case o2:
			c.slots.Set(int(t), tagSingleton(o1))
		}
	default:
		seq := leaf.Open(c.alloc, untagSequence(v))
		seq.Each(func(i int, val int64) bool {
			switch linkcore.RowIndex(val) {
			case o1:
				seq.Set(i, int64(o2))
			case o2:
				seq.Set(i, int64(o1))
			}
			return true
		})
	}
}

// RemoveAllBacklinks destroys the backlink storage across the first n
// rows without touching any forward link. It is used only when the
// caller has already broken the reciprocal forward links by other
// means (for example, a table being dropped wholesale).
func (c *Column) RemoveAllBacklinks(n int) {
	for i := 0; i < n; i++ {
		v := c.slots.Get(i)
		if !isEmpty(v) && !isSingleton(v) {
			leaf.Open(c.alloc, untagSequence(v)).Destroy()
		}
		c.slots.Set(i, 0)
	}
}

// ForEachLink calls f once per origin currently linking to t, in storage
// order. If destroy is true, the backing sequence storage (if any) is
// freed and the slot reset to empty once iteration completes; this is
// the mode cascade traversal and row removal use, since every occurrence
// it visits is about to be severed anyway.
func (c *Column) ForEachLink(t linkcore.RowIndex, destroy bool, f func(o linkcore.RowIndex)) {
	v := c.slots.Get(int(t))
	switch {
	case isEmpty(v):
		return
	case isSingleton(v):
		f(untagSingleton(v))
		if destroy {
			c.slots.Set(int(t), 0)
		}
	default:
		seq := leaf.Open(c.alloc, untagSequence(v))
		for i, n := 0, seq.Size(); i < n; i++ {
			f(linkcore.RowIndex(seq.Get(i)))
		}
		if destroy {
			seq.Destroy()
			c.slots.Set(int(t), 0)
		}
	}
}

// InsertRows grows the column for n freshly inserted rows at position at,
// leaving the new slots empty.
func (c *Column) InsertRows(at int, n int) error {
	for i := 0; i < n; i++ {
		if err := c.slots.Insert(at, 0); err != nil {
			return fmt.Errorf("backlink: insert rows: %w", err)
		}
	}
	return nil
}

// EraseRows removes the n slots at [at, at+n). Every erased row must
// already have an
// empty multiset (the caller is expected to have broken those backlinks
// via cascade traversal first); a non-empty multiset at this point is a
// structural invariant failure.
func (c *Column) EraseRows(at, n int) {
	for i := 0; i < n; i++ {
		v := c.slots.Get(at)
		if !isEmpty(v) {
			panic("backlink: EraseRows: row still has incoming backlinks")
		}
		c.slots.Erase(at)
	}
}

// MoveLastRowOver removes row at by moving the last row (index
// priorSize-1) into its slot. brokenReciprocal must be true: the caller
// is required to have already cleared every incoming link to at via
// cascade traversal before calling this. The multiset that moves from
// priorSize-1 to at is preserved as-is (the set of origins referencing
// this logical row has not changed) but every one of those origins has
// its forward column retargeted from priorSize-1 to at.
func (c *Column) MoveLastRowOver(at, priorSize int, brokenReciprocal bool) {
	if !brokenReciprocal {
		panic("backlink: MoveLastRowOver requires brokenReciprocal")
	}
	if v := c.slots.Get(at); !isEmpty(v) {
		panic("backlink: MoveLastRowOver: target row still has incoming backlinks")
	}
	last := priorSize - 1
	if at != last {
		v := c.slots.Get(last)
		c.slots.Set(at, v)
		c.retargetAll(linkcore.RowIndex(last), linkcore.RowIndex(at))
	}
	c.slots.Erase(last)
}

// SwapRows exchanges the multisets at rows a and b, retargeting every
// origin recorded in either so its forward column points at the row's
// new address.
func (c *Column) SwapRows(a, b linkcore.RowIndex) {
	if a == b {
		return
	}
	va := c.slots.Get(int(a))
	vb := c.slots.Get(int(b))
	c.slots.Set(int(a), vb)
	c.slots.Set(int(b), va)
	c.retargetAll(a, b)
	c.retargetAll(b, a)
}

// retargetAll rewrites, for every origin currently recorded (after the
// slot swap/move already happened) under newTarget, its forward column's
// stored reference from oldTarget to newTarget.
func (c *Column) retargetAll(oldTarget, newTarget linkcore.RowIndex) {
	c.ForEachLink(newTarget, false, func(o linkcore.RowIndex) {
		c.forward.AdjustForwardTarget(o, oldTarget, newTarget)
	})
}
