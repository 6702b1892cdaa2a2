// Package linklist implements the link-list column: an ordered,
// duplicate-permitting sequence of target row indices per origin row,
// exposed through reference-counted-by-use accessor handles (List) that
// stay valid across arbitrary row motion until their row is removed.
package linklist

import (
	"fmt"

	"github.com/starfinanz/realm-core/internal/backlink"
	"github.com/starfinanz/realm-core/internal/leaf"
	"github.com/starfinanz/realm-core/pkg/linkcore"
)

// Column is a link-list column: one root reference per origin row (0 for
// the degenerate empty list), plus the registry of live List handles and
// the paired backlink column.
type Column struct {
	alloc    linkcore.Allocator
	table    linkcore.TableIndex
	index    int
	target   linkcore.TableIndex
	strength linkcore.LinkStrength
	roots    *leaf.Leaf
	backlink *backlink.Column
	registry registry
	repl     linkcore.Replicator
}

// New allocates a link-list column with rowCount degenerate (empty)
// lists, originating in table at column index, pointing at target with
// the given strength. targetRowCount sizes the paired backlink column.
func New(alloc linkcore.Allocator, table linkcore.TableIndex, index int, target linkcore.TableIndex, strength linkcore.LinkStrength, rowCount, targetRowCount int) (*Column, error) {
	roots, err := leaf.New(alloc, rowCount)
	if err != nil {
		return nil, fmt.Errorf("linklist: new: %w", err)
	}
	for i := 0; i < rowCount; i++ {
		if err := roots.Append(0); err != nil {
			return nil, fmt.Errorf("linklist: new: %w", err)
		}
	}
	c := &Column{alloc: alloc, table: table, index: index, target: target, strength: strength, roots: roots, repl: linkcore.NopReplicator{}}
	bc, err := backlink.NewColumn(alloc, c, targetRowCount)
	if err != nil {
		return nil, fmt.Errorf("linklist: new: %w", err)
	}
	c.backlink = bc
	return c, nil
}

// Backlink returns the paired backlink column, for wiring into the
// owning target table.
func (c *Column) Backlink() *backlink.Column { return c.backlink }

// SetReplicator installs the Replicator invoked by every mutating List
// operation. A freshly created Column defaults to NopReplicator.
func (c *Column) SetReplicator(r linkcore.Replicator) {
	if r == nil {
		r = linkcore.NopReplicator{}
	}
	c.repl = r
}

// TableIndex implements backlink.ForwardSide.
func (c *Column) TableIndex() linkcore.TableIndex { return c.table }

// ColumnIndex implements backlink.ForwardSide.
func (c *Column) ColumnIndex() int { return c.index }

// Strength implements backlink.ForwardSide.
func (c *Column) Strength() linkcore.LinkStrength { return c.strength }

// Target returns the table this column's lists point into.
func (c *Column) Target() linkcore.TableIndex { return c.target }

func (c *Column) rootRef(row linkcore.RowIndex) linkcore.Ref {
	return linkcore.Ref(c.roots.Get(int(row)))
}

func (c *Column) setRootRef(row linkcore.RowIndex, ref linkcore.Ref) {
	c.roots.Set(int(row), int64(ref))
}

// Get returns the accessor handle for row, creating the registry entry
// (but not the underlying sequence, which stays degenerate until first
// written) if none is live.
func (c *Column) Get(row linkcore.RowIndex) *List {
	return c.registry.getPtr(c, row)
}

// NullifyOccurrence implements backlink.ForwardSide: removes exactly one
// occurrence of target from origin's list, firing LinkListNullify once
// the occurrence is erased so a replication consumer sees the severed
// occurrence before whatever cascade the caller triggers next.
func (c *Column) NullifyOccurrence(origin, target linkcore.RowIndex) {
	ref := c.rootRef(origin)
	if ref == 0 {
		panic("linklist: NullifyOccurrence: list is degenerate")
	}
	seq := leaf.Open(c.alloc, ref)
	i := seq.FindFirst(int64(target))
	if i < 0 {
		panic("linklist: NullifyOccurrence: target not present")
	}
	seq.Erase(i)
	c.repl.LinkListNullify(c.table, c.index, origin, i, target)
	if seq.Size() == 0 {
		seq.Destroy()
		c.setRootRef(origin, 0)
	}
}

// AdjustForwardTarget implements backlink.ForwardSide: rewrites every
// occurrence of oldTarget in origin's list to newTarget.
func (c *Column) AdjustForwardTarget(origin, oldTarget, newTarget linkcore.RowIndex) {
	ref := c.rootRef(origin)
	if ref == 0 {
		return
	}
	seq := leaf.Open(c.alloc, ref)
	seq.Each(func(i int, v int64) bool {
		if linkcore.RowIndex(v) == oldTarget {
			seq.Set(i, int64(newTarget))
		}
		return true
	})
}

// BreakOwnOutgoing implements the cascade package's OutgoingColumn
// contract: it removes every occurrence this row holds as origin (its
// own outgoing contribution), destroys the underlying sequence, and
// returns the distinct target rows touched, for the caller to check
// whether any reached a zero backlink count.
func (c *Column) BreakOwnOutgoing(row linkcore.RowIndex) []linkcore.RowIndex {
	ref := c.rootRef(row)
	if ref == 0 {
		return nil
	}
	seq := leaf.Open(c.alloc, ref)
	var distinct []linkcore.RowIndex
	seen := map[linkcore.RowIndex]bool{}
	seq.Each(func(_ int, v int64) bool {
		t := linkcore.RowIndex(v)
		c.backlink.RemoveOneBacklink(t, row)
		if !seen[t] {
			seen[t] = true
			distinct = append(distinct, t)
		}
		return true
	})
	seq.Destroy()
	c.setRootRef(row, 0)
	return distinct
}

// BacklinkCount implements the cascade package's OutgoingColumn
// contract.
func (c *Column) BacklinkCount(target linkcore.RowIndex) int {
	return c.backlink.GetBacklinkCount(target)
}

// InsertRows implements the row-motion protocol for freshly inserted
// rows: new slots start degenerate, and the registry shifts accordingly.
func (c *Column) InsertRows(at linkcore.RowIndex, n int) error {
	for i := 0; i < n; i++ {
		if err := c.roots.Insert(int(at), 0); err != nil {
			return fmt.Errorf("linklist: insert rows: %w", err)
		}
	}
	c.registry.insertRows(at, n)
	return nil
}

// EraseRows implements the §4.5 erase_rows ordering for a link-list
// column: break each erased row's own outgoing contribution (unless the
// caller already did, per brokenReciprocal), renumber the backlink
// origin recorded for surviving rows that shift down, shift the root
// slots, then fix up the registry.
func (c *Column) EraseRows(at linkcore.RowIndex, n, priorSize int, brokenReciprocal bool) {
	if !brokenReciprocal {
		for r := at; r < at+linkcore.RowIndex(n); r++ {
			c.BreakOwnOutgoing(r)
		}
	}
	for r := int(at) + n; r < priorSize; r++ {
		ref := c.rootRef(linkcore.RowIndex(r))
		if ref == 0 {
			continue
		}
		seq := leaf.Open(c.alloc, ref)
		seq.Each(func(_ int, v int64) bool {
			c.backlink.UpdateBacklink(linkcore.RowIndex(v), linkcore.RowIndex(r), linkcore.RowIndex(r-n))
			return true
		})
	}
	for i := 0; i < n; i++ {
		c.roots.Erase(int(at))
	}
	c.registry.eraseRows(at, n)
}

// MoveLastRowOver implements the row-motion protocol for removing row at
// by moving the last row into its place.
func (c *Column) MoveLastRowOver(at linkcore.RowIndex, priorSize int, brokenReciprocal bool) {
	if !brokenReciprocal {
		c.BreakOwnOutgoing(at)
	}
	last := linkcore.RowIndex(priorSize - 1)
	if at != last {
		if ref := c.rootRef(last); ref != 0 {
			leaf.Open(c.alloc, ref).Each(func(_ int, v int64) bool {
				c.backlink.UpdateBacklink(linkcore.RowIndex(v), last, at)
				return true
			})
		}
		c.roots.Set(int(at), c.roots.Get(int(last)))
	}
	c.roots.Erase(int(last))
	c.registry.moveLastOver(last, at)
}

// SwapRows implements the §4.5 swap_rows rule: backlinks are updated at
// most once per distinct target row across both lists, by collecting the
// set union of targets and calling the backlink column's SwapBacklinks
// once per member.
func (c *Column) SwapRows(a, b linkcore.RowIndex) {
	if a == b {
		return
	}
	seen := map[linkcore.RowIndex]bool{}
	collect := func(row linkcore.RowIndex) {
		ref := c.rootRef(row)
		if ref == 0 {
			return
		}
		leaf.Open(c.alloc, ref).Each(func(_ int, v int64) bool {
			seen[linkcore.RowIndex(v)] = true
			return true
		})
	}
	collect(a)
	collect(b)
	for t := range seen {
		c.backlink.SwapBacklinks(t, a, b)
	}
	ra, rb := c.roots.Get(int(a)), c.roots.Get(int(b))
	c.roots.Set(int(a), rb)
	c.roots.Set(int(b), ra)
	c.registry.swap(a, b)
}

var _ backlink.ForwardSide = (*Column)(nil)

// List is a live accessor handle to the target sequence for one
// (column, row). It is created on first request and shared while
// referenced; when its row is removed it is detached, so later calls
// fail predictably instead of touching a row that no longer means
// anything.
type List struct {
	col      *Column
	row      linkcore.RowIndex
	detached bool
}

// detach marks the accessor dead and fires OnLinkListDestroyed exactly
// once, mirroring LinkView::repl_unselect firing as a live view accessor
// is torn down.
func (l *List) detach() {
	if !l.detached {
		l.col.repl.OnLinkListDestroyed(l.col.table, l.col.index, l.row)
	}
	l.detached = true
}

func (l *List) checkLive() error {
	if l.detached {
		return linkcore.ErrDetachedAccessor
	}
	return nil
}

func (l *List) seq() *leaf.Leaf {
	ref := l.col.rootRef(l.row)
	if ref == 0 {
		return nil
	}
	return leaf.Open(l.col.alloc, ref)
}

// Row returns the accessor's current origin row, patched under row
// motion for as long as the accessor stays live.
func (l *List) Row() linkcore.RowIndex { return l.row }

// Size returns the number of elements in the list, 0 for a degenerate
// (never-written) list.
func (l *List) Size() int {
	if s := l.seq(); s != nil {
		return s.Size()
	}
	return 0
}

// Get returns the target row index at position i.
func (l *List) Get(i int) linkcore.RowIndex {
	return linkcore.RowIndex(l.seq().Get(i))
}

// FindFirst returns the position of the first occurrence of t, or
// linkcore.NullRow's int cast -1 if absent.
func (l *List) FindFirst(t linkcore.RowIndex) int {
	if s := l.seq(); s != nil {
		return s.FindFirst(int64(t))
	}
	return -1
}

func (l *List) ensureSeq() (*leaf.Leaf, error) {
	ref := l.col.rootRef(l.row)
	if ref != 0 {
		return leaf.Open(l.col.alloc, ref), nil
	}
	s, err := leaf.New(l.col.alloc, 4)
	if err != nil {
		return nil, fmt.Errorf("linklist: add: %w", err)
	}
	l.col.setRootRef(l.row, s.Ref())
	return s, nil
}

// cascadeHook is the signature Table/Group supply for queuing a further
// cascade check once a strong contribution empties out.
type cascadeHook func(table linkcore.TableIndex, row linkcore.RowIndex)

// Add appends t, allocating the underlying sequence on first call.
func (l *List) Add(t linkcore.RowIndex) error {
	if err := l.checkLive(); err != nil {
		return err
	}
	s, err := l.ensureSeq()
	if err != nil {
		return err
	}
	if err := s.Append(int64(t)); err != nil {
		return err
	}
	if err := l.col.backlink.AddBacklink(t, l.row); err != nil {
		return err
	}
	l.col.repl.LinkListInsert(l.col.table, l.col.index, l.row, s.Size()-1, t)
	return nil
}

// Insert inserts t at position i, which must be in [0, Size()].
func (l *List) Insert(i int, t linkcore.RowIndex) error {
	if err := l.checkLive(); err != nil {
		return err
	}
	if i < 0 || i > l.Size() {
		return linkcore.ErrLinkIndexOutOfRange
	}
	s, err := l.ensureSeq()
	if err != nil {
		return err
	}
	if err := s.Insert(i, int64(t)); err != nil {
		return err
	}
	if err := l.col.backlink.AddBacklink(t, l.row); err != nil {
		return err
	}
	l.col.repl.LinkListInsert(l.col.table, l.col.index, l.row, i, t)
	return nil
}

// Set replaces the element at i with t, returning the old value. If the
// column is strong and the old target's backlink count through this
// column reaches zero, cascadeCheck is invoked with the old target.
func (l *List) Set(i int, t linkcore.RowIndex, cascadeCheck cascadeHook) (linkcore.RowIndex, error) {
	if err := l.checkLive(); err != nil {
		return linkcore.NullRow, err
	}
	s := l.seq()
	if s == nil || i < 0 || i >= s.Size() {
		return linkcore.NullRow, linkcore.ErrLinkIndexOutOfRange
	}
	old := linkcore.RowIndex(s.Get(i))
	if old == t {
		return old, nil
	}
	s.Set(i, int64(t))
	l.col.backlink.RemoveOneBacklink(old, l.row)
	if err := l.col.backlink.AddBacklink(t, l.row); err != nil {
		return old, err
	}
	l.col.repl.LinkListSet(l.col.table, l.col.index, l.row, i, t, old)
	if l.col.strength == linkcore.Strong && l.col.backlink.GetBacklinkCount(old) == 0 {
		cascadeCheck(l.col.target, old)
	}
	return old, nil
}

// Move relocates the element at from to position to, shifting the
// elements in between (order-preserving by rotation).
func (l *List) Move(from, to int) error {
	if err := l.checkLive(); err != nil {
		return err
	}
	s := l.seq()
	if s == nil || from < 0 || from >= s.Size() || to < 0 || to >= s.Size() {
		return linkcore.ErrLinkIndexOutOfRange
	}
	if from == to {
		return nil
	}
	v := s.Get(from)
	s.Erase(from)
	if err := s.Insert(to, v); err != nil {
		return err
	}
	l.col.repl.LinkListMove(l.col.table, l.col.index, l.row, from, to)
	return nil
}

// Swap exchanges the elements at positions a and b, canonicalizing to
// a<b before acting so replication sees one stable form.
func (l *List) Swap(a, b int) error {
	if err := l.checkLive(); err != nil {
		return err
	}
	if a > b {
		a, b = b, a
	}
	s := l.seq()
	if s == nil || a < 0 || b >= s.Size() {
		return linkcore.ErrLinkIndexOutOfRange
	}
	if a == b {
		return nil
	}
	va, vb := s.Get(a), s.Get(b)
	s.Set(a, vb)
	s.Set(b, va)
	l.col.repl.LinkListSwap(l.col.table, l.col.index, l.row, a, b)
	return nil
}

// Remove erases the element at i, returning the old target. If it was
// the list's last element, the underlying sequence is destroyed and the
// slot reverts to degenerate. If the column is strong and the old
// target's backlink count reaches zero, cascadeCheck is invoked.
func (l *List) Remove(i int, cascadeCheck cascadeHook) (linkcore.RowIndex, error) {
	if err := l.checkLive(); err != nil {
		return linkcore.NullRow, err
	}
	s := l.seq()
	if s == nil || i < 0 || i >= s.Size() {
		return linkcore.NullRow, linkcore.ErrLinkIndexOutOfRange
	}
	old := linkcore.RowIndex(s.Get(i))
	s.Erase(i)
	wasLast := s.Size() == 0
	if wasLast {
		s.Destroy()
		l.col.setRootRef(l.row, 0)
	}
	l.col.backlink.RemoveOneBacklink(old, l.row)
	l.col.repl.LinkListErase(l.col.table, l.col.index, l.row, i, old)
	if l.col.strength == linkcore.Strong && l.col.backlink.GetBacklinkCount(old) == 0 {
		cascadeCheck(l.col.target, old)
	}
	return old, nil
}

// Clear erases every element. Strong-link cascade checks fire once per
// distinct target that reaches zero, all against the same CascadeState
// the caller's cascadeCheck hook accumulates into.
func (l *List) Clear(cascadeCheck cascadeHook) error {
	if err := l.checkLive(); err != nil {
		return err
	}
	s := l.seq()
	if s == nil {
		return nil
	}
	targets := make([]linkcore.RowIndex, 0, s.Size())
	s.Each(func(_ int, v int64) bool {
		targets = append(targets, linkcore.RowIndex(v))
		return true
	})
	s.Destroy()
	l.col.setRootRef(l.row, 0)
	for _, t := range targets {
		l.col.backlink.RemoveOneBacklink(t, l.row)
	}
	l.col.repl.LinkListClear(l.col.table, l.col.index, l.row)
	if l.col.strength == linkcore.Strong {
		checked := map[linkcore.RowIndex]bool{}
		for _, t := range targets {
			if checked[t] {
				continue
			}
			checked[t] = true
			if l.col.backlink.GetBacklinkCount(t) == 0 {
				cascadeCheck(l.col.target, t)
			}
		}
	}
	return nil
}
