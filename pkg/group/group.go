// Package group is the public entry point of the module: it wires
// individual link, link-list, and backlink columns into Tables and
// Tables into a Group, the only thing that can resolve a TableIndex to
// a live table, and the only layer that knows how to run a top-level
// mutation's cascade from start to finish.
package group

import (
	"fmt"

	"github.com/starfinanz/realm-core/internal/backlink"
	"github.com/starfinanz/realm-core/internal/cascade"
	"github.com/starfinanz/realm-core/internal/linkcolumn"
	"github.com/starfinanz/realm-core/internal/linklist"
	"github.com/starfinanz/realm-core/internal/memstore"
	"github.com/starfinanz/realm-core/pkg/linkcore"
)

// Group owns a set of Tables, each identified by a stable TableIndex. It
// is the only thing that can resolve a TableIndex to a live *Table.
type Group struct {
	alloc    linkcore.Allocator
	cfg      linkcore.Config
	notifier linkcore.CascadeNotifier
	repl     linkcore.Replicator
	tables   []*Table
}

// New returns an empty Group backed by alloc, configured per cfg. A nil
// notifier installs a no-op; a nil repl installs linkcore.NopReplicator.
func New(alloc linkcore.Allocator, cfg linkcore.Config, notifier linkcore.CascadeNotifier, repl linkcore.Replicator) *Group {
	if notifier == nil {
		notifier = linkcore.CascadeNotifierFunc(func(linkcore.CascadeNotification) {})
	}
	if repl == nil {
		repl = linkcore.NopReplicator{}
	}
	return &Group{alloc: alloc, cfg: cfg, notifier: notifier, repl: repl}
}

// NewMemory returns a Group backed by a fresh memstore.Store, the
// default shape used by tests and by cmd/linkcore's in-memory mode.
func NewMemory(notifier linkcore.CascadeNotifier, repl linkcore.Replicator) *Group {
	cfg := linkcore.DefaultConfig()
	return New(memstore.New(), cfg, notifier, repl)
}

// AddTable creates a new, empty table and returns it.
func (g *Group) AddTable() *Table {
	t := &Table{group: g, index: linkcore.TableIndex(len(g.tables))}
	g.tables = append(g.tables, t)
	return t
}

// Table resolves idx to a live table, or ErrTableNotFound.
func (g *Group) Table(idx linkcore.TableIndex) (*Table, error) {
	if int(idx) < 0 || int(idx) >= len(g.tables) || g.tables[idx] == nil {
		return nil, linkcore.ErrTableNotFound
	}
	return g.tables[idx], nil
}

// RemoveTable drops an empty-of-incoming-links table. It refuses with
// ErrCrossTableLinkTarget if another table still holds a link or
// link-list column targeting it, relying on the backlink bookkeeping
// every such column maintains in this table's incoming set.
func (g *Group) RemoveTable(idx linkcore.TableIndex) error {
	t, err := g.Table(idx)
	if err != nil {
		return err
	}
	if len(t.incoming) > 0 {
		return linkcore.ErrCrossTableLinkTarget
	}
	g.tables[idx] = nil
	return nil
}

// cascadeHook returns the closure Column-level operations invoke when a
// strong link's target just lost its last backlink contribution. It
// folds straight back into the shared traversal for this top-level call.
func (g *Group) cascadeHook(state *linkcore.CascadeState) func(linkcore.TableIndex, linkcore.RowIndex) {
	return func(table linkcore.TableIndex, row linkcore.RowIndex) {
		cascade.CheckBreakBacklinksTo(g, linkcore.RowRef{Table: table, Row: row}, state)
	}
}

// finish delivers the accumulated notification (if non-empty) and applies
// every pending removal, completing one top-level mutation's cascade.
func (g *Group) finish(state *linkcore.CascadeState) linkcore.CascadeNotification {
	notification := state.ToNotification()
	if !notification.Empty() {
		g.notifier.OnCascade(notification)
	}
	cascade.Apply(g, state)
	return notification
}

// IncomingBacklinks implements cascade.Graph.
func (g *Group) IncomingBacklinks(table linkcore.TableIndex) []*backlink.Column {
	t := g.tables[table]
	if t == nil {
		return nil
	}
	return t.incoming
}

// OutgoingColumns implements cascade.Graph.
func (g *Group) OutgoingColumns(table linkcore.TableIndex) []cascade.OutgoingColumn {
	t := g.tables[table]
	if t == nil {
		return nil
	}
	out := make([]cascade.OutgoingColumn, 0, len(t.outgoingLink)+len(t.outgoingList))
	for _, c := range t.outgoingLink {
		out = append(out, c)
	}
	for _, c := range t.outgoingList {
		out = append(out, c)
	}
	return out
}

// MoveLastRowOverBrokenReciprocal implements cascade.RowRemover: it fans
// the physical row-removal out to every column of the table, in the
// order §4.8 prescribes (own outgoing columns, then own incoming
// backlink columns), then shrinks the table's row count. By the time
// this is called every incoming and outgoing reference to row has
// already been severed by cascade.BreakBacklinksTo during traversal, so
// this is pure addressing bookkeeping plus the retargeting backlink
// columns perform internally for the row that moves into row's slot.
func (g *Group) MoveLastRowOverBrokenReciprocal(tableIdx linkcore.TableIndex, row linkcore.RowIndex) {
	t := g.tables[tableIdx]
	priorSize := t.rowCount
	for _, c := range t.outgoingLink {
		c.MoveLastRowOver(int(row), priorSize, true)
	}
	for _, c := range t.outgoingList {
		c.MoveLastRowOver(row, priorSize, true)
	}
	for _, c := range t.incoming {
		c.MoveLastRowOver(int(row), priorSize, true)
	}
	t.rowCount--
}

var _ cascade.Graph = (*Group)(nil)
var _ cascade.RowRemover = (*Group)(nil)

// newLinkColumn is shared plumbing for AddLinkColumn: allocate the
// column, wire its backlink into target's incoming set.
func newLinkColumn(alloc linkcore.Allocator, origin, target *Table, strength linkcore.LinkStrength) (*linkcolumn.Column, error) {
	idx := len(origin.outgoingLink) + len(origin.outgoingList)
	col, err := linkcolumn.New(alloc, origin.index, idx, target.index, strength, origin.rowCount, target.rowCount)
	if err != nil {
		return nil, fmt.Errorf("group: add link column: %w", err)
	}
	target.incoming = append(target.incoming, col.Backlink())
	return col, nil
}

func newLinkListColumn(alloc linkcore.Allocator, origin, target *Table, strength linkcore.LinkStrength, repl linkcore.Replicator) (*linklist.Column, error) {
	idx := len(origin.outgoingLink) + len(origin.outgoingList)
	col, err := linklist.New(alloc, origin.index, idx, target.index, strength, origin.rowCount, target.rowCount)
	if err != nil {
		return nil, fmt.Errorf("group: add link-list column: %w", err)
	}
	col.SetReplicator(repl)
	target.incoming = append(target.incoming, col.Backlink())
	return col, nil
}
