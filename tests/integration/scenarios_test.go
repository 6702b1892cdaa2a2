// Package integration exercises the group package end to end against the
// sqlite-backed allocator: the strong/weak cascade scenarios run against
// durable leaf storage and are checkpointed, and one test reopens the
// database file afterwards. No test reloads a Group from a reopened file.
package integration

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starfinanz/realm-core/internal/sqlitestore"
	"github.com/starfinanz/realm-core/pkg/group"
	"github.com/starfinanz/realm-core/pkg/linkcore"
)

func openStore(t *testing.T) (*sqlitestore.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "linkcore.db")
	s, err := sqlitestore.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

// TestSQLiteBackedStrongLinkCascadeSurvivesCheckpoint builds a two-table
// group against the durable allocator, cascades a strong-link removal, and
// checks the surviving row counts against what the cascade reported,
// then checkpoints, closes, reopens the same database file, and confirms
// the reopened Store can allocate.
func TestSQLiteBackedStrongLinkCascadeSurvivesCheckpoint(t *testing.T) {
	store, path := openStore(t)

	g := group.New(store, linkcore.DefaultConfig(), nil, nil)
	parents := g.AddTable()
	children := g.AddTable()
	require.NoError(t, parents.InsertRows(0, 2))
	require.NoError(t, children.InsertRows(0, 1))

	col, err := parents.AddLinkColumn(children, linkcore.Strong)
	require.NoError(t, err)

	_, _, err = parents.SetLink(col, 0, 0)
	require.NoError(t, err)

	n, err := parents.MoveLastRowOver(0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []linkcore.RowRef{
		{Table: parents.Index(), Row: 0},
		{Table: children.Index(), Row: 0},
	}, n.Rows)
	assert.Equal(t, 1, parents.RowCount())
	assert.Equal(t, 0, children.RowCount())

	require.NoError(t, store.Checkpoint())
	require.NoError(t, store.Close())

	reopened, err := sqlitestore.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	alloc, err := reopened.Alloc(8)
	require.NoError(t, err)
	assert.Greater(t, int64(alloc), int64(0))
}

// TestSQLiteBackedWeakLinkNullifiedAndCheckpointed confirms a weak link
// is nullified when its target row is removed on the durable allocator,
// and that the resulting leaf writes checkpoint without error. It does
// not reopen the database file.
func TestSQLiteBackedWeakLinkNullifiedAndCheckpointed(t *testing.T) {
	store, _ := openStore(t)

	g := group.New(store, linkcore.DefaultConfig(), nil, nil)
	origin := g.AddTable()
	target := g.AddTable()
	require.NoError(t, origin.InsertRows(0, 1))
	require.NoError(t, target.InsertRows(0, 2))

	col, err := origin.AddLinkColumn(target, linkcore.Weak)
	require.NoError(t, err)
	_, _, err = origin.SetLink(col, 0, 1)
	require.NoError(t, err)

	n, err := target.MoveLastRowOver(1)
	require.NoError(t, err)
	assert.Equal(t, []linkcore.RowRef{{Table: target.Index(), Row: 1}}, n.Rows)

	got, err := origin.GetLink(col, 0)
	require.NoError(t, err)
	assert.Equal(t, linkcore.NullRow, got)

	require.NoError(t, store.Checkpoint())
}

// TestSQLiteBackedLinkListCascadeAggregatesAcrossBothColumns builds a
// link-list column alongside a link column pointing at the same target
// table and confirms a single target-row removal aggregates the effects of
// both into one notification, backed by the durable allocator.
func TestSQLiteBackedLinkListCascadeAggregatesAcrossBothColumns(t *testing.T) {
	store, _ := openStore(t)

	g := group.New(store, linkcore.DefaultConfig(), nil, nil)
	origin := g.AddTable()
	target := g.AddTable()
	require.NoError(t, origin.InsertRows(0, 2))
	require.NoError(t, target.InsertRows(0, 1))

	linkCol, err := origin.AddLinkColumn(target, linkcore.Weak)
	require.NoError(t, err)
	listCol, err := origin.AddLinkListColumn(target, linkcore.Weak)
	require.NoError(t, err)

	_, _, err = origin.SetLink(linkCol, 0, 0)
	require.NoError(t, err)
	list, err := origin.LinkList(listCol, 1)
	require.NoError(t, err)
	require.NoError(t, list.Add(0))
	require.NoError(t, list.Add(0))

	n, err := target.MoveLastRowOver(0)
	require.NoError(t, err)
	assert.Equal(t, []linkcore.RowRef{{Table: target.Index(), Row: 0}}, n.Rows)

	got, err := origin.GetLink(linkCol, 0)
	require.NoError(t, err)
	assert.Equal(t, linkcore.NullRow, got)

	list, err = origin.LinkList(listCol, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, list.Size())

	require.NoError(t, store.Checkpoint())
}

// TestLogReplicatorObservesLinkListMutations wires a LogReplicator into a
// group and confirms it receives calls for the full span of operations
// List.Add/LinkListSet/LinkListRemove drive, using a recording slog handler
// rather than asserting on log text.
func TestLogReplicatorObservesLinkListMutations(t *testing.T) {
	rec := newRecordingHandler()
	repl := linkcore.NewLogReplicator(slogNew(rec))

	g := group.NewMemory(nil, repl)
	origin := g.AddTable()
	target := g.AddTable()
	require.NoError(t, origin.InsertRows(0, 1))
	require.NoError(t, target.InsertRows(0, 2))

	listCol, err := origin.AddLinkListColumn(target, linkcore.Weak)
	require.NoError(t, err)
	list, err := origin.LinkList(listCol, 0)
	require.NoError(t, err)
	require.NoError(t, list.Add(0))
	require.NoError(t, list.Add(1))

	_, _, err = origin.LinkListSet(listCol, 0, 0, 1)
	require.NoError(t, err)
	_, _, err = origin.LinkListRemove(listCol, 0, 0)
	require.NoError(t, err)

	assert.Contains(t, rec.ops, "link_list_insert")
	assert.Contains(t, rec.ops, "link_list_set")
	assert.Contains(t, rec.ops, "link_list_erase")
}

// TestLogReplicatorObservesNullifyAndDestroyed covers the two replication
// calls the mutation-driven test above never reaches: link_list_nullify,
// which fires when a weak target's removal severs a list occurrence out
// from under the origin row, and on_link_list_destroyed, which fires when
// a live accessor's row is removed out from under it.
func TestLogReplicatorObservesNullifyAndDestroyed(t *testing.T) {
	rec := newRecordingHandler()
	repl := linkcore.NewLogReplicator(slogNew(rec))

	g := group.NewMemory(nil, repl)
	origin := g.AddTable()
	target := g.AddTable()
	require.NoError(t, origin.InsertRows(0, 2))
	require.NoError(t, target.InsertRows(0, 1))

	listCol, err := origin.AddLinkListColumn(target, linkcore.Weak)
	require.NoError(t, err)
	list, err := origin.LinkList(listCol, 0)
	require.NoError(t, err)
	require.NoError(t, list.Add(0))

	// Removing target's only row nullifies origin row 0's occurrence of
	// it, since the link-list column is weak.
	_, err = target.MoveLastRowOver(0)
	require.NoError(t, err)
	assert.Contains(t, rec.ops, "link_list_nullify")

	// Keep a live handle on origin row 1's list, then remove that row:
	// the registry detaches the handle out from under it. victim is kept
	// referenced until after the assertion so it cannot be garbage
	// collected (and its weak registry entry silently tombstoned) before
	// MoveLastRowOver has a chance to detach it explicitly.
	victim, err := origin.LinkList(listCol, 1)
	require.NoError(t, err)
	_, err = origin.MoveLastRowOver(1)
	require.NoError(t, err)
	assert.Contains(t, rec.ops, "on_link_list_destroyed")
	_ = victim
}
