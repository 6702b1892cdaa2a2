package linklist

import (
	"sort"
	"weak"

	"github.com/starfinanz/realm-core/pkg/linkcore"
)

// entry is one slot of an accessor registry: a row index and a weak
// handle to the live List for it, if any. A nil Value() means the entry
// is a tombstone: its List was garbage-collected and the slot may be
// reused or pruned.
type entry struct {
	row linkcore.RowIndex
	ptr weak.Pointer[List]
}

// registry is the per-column accessor registry described in §4.6: a
// sequence of entries sorted by row index, holding at most one live
// handle per row. It never extends the lifetime of a List; it only
// remembers where to find one while something else keeps it alive.
type registry struct {
	entries []entry
}

func (r *registry) search(row linkcore.RowIndex) int {
	return sort.Search(len(r.entries), func(i int) bool { return r.entries[i].row >= row })
}

// getPtr implements get_ptr(row): find a live handle, resurrect an
// expired slot, reuse an adjacent tombstone, or insert a fresh slot.
func (r *registry) getPtr(col *Column, row linkcore.RowIndex) *List {
	i := r.search(row)
	if i < len(r.entries) && r.entries[i].row == row {
		if l := r.entries[i].ptr.Value(); l != nil {
			return l
		}
		l := &List{col: col, row: row}
		r.entries[i].ptr = weak.Make(l)
		return l
	}
	if i < len(r.entries) && r.entries[i].ptr.Value() == nil {
		l := &List{col: col, row: row}
		r.entries[i] = entry{row: row, ptr: weak.Make(l)}
		return l
	}
	if i > 0 && r.entries[i-1].ptr.Value() == nil {
		l := &List{col: col, row: row}
		r.entries[i-1] = entry{row: row, ptr: weak.Make(l)}
		return l
	}
	l := &List{col: col, row: row}
	r.entries = append(r.entries, entry{})
	copy(r.entries[i+1:], r.entries[i:])
	r.entries[i] = entry{row: row, ptr: weak.Make(l)}
	return l
}

// prune drops every tombstoned entry. Called opportunistically before
// structural changes so the registry never grows without bound from
// expired handles alone.
func (r *registry) prune() {
	out := r.entries[:0]
	for _, e := range r.entries {
		if e.ptr.Value() != nil {
			out = append(out, e)
		}
	}
	r.entries = out
}

// insertRows implements the insert row-motion adjustment: every entry at
// or past k shifts up by n, and every still-live list has its cached row
// field patched to match.
func (r *registry) insertRows(k linkcore.RowIndex, n int) {
	r.prune()
	for i := range r.entries {
		if r.entries[i].row >= k {
			r.entries[i].row += linkcore.RowIndex(n)
			if l := r.entries[i].ptr.Value(); l != nil {
				l.row = r.entries[i].row
			}
		}
	}
}

// eraseRows implements the erase row-motion adjustment: every live entry
// in [k, k+n) is detached and removed; survivors past the range shift
// down by n.
func (r *registry) eraseRows(k linkcore.RowIndex, n int) {
	r.prune()
	end := k + linkcore.RowIndex(n)
	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.row >= k && e.row < end {
			if l := e.ptr.Value(); l != nil {
				l.detach()
			}
			continue
		}
		if e.row >= end {
			e.row -= linkcore.RowIndex(n)
			if l := e.ptr.Value(); l != nil {
				l.row = e.row
			}
		}
		kept = append(kept, e)
	}
	r.entries = kept
}

// moveLastOver implements the move-last-over row-motion adjustment:
// detach whatever lives at to, then relocate the accessor at from (if
// any) to row to, keeping the sequence sorted.
func (r *registry) moveLastOver(from, to linkcore.RowIndex) {
	r.prune()
	kept := r.entries[:0]
	var moved *entry
	for i := range r.entries {
		e := r.entries[i]
		switch e.row {
		case to:
			if l := e.ptr.Value(); l != nil {
				l.detach()
			}
			continue
		case from:
			e.row = to
			if l := e.ptr.Value(); l != nil {
				l.row = to
			}
			moved = &e
			continue
		default:
			kept = append(kept, e)
		}
	}
	r.entries = kept
	if moved != nil {
		i := r.search(moved.row)
		r.entries = append(r.entries, entry{})
		copy(r.entries[i+1:], r.entries[i:])
		r.entries[i] = *moved
	}
}

// swap implements the swap row-motion adjustment: exchange the row
// fields of the entries at a and b (patching live lists), or if only one
// side has a live entry, relocate it, re-sorting either way.
func (r *registry) swap(a, b linkcore.RowIndex) {
	r.prune()
	ia, ib := -1, -1
	for i, e := range r.entries {
		switch e.row {
		case a:
			ia = i
		case b:
			ib = i
		}
	}
	switch {
	case ia >= 0 && ib >= 0:
		if l := r.entries[ia].ptr.Value(); l != nil {
			l.row = b
		}
		if l := r.entries[ib].ptr.Value(); l != nil {
			l.row = a
		}
		r.entries[ia].row, r.entries[ib].row = b, a
		sort.Slice(r.entries, func(i, j int) bool { return r.entries[i].row < r.entries[j].row })
	case ia >= 0:
		if l := r.entries[ia].ptr.Value(); l != nil {
			l.row = b
		}
		r.entries[ia].row = b
		sort.Slice(r.entries, func(i, j int) bool { return r.entries[i].row < r.entries[j].row })
	case ib >= 0:
		if l := r.entries[ib].ptr.Value(); l != nil {
			l.row = a
		}
		r.entries[ib].row = a
		sort.Slice(r.entries, func(i, j int) bool { return r.entries[i].row < r.entries[j].row })
	}
}

// clearRootTable implements clear_root_table: detach every live accessor
// and empty the registry.
func (r *registry) clearRootTable() {
	for _, e := range r.entries {
		if l := e.ptr.Value(); l != nil {
			l.detach()
		}
	}
	r.entries = nil
}
