package linkcore

import "sort"

// CascadeState is the transient accumulator used during a single
// user-triggered cascade. It is shared by every recursive step of the
// traversal so the resulting notification reflects the whole top-level
// mutation, not just the step that happened to trigger cascading.
type CascadeState struct {
	// Rows is the ordered, deduplicated set of rows to remove, sorted by
	// (Table, Row).
	Rows []RowRef

	// Links records weak links nullified during the cascade, in the
	// order they were nullified, when TrackLinkNullifications is set.
	Links []LinkNullification

	// StopOnTable, when non-nil, excludes that table from cascade
	// traversal (set by Table.Clear to avoid re-entering the table being
	// cleared).
	StopOnTable *TableIndex

	// StopOnLinkListTable/StopOnLinkListColumn/StopOnLinkListRow, when
	// StopOnLinkListColumn is non-nil, short-circuit re-entering the
	// specific link-list cell that originated a Clear call: the cell is
	// already being unwound element by element by that call, so the
	// generic own-outgoing-columns pass must not process it a second time
	// if a cascade it triggers loops back to the same cell.
	StopOnLinkListTable  TableIndex
	StopOnLinkListColumn *int
	StopOnLinkListRow    RowIndex

	// TrackLinkNullifications selects whether nullified weak links are
	// appended to Links.
	TrackLinkNullifications bool

	// OnlyStrongLinks, when set, means weak link columns contribute no
	// rows to the traversal (their nullifications may still be tracked).
	OnlyStrongLinks bool
}

// NewCascadeState returns an empty CascadeState with
// TrackLinkNullifications set to trackLinkNullifications.
func NewCascadeState(trackLinkNullifications bool) *CascadeState {
	return &CascadeState{TrackLinkNullifications: trackLinkNullifications}
}

// ShouldStopAtTable reports whether traversal into table is suppressed.
func (s *CascadeState) ShouldStopAtTable(table TableIndex) bool {
	return s.StopOnTable != nil && *s.StopOnTable == table
}

// ShouldStopAtLinkListCell reports whether traversal into the given
// link-list cell is suppressed (used to avoid re-entering the cell a
// Clear() call originated from).
func (s *CascadeState) ShouldStopAtLinkListCell(table TableIndex, column int, row RowIndex) bool {
	return s.StopOnLinkListColumn != nil && s.StopOnLinkListTable == table &&
		*s.StopOnLinkListColumn == column && s.StopOnLinkListRow == row
}

// InsertRow inserts ref into Rows in sorted position if not already
// present, and reports whether it was newly inserted. Because every
// recursive traversal step attempts this insert before recursing
// further, cycles cannot cause unbounded recursion: a row already
// present is never traversed a second time.
func (s *CascadeState) InsertRow(ref RowRef) bool {
	i := sort.Search(len(s.Rows), func(i int) bool {
		return less(s.Rows[i], ref) == false
	})
	if i < len(s.Rows) && s.Rows[i] == ref {
		return false
	}
	s.Rows = append(s.Rows, RowRef{})
	copy(s.Rows[i+1:], s.Rows[i:])
	s.Rows[i] = ref
	return true
}

func less(a, b RowRef) bool {
	if a.Table != b.Table {
		return a.Table < b.Table
	}
	return a.Row < b.Row
}

// AppendNullification records a nullified weak link if
// TrackLinkNullifications is set.
func (s *CascadeState) AppendNullification(n LinkNullification) {
	if !s.TrackLinkNullifications {
		return
	}
	s.Links = append(s.Links, n)
}

// ToNotification converts the accumulated state into the
// CascadeNotification delivered to the installed CascadeNotifier.
func (s *CascadeState) ToNotification() CascadeNotification {
	return CascadeNotification{Rows: s.Rows, Links: s.Links}
}
