package linkcore

import "errors"

// Operation errors. Detached-accessor and index-range errors are reported
// as typed failures without damaging state; the failed operation is a
// no-op. Allocation errors propagate from the Allocator.
var (
	// ErrDetachedAccessor is returned when a LinkList handle whose row was
	// removed is used again.
	ErrDetachedAccessor = errors.New("linkcore: accessor is detached")

	// ErrLinkIndexOutOfRange is returned by Move, Swap, Set, and Remove
	// when given a position outside the list's current bounds.
	ErrLinkIndexOutOfRange = errors.New("linkcore: link-list index out of range")

	// ErrCrossTableLinkTarget is returned when a table cannot be removed
	// because another table still holds link columns into it.
	ErrCrossTableLinkTarget = errors.New("linkcore: table is still a link target")

	// ErrTableNotFound is returned when a TableIndex does not resolve to a
	// live table in the group.
	ErrTableNotFound = errors.New("linkcore: table not found")

	// ErrColumnNotFound is returned when a column index does not resolve
	// to a live column on a table.
	ErrColumnNotFound = errors.New("linkcore: column not found")

	// ErrRowOutOfRange is returned when a row index is not within
	// [0, table row count).
	ErrRowOutOfRange = errors.New("linkcore: row index out of range")
)
