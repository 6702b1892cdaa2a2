package linkcore

// RowIndex identifies a row by its ordinal position within its table. Row
// indices are dense: after any erase or move-last-over, the surviving rows
// are renumbered to stay contiguous in [0, table row count).
type RowIndex int64

// NullRow is the API-level sentinel for "no target". It is distinct from
// the wire encoding, which stores a real target t as t+1 and reserves 0
// for null.
const NullRow RowIndex = -1

// TableIndex identifies a table within a Group.
type TableIndex int

// LinkStrength selects cascade policy for a link or link-list column.
// Weak is the default: a weak link is merely nullified when its target
// row disappears. Strong means the target row is removed once the last
// strong link into it disappears.
type LinkStrength int

const (
	Weak LinkStrength = iota
	Strong
)

func (s LinkStrength) String() string {
	if s == Strong {
		return "strong"
	}
	return "weak"
}

// RowRef names a single row within a Group by table and row index.
type RowRef struct {
	Table TableIndex
	Row   RowIndex
}

// LinkNullification reports a single weak link that was nullified during
// a cascade: the origin row/column that held it, and the target row it
// used to point at.
type LinkNullification struct {
	OriginTable  TableIndex
	OriginColumn int
	OriginRow    RowIndex
	OldTarget    RowIndex
}

// CascadeNotification is delivered at most once per top-level mutation. It
// reports every row removed by the cascade (sorted by table, then row)
// and every weak link nullified along the way.
type CascadeNotification struct {
	Rows  []RowRef
	Links []LinkNullification
}

// Empty reports whether the notification carries no rows and no links.
func (n CascadeNotification) Empty() bool {
	return len(n.Rows) == 0 && len(n.Links) == 0
}

// CascadeNotifier receives a CascadeNotification once a cascade has
// finished its traversal, before the rows it names are actually removed.
// It is advisory: it cannot veto the cascade.
type CascadeNotifier interface {
	OnCascade(CascadeNotification)
}

// CascadeNotifierFunc adapts a plain function to CascadeNotifier.
type CascadeNotifierFunc func(CascadeNotification)

// OnCascade implements CascadeNotifier.
func (f CascadeNotifierFunc) OnCascade(n CascadeNotification) { f(n) }
