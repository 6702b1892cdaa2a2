package linkcore

import "log/slog"

// Replicator is the change-replication contract the core consumes: one
// method per observable link operation. Every mutating column operation
// calls the matching method after performing its local primitive update
// but before any cascade that update may trigger — downstream consumers
// of the log are expected to see the minimum-impact change first.
type Replicator interface {
	LinkListInsert(table TableIndex, column int, row RowIndex, pos int, target RowIndex)
	LinkListSet(table TableIndex, column int, row RowIndex, pos int, target, old RowIndex)
	LinkListMove(table TableIndex, column int, row RowIndex, from, to int)
	LinkListSwap(table TableIndex, column int, row RowIndex, a, b int)
	LinkListErase(table TableIndex, column int, row RowIndex, pos int, old RowIndex)
	LinkListClear(table TableIndex, column int, row RowIndex)
	LinkListNullify(table TableIndex, column int, row RowIndex, pos int, old RowIndex)
	OnLinkListDestroyed(table TableIndex, column int, row RowIndex)
	SetLink(table TableIndex, column int, row RowIndex, target, old RowIndex)
}

// NopReplicator discards every call. It is the default Replicator for a
// Group created without one.
type NopReplicator struct{}

func (NopReplicator) LinkListInsert(TableIndex, int, RowIndex, int, RowIndex)        {}
func (NopReplicator) LinkListSet(TableIndex, int, RowIndex, int, RowIndex, RowIndex) {}
func (NopReplicator) LinkListMove(TableIndex, int, RowIndex, int, int)               {}
func (NopReplicator) LinkListSwap(TableIndex, int, RowIndex, int, int)               {}
func (NopReplicator) LinkListErase(TableIndex, int, RowIndex, int, RowIndex)         {}
func (NopReplicator) LinkListClear(TableIndex, int, RowIndex)                        {}
func (NopReplicator) LinkListNullify(TableIndex, int, RowIndex, int, RowIndex)       {}
func (NopReplicator) OnLinkListDestroyed(TableIndex, int, RowIndex)                  {}
func (NopReplicator) SetLink(TableIndex, int, RowIndex, RowIndex, RowIndex)          {}

var _ Replicator = NopReplicator{}

// LogReplicator writes one structured log line per replicated call. It is
// the closest thing this module ships to a real change-log without
// implementing one, and the natural home for the ambient logging concern
// a change-replication consumer would otherwise need.
type LogReplicator struct {
	Logger *slog.Logger
}

// NewLogReplicator returns a LogReplicator writing through logger. If
// logger is nil, slog.Default() is used.
func NewLogReplicator(logger *slog.Logger) *LogReplicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReplicator{Logger: logger}
}

func (r *LogReplicator) log(op string, args ...any) {
	r.Logger.Debug("linkcore replication", append([]any{"op", op}, args...)...)
}

func (r *LogReplicator) LinkListInsert(table TableIndex, column int, row RowIndex, pos int, target RowIndex) {
	r.log("link_list_insert", "table", table, "column", column, "row", row, "pos", pos, "target", target)
}

func (r *LogReplicator) LinkListSet(table TableIndex, column int, row RowIndex, pos int, target, old RowIndex) {
	r.log("link_list_set", "table", table, "column", column, "row", row, "pos", pos, "target", target, "old", old)
}

func (r *LogReplicator) LinkListMove(table TableIndex, column int, row RowIndex, from, to int) {
	r.log("link_list_move", "table", table, "column", column, "row", row, "from", from, "to", to)
}

func (r *LogReplicator) LinkListSwap(table TableIndex, column int, row RowIndex, a, b int) {
	r.log("link_list_swap", "table", table, "column", column, "row", row, "a", a, "b", b)
}

func (r *LogReplicator) LinkListErase(table TableIndex, column int, row RowIndex, pos int, old RowIndex) {
	r.log("link_list_erase", "table", table, "column", column, "row", row, "pos", pos, "old", old)
}

func (r *LogReplicator) LinkListClear(table TableIndex, column int, row RowIndex) {
	r.log("link_list_clear", "table", table, "column", column, "row", row)
}

func (r *LogReplicator) LinkListNullify(table TableIndex, column int, row RowIndex, pos int, old RowIndex) {
	r.log("link_list_nullify", "table", table, "column", column, "row", row, "pos", pos, "old", old)
}

func (r *LogReplicator) OnLinkListDestroyed(table TableIndex, column int, row RowIndex) {
	r.log("on_link_list_destroyed", "table", table, "column", column, "row", row)
}

func (r *LogReplicator) SetLink(table TableIndex, column int, row RowIndex, target, old RowIndex) {
	r.log("set_link", "table", table, "column", column, "row", row, "target", target, "old", old)
}

var _ Replicator = (*LogReplicator)(nil)
