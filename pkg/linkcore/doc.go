// Package linkcore holds the shared types and contracts of the linked-row
// core of an embedded column-oriented database, whose link columns,
// link-list columns, backlink columns, and cascade engine live in this
// module's internal packages.
//
// The package defines the contracts the core consumes from the rest of
// a database engine (an Allocator for leaf storage, a Replicator for the
// change-replication log), plus the row, cascade-state, notification,
// config, and error types they share. Group and Table, the wiring
// surface that binds columns to the tables that own them, are in
// pkg/group.
package linkcore
