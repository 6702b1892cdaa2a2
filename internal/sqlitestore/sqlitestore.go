// Package sqlitestore implements a linkcore.Allocator backed by SQLite.
// It is a write-back cache over a single leaves(ref, data) table: every
// Alloc/Free/Mutable call operates on an in-memory cache, and nothing
// reaches the database until Checkpoint flushes the accumulated writes
// in one transaction.
package sqlitestore

import (
	"database/sql"
	_ "embed"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/starfinanz/realm-core/pkg/linkcore"
)

//go:embed schema.sql
var schemaSQL string

// op records one pending write against the leaves table, applied in
// order the next time Checkpoint runs.
type op struct {
	ref    linkcore.Ref
	data   []byte // nil means delete
	delete bool
}

// Store is a linkcore.Allocator that persists to a SQLite database file.
// Reads and writes go through an in-memory cache; Checkpoint is the only
// operation that writes to the database (Open and a Mutable cache miss
// read from it).
type Store struct {
	mu      sync.Mutex
	db      *sql.DB
	cache   map[linkcore.Ref][]byte
	pending []op
	pos     map[linkcore.Ref]int // index into pending, for in-place coalescing
	nextRef int64
}

// Open opens (creating if necessary) the SQLite database at path,
// applies the leaves schema, and loads the current maximum ref so
// freshly allocated refs never collide with ones already on disk.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: schema: %w", err)
	}
	s := &Store{
		db:    db,
		cache: make(map[linkcore.Ref][]byte),
		pos:   make(map[linkcore.Ref]int),
	}
	row := db.QueryRow(`SELECT COALESCE(MAX(ref), 0) FROM leaves`)
	if err := row.Scan(&s.nextRef); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: load max ref: %w", err)
	}
	return s, nil
}

// Close checkpoints any pending writes and closes the underlying database
// connection.
func (s *Store) Close() error {
	if err := s.Checkpoint(); err != nil {
		return err
	}
	return s.db.Close()
}

// Alloc implements linkcore.Allocator. The block is cached in memory and
// written lazily through the next Checkpoint.
func (s *Store) Alloc(size int) (linkcore.Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRef++
	ref := linkcore.Ref(s.nextRef)
	s.cache[ref] = make([]byte, size)
	s.queue(ref, s.cache[ref], false)
	return ref, nil
}

// Free implements linkcore.Allocator.
func (s *Store) Free(ref linkcore.Ref) {
	if ref == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, ref)
	s.queue(ref, nil, true)
}

// Mutable implements linkcore.Allocator. On a cache miss it loads the row
// from SQLite; either way the returned slice is the live cached buffer,
// and any write through it is picked up by the next Checkpoint since the
// slice backing a queued write and the cache entry are the same memory.
func (s *Store) Mutable(ref linkcore.Ref) []byte {
	if ref == 0 {
		panic("sqlitestore: Mutable called with zero ref")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.cache[ref]; ok {
		s.touch(ref, b)
		return b
	}
	var data []byte
	row := s.db.QueryRow(`SELECT data FROM leaves WHERE ref = ?`, int64(ref))
	if err := row.Scan(&data); err != nil {
		panic(fmt.Sprintf("sqlitestore: Mutable called with unknown ref %d: %v", ref, err))
	}
	s.cache[ref] = data
	s.touch(ref, data)
	return data
}

// IsReadOnly implements linkcore.Allocator. This store has no notion of a
// stable snapshot shared with a separate read transaction.
func (s *Store) IsReadOnly(linkcore.Ref) bool { return false }

// queue records a pending write for ref, coalescing with any earlier
// pending write for the same ref so Checkpoint only issues one statement
// per ref touched since the last flush.
func (s *Store) queue(ref linkcore.Ref, data []byte, del bool) {
	if i, ok := s.pos[ref]; ok {
		s.pending[i] = op{ref: ref, data: data, delete: del}
		return
	}
	s.pos[ref] = len(s.pending)
	s.pending = append(s.pending, op{ref: ref, data: data, delete: del})
}

// touch marks ref dirty without changing its queued payload, used when a
// caller may have written through an already-cached Mutable slice.
func (s *Store) touch(ref linkcore.Ref, data []byte) {
	if _, ok := s.pos[ref]; ok {
		return
	}
	s.queue(ref, data, false)
}

// Checkpoint flushes every write queued since the last Checkpoint to the
// database in a single transaction, in the order the writes were first
// queued.
func (s *Store) Checkpoint() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlitestore: checkpoint: %w", err)
	}
	for _, o := range s.pending {
		if o.delete {
			if _, err := tx.Exec(`DELETE FROM leaves WHERE ref = ?`, int64(o.ref)); err != nil {
				tx.Rollback()
				return fmt.Errorf("sqlitestore: checkpoint delete %d: %w", o.ref, err)
			}
			continue
		}
		if _, err := tx.Exec(`INSERT INTO leaves (ref, data) VALUES (?, ?)
			ON CONFLICT(ref) DO UPDATE SET data = excluded.data`, int64(o.ref), o.data); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlitestore: checkpoint write %d: %w", o.ref, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitestore: checkpoint commit: %w", err)
	}
	s.pending = nil
	s.pos = make(map[linkcore.Ref]int)
	return nil
}

var _ linkcore.Allocator = (*Store)(nil)
