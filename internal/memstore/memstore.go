// Package memstore implements an in-memory linkcore.Allocator. It backs
// every unit test in this module and is the default Allocator for a
// freshly created Group; it never touches disk, so its lifetime is the
// lifetime of the Go process holding it.
package memstore

import (
	"sync"

	"github.com/starfinanz/realm-core/pkg/linkcore"
)

// Store is a linkcore.Allocator backed by a plain Go map. Refs are handed
// out from a monotonic counter so they are stable for the lifetime of
// the Store even as blocks are freed and reused by later allocations at
// different sizes.
type Store struct {
	mu     sync.Mutex
	blocks map[linkcore.Ref][]byte
	next   int64
}

// New returns an empty Store.
func New() *Store {
	return &Store{blocks: make(map[linkcore.Ref][]byte)}
}

// Alloc implements linkcore.Allocator.
func (s *Store) Alloc(size int) (linkcore.Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	ref := linkcore.Ref(s.next)
	s.blocks[ref] = make([]byte, size)
	return ref, nil
}

// Free implements linkcore.Allocator.
func (s *Store) Free(ref linkcore.Ref) {
	if ref == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blocks, ref)
}

// Mutable implements linkcore.Allocator.
func (s *Store) Mutable(ref linkcore.Ref) []byte {
	if ref == 0 {
		panic("memstore: Mutable called with zero ref")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[ref]
	if !ok {
		panic("memstore: Mutable called with unknown ref")
	}
	return b
}

// IsReadOnly implements linkcore.Allocator. memstore has no notion of a
// stable snapshot shared with a separate read transaction, so every ref
// is mutable.
func (s *Store) IsReadOnly(linkcore.Ref) bool { return false }

// Len reports the number of live blocks, for tests asserting that
// Destroy/Free calls actually reclaim storage.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blocks)
}

var _ linkcore.Allocator = (*Store)(nil)
