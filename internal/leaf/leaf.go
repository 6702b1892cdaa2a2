// Package leaf implements the tagged integer leaf: the ordered sequence
// of non-negative row indices that backs every per-row slot array and
// every link-list/backlink sequence object in this module. A leaf is a
// single allocated block (an element count followed by int64 elements)
// that is reallocated with at least double its capacity when it fills up; it is
// never split into a multi-level tree, whatever its size, and neither
// shipped Allocator splits it either. The type implements the logical
// leaf interface: size, get, set, insert, erase, find_first, destroy,
// and iteration.
package leaf

import (
	"encoding/binary"
	"fmt"

	"github.com/starfinanz/realm-core/pkg/linkcore"
)

const (
	elemSize   = 8 // bytes per int64 element
	headerSize = 8 // bytes reserved for the element count
	minGrow    = 4 // minimum element growth when a leaf is extended
)

// Leaf is a handle to an allocated, ordered sequence of
// non-negative int64 values. The zero Leaf (via Open with a zero ref) is
// never valid; use New to create one, or Open to reconstitute one from a
// previously returned Ref.
type Leaf struct {
	alloc linkcore.Allocator
	ref   linkcore.Ref
}

// New allocates a fresh, empty leaf able to hold at least capacityHint
// elements without reallocating.
func New(alloc linkcore.Allocator, capacityHint int) (*Leaf, error) {
	if capacityHint < minGrow {
		capacityHint = minGrow
	}
	ref, err := alloc.Alloc(headerSize + capacityHint*elemSize)
	if err != nil {
		return nil, fmt.Errorf("leaf: alloc: %w", err)
	}
	l := &Leaf{alloc: alloc, ref: ref}
	l.setCount(0)
	return l, nil
}

// Open reconstitutes a handle to a leaf previously returned by Ref. ref
// must not be zero; callers that need to represent "no leaf" should keep
// the zero Ref out of band (this is exactly what the degenerate link-list
// state and the empty backlink multiset do).
func Open(alloc linkcore.Allocator, ref linkcore.Ref) *Leaf {
	if ref == 0 {
		panic("leaf: Open called with zero ref")
	}
	return &Leaf{alloc: alloc, ref: ref}
}

// Ref returns the reference this leaf is stored at.
func (l *Leaf) Ref() linkcore.Ref { return l.ref }

func (l *Leaf) bytes() []byte { return l.alloc.Mutable(l.ref) }

func (l *Leaf) capacity() int {
	return (len(l.bytes()) - headerSize) / elemSize
}

func (l *Leaf) setCount(n int) {
	binary.LittleEndian.PutUint64(l.bytes()[:headerSize], uint64(n))
}

// Size returns the number of elements currently stored.
func (l *Leaf) Size() int {
	return int(binary.LittleEndian.Uint64(l.bytes()[:headerSize]))
}

func (l *Leaf) offset(i int) int { return headerSize + i*elemSize }

// Get returns the element at position i. i must be in [0, Size()).
func (l *Leaf) Get(i int) int64 {
	l.checkIndex(i, l.Size())
	off := l.offset(i)
	return int64(binary.LittleEndian.Uint64(l.bytes()[off : off+elemSize]))
}

// Set overwrites the element at position i. i must be in [0, Size()).
func (l *Leaf) Set(i int, v int64) {
	l.checkIndex(i, l.Size())
	off := l.offset(i)
	binary.LittleEndian.PutUint64(l.bytes()[off:off+elemSize], uint64(v))
}

func (l *Leaf) checkIndex(i, size int) {
	if i < 0 || i >= size {
		panic(fmt.Sprintf("leaf: index %d out of range [0,%d)", i, size))
	}
}

// grow ensures the leaf can hold at least n elements, reallocating and
// copying if necessary.
func (l *Leaf) grow(n int) error {
	if n <= l.capacity() {
		return nil
	}
	newCap := l.capacity() * 2
	if newCap < n {
		newCap = n
	}
	if newCap-l.capacity() < minGrow {
		newCap = l.capacity() + minGrow
	}
	newRef, err := l.alloc.Alloc(headerSize + newCap*elemSize)
	if err != nil {
		return fmt.Errorf("leaf: grow: %w", err)
	}
	copy(l.alloc.Mutable(newRef), l.bytes())
	l.alloc.Free(l.ref)
	l.ref = newRef
	return nil
}

// Insert inserts v at position i, shifting elements at and after i one
// position to the right. i must be in [0, Size()].
func (l *Leaf) Insert(i int, v int64) error {
	size := l.Size()
	l.checkIndex(i, size+1)
	if err := l.grow(size + 1); err != nil {
		return err
	}
	b := l.bytes()
	copy(b[l.offset(i+1):l.offset(size+1)], b[l.offset(i):l.offset(size)])
	l.setCount(size + 1)
	l.Set(i, v)
	return nil
}

// Append adds v to the end of the leaf.
func (l *Leaf) Append(v int64) error {
	return l.Insert(l.Size(), v)
}

// Erase removes the element at position i, shifting later elements left.
// i must be in [0, Size()).
func (l *Leaf) Erase(i int) {
	size := l.Size()
	l.checkIndex(i, size)
	b := l.bytes()
	copy(b[l.offset(i):l.offset(size-1)], b[l.offset(i+1):l.offset(size)])
	l.setCount(size - 1)
}

// FindFirst returns the position of the first element equal to v, or -1
// if v does not occur.
func (l *Leaf) FindFirst(v int64) int {
	size := l.Size()
	for i := 0; i < size; i++ {
		if l.Get(i) == v {
			return i
		}
	}
	return -1
}

// Each calls f for every element in order. f returning false stops the
// iteration early.
func (l *Leaf) Each(f func(i int, v int64) bool) {
	for i, size := 0, l.Size(); i < size; i++ {
		if !f(i, l.Get(i)) {
			return
		}
	}
}

// Destroy frees the leaf's backing storage. The Leaf must not be used
// afterward.
func (l *Leaf) Destroy() {
	l.alloc.Free(l.ref)
	l.ref = 0
}
