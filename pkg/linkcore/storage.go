package linkcore

// Ref is a reference to an allocated block of bytes. The zero value, 0,
// is reserved to mean "no reference" wherever a Ref appears in a leaf or
// backlink slot.
type Ref int64

// Allocator is the storage contract the core consumes. It owns the bytes
// a Leaf is made of; the core never assumes anything about how those
// bytes reach disk. Page allocation, memory-mapping, and the
// transaction/commit pipeline that makes a Ref durable are all external
// collaborators this package does not implement — see the memstore and
// sqlitestore packages for the two concrete Allocators this module ships.
type Allocator interface {
	// Alloc reserves size bytes and returns a reference to them. The
	// returned block's contents are unspecified (not guaranteed zeroed).
	Alloc(size int) (Ref, error)

	// Free releases the block referenced by ref. Freeing an already-free
	// or zero Ref is a no-op.
	Free(ref Ref)

	// Mutable returns a byte slice backed by the block referenced by ref.
	// Writes through the returned slice are visible to subsequent Mutable
	// calls for the same ref. Calling Mutable on a zero Ref panics.
	Mutable(ref Ref) []byte

	// IsReadOnly reports whether ref refers to a block the caller must
	// not mutate in place (for example, a block shared with a stable
	// snapshot held by a separate read transaction).
	IsReadOnly(ref Ref) bool
}
