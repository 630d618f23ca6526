// Package strtab implements lemonscript's flyweight string table: every
// identifier-like string (names, labels) is interned once, and a 64-bit
// Murmur2-64 hash of its bytes becomes the string's primary identity
// everywhere else in the compiler and runtime. Lookups after interning
// never compare string contents again — hash equality suffices, per
// spec.md §3.3.
package strtab

const (
	numBuckets = 1024 // power of two; low bits of the hash select a bucket
	bucketMask = numBuckets - 1
)

// Handle is the 64-bit identity of an interned string. It is cheap to copy
// and is what stack cells, opcodes, and serialized records actually store;
// spec.md §3.1 calls this out explicitly for string-typed stack cells.
type Handle uint64

// entry is one node of a bucket's overflow linked list. Entries are never
// freed or moved once allocated, so the Handle returned by Intern keeps
// resolving to the same text for the lifetime of the Table — spec.md §5's
// "adding a string never invalidates previously returned pointers".
type entry struct {
	hash uint64
	text string
	next *entry
}

// Table is a single flyweight string table: a fixed-size bucket array plus
// linked overflow lists, as spec.md §3.3 specifies.
type Table struct {
	buckets [numBuckets]*entry
}

// New creates an empty string table.
func New() *Table {
	return &Table{}
}

// Intern records s in the table if it is not already present and returns
// its Handle. Interning the same string twice returns the same Handle and
// resolves to the same underlying entry (idempotent, per spec.md §8).
func (t *Table) Intern(s string) Handle {
	h := Murmur2_64([]byte(s), 0)
	bucket := &t.buckets[h&bucketMask]
	for e := *bucket; e != nil; e = e.next {
		if e.hash == h {
			// Hash equality is definitive per spec.md §3.3; we do not
			// fall back to a string compare even on the (vanishingly
			// unlikely) chance of a collision, since every other part of
			// the system treats the hash as sole identity too.
			return Handle(h)
		}
	}
	*bucket = &entry{hash: h, text: s, next: *bucket}
	return Handle(h)
}

// Lookup returns the string previously interned under h, if any.
func (t *Table) Lookup(h Handle) (string, bool) {
	bucket := &t.buckets[uint64(h)&bucketMask]
	for e := *bucket; e != nil; e = e.next {
		if e.hash == uint64(h) {
			return e.text, true
		}
	}
	return "", false
}

// MustLookup is Lookup but panics if h was never interned in this table;
// useful in contexts (disassembly, tracing) where the handle is known to
// come from this same table.
func (t *Table) MustLookup(h Handle) string {
	s, ok := t.Lookup(h)
	if !ok {
		panic("strtab: handle not found in table")
	}
	return s
}

// Hash computes the Handle a string would get without interning it; used by
// callers that only need to compare against already-interned handles (for
// example looking a name up in a map keyed by Handle).
func Hash(s string) Handle {
	return Handle(Murmur2_64([]byte(s), 0))
}
