// Package iterator defines the common traversal protocol shared by block,
// table, and merge iterators: a capability set rather than a deep
// interface hierarchy.
package iterator

import "lsmdb/pkg/value"

// Iterator enumerates a sorted sequence of internal-key/value pairs in
// either direction.
type Iterator interface {
	// Seek moves to the first key >= target (or <= target when the
	// iterator was constructed reversed).
	Seek(target []byte)
	// SeekToFirst moves to the smallest key the iterator can reach.
	SeekToFirst()
	// SeekToLast moves to the largest key the iterator can reach.
	SeekToLast()
	// Next advances to the next key.
	Next()
	// Prev moves to the previous key.
	Prev()
	// Valid reports whether the iterator currently points to an entry.
	Valid() bool
	// Key returns the current internal key. Only valid when Valid().
	Key() []byte
	// Value returns the current value. Only valid when Valid().
	Value() value.Value
	// Err returns the error, if any, that made the iterator invalid. A
	// clean end-of-sequence is not an error: Err then returns nil.
	Err() error
}
