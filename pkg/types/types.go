package types

// Key is an immutable byte slice type alias used for clarity.
type Key = []byte

// Value is an immutable byte slice type alias used for clarity.
type Value = []byte

// SequenceNumber represents a monotonically increasing sequence used for
// version assignment and snapshot reads.
type SequenceNumber uint64
