package store

import "lsmdb/pkg/types"

type writeBatchEntry struct {
	key   []byte
	value []byte
	del   bool
}

// WriteBatch implements batch.WriteBatch: an ordered list of mutations
// applied atomically under one lock hold by Store.Write.
type WriteBatch struct {
	entries []writeBatchEntry
}

// NewWriteBatch returns an empty batch.
func NewWriteBatch() *WriteBatch {
	return &WriteBatch{}
}

// Put records a key/value mutation.
func (wb *WriteBatch) Put(key types.Key, value types.Value) {
	wb.entries = append(wb.entries, writeBatchEntry{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
}

// Delete records a tombstone mutation.
func (wb *WriteBatch) Delete(key types.Key) {
	wb.entries = append(wb.entries, writeBatchEntry{
		key: append([]byte(nil), key...),
		del: true,
	})
}

// Clear discards every recorded mutation.
func (wb *WriteBatch) Clear() {
	wb.entries = wb.entries[:0]
}

// Count returns the number of recorded mutations.
func (wb *WriteBatch) Count() int {
	return len(wb.entries)
}
