package store

import "lsmdb/pkg/types"

// Snapshot implements snapshot.Snapshot: a pinned version ceiling that
// makes repeated GetAt calls see a consistent point-in-time view even as
// later writes land in the memtable or get flushed to a new level.
type Snapshot struct {
	seq uint64
}

// Sequence returns the version ceiling this snapshot pinned.
func (s *Snapshot) Sequence() types.SequenceNumber {
	return types.SequenceNumber(s.seq)
}

// Close releases the snapshot. Nothing is pinned beyond the version
// number itself (no reference counting of tables is needed, since
// LevelHandler.Get reads under its level's lock rather than holding a
// long-lived reference), so Close is a no-op kept for interface
// conformance and future extension.
func (s *Snapshot) Close() error {
	return nil
}
