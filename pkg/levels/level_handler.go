// Package levels implements the per-level table collection and the
// multi-level point lookup that walks them in order.
package levels

import (
	"sync"

	"lsmdb/pkg/iterator"
	"lsmdb/pkg/key"
	"lsmdb/pkg/mergeiter"
	"lsmdb/pkg/sstable"
	"lsmdb/pkg/value"
)

// LevelHandler holds one level's tables and serves point lookups within it.
// Invariant (maintained by the, out-of-scope, compactor rather than this
// package): for level > 0 the tables are pairwise key-disjoint and sorted
// by first key.
type LevelHandler struct {
	mu sync.RWMutex

	level                   int
	numLevelZeroTablesStall int

	tables    []*sstable.Table
	totalSize int64
}

// NewLevelHandler returns an empty handler for the given level.
// numLevelZeroTablesStall only matters for level 0's admission stall.
func NewLevelHandler(level, numLevelZeroTablesStall int) *LevelHandler {
	return &LevelHandler{level: level, numLevelZeroTablesStall: numLevelZeroTablesStall}
}

// Level returns the handler's level index.
func (lh *LevelHandler) Level() int { return lh.level }

// NumTables returns the current number of tables held at this level.
func (lh *LevelHandler) NumTables() int {
	lh.mu.RLock()
	defer lh.mu.RUnlock()
	return len(lh.tables)
}

// TotalSize returns the sum of table.Size() over the level's tables.
func (lh *LevelHandler) TotalSize() int64 {
	lh.mu.RLock()
	defer lh.mu.RUnlock()
	return lh.totalSize
}

// TryAddL0Table admits t into level 0, refusing once the level already
// holds numLevelZeroTablesStall tables. Only valid at level 0 — calling it
// on any other level is a programming error.
func (lh *LevelHandler) TryAddL0Table(t *sstable.Table) bool {
	if lh.level != 0 {
		panic("levels: TryAddL0Table called on a non-zero level")
	}

	lh.mu.Lock()
	defer lh.mu.Unlock()

	if len(lh.tables) >= lh.numLevelZeroTablesStall {
		return false
	}
	lh.tables = append(lh.tables, t)
	lh.totalSize += t.Size()
	return true
}

// Get looks up target (an internal key) within this level's tables. The
// current policy builds a merge iterator over all of the level's tables,
// newest table first, and seeks — the only correct policy at L0, where
// tables may overlap in key range. Only the first entry at or after target
// in internal-key order is examined: found=false when its user-key differs
// from target's, which includes a user key held only at versions newer
// than target's. The returned value's Version is the found key's version
// suffix. Callers (LevelsController) are responsible for interpreting
// tombstones and version matching — this method does not filter by version.
func (lh *LevelHandler) Get(target []byte) (v value.Value, found bool, err error) {
	lh.mu.RLock()
	defer lh.mu.RUnlock()

	if len(lh.tables) == 0 {
		return value.Value{}, false, nil
	}

	// Tables whose bloom filter rules the user key out never get an
	// iterator. Later admissions hold newer data, so tables are passed
	// newest first: the merge favours earlier inputs on equal user keys.
	userKey := key.UserKey(target)
	iters := make([]iterator.Iterator, 0, len(lh.tables))
	for i := len(lh.tables) - 1; i >= 0; i-- {
		t := lh.tables[i]
		if !t.MayContainKey(userKey) {
			continue
		}
		iters = append(iters, sstable.NewTableIterator(t, 0))
	}
	if len(iters) == 0 {
		return value.Value{}, false, nil
	}

	mi := mergeiter.New(iters, false)
	mi.Seek(target)
	if !mi.Valid() {
		return value.Value{}, false, mi.Err()
	}
	if !key.SameKey(mi.Key(), target) {
		return value.Value{}, false, mi.Err()
	}
	v = mi.Value()
	v.Version = key.Timestamp(mi.Key())
	return v, true, nil
}
