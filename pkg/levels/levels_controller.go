package levels

import (
	"log/slog"
	"sync/atomic"
	"time"

	"lsmdb/pkg/dberrors"
	"lsmdb/pkg/key"
	"lsmdb/pkg/sstable"
	"lsmdb/pkg/value"
)

// l0StallRetryInterval is how long AddL0Table sleeps between admission
// attempts while level 0 is full.
const l0StallRetryInterval = 10 * time.Millisecond

// CompactionStatus is a placeholder for the out-of-scope compaction
// scheduler's bookkeeping; the levels controller owns the field so a
// future compactor has somewhere to hang its state without changing this
// package's shape.
type CompactionStatus struct{}

// Opts configures a LevelsController.
type Opts struct {
	MaxLevels               int
	NumLevelZeroTablesStall int
}

// LevelsController sequences point lookups across levels, assigns file
// ids, and admits L0 tables with back-pressure. Invariant: levels[i].Level()
// == i.
type LevelsController struct {
	nextFileID atomic.Uint64
	levels     []*LevelHandler
	cptStatus  CompactionStatus
}

// New builds a controller with opts.MaxLevels empty handlers.
func New(opts Opts) *LevelsController {
	levels := make([]*LevelHandler, opts.MaxLevels)
	for i := range levels {
		levels[i] = NewLevelHandler(i, opts.NumLevelZeroTablesStall)
	}
	return &LevelsController{levels: levels}
}

// Level returns the i-th level handler.
func (lc *LevelsController) Level(i int) *LevelHandler { return lc.levels[i] }

// NumLevels returns the number of configured levels.
func (lc *LevelsController) NumLevels() int { return len(lc.levels) }

// ReserveFileID atomically returns the next unused file id, monotonic
// across the process lifetime.
func (lc *LevelsController) ReserveFileID() uint64 {
	return lc.nextFileID.Add(1)
}

// SkipFileIDsTo advances the file id counter so the next ReserveFileID call
// returns at least n+1, without allocating every id in between. Used on
// startup once existing table files have been discovered and their
// highest id is known.
func (lc *LevelsController) SkipFileIDsTo(n uint64) {
	for {
		cur := lc.nextFileID.Load()
		if cur >= n {
			return
		}
		if lc.nextFileID.CompareAndSwap(cur, n) {
			return
		}
	}
}

// AddL0Table admits t into level 0, retrying with a fixed 10ms sleep while
// the level is at its stall threshold. Cancellation is not supported; the
// only way out of a stuck stall is process exit.
func (lc *LevelsController) AddL0Table(t *sstable.Table) {
	l0 := lc.levels[0]
	for !l0.TryAddL0Table(t) {
		slog.Warn("l0 stalled", "tables", l0.NumTables())
		time.Sleep(l0StallRetryInterval)
	}
}

// Get walks levels from startLevel upward looking for target (an internal
// key whose version suffix names the exact version requested). A
// tombstone at a level is skipped in favor of deeper levels; a value whose
// version matches the requested one is returned immediately; if no level
// yields a match, maxValue — the caller's best-known candidate, typically
// from the memtable — is returned as-is.
func (lc *LevelsController) Get(target []byte, maxValue value.Value) (value.Value, error) {
	return lc.GetFrom(target, maxValue, 0)
}

// GetFrom is Get with an explicit starting level, skipping everything
// below it.
func (lc *LevelsController) GetFrom(target []byte, maxValue value.Value, startLevel int) (value.Value, error) {
	wantVersion := key.Timestamp(target)

	for i := startLevel; i < len(lc.levels); i++ {
		v, found, err := lc.levels[i].Get(target)
		if err != nil {
			return value.Value{}, dberrors.CustomError(target, err)
		}
		if !found {
			continue
		}
		if v.IsTombstone() {
			continue
		}
		if v.Version == wantVersion {
			return v, nil
		}
	}

	return maxValue, nil
}
