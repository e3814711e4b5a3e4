// Package store is the facade wiring the memtable, write-ahead log, and
// levels controller into a single Put/Get/Delete/Write/Close surface.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lsmdb/pkg/batch"
	"lsmdb/pkg/clock"
	"lsmdb/pkg/config"
	"lsmdb/pkg/dberrors"
	"lsmdb/pkg/key"
	"lsmdb/pkg/levels"
	"lsmdb/pkg/listener"
	"lsmdb/pkg/memtable"
	"lsmdb/pkg/snapshot"
	"lsmdb/pkg/sstable"
	"lsmdb/pkg/value"
	"lsmdb/pkg/wal"
)

// syncInterval is how often the background listener flushes the WAL's mmap
// to disk. WriteEntry alone does not sync; durability rides on this loop
// (or on SyncWrites at segment close).
const syncInterval = 200 * time.Millisecond

// A tombstone is an empty payload with zero meta. A live write always
// carries metaLive even when its payload happens to be empty, so it is
// never mistaken for a tombstone.
const (
	metaTombstone byte = 0
	metaLive      byte = 1
)

// Store is the embedded engine's single entry point: one memtable backed
// by one WAL segment at a time, flushing into level 0 of a LevelsController
// as the WAL crosses its configured segment size.
type Store struct {
	mu sync.Mutex // serializes writes and memtable/WAL rotation

	cfg     *config.Config
	dataDir string

	journal *wal.WAL
	walSeq  uint64

	mt    *memtable.Memtable
	lc    *levels.LevelsController
	cache *sstable.BlockCache
	clk   *clock.AtomicClock

	syncer *listener.Listener[time.Time]
	ticker *time.Ticker

	closed bool
}

// Open creates or recovers a Store rooted at cfg.DB.Persistence.RootPath.
func Open(cfg *config.Config) (*Store, error) {
	dataDir := cfg.DB.Persistence.RootPath
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("store: create data dir %s: %w", dataDir, err)
	}

	s := &Store{
		cfg:     cfg,
		dataDir: dataDir,
		mt:      memtable.New(cfg.DB.Memtable.FlushThresholdBytes),
		lc: levels.New(levels.Opts{
			MaxLevels:               cfg.DB.Persistence.Levels.MaxLevels,
			NumLevelZeroTablesStall: cfg.DB.Persistence.Levels.NumLevelZeroTablesStall,
		}),
		cache: sstable.NewBlockCache(cfg.DB.Persistence.Cache.Capacity),
		clk:   clock.NewAtomic(0),
	}

	if err := s.recoverExistingTables(); err != nil {
		return nil, err
	}

	replayed, err := s.replaySegments()
	if err != nil {
		return nil, err
	}

	// A closed-out segment is truncated to its final size and can never
	// accept appends again, so writes always start on a fresh segment.
	journal, err := wal.Open(s.walPath(s.nextWalSeq()), wal.Opts{
		ValueLogFileSize: cfg.DB.Persistence.WAL.ValueLogFileSize,
		SyncWrites:       cfg.DB.Persistence.WAL.SyncWrites,
	})
	if err != nil {
		return nil, err
	}
	s.journal = journal

	// Recovered entries are flushed straight to level 0 so the replayed
	// segments can be removed; keeping them memtable-only would tie their
	// durability to files about to be deleted.
	if s.mt.Len() > 0 {
		if err := s.flushMemtable(s.mt); err != nil {
			_ = journal.Close()
			return nil, fmt.Errorf("store: flush recovered entries: %w", err)
		}
		s.mt = memtable.New(cfg.DB.Memtable.FlushThresholdBytes)
	}
	for _, p := range replayed {
		if err := os.Remove(p); err != nil {
			slog.Warn("failed to remove replayed wal segment", "path", p, "error", err)
		}
	}

	tick := time.NewTicker(syncInterval)
	s.ticker = tick
	s.syncer = listener.New(chanFromTicker(tick), func(time.Time) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return nil
		}
		return s.journal.Sync()
	})
	s.syncer.Start(context.Background())

	return s, nil
}

func chanFromTicker(t *time.Ticker) <-chan time.Time { return t.C }

// recoverExistingTables reopens any SST files left in dataDir from a prior
// run, admitting them all to level 0. There is no manifest recording level
// placement yet, so every *.sst found is treated as L0 data, which the
// merge-iterator lookup handles correctly regardless of true level
// placement.
func (s *Store) recoverExistingTables() error {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("store: read data dir: %w", err)
	}

	var maxID uint64
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sst" {
			continue
		}
		var id uint64
		if _, err := fmt.Sscanf(e.Name(), "%06d.sst", &id); err != nil {
			continue
		}
		path := filepath.Join(s.dataDir, e.Name())
		t, err := sstable.OpenTable(id, path, s.cache)
		if err != nil {
			return fmt.Errorf("store: open sstable %s: %w", path, err)
		}
		s.lc.AddL0Table(t)
		if id > maxID {
			maxID = id
		}
	}
	s.lc.SkipFileIDsTo(maxID)
	return nil
}

func (s *Store) nextWalSeq() uint64 {
	s.walSeq++
	return s.walSeq
}

func (s *Store) walPath(seq uint64) string {
	return filepath.Join(s.dataDir, fmt.Sprintf("%06d.wal", seq))
}

// replaySegments restores the memtable (and version clock) from every WAL
// segment left in dataDir by a prior run, returning the replayed segment
// paths and leaving s.walSeq past the highest segment number seen. Replay
// order doesn't matter for correctness: entries carry their version in the
// internal key, so the memtable resolves duplicates the same way
// regardless.
func (s *Store) replaySegments() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.dataDir, "*.wal"))
	if err != nil {
		return nil, fmt.Errorf("store: glob wal segments: %w", err)
	}

	var replayed []string
	for _, p := range paths {
		var seq uint64
		if _, err := fmt.Sscanf(filepath.Base(p), "%06d.wal", &seq); err != nil {
			continue
		}
		if seq > s.walSeq {
			s.walSeq = seq
		}

		w, err := wal.Open(p, wal.Opts{
			ValueLogFileSize: s.cfg.DB.Persistence.WAL.ValueLogFileSize,
			SyncWrites:       s.cfg.DB.Persistence.WAL.SyncWrites,
		})
		if err != nil {
			return nil, fmt.Errorf("store: reopen wal segment %s: %w", p, err)
		}
		if err := s.replayInto(w); err != nil {
			_ = w.Close()
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		replayed = append(replayed, p)
	}
	return replayed, nil
}

func (s *Store) replayInto(w *wal.WAL) error {
	it := wal.NewIterator(w)
	for {
		e, ok := it.Next()
		if !ok {
			return nil
		}
		v := value.Value{
			Meta:      e.Meta,
			UserMeta:  e.UserMeta,
			ExpiresAt: e.ExpiresAt,
			Version:   key.Timestamp(e.Key),
			Payload:   e.Value,
		}
		ik := append([]byte(nil), e.Key...)
		v.Payload = append([]byte(nil), v.Payload...)
		if _, err := s.mt.Upsert(ik, v); err != nil && err != memtable.ErrMemTableOverload {
			return err
		}
		if v.Version > s.clk.Val() {
			s.clk.Set(v.Version)
		}
	}
}

// Put stores val under key as of a new version, tagging the write as live
// even when val is empty so it is never mistaken for a tombstone.
func (s *Store) Put(key []byte, val []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(key, val, metaLive, 0)
}

// Delete records a tombstone for key: the empty-payload, zero-meta marker.
// Get and GetAt report the key as absent once their walk reaches it.
func (s *Store) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(key, nil, metaTombstone, 0)
}

// Write applies wb's mutations as a sequence of individually versioned
// writes under one held lock, so no other writer's entry can interleave.
func (s *Store) Write(wb *WriteBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range wb.entries {
		meta := metaLive
		if e.del {
			meta = metaTombstone
		}
		if err := s.writeLocked(e.key, e.value, meta, 0); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) writeLocked(userKey, val []byte, meta byte, expiresAt uint64) error {
	if s.closed {
		return dberrors.ErrClosed
	}
	if len(userKey) == 0 {
		return dberrors.ErrEmptyKey
	}

	version := s.clk.Next()
	ik := key.AppendTimestamp(userKey, version)

	if err := s.journal.WriteEntry(wal.Entry{
		Meta:      meta,
		ExpiresAt: expiresAt,
		Key:       ik,
		Value:     val,
	}); err != nil {
		return err
	}

	v := value.Value{Meta: meta, ExpiresAt: expiresAt, Version: version, Payload: val}
	if _, err := s.mt.Upsert(ik, v); err != nil && err != memtable.ErrMemTableOverload {
		return err
	}

	if s.journal.ShouldFlush() {
		return s.rotateLocked()
	}
	return nil
}

// rotateLocked freezes the current memtable into a new L0 SSTable, resets
// the memtable, and rolls the WAL onto a fresh segment — the flush/rotate
// step that follows ShouldFlush() reporting a full segment.
func (s *Store) rotateLocked() error {
	frozen := s.mt
	writeAt := s.journal.WriteAt()
	oldJournal := s.journal

	if err := s.flushMemtable(frozen); err != nil {
		return fmt.Errorf("store: flush memtable: %w", err)
	}

	newJournal, err := wal.Open(s.walPath(s.nextWalSeq()), wal.Opts{
		ValueLogFileSize: s.cfg.DB.Persistence.WAL.ValueLogFileSize,
		SyncWrites:       s.cfg.DB.Persistence.WAL.SyncWrites,
	})
	if err != nil {
		return fmt.Errorf("store: open new wal segment: %w", err)
	}

	if err := oldJournal.DoneWriting(writeAt); err != nil {
		return fmt.Errorf("store: close out wal segment: %w", err)
	}
	if err := oldJournal.Close(); err != nil {
		return fmt.Errorf("store: close wal segment: %w", err)
	}
	// The frozen memtable is durably in its L0 table now; the segment that
	// backed it has nothing left to recover.
	if err := os.Remove(oldJournal.Path()); err != nil {
		slog.Warn("failed to remove flushed wal segment", "path", oldJournal.Path(), "error", err)
	}

	s.mt = memtable.New(s.cfg.DB.Memtable.FlushThresholdBytes)
	s.journal = newJournal
	return nil
}

// flushMemtable writes snapshot's entries (already in ascending internal-key
// order, per pkg/memtable.Memtable.Snapshot) into one new L0 table.
func (s *Store) flushMemtable(mt *memtable.Memtable) error {
	items := mt.Snapshot()
	if len(items) == 0 {
		return nil
	}

	tb := sstable.NewTableBuilder(s.cfg.DB.Persistence.SSTable.BlockSizeBytes, s.cfg.DB.Persistence.BloomFilter.FPRate)
	for _, it := range items {
		tb.Add(it.Key, it.Value)
	}

	id := s.lc.ReserveFileID()
	path := filepath.Join(s.dataDir, fmt.Sprintf("%06d.sst", id))
	if _, err := tb.Finish(path); err != nil {
		return err
	}

	t, err := sstable.OpenTable(id, path, s.cache)
	if err != nil {
		return err
	}
	s.lc.AddL0Table(t)
	return nil
}

// getAsOf walks the memtable then every level for the newest version of
// userKey visible at or before version. It intentionally does not route
// through LevelsController.Get/GetFrom: that method only returns early on
// an exact version match, which fits a caller that already knows the
// target version (e.g. a transaction confirming its own commit) rather
// than a generic "newest visible value" read. LevelHandler.Get itself
// performs no version filtering, so this walk applies its own. A tombstone,
// in the memtable or at any level, ends the walk with a miss.
func (s *Store) getAsOf(userKey []byte, version uint64) (value.Value, bool, error) {
	target := key.AppendTimestamp(userKey, version)

	mit := memtable.NewIterator(s.mt)
	mit.Seek(target)
	if mit.Valid() && key.SameKey(mit.Key(), target) {
		v := mit.Value()
		if v.IsTombstone() {
			return value.Value{}, false, nil
		}
		return v, true, nil
	}

	for i := 0; i < s.lc.NumLevels(); i++ {
		v, found, err := s.lc.Level(i).Get(target)
		if err != nil {
			return value.Value{}, false, dberrors.CustomError(userKey, err)
		}
		if !found {
			continue
		}
		if v.IsTombstone() {
			return value.Value{}, false, nil
		}
		return v, true, nil
	}

	return value.Value{}, false, nil
}

// Get returns the newest visible value for key, if any.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, found, err := s.getAsOf(key, math.MaxUint64)
	if !found || err != nil {
		return nil, found, err
	}
	return v.Payload, true, nil
}

// GetAt returns the value visible under snap: the newest version of key at
// or before the sequence snap pinned when it was taken.
func (s *Store) GetAt(key []byte, snap *Snapshot) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, found, err := s.getAsOf(key, uint64(snap.Sequence()))
	if !found || err != nil {
		return nil, found, err
	}
	return v.Payload, true, nil
}

// NewSnapshot pins the current version ceiling for repeatable reads via
// GetAt.
func (s *Store) NewSnapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Snapshot{seq: s.clk.Val()}
}

// Close stops the background WAL syncer, flushes the journal out, and
// releases its mapping.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	writeAt := s.journal.WriteAt()
	s.mu.Unlock()

	s.ticker.Stop()
	s.syncer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.journal.DoneWriting(writeAt); err != nil {
		return err
	}
	return s.journal.Close()
}

var _ batch.WriteBatch = (*WriteBatch)(nil)
var _ snapshot.Snapshot = (*Snapshot)(nil)
