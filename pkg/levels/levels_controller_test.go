package levels

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lsmdb/pkg/dberrors"
	"lsmdb/pkg/key"
	"lsmdb/pkg/sstable"
	"lsmdb/pkg/value"
)

func buildControllerTable(t *testing.T, dir, name string, id uint64, keys []string, versions []uint64, vals []value.Value) *sstable.Table {
	t.Helper()
	tb := sstable.NewTableBuilder(4096, 0.01)
	for i, k := range keys {
		ik := key.AppendTimestamp([]byte(k), versions[i])
		tb.Add(ik, vals[i])
	}
	path := filepath.Join(dir, name)
	if _, err := tb.Finish(path); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	tbl, err := sstable.OpenTable(id, path, nil)
	if err != nil {
		t.Fatalf("OpenTable: %v", err)
	}
	t.Cleanup(func() { _ = tbl.Close() })
	return tbl
}

func TestLevelsControllerSkipsTombstoneToDeeperLevel(t *testing.T) {
	dir := t.TempDir()
	lc := New(Opts{MaxLevels: 3, NumLevelZeroTablesStall: 10})

	// L0 carries a tombstone for "k" (a deletion written after the L1 value).
	l0Tbl := buildControllerTable(t, dir, "l0.sst", 1,
		[]string{"k"}, []uint64{9},
		[]value.Value{{Meta: 0, Payload: nil}})
	lc.Level(0).TryAddL0Table(l0Tbl)

	// L1 holds the live value at version 7. TryAddL0Table only admits to
	// level 0, so level 1 is populated directly (same package, test-only).
	l1Tbl := buildControllerTable(t, dir, "l1.sst", 2,
		[]string{"k"}, []uint64{7},
		[]value.Value{{Meta: 1, Payload: []byte("v7")}})
	l1 := lc.Level(1)
	l1.mu.Lock()
	l1.tables = append(l1.tables, l1Tbl)
	l1.totalSize += l1Tbl.Size()
	l1.mu.Unlock()

	got, err := lc.GetFrom(key.AppendTimestamp([]byte("k"), 7), value.Value{}, 0)
	if err != nil {
		t.Fatalf("GetFrom: %v", err)
	}
	if got.Version != 7 || string(got.Payload) != "v7" {
		t.Fatalf("GetFrom(k‖7) = %+v, want version 7 payload \"v7\"", got)
	}
}

func TestLevelsControllerMaxValueFallback(t *testing.T) {
	lc := New(Opts{MaxLevels: 3, NumLevelZeroTablesStall: 10})
	fallback := value.Value{Version: 1, Payload: []byte("from memtable")}

	got, err := lc.GetFrom(key.AppendTimestamp([]byte("missing"), 1), fallback, 0)
	if err != nil {
		t.Fatalf("GetFrom: %v", err)
	}
	if string(got.Payload) != "from memtable" {
		t.Fatalf("GetFrom with no level match = %+v, want the maxValue fallback", got)
	}
}

func TestLevelsControllerExactVersionMatch(t *testing.T) {
	dir := t.TempDir()
	lc := New(Opts{MaxLevels: 2, NumLevelZeroTablesStall: 10})

	tbl := buildControllerTable(t, dir, "t.sst", 1,
		[]string{"k", "k"}, []uint64{5, 3},
		[]value.Value{{Meta: 1, Payload: []byte("v5")}, {Meta: 1, Payload: []byte("v3")}})
	lc.Level(0).TryAddL0Table(tbl)

	got, err := lc.GetFrom(key.AppendTimestamp([]byte("k"), 3), value.Value{}, 0)
	if err != nil {
		t.Fatalf("GetFrom: %v", err)
	}
	if got.Version != 3 || string(got.Payload) != "v3" {
		t.Fatalf("GetFrom(k‖3) = %+v, want the exact version-3 match", got)
	}
}

func TestLevelsControllerWrapsLowerLevelError(t *testing.T) {
	dir := t.TempDir()
	lc := New(Opts{MaxLevels: 1, NumLevelZeroTablesStall: 10})

	path := filepath.Join(dir, "l0.sst")
	tbl := buildControllerTable(t, dir, "l0.sst", 1,
		[]string{"k"}, []uint64{7},
		[]value.Value{{Meta: 1, Payload: []byte("v7")}})
	lc.Level(0).TryAddL0Table(tbl)

	// Truncate the backing file out from under the already-open table so
	// the next block read fails with a genuine I/O error, mirroring a
	// corrupted/short table on disk.
	if err := os.Truncate(path, 0); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	target := key.AppendTimestamp([]byte("k"), 7)
	_, err := lc.GetFrom(target, value.Value{}, 0)
	if err == nil {
		t.Fatalf("GetFrom over a truncated table = nil error, want a wrapped CustomError")
	}
	if !strings.Contains(err.Error(), "get key") {
		t.Fatalf("GetFrom error = %q, want it wrapped via dberrors.CustomError (\"get key ...\")", err.Error())
	}
	want := dberrors.CustomError(target, errors.New("x"))
	wantPrefix := strings.SplitN(want.Error(), "x", 2)[0]
	if !strings.HasPrefix(err.Error(), wantPrefix) {
		t.Fatalf("GetFrom error = %q, want prefix %q from dberrors.CustomError", err.Error(), wantPrefix)
	}
}

func TestReserveFileIDMonotonic(t *testing.T) {
	lc := New(Opts{MaxLevels: 1, NumLevelZeroTablesStall: 10})
	a := lc.ReserveFileID()
	b := lc.ReserveFileID()
	if b <= a {
		t.Fatalf("ReserveFileID not monotonic: %d then %d", a, b)
	}
}

func TestSkipFileIDsTo(t *testing.T) {
	lc := New(Opts{MaxLevels: 1, NumLevelZeroTablesStall: 10})
	lc.SkipFileIDsTo(100)
	if got := lc.ReserveFileID(); got <= 100 {
		t.Fatalf("ReserveFileID after SkipFileIDsTo(100) = %d, want > 100", got)
	}

	lc.SkipFileIDsTo(1) // smaller than current counter: must not regress
	before := lc.ReserveFileID()
	lc.SkipFileIDsTo(1)
	after := lc.ReserveFileID()
	if after <= before {
		t.Fatalf("SkipFileIDsTo(lower) must not reset the counter backward")
	}
}
