package memtable

import (
	"testing"

	"lsmdb/pkg/key"
	"lsmdb/pkg/value"
)

func buildTestMemtable(t *testing.T) *Memtable {
	t.Helper()
	mt := New(1 << 20)
	entries := []struct {
		k  string
		ts uint64
	}{
		{"a", 1}, {"b", 1}, {"c", 1},
	}
	for _, e := range entries {
		if _, err := mt.Upsert(key.AppendTimestamp([]byte(e.k), e.ts), value.Value{Meta: 1, Payload: []byte(e.k)}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	return mt
}

func TestMemtableIteratorForwardTraversal(t *testing.T) {
	mt := buildTestMemtable(t)
	it := NewIterator(mt)
	it.SeekToFirst()

	want := []string{"a", "b", "c"}
	for i, w := range want {
		if !it.Valid() {
			t.Fatalf("entry %d: not valid", i)
		}
		if got := string(key.UserKey(it.Key())); got != w {
			t.Fatalf("entry %d: key = %q, want %q", i, got, w)
		}
		it.Next()
	}
	if it.Valid() {
		t.Fatalf("iterator should be exhausted after the last entry")
	}
	if it.Err() != nil {
		t.Fatalf("exhaustion should not be an error: %v", it.Err())
	}
}

func TestMemtableIteratorReverseTraversal(t *testing.T) {
	mt := buildTestMemtable(t)
	it := NewIterator(mt)
	it.SeekToLast()

	want := []string{"c", "b", "a"}
	for i, w := range want {
		if !it.Valid() {
			t.Fatalf("entry %d: not valid", i)
		}
		if got := string(key.UserKey(it.Key())); got != w {
			t.Fatalf("entry %d: key = %q, want %q", i, got, w)
		}
		it.Prev()
	}
	if it.Valid() {
		t.Fatalf("iterator should be exhausted before the first entry")
	}
}

func TestMemtableIteratorSeek(t *testing.T) {
	mt := buildTestMemtable(t)
	it := NewIterator(mt)
	it.Seek(key.AppendTimestamp([]byte("aa"), 0))
	if !it.Valid() {
		t.Fatalf("seek(aa‖0): not valid, want positioned at b‖1")
	}
	if got := string(key.UserKey(it.Key())); got != "b" {
		t.Fatalf("seek(aa‖0) landed on %q, want %q", got, "b")
	}
}

func TestMemtableIteratorSeekPastEnd(t *testing.T) {
	mt := buildTestMemtable(t)
	it := NewIterator(mt)
	it.Seek(key.AppendTimestamp([]byte("z"), 0))
	if it.Valid() {
		t.Fatalf("seek(z‖0) past every entry should leave the iterator invalid")
	}
	if it.Err() != nil {
		t.Fatalf("seeking past the end is a clean EOF, not an error: %v", it.Err())
	}
}
