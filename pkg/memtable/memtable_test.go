package memtable

import (
	"errors"
	"testing"

	"lsmdb/pkg/key"
	"lsmdb/pkg/value"
)

func TestMemtableUpsertAndGet(t *testing.T) {
	mt := New(1 << 20)
	ik := key.AppendTimestamp([]byte("k"), 1)

	replaced, err := mt.Upsert(ik, value.Value{Meta: 1, Payload: []byte("v1")})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if replaced {
		t.Fatalf("Upsert on a fresh key reported replaced=true")
	}

	got, ok := mt.Get(ik)
	if !ok {
		t.Fatalf("Get: not found after Upsert")
	}
	if string(got.Value.Payload) != "v1" {
		t.Fatalf("Get().Value.Payload = %q, want %q", got.Value.Payload, "v1")
	}

	replaced, err = mt.Upsert(ik, value.Value{Meta: 1, Payload: []byte("v2")})
	if err != nil {
		t.Fatalf("Upsert (replace): %v", err)
	}
	if !replaced {
		t.Fatalf("Upsert on an existing exact internal key reported replaced=false")
	}
	got, _ = mt.Get(ik)
	if string(got.Value.Payload) != "v2" {
		t.Fatalf("Get().Value.Payload after replace = %q, want %q", got.Value.Payload, "v2")
	}
}

func TestMemtableDistinctVersionsAreDistinctEntries(t *testing.T) {
	mt := New(1 << 20)
	ikOld := key.AppendTimestamp([]byte("k"), 1)
	ikNew := key.AppendTimestamp([]byte("k"), 2)

	if _, err := mt.Upsert(ikOld, value.Value{Payload: []byte("old")}); err != nil {
		t.Fatalf("Upsert old: %v", err)
	}
	if _, err := mt.Upsert(ikNew, value.Value{Payload: []byte("new")}); err != nil {
		t.Fatalf("Upsert new: %v", err)
	}

	if mt.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (different versions of the same user key don't collide)", mt.Len())
	}
}

func TestMemtableSnapshotOrder(t *testing.T) {
	mt := New(1 << 20)
	mt.Upsert(key.AppendTimestamp([]byte("b"), 1), value.Value{Payload: []byte("b1")})
	mt.Upsert(key.AppendTimestamp([]byte("a"), 5), value.Value{Payload: []byte("a5")})
	mt.Upsert(key.AppendTimestamp([]byte("a"), 3), value.Value{Payload: []byte("a3")})

	items := mt.Snapshot()
	if len(items) != 3 {
		t.Fatalf("Snapshot() len = %d, want 3", len(items))
	}
	for i := 0; i < len(items)-1; i++ {
		if key.Compare(items[i].Key, items[i+1].Key) >= 0 {
			t.Fatalf("Snapshot() not in ascending internal-key order at %d: %x then %x", i, items[i].Key, items[i+1].Key)
		}
	}
	// "a"‖5 must sort before "a"‖3 (descending version within a user key).
	if string(key.UserKey(items[0].Key)) != "a" || key.Timestamp(items[0].Key) != 5 {
		t.Fatalf("Snapshot()[0] = %x, want a‖5 first", items[0].Key)
	}
}

func TestMemtableOverloadSignal(t *testing.T) {
	mt := New(10)
	_, err := mt.Upsert(key.AppendTimestamp([]byte("k"), 1), value.Value{Payload: []byte("payload bytes")})
	if !errors.Is(err, ErrMemTableOverload) {
		t.Fatalf("Upsert past threshold: got %v, want ErrMemTableOverload", err)
	}
}

func TestMemtableGetMiss(t *testing.T) {
	mt := New(1 << 20)
	_, ok := mt.Get(key.AppendTimestamp([]byte("missing"), 1))
	if ok {
		t.Fatalf("Get(missing) found, want miss")
	}
}
