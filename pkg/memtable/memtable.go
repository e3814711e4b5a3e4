// Package memtable is the in-memory sorted index that absorbs writes ahead
// of being flushed into level 0.
package memtable

import (
	"errors"
	"sync"

	"github.com/zhangyunhao116/skipmap"

	"lsmdb/pkg/value"
)

// ErrMemTableOverload is returned by Upsert once the table's estimated
// byte size has reached its configured threshold — the caller's signal to
// freeze this table and flush it.
var ErrMemTableOverload = errors.New("memtable is overloaded")

// entryOverhead approximates the per-item bookkeeping cost (value's fixed
// fields) added on top of key and payload bytes when estimating size.
const entryOverhead = 18 // meta + user_meta + expires_at(varint-ish) + version

// Memtable is a concurrent ordered index keyed by internal key (user key +
// version suffix, pkg/key), backed by zhangyunhao116/skipmap's lock-free
// skip list.
type Memtable struct {
	threshold int

	sizeMu sync.Mutex
	size   int

	idx *skipmap.FuncMap[string, *Item]
}

// New returns an empty memtable that reports overload once its estimated
// size reaches threshold bytes.
func New(threshold int) *Memtable {
	return &Memtable{threshold: threshold, idx: newIndex()}
}

// Upsert inserts or replaces the entry for internalKey. replaced reports
// whether an entry already existed at that exact internal key (same user
// key and version).
func (mt *Memtable) Upsert(internalKey []byte, v value.Value) (replaced bool, err error) {
	item := &Item{Key: internalKey, Value: v}
	_, replaced = mt.idx.LoadOrStore(string(internalKey), item)
	if replaced {
		mt.idx.Store(string(internalKey), item)
	}

	mt.sizeMu.Lock()
	mt.size += len(internalKey) + len(v.Payload) + entryOverhead
	overloaded := mt.size >= mt.threshold
	mt.sizeMu.Unlock()

	if overloaded {
		return replaced, ErrMemTableOverload
	}
	return replaced, nil
}

// Get returns the exact entry at internalKey (same user key and version),
// if present.
func (mt *Memtable) Get(internalKey []byte) (Item, bool) {
	item, ok := mt.idx.Load(string(internalKey))
	if !ok {
		return Item{}, false
	}
	return *item, true
}

// Len returns the number of entries currently held.
func (mt *Memtable) Len() int { return mt.idx.Len() }

// Snapshot returns every entry in ascending internal-key order: user key
// ascending, then version descending (newest first for a given user key),
// matching pkg/key.Compare.
func (mt *Memtable) Snapshot() []Item {
	out := make([]Item, 0, mt.idx.Len())
	mt.idx.Range(func(_ string, v *Item) bool {
		out = append(out, *v)
		return true
	})
	return out
}
