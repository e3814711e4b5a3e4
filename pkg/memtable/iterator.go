package memtable

import (
	"sort"

	"lsmdb/pkg/dberrors"
	"lsmdb/pkg/key"
	"lsmdb/pkg/value"
)

// Iterator walks a point-in-time snapshot of a Memtable in internal-key
// order, satisfying pkg/iterator.Iterator so it can sit alongside table
// iterators under pkg/mergeiter.
type Iterator struct {
	items []Item
	idx   int
	err   error
}

// NewIterator snapshots mt and returns an iterator over it.
func NewIterator(mt *Memtable) *Iterator {
	return &Iterator{items: mt.Snapshot(), err: dberrors.ErrEOF}
}

func (it *Iterator) setIdx(i int) {
	if i < 0 || i >= len(it.items) {
		it.idx = len(it.items)
		it.err = dberrors.ErrEOF
		return
	}
	it.idx = i
	it.err = nil
}

// Seek positions the iterator at the first entry whose internal key is >=
// target.
func (it *Iterator) Seek(target []byte) {
	idx := sort.Search(len(it.items), func(i int) bool {
		return key.Compare(it.items[i].Key, target) >= 0
	})
	it.setIdx(idx)
}

func (it *Iterator) SeekToFirst() { it.setIdx(0) }
func (it *Iterator) SeekToLast()  { it.setIdx(len(it.items) - 1) }
func (it *Iterator) Next()        { it.setIdx(it.idx + 1) }
func (it *Iterator) Prev()        { it.setIdx(it.idx - 1) }

// Valid reports whether the iterator rests on an entry.
func (it *Iterator) Valid() bool { return it.err == nil }

// Err returns any non-exhaustion error; reaching either end of the
// snapshot is not itself an error.
func (it *Iterator) Err() error {
	if it.err == dberrors.ErrEOF {
		return nil
	}
	return it.err
}

func (it *Iterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.items[it.idx].Key
}

func (it *Iterator) Value() value.Value {
	if !it.Valid() {
		return value.Value{}
	}
	return it.items[it.idx].Value
}
