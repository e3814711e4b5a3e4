// Package mergeiter implements the N-way ordered merge over heterogeneous
// child iterators that underlies multi-table reads: the globally smallest
// key wins, and equal user-keys collapse to the earliest input's entry.
package mergeiter

import (
	"bytes"
	"container/heap"

	"lsmdb/pkg/iterator"
	"lsmdb/pkg/key"
	"lsmdb/pkg/value"
)

type mergeItem struct {
	it       iterator.Iterator
	priority int // input order; lower wins ties on equal user-key
}

// itemHeap orders children by current key. Children resting on the same
// user key order by priority, whatever their versions, so the earlier input
// (newer data) sorts first.
type itemHeap struct {
	items    []*mergeItem
	reversed bool
}

func (h itemHeap) Len() int { return len(h.items) }

func (h itemHeap) Less(i, j int) bool {
	ki, kj := h.items[i].it.Key(), h.items[j].it.Key()
	if key.SameKey(ki, kj) {
		return h.items[i].priority < h.items[j].priority
	}
	c := key.Compare(ki, kj)
	if h.reversed {
		c = -c
	}
	return c < 0
}

func (h itemHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *itemHeap) Push(x any) { h.items = append(h.items, x.(*mergeItem)) }

func (h *itemHeap) Pop() any {
	old := h.items
	n := len(old)
	it := old[n-1]
	h.items = old[:n-1]
	return it
}

// MergeIterator yields entries from its children in globally sorted order,
// collapsing duplicate user-keys down to the highest-priority child's
// value.
type MergeIterator struct {
	all []*mergeItem
	h   itemHeap
	err error
}

// New builds a merge iterator over its, keyed on input order for tie
// priority; reversed flips the merge comparator for backward traversal.
func New(its []iterator.Iterator, reversed bool) *MergeIterator {
	all := make([]*mergeItem, len(its))
	for i, it := range its {
		all[i] = &mergeItem{it: it, priority: i}
	}
	return &MergeIterator{all: all, h: itemHeap{reversed: reversed}}
}

func (m *MergeIterator) init(op func(iterator.Iterator)) {
	m.err = nil
	m.h.items = m.h.items[:0]
	for _, item := range m.all {
		op(item.it)
		if item.it.Valid() {
			m.h.items = append(m.h.items, item)
		} else if err := item.it.Err(); err != nil {
			m.err = err
		}
	}
	heap.Init(&m.h)
}

// SeekToFirst positions every child at its first entry and rebuilds the
// merge.
func (m *MergeIterator) SeekToFirst() {
	m.init(func(it iterator.Iterator) { it.SeekToFirst() })
}

// SeekToLast positions every child at its last entry and rebuilds the
// merge.
func (m *MergeIterator) SeekToLast() {
	m.init(func(it iterator.Iterator) { it.SeekToLast() })
}

// Seek positions every child at the first key >= target (or <= target
// when reversed) and rebuilds the merge.
func (m *MergeIterator) Seek(target []byte) {
	m.init(func(it iterator.Iterator) { it.Seek(target) })
}

// Valid reports whether any child still has entries left to yield.
func (m *MergeIterator) Valid() bool { return m.h.Len() > 0 }

// Err returns the first error observed from any child.
func (m *MergeIterator) Err() error { return m.err }

// Key returns the current internal key: the smallest across all children
// (or largest, reversed), with children on the same user key resolved by
// input priority.
func (m *MergeIterator) Key() []byte {
	if m.h.Len() == 0 {
		return nil
	}
	return m.h.items[0].it.Key()
}

// Value returns the current highest-priority child's value.
func (m *MergeIterator) Value() value.Value {
	if m.h.Len() == 0 {
		return value.Value{}
	}
	return m.h.items[0].it.Value()
}

func (m *MergeIterator) advanceTop(step func(iterator.Iterator)) {
	top := m.h.items[0]
	step(top.it)
	if top.it.Valid() {
		heap.Fix(&m.h, 0)
		return
	}
	if err := top.it.Err(); err != nil {
		m.err = err
	}
	heap.Pop(&m.h)
}

// Next advances past the current user-key, stepping every child that
// shares it so the caller observes each user-key once per merge step.
func (m *MergeIterator) Next() {
	if m.h.Len() == 0 {
		return
	}
	// Children reuse their key buffers across steps, so the pivot
	// user-key must be copied before anything advances.
	userKey := append([]byte(nil), key.UserKey(m.h.items[0].it.Key())...)
	m.advanceTop(func(it iterator.Iterator) { it.Next() })
	for m.h.Len() > 0 && bytes.Equal(key.UserKey(m.h.items[0].it.Key()), userKey) {
		m.advanceTop(func(it iterator.Iterator) { it.Next() })
	}
}

// Prev mirrors Next for backward traversal.
func (m *MergeIterator) Prev() {
	if m.h.Len() == 0 {
		return
	}
	userKey := append([]byte(nil), key.UserKey(m.h.items[0].it.Key())...)
	m.advanceTop(func(it iterator.Iterator) { it.Prev() })
	for m.h.Len() > 0 && bytes.Equal(key.UserKey(m.h.items[0].it.Key()), userKey) {
		m.advanceTop(func(it iterator.Iterator) { it.Prev() })
	}
}
