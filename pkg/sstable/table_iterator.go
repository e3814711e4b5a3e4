package sstable

import (
	"bytes"

	"lsmdb/pkg/dberrors"
	"lsmdb/pkg/key"
	"lsmdb/pkg/value"
)

// TableIterOpt is a bitmask of table iterator options.
type TableIterOpt uint8

const (
	// IterReversed makes SeekToFirst/SeekToLast/Next/Prev walk the table
	// back to front.
	IterReversed TableIterOpt = 1 << iota
	// IterNoCache bypasses the table's block cache for this iterator's
	// reads.
	IterNoCache
)

// TableIterator walks the entries of a single Table in internal-key order,
// delegating within a block to blockIterator and crossing block boundaries
// itself. Reversal swaps next/prev and the two seek directions at the
// public surface; the internals stay forward-only.
type TableIterator struct {
	table *Table
	opt   TableIterOpt

	bpos int
	bi   *blockIterator
	err  error
}

// NewTableIterator returns an iterator over t with the given options.
func NewTableIterator(t *Table, opt TableIterOpt) *TableIterator {
	return &TableIterator{table: t, opt: opt}
}

func (it *TableIterator) reversed() bool { return it.opt&IterReversed != 0 }
func (it *TableIterator) useCache() bool { return it.opt&IterNoCache == 0 }

// Valid reports whether the iterator currently rests on an entry.
func (it *TableIterator) Valid() bool { return it.err == nil }

// Err returns the error that invalidated the iterator, if any. io.EOF-style
// exhaustion is reported via dberrors.ErrEOF and is not itself a failure.
func (it *TableIterator) Err() error {
	if it.err == dberrors.ErrEOF {
		return nil
	}
	return it.err
}

func (it *TableIterator) reset() {
	it.bpos = 0
	it.bi = nil
	it.err = nil
}

func (it *TableIterator) loadBlockIterator(bpos int) (*blockIterator, error) {
	blk, err := it.table.Block(bpos, it.useCache())
	if err != nil {
		return nil, err
	}
	if it.bi == nil {
		it.bi = newBlockIterator(blk)
	} else {
		it.bi.setBlock(blk)
	}
	return it.bi, nil
}

func (it *TableIterator) firstInner() {
	it.err = nil
	if it.table.OffsetsLength() == 0 {
		it.err = dberrors.ErrEOF
		return
	}
	it.bpos = 0
	bi, err := it.loadBlockIterator(0)
	if err != nil {
		it.err = err
		return
	}
	bi.seekToFirst()
	it.err = bi.error()
}

func (it *TableIterator) lastInner() {
	it.err = nil
	n := it.table.OffsetsLength()
	if n == 0 {
		it.err = dberrors.ErrEOF
		return
	}
	it.bpos = n - 1
	bi, err := it.loadBlockIterator(n - 1)
	if err != nil {
		it.err = err
		return
	}
	bi.seekToLast()
	it.err = bi.error()
}

// SeekToFirst positions the iterator on the first entry in traversal order.
func (it *TableIterator) SeekToFirst() {
	if it.reversed() {
		it.lastInner()
	} else {
		it.firstInner()
	}
}

// SeekToLast positions the iterator on the last entry in traversal order.
func (it *TableIterator) SeekToLast() {
	if it.reversed() {
		it.firstInner()
	} else {
		it.lastInner()
	}
}

// nextInner advances within the current block, crossing into the next block
// when the current one is exhausted.
func (it *TableIterator) nextInner() {
	if it.bi == nil {
		it.err = dberrors.ErrEOF
		return
	}
	it.bi.next()
	if it.bi.valid() {
		it.err = nil
		return
	}
	it.bpos++
	if it.bpos >= it.table.OffsetsLength() {
		it.err = dberrors.ErrEOF
		return
	}
	bi, err := it.loadBlockIterator(it.bpos)
	if err != nil {
		it.err = err
		return
	}
	bi.seekToFirst()
	it.err = bi.error()
}

// prevInner is nextInner's mirror image.
func (it *TableIterator) prevInner() {
	if it.bi == nil {
		it.err = dberrors.ErrEOF
		return
	}
	it.bi.prev()
	if it.bi.valid() {
		it.err = nil
		return
	}
	it.bpos--
	if it.bpos < 0 {
		it.err = dberrors.ErrEOF
		return
	}
	bi, err := it.loadBlockIterator(it.bpos)
	if err != nil {
		it.err = err
		return
	}
	bi.seekToLast()
	it.err = bi.error()
}

// Next advances the iterator one entry in traversal order.
func (it *TableIterator) Next() {
	if it.reversed() {
		it.prevInner()
	} else {
		it.nextInner()
	}
}

// Prev steps the iterator one entry backward in traversal order.
func (it *TableIterator) Prev() {
	if it.reversed() {
		it.nextInner()
	} else {
		it.prevInner()
	}
}

// seekFrom locates the block whose key range may contain target via binary
// search over block first keys, finding the smallest idx whose first key
// is >= target and preferring block idx-1 (the block that may actually
// hold target); if that block's inner seek comes up empty and idx is in
// range, it falls back to block idx. The fallback covers targets that
// straddle a block boundary.
func (it *TableIterator) seekFrom(target []byte) {
	it.reset()
	n := it.table.OffsetsLength()
	if n == 0 {
		it.err = dberrors.ErrEOF
		return
	}

	idx := searchIndex(n, func(i int) bool {
		return key.Compare(it.table.Offsets(i).Key, target) >= 0
	})

	desired := idx - 1
	if desired < 0 {
		desired = 0
	}

	it.bpos = desired
	bi, err := it.loadBlockIterator(desired)
	if err != nil {
		it.err = err
		return
	}
	bi.seek(target, seekOrigin)
	it.err = bi.error()

	if it.err != nil && desired != idx && idx < n {
		it.bpos = idx
		bi, err := it.loadBlockIterator(idx)
		if err != nil {
			it.err = err
			return
		}
		bi.seek(target, seekOrigin)
		it.err = bi.error()
	}
}

// Seek positions the iterator at target per traversal direction: the first
// entry >= target when walking forward, or the last entry <= target when
// IterReversed is set.
func (it *TableIterator) Seek(target []byte) {
	it.seekFrom(target)
	if !it.reversed() {
		return
	}
	if !bytes.Equal(it.Key(), target) {
		it.prevInner()
	}
}

// Key returns the internal key (user key + version suffix) at the current
// position.
func (it *TableIterator) Key() []byte {
	if it.bi == nil {
		return nil
	}
	return it.bi.currentKey()
}

// Value decodes the value record at the current position.
func (it *TableIterator) Value() value.Value {
	if it.bi == nil {
		return value.Value{}
	}
	v, err := it.bi.currentValue()
	if err != nil {
		it.err = err
	}
	return v
}
