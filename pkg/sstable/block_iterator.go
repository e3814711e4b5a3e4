package sstable

import (
	"math"

	"lsmdb/pkg/dberrors"
	"lsmdb/pkg/key"
	"lsmdb/pkg/value"
)

// blockIterator enumerates the entries of one block, reconstructing each
// internal key from its (overlap, diff) encoding against the block's base
// key.
type blockIterator struct {
	idx  int
	data []byte // block.data[:block.entriesIndexStart]
	blk  *Block

	baseKey []byte
	key     []byte // reusable buffer holding the full current internal key
	val     []byte // slice into data covering the current entry's value bytes

	prevOverlap uint16
	err         error
}

func newBlockIterator(b *Block) *blockIterator {
	return &blockIterator{
		data: b.data[:b.entriesIndexStart],
		blk:  b,
	}
}

// setBlock replaces the block in place and resets iteration state, so the
// table iterator can reuse one block iterator across block switches
// instead of allocating a fresh one each time.
func (it *blockIterator) setBlock(b *Block) {
	it.err = nil
	it.idx = 0
	it.baseKey = nil
	it.prevOverlap = 0
	it.key = it.key[:0]
	it.val = nil
	it.data = b.data[:b.entriesIndexStart]
	it.blk = b
}

func (it *blockIterator) valid() bool { return it.err == nil }
func (it *blockIterator) error() error { return it.err }

// setIdx positions the iterator at entry i, decoding its key via the
// overlap/diff prefix-compression scheme. An out-of-range i keeps idx as
// given and marks EOF, so a subsequent prev() from one-past-the-end can
// still step back onto the last entry.
func (it *blockIterator) setIdx(i int) {
	it.idx = i
	if i < 0 || i >= it.blk.numEntries() {
		it.err = dberrors.ErrEOF
		return
	}
	it.err = nil

	start, end := it.blk.entryBounds(i)
	entryData := it.data[start:end]

	if it.baseKey == nil {
		baseStart, _ := it.blk.entryBounds(0)
		baseHeader := decodeEntryHeader(it.data[baseStart : baseStart+entryHeaderSize])
		it.baseKey = it.data[baseStart+entryHeaderSize : baseStart+entryHeaderSize+int(baseHeader.diff)]
	}

	h := decodeEntryHeader(entryData[:entryHeaderSize])
	rest := entryData[entryHeaderSize:]

	if h.overlap > it.prevOverlap {
		it.key = it.key[:it.prevOverlap]
		it.key = append(it.key, it.baseKey[it.prevOverlap:h.overlap]...)
	}
	it.prevOverlap = h.overlap

	diffKey := rest[:h.diff]
	it.key = append(it.key[:h.overlap], diffKey...)
	it.val = rest[h.diff:]
}

type seekWhence int

const (
	seekOrigin seekWhence = iota
	seekCurrent
)

// seek positions the iterator at the first entry whose key is >= target,
// binary searching over [start, n).
func (it *blockIterator) seek(target []byte, whence seekWhence) {
	it.err = nil
	start := 0
	if whence == seekCurrent {
		start = it.idx
	}

	n := it.blk.numEntries()
	found := searchIndex(n, func(idx int) bool {
		if idx < start {
			return false
		}
		it.setIdx(idx)
		return key.Compare(it.key, target) >= 0
	})

	it.setIdx(found)
}

func (it *blockIterator) seekToFirst() { it.setIdx(0) }

func (it *blockIterator) seekToLast() {
	if it.blk.numEntries() == 0 {
		it.idx = math.MaxInt
		it.err = dberrors.ErrEOF
		return
	}
	it.setIdx(it.blk.numEntries() - 1)
}

func (it *blockIterator) next() {
	if it.idx == math.MaxInt {
		it.err = dberrors.ErrEOF
		return
	}
	it.setIdx(it.idx + 1)
}

func (it *blockIterator) prev() {
	if it.idx == 0 {
		it.idx = math.MaxInt
		it.err = dberrors.ErrEOF
		return
	}
	it.setIdx(it.idx - 1)
}

func (it *blockIterator) currentKey() []byte { return it.key }

func (it *blockIterator) currentValue() (value.Value, error) {
	v, _, err := value.Decode(it.val)
	return v, err
}
