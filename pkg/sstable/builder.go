package sstable

import (
	"encoding/binary"

	"lsmdb/pkg/value"
)

// blockBuilder accumulates entries into one prefix-compressed block, the
// write-side counterpart of blockIterator.
type blockBuilder struct {
	buf         []byte
	offsets     []uint32
	baseKey     []byte
	prevOverlap uint16
}

func newBlockBuilder() *blockBuilder {
	return &blockBuilder{}
}

func sharedPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// add appends one entry. Keys must be added in ascending internal-key
// order.
func (bb *blockBuilder) add(k []byte, v value.Value) {
	bb.offsets = append(bb.offsets, uint32(len(bb.buf)))

	var overlap int
	if len(bb.buf) == 0 {
		bb.baseKey = append([]byte(nil), k...)
	} else {
		overlap = sharedPrefixLen(bb.baseKey, k)
	}

	diff := k[overlap:]
	bb.buf = appendEntryHeader(bb.buf, entryHeader{overlap: uint16(overlap), diff: uint16(len(diff))})
	bb.buf = append(bb.buf, diff...)
	bb.buf = v.Encode(bb.buf)
	bb.prevOverlap = uint16(overlap)
}

// empty reports whether any entry has been added.
func (bb *blockBuilder) empty() bool { return len(bb.offsets) == 0 }

// approxSize estimates the encoded size of the block so far, including the
// trailer, for block-size target decisions in the table builder.
func (bb *blockBuilder) approxSize() int {
	return len(bb.buf) + len(bb.offsets)*4 + 4
}

// firstKey returns the block's base key, valid once at least one entry has
// been added.
func (bb *blockBuilder) firstKey() []byte { return bb.baseKey }

// finish serializes the block: entries, then entry_offsets (u32 LE each),
// then the entry count (u32 LE) — the trailer parseBlock reads back.
func (bb *blockBuilder) finish() []byte {
	out := make([]byte, 0, bb.approxSize())
	out = append(out, bb.buf...)
	for _, off := range bb.offsets {
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], off)
		out = append(out, tmp[:]...)
	}
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(bb.offsets)))
	out = append(out, countBuf[:]...)
	return out
}
