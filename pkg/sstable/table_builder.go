package sstable

import (
	"encoding/binary"
	"os"

	"lsmdb/pkg/codec"
	"lsmdb/pkg/dberrors"
	"lsmdb/pkg/key"
	"lsmdb/pkg/value"
)

// TableBuilder assembles a sequence of blockBuilders into one SST file:
// blocks back to back, followed by the user-key bloom filter, the index
// region (first key, offset, length per block), and a trailing pair of
// u32 lengths (bloom, then index).
type TableBuilder struct {
	blockSize   int
	bloomFPRate float64

	cur       *blockBuilder
	blocks    [][]byte
	firsts    [][]byte
	keyHashes []uint64
}

// NewTableBuilder returns a builder that rolls over to a new block once the
// current one's approximate size reaches blockSize. bloomFPRate sizes the
// table's user-key bloom filter; 0 disables it.
func NewTableBuilder(blockSize int, bloomFPRate float64) *TableBuilder {
	return &TableBuilder{blockSize: blockSize, bloomFPRate: bloomFPRate}
}

// Add appends one entry. Keys must arrive in ascending internal-key order.
func (tb *TableBuilder) Add(k []byte, v value.Value) {
	if tb.cur == nil {
		tb.cur = newBlockBuilder()
	}
	tb.cur.add(k, v)
	if tb.bloomFPRate > 0 {
		tb.keyHashes = append(tb.keyHashes, bloomHash(key.UserKey(k)))
	}
	if tb.cur.approxSize() >= tb.blockSize {
		tb.finishBlock()
	}
}

func (tb *TableBuilder) finishBlock() {
	if tb.cur == nil || tb.cur.empty() {
		return
	}
	tb.firsts = append(tb.firsts, tb.cur.firstKey())
	tb.blocks = append(tb.blocks, tb.cur.finish())
	tb.cur = nil
}

// Empty reports whether no entries have been added.
func (tb *TableBuilder) Empty() bool {
	return len(tb.blocks) == 0 && (tb.cur == nil || tb.cur.empty())
}

// Finish flushes the builder to path and returns the resulting file size.
func (tb *TableBuilder) Finish(path string) (int64, error) {
	tb.finishBlock()

	f, err := os.Create(path)
	if err != nil {
		return 0, dberrors.TableRead(err.Error())
	}
	defer f.Close()

	var offset int64
	var index []byte
	for i, blk := range tb.blocks {
		if _, err := f.Write(blk); err != nil {
			return 0, dberrors.TableRead(err.Error())
		}

		index = codec.PutUvarint32(index, uint32(len(tb.firsts[i])))
		index = append(index, tb.firsts[i]...)

		var off [8]byte
		binary.LittleEndian.PutUint64(off[:], uint64(offset))
		index = append(index, off[:]...)

		var ln [8]byte
		binary.LittleEndian.PutUint64(ln[:], uint64(len(blk)))
		index = append(index, ln[:]...)

		offset += int64(len(blk))
	}

	var bloom []byte
	if tb.bloomFPRate > 0 {
		bloom = newBloomFilter(tb.keyHashes, tb.bloomFPRate).encode()
	}
	if _, err := f.Write(bloom); err != nil {
		return 0, dberrors.TableRead(err.Error())
	}

	if _, err := f.Write(index); err != nil {
		return 0, dberrors.TableRead(err.Error())
	}

	var trailer [8]byte
	binary.LittleEndian.PutUint32(trailer[0:4], uint32(len(bloom)))
	binary.LittleEndian.PutUint32(trailer[4:8], uint32(len(index)))
	if _, err := f.Write(trailer[:]); err != nil {
		return 0, dberrors.TableRead(err.Error())
	}

	if err := f.Sync(); err != nil {
		return 0, dberrors.TableRead(err.Error())
	}

	return offset + int64(len(bloom)) + int64(len(index)) + 8, nil
}
