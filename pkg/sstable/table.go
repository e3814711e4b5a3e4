// Package sstable implements the on-disk sorted-table read/write path:
// blocks of prefix-compressed entries, a block-first-key index, and the
// iterators that navigate both.
package sstable

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"lsmdb/pkg/codec"
	"lsmdb/pkg/dberrors"
)

// IndexEntry describes one block's position within a table: its first key
// (the block's base key), byte offset, and byte length.
type IndexEntry struct {
	Key    []byte
	Offset int64
	Len    int64
}

// Table is an immutable SST: a sequence of blocks plus the index that maps
// a block's first key to its byte range. *Table is already cheap to pass
// around; Clone exists to make the sharing explicit at call sites that
// conceptually "take a reference".
type Table struct {
	id   uint64
	path string
	file *os.File
	size int64

	index  []IndexEntry
	filter *bloomFilter
	cache  *BlockCache

	mu sync.Mutex
}

// Clone returns a share of the same underlying table handle.
func (t *Table) Clone() *Table { return t }

// ID returns the file id assigned by the levels controller at creation.
func (t *Table) ID() uint64 { return t.id }

// Size returns the table's on-disk byte size.
func (t *Table) Size() int64 { return t.size }

// Path returns the table's backing file path.
func (t *Table) Path() string { return t.path }

// OffsetsLength returns the number of blocks in the table.
func (t *Table) OffsetsLength() int { return len(t.index) }

// Offsets returns the i-th block's index entry.
func (t *Table) Offsets(i int) IndexEntry { return t.index[i] }

// OpenTable opens an existing SST file, parsing its trailing index. cache
// may be nil to disable block caching for this table.
func OpenTable(id uint64, path string, cache *BlockCache) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, dberrors.TableRead(err.Error())
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, dberrors.TableRead(err.Error())
	}

	t := &Table{id: id, path: path, file: f, size: info.Size(), cache: cache}
	if err := t.loadIndex(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return t, nil
}

// loadIndex reads the trailing regions: ... || bloom || index entries ||
// bloomLen(u32 LE) || indexLen(u32 LE). Each index entry is
// varint(len(key)) || key || offset(u64 LE) || length(u64 LE).
func (t *Table) loadIndex() error {
	if t.size < 8 {
		return dberrors.TableRead("file too small to contain an index")
	}

	var lenBuf [8]byte
	if _, err := t.file.ReadAt(lenBuf[:], t.size-8); err != nil {
		return dberrors.TableRead(err.Error())
	}
	bloomLen := int64(binary.LittleEndian.Uint32(lenBuf[0:4]))
	indexLen := int64(binary.LittleEndian.Uint32(lenBuf[4:8]))
	if bloomLen+indexLen > t.size-8 {
		return dberrors.TableRead("corrupt index length")
	}

	if bloomLen > 0 {
		bloomStart := t.size - 8 - indexLen - bloomLen
		rawBloom := make([]byte, bloomLen)
		if _, err := t.file.ReadAt(rawBloom, bloomStart); err != nil {
			return dberrors.TableRead(err.Error())
		}
		t.filter = decodeBloomFilter(rawBloom)
	}

	indexStart := t.size - 8 - indexLen
	raw := make([]byte, indexLen)
	if indexLen > 0 {
		if _, err := t.file.ReadAt(raw, indexStart); err != nil {
			return dberrors.TableRead(err.Error())
		}
	}

	off := 0
	for off < len(raw) {
		keyLen, n, err := codec.GetUvarint32(raw[off:])
		if err != nil {
			return fmt.Errorf("%w: index entry key length", err)
		}
		off += n

		if off+int(keyLen)+16 > len(raw) {
			return dberrors.TableRead("truncated index entry")
		}
		k := raw[off : off+int(keyLen)]
		off += int(keyLen)

		blockOffset := int64(binary.LittleEndian.Uint64(raw[off : off+8]))
		off += 8
		blockLen := int64(binary.LittleEndian.Uint64(raw[off : off+8]))
		off += 8

		t.index = append(t.index, IndexEntry{Key: k, Offset: blockOffset, Len: blockLen})
	}

	return nil
}

// MayContainKey reports whether userKey may be present in the table,
// consulting the persisted bloom filter. A table without a filter always
// reports true.
func (t *Table) MayContainKey(userKey []byte) bool {
	if t.filter == nil {
		return true
	}
	return t.filter.mayContain(bloomHash(userKey))
}

// Block returns the idx-th block, consulting the shared block cache first
// when useCache is true.
func (t *Table) Block(idx int, useCache bool) (*Block, error) {
	if idx < 0 || idx >= len(t.index) {
		return nil, dberrors.TableRead("block index out of range")
	}

	cacheKey := blockCacheKey{tableID: t.id, blockIdx: idx}
	if useCache && t.cache != nil {
		if b, ok := t.cache.Get(cacheKey); ok {
			return b, nil
		}
	}

	entry := t.index[idx]
	raw := make([]byte, entry.Len)
	if _, err := t.file.ReadAt(raw, entry.Offset); err != nil {
		return nil, dberrors.TableRead(err.Error())
	}
	blk, err := parseBlock(raw)
	if err != nil {
		return nil, err
	}

	if useCache && t.cache != nil {
		t.cache.Set(cacheKey, blk)
	}
	return blk, nil
}

// Close releases the table's open file handle.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}
