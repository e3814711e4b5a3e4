package sstable

import (
	"encoding/binary"
	"fmt"

	"lsmdb/pkg/dberrors"
)

// entryHeaderSize is the fixed-size header preceding every block entry's
// key differential and value: overlap(u16 LE) || diff(u16 LE).
const entryHeaderSize = 4

// Block is the unit of SST I/O: a run of prefix-compressed sorted entries
// followed by a trailing offset index. A Block is immutable and safely
// shared across concurrently running iterators/cache holders.
type Block struct {
	// data holds the full raw bytes of the block, including the trailer.
	data []byte
	// entriesIndexStart is the offset at which entry data ends and the
	// entry_offsets region begins.
	entriesIndexStart int
	// entryOffsets holds the ordered start offset of each entry within
	// data[:entriesIndexStart].
	entryOffsets []uint32
}

// entryHeader is the overlap/diff pair preceding an entry's key bytes.
type entryHeader struct {
	overlap uint16
	diff    uint16
}

func decodeEntryHeader(b []byte) entryHeader {
	return entryHeader{
		overlap: binary.LittleEndian.Uint16(b[0:2]),
		diff:    binary.LittleEndian.Uint16(b[2:4]),
	}
}

func appendEntryHeader(buf []byte, h entryHeader) []byte {
	var tmp [entryHeaderSize]byte
	binary.LittleEndian.PutUint16(tmp[0:2], h.overlap)
	binary.LittleEndian.PutUint16(tmp[2:4], h.diff)
	return append(buf, tmp[:]...)
}

// parseBlock decodes the trailer of a raw block byte slice: the last 4
// bytes are the entry count, preceded by that many little-endian u32
// offsets, preceded by the entry data itself.
func parseBlock(raw []byte) (*Block, error) {
	if len(raw) < 4 {
		return nil, dberrors.TableRead("block too small to contain trailer")
	}
	numEntries := int(binary.LittleEndian.Uint32(raw[len(raw)-4:]))
	offsetsSize := numEntries * 4
	trailerSize := offsetsSize + 4
	if trailerSize > len(raw) {
		return nil, dberrors.TableRead(fmt.Sprintf("corrupt block trailer: %d entries claimed in %d bytes", numEntries, len(raw)))
	}

	entriesIndexStart := len(raw) - trailerSize
	offsets := make([]uint32, numEntries)
	offsetBytes := raw[entriesIndexStart : entriesIndexStart+offsetsSize]
	for i := 0; i < numEntries; i++ {
		offsets[i] = binary.LittleEndian.Uint32(offsetBytes[i*4 : i*4+4])
	}

	return &Block{
		data:              raw,
		entriesIndexStart: entriesIndexStart,
		entryOffsets:      offsets,
	}, nil
}

func (b *Block) numEntries() int {
	return len(b.entryOffsets)
}

// entryBounds returns the byte range of entry i within b.data.
func (b *Block) entryBounds(i int) (start, end int) {
	start = int(b.entryOffsets[i])
	if i+1 == len(b.entryOffsets) {
		end = b.entriesIndexStart
	} else {
		end = int(b.entryOffsets[i+1])
	}
	return start, end
}
