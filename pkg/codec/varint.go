// Package codec implements the length-prefixed binary encoding shared by
// the WAL and the SST block format.
package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"lsmdb/pkg/dberrors"
)

// MinHeaderSize is the smallest number of bytes any varint-prefixed
// header can encode into; a cursor shorter than this can never hold a
// valid field.
const MinHeaderSize = 2

// PutUvarint32 appends the protobuf-compatible varint encoding of v to buf
// and returns the extended slice.
func PutUvarint32(buf []byte, v uint32) []byte {
	return protowire.AppendVarint(buf, uint64(v))
}

// PutUvarint64 appends the protobuf-compatible varint encoding of v to buf
// and returns the extended slice.
func PutUvarint64(buf []byte, v uint64) []byte {
	return protowire.AppendVarint(buf, v)
}

// SizeVarint32 returns the encoded length of v without encoding it.
func SizeVarint32(v uint32) int {
	return protowire.SizeVarint(uint64(v))
}

// SizeVarint64 returns the encoded length of v without encoding it.
func SizeVarint64(v uint64) int {
	return protowire.SizeVarint(v)
}

// GetUvarint32 decodes a varint from the front of buf, returning the value
// and the number of bytes consumed. A malformed cursor surfaces as
// dberrors.ErrDecode.
func GetUvarint32(buf []byte) (uint32, int, error) {
	v, n, err := GetUvarint64(buf)
	if err != nil {
		return 0, 0, err
	}
	if v > uint64(^uint32(0)) {
		return 0, 0, fmt.Errorf("%w: varint32 overflow", dberrors.ErrDecode)
	}
	return uint32(v), n, nil
}

// GetUvarint64 decodes a varint from the front of buf, returning the value
// and the number of bytes consumed.
func GetUvarint64(buf []byte) (uint64, int, error) {
	v, n := protowire.ConsumeVarint(buf)
	if n < 0 {
		return 0, 0, fmt.Errorf("%w: %v", dberrors.ErrDecode, protowire.ParseError(n))
	}
	return v, n, nil
}

// CheckHeaderCursor reports dberrors.ErrVarDecode when buf is shorter than
// MinHeaderSize and so can never contain a full entry header. Callers that
// decode a fixed-shape header (WAL entry, SST block entry) check this
// before attempting field-by-field decode.
func CheckHeaderCursor(buf []byte) error {
	if len(buf) < MinHeaderSize {
		return dberrors.ErrVarDecode
	}
	return nil
}
