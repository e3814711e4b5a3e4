// Package value implements the versioned value record stored behind every
// internal key, and its wire encoding shared by the WAL and SST blocks.
package value

import (
	"lsmdb/pkg/codec"
	"lsmdb/pkg/dberrors"
)

// Value is the record an internal key maps to.
type Value struct {
	Meta      byte
	UserMeta  byte
	ExpiresAt uint64
	Version   uint64
	Payload   []byte
}

// IsTombstone reports whether this value marks a deletion: empty payload
// and zero meta. The read path treats a tombstone as "keep searching
// deeper levels" rather than as a found value.
func (v Value) IsTombstone() bool {
	return len(v.Payload) == 0 && v.Meta == 0
}

// Encode appends the wire form of v to buf: meta(1) || user_meta(1) ||
// varint(expires_at) || varint(version) || varint(len(payload)) || payload.
func (v Value) Encode(buf []byte) []byte {
	buf = append(buf, v.Meta, v.UserMeta)
	buf = codec.PutUvarint64(buf, v.ExpiresAt)
	buf = codec.PutUvarint64(buf, v.Version)
	buf = codec.PutUvarint32(buf, uint32(len(v.Payload)))
	buf = append(buf, v.Payload...)
	return buf
}

// EncodedLen returns the length Encode would append, without encoding.
func (v Value) EncodedLen() int {
	return 2 + codec.SizeVarint64(v.ExpiresAt) + codec.SizeVarint64(v.Version) +
		codec.SizeVarint32(uint32(len(v.Payload))) + len(v.Payload)
}

// Decode reads a Value from the front of buf, returning the value and the
// number of bytes consumed.
func Decode(buf []byte) (Value, int, error) {
	if len(buf) < 2 {
		return Value{}, 0, dberrors.ErrVarDecode
	}
	var v Value
	v.Meta, v.UserMeta = buf[0], buf[1]
	off := 2

	expiresAt, n, err := codec.GetUvarint64(buf[off:])
	if err != nil {
		return Value{}, 0, err
	}
	v.ExpiresAt = expiresAt
	off += n

	version, n, err := codec.GetUvarint64(buf[off:])
	if err != nil {
		return Value{}, 0, err
	}
	v.Version = version
	off += n

	payloadLen, n, err := codec.GetUvarint32(buf[off:])
	if err != nil {
		return Value{}, 0, err
	}
	off += n

	if len(buf[off:]) < int(payloadLen) {
		return Value{}, 0, dberrors.ErrVarDecode
	}
	v.Payload = buf[off : off+int(payloadLen)]
	off += int(payloadLen)

	return v, off, nil
}
