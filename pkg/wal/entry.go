package wal

import (
	"lsmdb/pkg/codec"
	"lsmdb/pkg/dberrors"
)

// MaxHeaderSize bounds an entry header: meta(1) + user_meta(1) + three
// varints, for key and value lengths below 2^32 (5 bytes each) and
// expires_at below 2^63 (9 bytes). It doubles as the sentinel run length
// zeroed ahead of the write cursor.
const MaxHeaderSize = 21

// Entry is one WAL record. Key already carries its version suffix (the
// internal-key encoding from pkg/key), so no separate version field is
// framed on disk.
type Entry struct {
	Meta      byte
	UserMeta  byte
	ExpiresAt uint64
	Key       []byte
	Value     []byte
}

// isZeroSentinel reports whether a decoded, all-zero-length entry is the
// bootstrap sentinel marking end-of-log.
func (e Entry) isZeroSentinel() bool {
	return e.Meta == 0 && e.UserMeta == 0 && len(e.Key) == 0 && len(e.Value) == 0
}

// encodedLen returns the on-disk size of e: header ‖ key ‖ value.
func (e Entry) encodedLen() int {
	return 2 + codec.SizeVarint64(uint64(len(e.Key))) + codec.SizeVarint64(uint64(len(e.Value))) +
		codec.SizeVarint64(e.ExpiresAt) + len(e.Key) + len(e.Value)
}

// encode appends e's on-disk framing to buf.
func (e Entry) encode(buf []byte) []byte {
	buf = append(buf, e.Meta, e.UserMeta)
	buf = codec.PutUvarint64(buf, uint64(len(e.Key)))
	buf = codec.PutUvarint64(buf, uint64(len(e.Value)))
	buf = codec.PutUvarint64(buf, e.ExpiresAt)
	buf = append(buf, e.Key...)
	buf = append(buf, e.Value...)
	return buf
}

// decodeEntry decodes one entry from the front of buf, returning the entry
// and the number of bytes consumed. A torn or exhausted tail — a header
// too short to hold the fixed two bytes, a varint decode failure, or a
// key/value run shorter than its declared length — surfaces as
// dberrors.ErrVarDecode so the iterator can treat it as clean end-of-log
// rather than a hard failure.
func decodeEntry(buf []byte) (Entry, int, error) {
	if err := codec.CheckHeaderCursor(buf); err != nil {
		return Entry{}, 0, err
	}

	meta, userMeta := buf[0], buf[1]
	cursor := buf[2:]
	consumed := 2

	keyLen, n, err := codec.GetUvarint64(cursor)
	if err != nil {
		return Entry{}, 0, dberrors.ErrVarDecode
	}
	cursor = cursor[n:]
	consumed += n

	valLen, n, err := codec.GetUvarint64(cursor)
	if err != nil {
		return Entry{}, 0, dberrors.ErrVarDecode
	}
	cursor = cursor[n:]
	consumed += n

	expiresAt, n, err := codec.GetUvarint64(cursor)
	if err != nil {
		return Entry{}, 0, dberrors.ErrVarDecode
	}
	cursor = cursor[n:]
	consumed += n

	if uint64(len(cursor)) < keyLen+valLen {
		return Entry{}, 0, dberrors.ErrVarDecode
	}

	e := Entry{
		Meta:      meta,
		UserMeta:  userMeta,
		ExpiresAt: expiresAt,
		Key:       cursor[:keyLen],
		Value:     cursor[keyLen : keyLen+valLen],
	}
	return e, consumed + int(keyLen+valLen), nil
}
