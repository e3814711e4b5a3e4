// Package key implements the internal-key comparator: a user key with an
// 8-byte big-endian version suffix, ordered lexicographically on the user
// key with descending version on ties (newer first).
package key

import (
	"bytes"
	"encoding/binary"
)

// TimestampSize is the length in bytes of the version suffix appended to
// every internal key.
const TimestampSize = 8

// AppendTimestamp returns userKey with a big-endian version suffix
// appended, forming an internal key.
func AppendTimestamp(userKey []byte, ts uint64) []byte {
	out := make([]byte, len(userKey)+TimestampSize)
	n := copy(out, userKey)
	binary.BigEndian.PutUint64(out[n:], ts)
	return out
}

// Timestamp returns the trailing 8-byte big-endian version of key, or 0 if
// key is shorter than TimestampSize.
func Timestamp(k []byte) uint64 {
	if len(k) < TimestampSize {
		return 0
	}
	return binary.BigEndian.Uint64(k[len(k)-TimestampSize:])
}

// UserKey strips the trailing version suffix, if any.
func UserKey(k []byte) []byte {
	if len(k) < TimestampSize {
		return k
	}
	return k[:len(k)-TimestampSize]
}

// Compare orders two internal keys: lexicographically by user-key prefix,
// then by descending version on a user-key tie (the larger trailing 8
// bytes, interpreted as a big-endian u64, compares less — newer first).
// Keys shorter than TimestampSize compare by raw bytes.
func Compare(a, b []byte) int {
	if len(a) < TimestampSize || len(b) < TimestampSize {
		return bytes.Compare(a, b)
	}

	auk, buk := a[:len(a)-TimestampSize], b[:len(b)-TimestampSize]
	if c := bytes.Compare(auk, buk); c != 0 {
		return c
	}

	at, bt := Timestamp(a), Timestamp(b)
	switch {
	case at == bt:
		return 0
	case at > bt:
		return -1
	default:
		return 1
	}
}

// SameKey reports whether a and b share the same user-key, ignoring any
// version suffix.
func SameKey(a, b []byte) bool {
	return bytes.Equal(UserKey(a), UserKey(b))
}
