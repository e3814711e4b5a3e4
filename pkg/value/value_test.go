package value

import (
	"bytes"
	"errors"
	"testing"

	"lsmdb/pkg/dberrors"
)

func TestValueEncodeDecodeRoundTrip(t *testing.T) {
	v := Value{Meta: 1, UserMeta: 2, ExpiresAt: 1000, Version: 42, Payload: []byte("payload")}
	buf := v.Encode(nil)
	if len(buf) != v.EncodedLen() {
		t.Fatalf("EncodedLen() = %d, Encode produced %d bytes", v.EncodedLen(), len(buf))
	}

	got, n, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("Decode consumed %d bytes, want %d", n, len(buf))
	}
	if got.Meta != v.Meta || got.UserMeta != v.UserMeta || got.ExpiresAt != v.ExpiresAt || got.Version != v.Version {
		t.Fatalf("Decode() = %+v, want %+v", got, v)
	}
	if !bytes.Equal(got.Payload, v.Payload) {
		t.Fatalf("Decode().Payload = %q, want %q", got.Payload, v.Payload)
	}
}

func TestValueEncodeDecodeEmptyPayload(t *testing.T) {
	v := Value{Meta: 0, UserMeta: 0, ExpiresAt: 0, Version: 1}
	buf := v.Encode(nil)
	got, _, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Payload) != 0 {
		t.Fatalf("Decode().Payload = %q, want empty", got.Payload)
	}
}

func TestValueIsTombstone(t *testing.T) {
	tombstone := Value{Meta: 0, Payload: nil}
	if !tombstone.IsTombstone() {
		t.Fatalf("IsTombstone() = false for empty-payload/zero-meta value, want true")
	}

	live := Value{Meta: 1, Payload: nil}
	if live.IsTombstone() {
		t.Fatalf("IsTombstone() = true for a live write with nonzero meta, want false")
	}

	withPayload := Value{Meta: 0, Payload: []byte("x")}
	if withPayload.IsTombstone() {
		t.Fatalf("IsTombstone() = true for a value with payload, want false")
	}
}

func TestDecodeTruncatedHeader(t *testing.T) {
	if _, _, err := Decode([]byte{1}); !errors.Is(err, dberrors.ErrVarDecode) {
		t.Fatalf("Decode(1 byte): got %v, want dberrors.ErrVarDecode", err)
	}
}

func TestDecodeTruncatedPayload(t *testing.T) {
	v := Value{Meta: 1, UserMeta: 1, Payload: []byte("hello")}
	buf := v.Encode(nil)
	truncated := buf[:len(buf)-2]
	if _, _, err := Decode(truncated); !errors.Is(err, dberrors.ErrVarDecode) {
		t.Fatalf("Decode(truncated payload): got %v, want dberrors.ErrVarDecode", err)
	}
}

func TestEncodeAppendsToExistingBuffer(t *testing.T) {
	v := Value{Meta: 1, Payload: []byte("v")}
	prefix := []byte("prefix:")
	buf := v.Encode(prefix)
	if !bytes.Equal(buf[:len(prefix)], prefix) {
		t.Fatalf("Encode clobbered existing prefix: %q", buf)
	}
	got, _, err := Decode(buf[len(prefix):])
	if err != nil || !bytes.Equal(got.Payload, v.Payload) {
		t.Fatalf("round trip after prefix: got (%+v, %v)", got, err)
	}
}
