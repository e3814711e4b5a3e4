package wal

// Iterator walks a WAL's mapped bytes forward from offset 0, decoding
// entries until it hits the zero sentinel, a torn tail, or the end of
// Size. It never reports an error for any of these —
// they're all "clean end of log" from the caller's perspective.
type Iterator struct {
	data   []byte
	size   int64
	offset int64
}

// NewIterator returns a forward iterator over w.mmap[0:w.Size()].
func NewIterator(w *WAL) *Iterator {
	return &Iterator{data: w.mmap, size: w.size}
}

// Next decodes and returns the entry at the current offset, advancing
// past it. ok is false once the sentinel, a torn tail, or the mapped
// region's end is reached.
func (it *Iterator) Next() (Entry, bool) {
	if it.offset >= it.size {
		return Entry{}, false
	}

	e, n, err := decodeEntry(it.data[it.offset:it.size])
	if err != nil {
		return Entry{}, false
	}
	if e.isZeroSentinel() {
		return Entry{}, false
	}

	it.offset += int64(n)
	return e, true
}

// Offset returns the iterator's current read cursor.
func (it *Iterator) Offset() int64 { return it.offset }
