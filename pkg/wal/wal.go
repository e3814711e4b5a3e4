// Package wal implements the mmap-backed append log used both as the
// memtable's durability backing and as the value log.
package wal

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"lsmdb/pkg/dberrors"
)

// Opts configures a WAL instance.
type Opts struct {
	// ValueLogFileSize is the nominal size of one WAL segment; a freshly
	// created file is pre-extended to 2x this value.
	ValueLogFileSize int64
	// SyncWrites makes DoneWriting fsync before truncating.
	SyncWrites bool
}

// WAL is an append-only log backed by a memory-mapped file. The first Size
// bytes of the mapping are the authoritative log; WriteAt <= Size; bytes
// [WriteAt, WriteAt+MaxHeaderSize) are kept zeroed as the forward
// iterator's end-of-log sentinel.
type WAL struct {
	path string
	opts Opts

	file *os.File
	mmap []byte

	writeAt int64
	size    int64
}

// Open opens path, mmap-ing it read/write. If the file does not exist, it
// is created, extended to 2*opts.ValueLogFileSize, fsynced, mapped, and
// bootstrapped (the first MaxHeaderSize bytes zeroed). If it exists, the
// log is replayed from byte 0 to find the true write cursor — the first
// position where decoding fails or yields the zero sentinel.
func Open(path string, opts Opts) (*WAL, error) {
	_, statErr := os.Stat(path)
	exists := statErr == nil

	var f *os.File
	var err error
	if exists {
		f, err = os.OpenFile(path, os.O_RDWR, 0600)
	} else {
		f, err = os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	}
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}

	var size int64
	if exists {
		info, statErr := f.Stat()
		if statErr != nil {
			_ = f.Close()
			return nil, fmt.Errorf("wal: stat %s: %w", path, statErr)
		}
		size = info.Size()
	} else {
		size = 2 * opts.ValueLogFileSize
		if err := f.Truncate(size); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("wal: extend %s: %w", path, err)
		}
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("wal: sync new %s: %w", path, err)
		}
	}

	// A segment closed out after zero writes is 0 bytes; mmap rejects
	// zero-length mappings, and there is nothing to map anyway.
	var data []byte
	if size > 0 {
		data, err = unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("wal: mmap %s: %w", path, err)
		}
	}

	w := &WAL{path: path, opts: opts, file: f, mmap: data, size: size}
	if exists {
		w.recoverWriteCursor()
	} else {
		w.bootstrap()
	}
	return w, nil
}

// bootstrap zeroes the first MaxHeaderSize bytes to establish the sentinel
// for a brand-new log.
func (w *WAL) bootstrap() {
	n := MaxHeaderSize
	if n > len(w.mmap) {
		n = len(w.mmap)
	}
	for i := 0; i < n; i++ {
		w.mmap[i] = 0
	}
	w.writeAt = 0
}

// recoverWriteCursor replays an existing log from offset 0 to find where
// the valid entry run ends.
func (w *WAL) recoverWriteCursor() {
	it := NewIterator(w)
	for {
		if _, ok := it.Next(); !ok {
			break
		}
	}
	w.writeAt = it.offset
}

// WriteEntry encodes e and copies it into the mapping at WriteAt, then
// re-zeroes the next MaxHeaderSize bytes to keep the sentinel ahead of the
// cursor. Not internally synchronized — the caller must serialize writes
// to one WAL.
func (w *WAL) WriteEntry(e Entry) error {
	n := e.encodedLen()
	if w.writeAt+int64(n)+MaxHeaderSize > w.size {
		return dberrors.TooLong("wal entry", n)
	}

	buf := e.encode(make([]byte, 0, n))
	copy(w.mmap[w.writeAt:], buf)
	w.writeAt += int64(n)

	end := w.writeAt + MaxHeaderSize
	if end > int64(len(w.mmap)) {
		end = int64(len(w.mmap))
	}
	for i := w.writeAt; i < end; i++ {
		w.mmap[i] = 0
	}
	return nil
}

// Sync flushes the mapping to the backing file.
func (w *WAL) Sync() error {
	if len(w.mmap) == 0 {
		return nil
	}
	if err := unix.Msync(w.mmap, unix.MS_SYNC); err != nil {
		return fmt.Errorf("wal: msync %s: %w", w.path, err)
	}
	return nil
}

// Truncate sets Size to end, truncates the underlying file, and fsyncs.
func (w *WAL) Truncate(end int64) error {
	w.size = end
	if err := w.file.Truncate(end); err != nil {
		return fmt.Errorf("wal: truncate %s: %w", w.path, err)
	}
	return w.file.Sync()
}

// DoneWriting optionally fsyncs (per Opts.SyncWrites) then truncates to
// offset, the usual end-of-session call once no more entries will be
// appended.
func (w *WAL) DoneWriting(offset int64) error {
	if w.opts.SyncWrites {
		if err := w.Sync(); err != nil {
			return err
		}
	}
	return w.Truncate(offset)
}

// ValuePointer locates a value previously written to a WAL segment.
type ValuePointer struct {
	Offset uint32
	Len    uint32
}

// Read returns a copy of the bytes described by vp, bounds-checked against
// both the mapping length and Size.
func (w *WAL) Read(vp ValuePointer) ([]byte, error) {
	end := int64(vp.Offset) + int64(vp.Len)
	if end > int64(len(w.mmap)) || end > w.size {
		return nil, dberrors.LogRead(fmt.Sprintf("value pointer %+v out of bounds (size=%d)", vp, w.size))
	}
	out := make([]byte, vp.Len)
	copy(out, w.mmap[vp.Offset:end])
	return out, nil
}

// ShouldFlush reports whether the write cursor has moved past the nominal
// segment size, the caller's signal to rotate the owning memtable/value-log.
func (w *WAL) ShouldFlush() bool {
	return w.writeAt > w.opts.ValueLogFileSize
}

// Path returns the backing file's path.
func (w *WAL) Path() string { return w.path }

// WriteAt returns the current write cursor.
func (w *WAL) WriteAt() int64 { return w.writeAt }

// Size returns the authoritative log length.
func (w *WAL) Size() int64 { return w.size }

// Close unmaps and closes the backing file.
func (w *WAL) Close() error {
	if w.mmap != nil {
		if err := unix.Munmap(w.mmap); err != nil {
			return fmt.Errorf("wal: munmap %s: %w", w.path, err)
		}
		w.mmap = nil
	}
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return fmt.Errorf("wal: close %s: %w", w.path, err)
		}
		w.file = nil
	}
	return nil
}
