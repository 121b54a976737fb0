package pagecache

import (
	"fmt"
	"io"
	"sync"
)

// Store is the backing store behind a cache.
// Page write-back uses WriteAt with whole, page-aligned pages;
// ReadAt is only used by [Device] to fill pages on demand.
// An [*os.File] satisfies Store.
type Store interface {
	io.ReaderAt
	io.WriterAt
}

// MemStore is a fixed-size, byte-addressable [Store] held in memory.
type MemStore struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemStore returns a zero-filled store of size bytes.
func NewMemStore(size int) *MemStore {
	return &MemStore{data: make([]byte, size)}
}

// Len returns the size of the store in bytes.
func (s *MemStore) Len() int { return len(s.data) }

// ReadAt implements [io.ReaderAt].
func (s *MemStore) ReadAt(b []byte, off int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", ErrOutOfRange, off)
	}
	if off >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(b, s.data[off:])
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements [io.WriterAt].
// Writes past the end of the store fail without writing.
func (s *MemStore) WriteAt(b []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if size := int64(len(s.data)); off < 0 || off > size || int64(len(b)) > size-off {
		return 0, fmt.Errorf(
			"%w: %d bytes at %d in a %d byte store",
			ErrOutOfRange, len(b), off, len(s.data))
	}
	return copy(s.data[off:], b), nil
}

// Bytes returns a copy of the store contents in [off, off+n).
func (s *MemStore) Bytes(off, n int) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]byte, n)
	copy(out, s.data[off:off+n])
	return out
}
