package pagecache

import (
	"errors"
	"fmt"
	"io"

	"github.com/djdv/go-pagecache/internal/pagemath"
)

// MissPolicy decides what a [Device] returns for bytes
// of pages that are not resident.
type MissPolicy int

const (
	// MissZeroFill treats non-resident pages as zeros.
	MissZeroFill MissPolicy = iota
	// MissReadThrough reads non-resident pages from the store
	// without admitting them.
	MissReadThrough
)

func (policy MissPolicy) String() string {
	switch policy {
	case MissZeroFill:
		return "zero-fill"
	case MissReadThrough:
		return "read-through"
	default:
		return fmt.Sprintf("MissPolicy(%d)", int(policy))
	}
}

// Device is a byte-addressable view of a [Cache] and its [Store].
// Requests are split into page spans; writes land in the cache
// and reach the store on write-back.
type Device struct {
	cache *Cache
	size  int64
	miss  MissPolicy
}

var (
	_ io.ReaderAt = (*Device)(nil)
	_ io.WriterAt = (*Device)(nil)
)

// NewDevice returns a device of size bytes backed by cache.
func NewDevice(cache *Cache, size int64, miss MissPolicy) *Device {
	return &Device{
		cache: cache,
		size:  size,
		miss:  miss,
	}
}

// Size returns the device size in bytes.
func (d *Device) Size() int64 { return d.size }

// Cache returns the cache behind the device.
func (d *Device) Cache() *Cache { return d.cache }

// Sync flushes all dirty pages.
func (d *Device) Sync() error { return d.cache.Sync() }

// Close tears down the cache, writing back dirty pages.
func (d *Device) Close() error { return d.cache.Close() }

func (d *Device) bounds(n int, off int64) error {
	if off < 0 || off > d.size || int64(n) > d.size-off {
		return fmt.Errorf(
			"%w: %d bytes at %d on a %d byte device",
			ErrOutOfRange, n, off, d.size)
	}
	return nil
}

// ReadAt implements [io.ReaderAt].
// Resident pages are served from the cache, the rest per the miss policy.
func (d *Device) ReadAt(b []byte, off int64) (int, error) {
	if err := d.bounds(len(b), off); err != nil {
		return 0, err
	}
	pageSize := d.cache.PageSize()
	for span := range pagemath.Spans(off, len(b), pageSize) {
		dst := b[span.Cursor : span.Cursor+span.Length]
		if d.cache.readPage(span.Page, span.Offset, dst) {
			continue
		}
		at := int64(span.Page)*int64(pageSize) + int64(span.Offset)
		if err := d.fill(dst, at); err != nil {
			return span.Cursor, err
		}
	}
	return len(b), nil
}

// WriteAt implements [io.WriterAt].
// Each touched page is inserted (evicting first when the cache is full),
// written, and tagged dirty.
func (d *Device) WriteAt(b []byte, off int64) (int, error) {
	if err := d.bounds(len(b), off); err != nil {
		return 0, err
	}
	for span := range pagemath.Spans(off, len(b), d.cache.PageSize()) {
		if err := d.writeSpan(span, b[span.Cursor:span.Cursor+span.Length]); err != nil {
			return span.Cursor, err
		}
	}
	return len(b), nil
}

func (d *Device) writeSpan(span pagemath.Span, src []byte) error {
	pageSize := d.cache.PageSize()
	var fill func([]byte) error
	if !span.Full(pageSize) {
		fill = func(buffer []byte) error {
			return d.fill(buffer, int64(span.Page)*int64(pageSize))
		}
	}
	for {
		page, err := d.obtain(span.Page)
		if err != nil {
			return err
		}
		written, err := d.cache.writePage(page, span.Page, span.Offset, src, fill)
		if err != nil || written {
			return err
		}
		// Evicted by someone else between insert and copy.
	}
}

// obtain inserts the page for pgoff, evicting beforehand if the cache
// is full. An exhausted pool is retried once after another eviction pass.
func (d *Device) obtain(pgoff uint64) (*Page, error) {
	c := d.cache
	if c.Full() {
		if _, err := c.EvictBatch(); err != nil {
			return nil, err
		}
	}
	page, err := c.Insert(pgoff)
	if !errors.Is(err, ErrExhausted) {
		return page, err
	}
	if _, err := c.EvictBatch(); err != nil {
		return nil, err
	}
	if page, err = c.Insert(pgoff); errors.Is(err, ErrExhausted) {
		return nil, fmt.Errorf("%w: %w", ErrCapacity, err)
	}
	return page, err
}

// fill supplies bytes for non-resident data at store offset at.
func (d *Device) fill(dst []byte, at int64) error {
	if d.miss != MissReadThrough {
		clear(dst)
		return nil
	}
	n, err := d.cache.store.ReadAt(dst, at)
	if errors.Is(err, io.EOF) {
		clear(dst[n:])
		err = nil
	}
	return err
}

// readPage copies from the resident page for pgoff, starting at within.
// It reports false on a miss.
func (c *Cache) readPage(pgoff uint64, within int, dst []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	page := c.lookupLocked(pgoff)
	if page == nil {
		c.misses.Add(1)
		return false
	}
	page.mu.Lock()
	defer page.mu.Unlock()
	if page.fresh {
		c.misses.Add(1)
		return false
	}
	copy(dst, page.buffer[within:])
	c.hits.Add(1)
	return true
}

// writePage copies src into page at within and tags it dirty,
// provided page is still the resident page for pgoff.
// A page that was never written is first passed to fill, if fill is not nil.
func (c *Cache) writePage(page *Page, pgoff uint64, within int, src []byte, fill func([]byte) error) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lookupLocked(pgoff) != page {
		return false, nil
	}
	page.mu.Lock()
	defer page.mu.Unlock()
	if page.fresh {
		if fill != nil {
			if err := fill(page.buffer); err != nil {
				return false, fmt.Errorf("filling page %d: %w", pgoff, err)
			}
		}
		page.fresh = false
	}
	copy(page.buffer[within:], src)
	c.markLocked(page)
	return true, nil
}
