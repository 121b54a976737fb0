package pagecache

import (
	"fmt"
	"io"
	"sync"
)

// Tag is a marker carried by index entries, used to filter scans.
type Tag uint8

const (
	// AnyTag matches every page in [Cache.ScanTagged].
	AnyTag Tag = 0
	// TagDirty is set on pages whose contents
	// have not reached the backing store.
	TagDirty Tag = 1
)

// Page is the descriptor of one cache slot.
// Handles are owned by the cache and are only meaningful
// while the page is resident; a handle may be recycled for
// another index once the page is deleted or evicted.
type Page struct {
	mu       sync.Mutex
	owner    allocator
	buffer   []byte
	index    uint64
	slot     int
	tags     Tag
	free     bool
	resident bool
	fresh    bool // Contents are whatever the previous owner left.
}

// Index returns the page offset (byte offset / page size) of the page.
func (p *Page) Index() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

// Size returns the length of the page buffer.
func (p *Page) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffer)
}

// Tagged reports whether the page carries tag.
func (p *Page) Tagged(tag Tag) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tagged(tag)
}

// Dirty reports whether the page carries [TagDirty].
func (p *Page) Dirty() bool { return p.Tagged(TagDirty) }

func (p *Page) tagged(tag Tag) bool {
	return tag == AnyTag || p.tags&tag != 0
}

// ReadAt copies page contents starting at off into b.
func (p *Page) ReadAt(b []byte, off int64) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.resident {
		return 0, ErrNotResident
	}
	if off < 0 || off >= int64(len(p.buffer)) {
		return 0, io.EOF
	}
	n := copy(b, p.buffer[off:])
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt copies b into the page buffer at off.
// It does not tag the page; see [Cache.MarkDirty].
func (p *Page) WriteAt(b []byte, off int64) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.resident {
		return 0, ErrNotResident
	}
	if size := int64(len(p.buffer)); off < 0 || off > size || int64(len(b)) > size-off {
		return 0, fmt.Errorf(
			"%w: %d bytes at %d in a %d byte page",
			ErrOutOfRange, len(b), off, len(p.buffer))
	}
	p.fresh = false
	return copy(p.buffer[off:], b), nil
}

// bind prepares a freshly acquired page for index.
// The page is not yet reachable through the index.
func (p *Page) bind(index uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.index = index
	p.tags = 0
	p.resident = false
	p.fresh = true
}
