package pagecache

import "sync"

// freeList is a bounded, non-blocking object pool.
// Objects are created on demand until limit is reached,
// after which only returned objects are handed out.
type freeList[T any] struct {
	free      chan T
	construct func() T
	made      int
	limit     int
}

func newFreeList[T any](limit int, construct func() T) *freeList[T] {
	return &freeList[T]{
		free:      make(chan T, limit),
		construct: construct,
		limit:     limit,
	}
}

// get must be called with the owner's lock held.
func (l *freeList[T]) get() (T, bool) {
	select {
	case obj := <-l.free:
		return obj, true
	default:
	}
	if l.made == l.limit {
		var zero T
		return zero, false
	}
	l.made++
	return l.construct(), true
}

func (l *freeList[T]) put(obj T) bool {
	select {
	case l.free <- obj:
		return true
	default:
		return false
	}
}

// poolAllocator draws a descriptor and a page buffer
// from two parallel free lists on every acquire,
// and returns both on release.
type poolAllocator struct {
	mu          sync.Mutex
	buffers     *freeList[[]byte]
	descriptors *freeList[*Page]
	slots       []*Page
	counts      AllocatorStats
}

func newPoolAllocator(capacity, pageSize int) *poolAllocator {
	a := &poolAllocator{
		buffers: newFreeList(capacity, func() []byte {
			return make([]byte, pageSize)
		}),
		slots: make([]*Page, capacity),
	}
	a.descriptors = newFreeList(capacity, func() *Page {
		page := &Page{
			owner: a,
			slot:  a.descriptors.made - 1,
			free:  true,
		}
		a.slots[page.slot] = page
		return page
	})
	a.counts.Capacity = capacity
	return a
}

func (a *poolAllocator) acquire() (*Page, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	page, ok := a.descriptors.get()
	if !ok {
		a.counts.Exhausted++
		return nil, ErrExhausted
	}
	buffer, ok := a.buffers.get()
	if !ok {
		invariant(false, "buffer pool drained before descriptor pool")
		a.descriptors.put(page)
		a.counts.Exhausted++
		return nil, ErrExhausted
	}
	invariant(page.free, "descriptor free list holds a used descriptor")
	page.mu.Lock()
	page.buffer = buffer
	page.mu.Unlock()
	page.free = false
	a.counts.Acquired++
	a.counts.InUse++
	return page, nil
}

func (a *poolAllocator) release(page *Page) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if page == nil || page.owner != allocator(a) ||
		page.slot < 0 || page.slot >= len(a.slots) ||
		a.slots[page.slot] != page {
		return releaseError(ErrForeignPage, page)
	}
	if page.free {
		return releaseError(ErrDoubleRelease, page)
	}
	page.mu.Lock()
	buffer := page.buffer
	page.buffer = nil
	page.mu.Unlock()
	page.free = true
	if !a.buffers.put(buffer) || !a.descriptors.put(page) {
		panic("page pool overflow on release")
	}
	a.counts.Released++
	a.counts.InUse--
	return nil
}

func (a *poolAllocator) page(slot int) *Page {
	if slot < 0 || slot >= len(a.slots) {
		return nil
	}
	return a.slots[slot]
}

func (a *poolAllocator) capacity() int { return len(a.slots) }

func (a *poolAllocator) stats() AllocatorStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts
}
