package pagecache

import "sync"

// staticAllocator partitions a single region into page slots once.
// Every descriptor is pre-bound to its slice of the region,
// and acquire/release only move slot ids on and off a free stack.
type staticAllocator struct {
	mu     sync.Mutex
	region []byte
	pages  []Page
	free   []int
	counts AllocatorStats
}

func newStaticAllocator(capacity, pageSize int) *staticAllocator {
	var (
		region = make([]byte, capacity*pageSize)
		a      = &staticAllocator{
			region: region,
			pages:  make([]Page, capacity),
			free:   make([]int, capacity),
		}
	)
	for slot := range a.pages {
		var (
			page  = &a.pages[slot]
			start = slot * pageSize
			end   = start + pageSize
		)
		page.owner = a
		page.slot = slot
		page.buffer = region[start:end:end]
		page.free = true
		// Lowest slot on top of the stack.
		a.free[capacity-1-slot] = slot
	}
	a.counts.Capacity = capacity
	return a
}

func (a *staticAllocator) acquire() (*Page, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	last := len(a.free) - 1
	if last < 0 {
		a.counts.Exhausted++
		return nil, ErrExhausted
	}
	slot := a.free[last]
	a.free = a.free[:last]
	page := &a.pages[slot]
	invariant(page.free, "free stack holds a used slot")
	page.free = false
	a.counts.Acquired++
	a.counts.InUse++
	return page, nil
}

func (a *staticAllocator) release(page *Page) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if page == nil || page.owner != allocator(a) ||
		page.slot < 0 || page.slot >= len(a.pages) ||
		&a.pages[page.slot] != page {
		return releaseError(ErrForeignPage, page)
	}
	if page.free {
		return releaseError(ErrDoubleRelease, page)
	}
	page.free = true
	a.free = append(a.free, page.slot)
	a.counts.Released++
	a.counts.InUse--
	return nil
}

func (a *staticAllocator) page(slot int) *Page {
	if slot < 0 || slot >= len(a.pages) {
		return nil
	}
	return &a.pages[slot]
}

func (a *staticAllocator) capacity() int { return len(a.pages) }

func (a *staticAllocator) stats() AllocatorStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts
}
