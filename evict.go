package pagecache

// admit appends page to the tail of the admission order.
// Caller must hold c.mu exclusively.
func (c *Cache) admit(page *Page) {
	if !c.order.PushBack(page.slot) {
		violation("page %d admitted twice (slot %d)", page.index, page.slot)
	}
}

// Full reports whether the resident page count has reached
// the high watermark.
func (c *Cache) Full() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.Len() >= c.config.HighWatermark
}

// EvictBatch removes up to the configured eviction batch of pages,
// oldest admitted first, through the same path as [Cache.Delete].
// Reads do not reorder pages; eviction is first in, first out.
// It stops early when the cache empties, or when a dirty page
// cannot be flushed, in which case the flush error is returned
// along with the number of pages evicted before it.
func (c *Cache) EvictBatch() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	evicted := 0
	for evicted < c.config.EvictionBatch {
		slot, ok := c.order.Front()
		if !ok {
			break
		}
		if err := c.deleteLocked(c.alloc.page(slot)); err != nil {
			c.evictions.Add(uint64(evicted))
			c.log.Warn().Int("evicted", evicted).Err(err).Msg("eviction halted")
			return evicted, err
		}
		evicted++
	}
	c.evictions.Add(uint64(evicted))
	c.log.Debug().
		Int("evicted", evicted).
		Int("resident", c.index.Len()).
		Msg("evict batch")
	return evicted, nil
}
