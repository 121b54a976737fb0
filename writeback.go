package pagecache

import "errors"

// MarkDirty tags page as dirty. Write-back is deferred until
// the page is flushed, synced, evicted, or the cache is closed.
// Marking a clean or non-resident page is a no-op.
func (c *Cache) MarkDirty(page *Page) {
	page.mu.Lock()
	defer page.mu.Unlock()
	c.markLocked(page)
}

// markLocked requires page.mu.
func (c *Cache) markLocked(page *Page) {
	if !page.resident || page.tags&TagDirty != 0 {
		return
	}
	page.tags |= TagDirty
	c.dirty.Add(1)
}

// Flush copies a dirty page to the store at its offset and clears
// its dirty tag. Clean pages are left alone.
// If the store write fails, the page stays dirty.
func (c *Cache) Flush(page *Page) error {
	page.mu.Lock()
	defer page.mu.Unlock()
	return c.flushLocked(page)
}

// flushLocked requires page.mu.
// Holding it across copy and clear keeps a racing write
// from having its mark erased.
func (c *Cache) flushLocked(page *Page) error {
	if page.tags&TagDirty == 0 {
		return nil
	}
	offset := int64(page.index) * int64(c.config.PageSize)
	if _, err := c.store.WriteAt(page.buffer, offset); err != nil {
		c.flushErrors.Add(1)
		c.log.Debug().Uint64("page", page.index).Err(err).Msg("flush failed")
		return flushError(page.index, err)
	}
	page.tags &^= TagDirty
	c.dirty.Add(-1)
	c.flushes.Add(1)
	c.log.Debug().Uint64("page", page.index).Msg("flush")
	return nil
}

// FlushAll flushes every dirty page in ascending offset order.
// When no page is dirty it returns without scanning the index.
// Every dirty page found is attempted; failures are joined.
//
// FlushAll is not a snapshot: pages dirtied below the scan position
// while it runs may be left for the next pass.
func (c *Cache) FlushAll() error {
	if c.dirty.Load() == 0 {
		return nil
	}
	var errs []error
	c.scanBatches(TagDirty, func(page *Page) {
		if err := c.Flush(page); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}
