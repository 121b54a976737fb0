package pagecache

import (
	"errors"
	"fmt"
)

// Lookup returns the resident page for the page offset pgoff.
// It may run concurrently with other lookups and with mutations;
// it never observes a partially inserted or deleted page.
func (c *Cache) Lookup(pgoff uint64) (*Page, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	page := c.lookupLocked(pgoff)
	if page == nil {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return page, true
}

// lookupLocked requires c.mu to be held in either mode.
func (c *Cache) lookupLocked(pgoff uint64) *Page {
	slot, ok := c.index.Get(pgoff)
	if !ok {
		return nil
	}
	page := c.alloc.page(slot)
	if page == nil || page.index != pgoff {
		violation("index entry %d resolves to slot %d holding another page", pgoff, slot)
	}
	return page
}

// Insert returns the resident page for pgoff, allocating
// and admitting a new one if none exists.
// It returns [ErrExhausted] if no page can be allocated;
// callers are expected to evict (see [Cache.Full]) beforehand.
//
// Concurrent inserts of the same offset return the same page:
// the loser of the race releases its own allocation.
func (c *Cache) Insert(pgoff uint64) (*Page, error) {
	c.mu.RLock()
	closed, resident := c.closed, c.lookupLocked(pgoff)
	c.mu.RUnlock()
	if closed {
		return nil, closedError("insert")
	}
	if resident != nil {
		return resident, nil
	}
	speculative, err := c.alloc.acquire()
	if err != nil {
		// A racer may have published pgoff while holding the last slot.
		c.mu.RLock()
		winner := c.lookupLocked(pgoff)
		c.mu.RUnlock()
		if winner != nil {
			return winner, nil
		}
		c.log.Debug().Uint64("page", pgoff).Msg("insert: pool exhausted")
		return nil, fmt.Errorf("inserting page %d: %w", pgoff, err)
	}
	speculative.bind(pgoff)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.mustRelease(speculative)
		return nil, closedError("insert")
	}
	if winner := c.lookupLocked(pgoff); winner != nil {
		c.mustRelease(speculative)
		return winner, nil
	}
	c.index = c.index.Set(pgoff, speculative.slot)
	c.admit(speculative)
	speculative.mu.Lock()
	speculative.resident = true
	speculative.mu.Unlock()
	c.inserts.Add(1)
	c.log.Debug().
		Uint64("page", pgoff).
		Int("slot", speculative.slot).
		Int("resident", c.index.Len()).
		Msg("insert")
	c.checkInvariants()
	return speculative, nil
}

// Delete flushes page if it is dirty, then removes it from the index
// and the admission order and returns its slot to the allocator.
// If the flush fails the page stays resident.
// It returns [ErrNotResident] if page is not the resident page of its offset.
func (c *Cache) Delete(page *Page) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleteLocked(page)
}

// deleteLocked requires c.mu to be held exclusively.
func (c *Cache) deleteLocked(page *Page) error {
	if page == nil {
		return fmt.Errorf("%w: nil page", ErrNotResident)
	}
	page.mu.Lock()
	var (
		pgoff    = page.index
		resident = page.resident
	)
	if !resident || c.lookupLocked(pgoff) != page {
		page.mu.Unlock()
		return fmt.Errorf("%w: page %d", ErrNotResident, pgoff)
	}
	// The page lock is held from the flush until the page is unreachable,
	// so no write can land between write-back and release.
	if err := c.flushLocked(page); err != nil {
		page.mu.Unlock()
		return err
	}
	c.index = c.index.Delete(pgoff)
	if !c.order.Remove(page.slot) {
		violation("deleting page %d which was never admitted", pgoff)
	}
	page.resident = false
	page.mu.Unlock()
	c.mustRelease(page)
	c.log.Debug().
		Uint64("page", pgoff).
		Int("slot", page.slot).
		Msg("delete")
	c.checkInvariants()
	return nil
}

func (c *Cache) mustRelease(page *Page) {
	if err := c.alloc.release(page); err != nil {
		violation("releasing slot %d: %v", page.slot, err)
	}
}

// ScanTagged returns up to limit resident pages carrying tag,
// in ascending offset order, starting at offset start.
// Pass [AnyTag] to match every page. A limit below one uses the
// configured scan batch.
//
// To enumerate everything, repeat with start set to next until
// a call returns fewer than limit pages. Pages at or above next
// may change between calls; a page inserted below next during
// the enumeration is not visited by it.
func (c *Cache) ScanTagged(start uint64, tag Tag, limit int) (pages []*Page, next uint64) {
	if limit < 1 {
		limit = c.config.ScanBatch
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	next = start
	pages = make([]*Page, 0, min(limit, c.index.Len()))
	itr := c.index.Iterator()
	itr.Seek(start)
	for !itr.Done() && len(pages) < limit {
		pgoff, slot, _ := itr.Next()
		page := c.alloc.page(slot)
		invariant(pgoff >= start, "index iterator moved backwards")
		if !page.Tagged(tag) {
			continue
		}
		pages = append(pages, page)
		next = pgoff + 1
	}
	return pages, next
}

// DeleteAll drains the index in ascending batches,
// deleting every page it finds.
func (c *Cache) DeleteAll() error {
	var errs []error
	c.scanBatches(AnyTag, func(page *Page) {
		err := c.Delete(page)
		if err != nil && !errors.Is(err, ErrNotResident) {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// scanBatches calls fn for every page carrying tag, batch by batch.
func (c *Cache) scanBatches(tag Tag, fn func(*Page)) {
	var (
		limit = c.config.ScanBatch
		start uint64
	)
	for {
		pages, next := c.ScanTagged(start, tag, limit)
		for _, page := range pages {
			fn(page)
		}
		// next wraps to 0 only after visiting the largest offset.
		if len(pages) < limit || next == 0 {
			return
		}
		start = next
	}
}
