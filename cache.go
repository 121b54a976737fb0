package pagecache

import (
	"cmp"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/immutable"
	"github.com/djdv/go-pagecache/internal/logging"
	"github.com/djdv/go-pagecache/internal/ring"
	"github.com/phuslu/log"
)

type (
	// Cache is a fixed-capacity, page-granular write-back cache
	// in front of a [Store].
	// It is safe for concurrent use.
	// Constructed by [New].
	Cache struct {
		mu sync.RWMutex
		// index maps page offsets to allocator slot ids.
		index *immutable.SortedMap[uint64, int]
		// order holds the same slot ids in admission order.
		order  *ring.Ring
		alloc  allocator
		store  Store
		log    *log.Logger
		config Config
		closed bool
		dirty  atomic.Int64 // Pages carrying TagDirty.
		counters
	}
	counters struct {
		hits, misses,
		inserts, evictions,
		flushes, flushErrors atomic.Uint64
	}
	// Stats is a snapshot of cache state and activity.
	Stats struct {
		Resident      int
		Dirty         int
		Capacity      int
		HighWatermark int
		Hits          uint64
		Misses        uint64
		Inserts       uint64
		Evictions     uint64
		Flushes       uint64
		FlushErrors   uint64
		Allocator     AllocatorStats
	}
	offsetComparer struct{}
)

func (offsetComparer) Compare(a, b uint64) int { return cmp.Compare(a, b) }

// New initializes a cache over store.
// Capacity must be at least [MinimumCapacity], the high watermark and
// eviction batch must lie within [1, capacity], and the page size
// must be a power of two.
func New(store Store, config Config) (*Cache, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidConfig)
	}
	config = config.withDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	c := &Cache{
		index:  immutable.NewSortedMap[uint64, int](offsetComparer{}),
		order:  ring.New(config.CapacityPages),
		alloc:  newAllocator(config.Allocator, config.CapacityPages, config.PageSize),
		store:  store,
		log:    logger,
		config: config,
	}
	c.log.Info().
		Int("capacity", config.CapacityPages).
		Int("hiwat", config.HighWatermark).
		Int("evict", config.EvictionBatch).
		Int("page_size", config.PageSize).
		Str("allocator", config.Allocator.String()).
		Msg("cache initialized")
	return c, nil
}

// PageSize returns the page size in bytes.
func (c *Cache) PageSize() int { return c.config.PageSize }

// Capacity returns the number of page slots.
func (c *Cache) Capacity() int { return c.config.CapacityPages }

// Len returns the number of resident pages.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.Len()
}

// Sync writes every dirty page back to the store.
func (c *Cache) Sync() error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	return c.FlushAll()
}

// Close tears the cache down, flushing and deleting every resident page.
// Pages whose flush fails stay resident and their errors are returned.
// Subsequent calls return [ErrClosed].
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	c.mu.Unlock()
	err := c.DeleteAll()
	c.log.Info().
		Int("resident", c.Len()).
		Err(err).
		Msg("cache torn down")
	return err
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Resident:      c.Len(),
		Dirty:         int(c.dirty.Load()),
		Capacity:      c.config.CapacityPages,
		HighWatermark: c.config.HighWatermark,
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Inserts:       c.inserts.Load(),
		Evictions:     c.evictions.Load(),
		Flushes:       c.flushes.Load(),
		FlushErrors:   c.flushErrors.Load(),
		Allocator:     c.alloc.stats(),
	}
}

// violation reports a broken internal invariant.
// These are never recoverable.
func violation(format string, args ...any) {
	panic(fmt.Sprintf("pagecache: "+format, args...))
}

// checkInvariants walks the index and admission order.
// Only performed in debug builds. Caller must hold c.mu.
func (c *Cache) checkInvariants() {
	if !debugging {
		return
	}
	var (
		resident = c.index.Len()
		admitted = c.order.Len()
	)
	invariant(resident == admitted,
		fmt.Sprintf("index holds %d pages but %d are admitted", resident, admitted))
	invariant(resident <= c.alloc.capacity(),
		fmt.Sprintf("%d resident pages exceed capacity %d", resident, c.alloc.capacity()))
	invariant(c.alloc.stats().InUse >= resident,
		"resident pages are not accounted for by the allocator")
	for slot := range c.order.All() {
		page := c.alloc.page(slot)
		invariant(page != nil, "admitted slot was never allocated")
		indexed, ok := c.index.Get(page.index)
		invariant(ok && indexed == slot,
			fmt.Sprintf("admitted slot %d is not indexed", slot))
	}
}

// closedError is returned by mutations attempted after [Cache.Close].
func closedError(op string) error {
	return fmt.Errorf("%s: %w", op, ErrClosed)
}
