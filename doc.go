// Package pagecache implements a fixed-capacity, page-granular
// write-back [Cache] in front of a byte-addressable [Store].
//
// Callers address data by page offset (byte offset / page size).
// Writes land in resident page buffers and are tagged dirty;
// the store only sees them when the page is flushed, synced,
// evicted, or the cache is closed.
// [Device] layers byte-addressed reads and writes on top,
// splitting requests that straddle pages.
//
// Glossary and invariants:
//
//   - Page
//
//     Descriptor of one allocator slot: a page offset, a page-sized
//     buffer, and its tags. Handles are recycled after deletion.
//
//   - Resident
//
//     A page reachable through the index. A page is resident if and only if
//     it is also in the admission order.
//
//   - Dirty
//
//     The buffer holds bytes the store has not seen.
//     A dirty page is written back before its slot is reused.
//
//   - Slot
//
//     Allocator position of a page. The index and the admission order
//     refer to pages only by slot.
//
// Operations:
//
//   - Insert
//
//     Insert-if-absent. The allocation happens outside the structural lock;
//     if another caller published the same offset first, the extra page is
//     released and the published one is returned.
//
//   - Delete
//
//     Flush if dirty, unpublish, release. A failed flush leaves the page
//     resident and dirty.
//
//   - Scan
//
//     Ascending, batched, filtered by tag. Not a snapshot.
//
// Counts and limits:
//
//   - resident ≤ capacity.
//
//     The allocator never hands out more than capacity pages.
//
//   - Full when resident ≥ high watermark.
//
//     Callers (such as [Device]) evict a batch before inserting into a full cache.
//
//   - Eviction is first in, first out.
//
//     Lookups do not reorder pages.
//
// Locking:
//
// Each cache has one reader/writer lock guarding the index and the
// admission order, and each page has a mutex guarding its buffer and tags.
// The structural lock is always taken before a page lock.
//
// Builds with the pagecache_debug tag additionally walk
// the whole structure after every mutation.
package pagecache
