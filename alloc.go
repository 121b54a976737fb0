package pagecache

import "fmt"

// AllocatorKind selects the page allocation strategy of a [Cache].
type AllocatorKind int

const (
	// AllocStatic carves one region into fixed page slots at initialization.
	AllocStatic AllocatorKind = iota
	// AllocPool recycles page buffers and descriptors
	// through bounded free lists, creating them lazily.
	AllocPool
)

func (kind AllocatorKind) String() string {
	switch kind {
	case AllocStatic:
		return "static"
	case AllocPool:
		return "pool"
	default:
		return fmt.Sprintf("AllocatorKind(%d)", int(kind))
	}
}

// ParseAllocatorKind parses the names produced by [AllocatorKind.String].
func ParseAllocatorKind(name string) (AllocatorKind, error) {
	switch name {
	case "static":
		return AllocStatic, nil
	case "pool":
		return AllocPool, nil
	default:
		return 0, fmt.Errorf("%w: unknown allocator %q", ErrInvalidConfig, name)
	}
}

// AllocatorStats counts allocator activity.
type AllocatorStats struct {
	Acquired  uint64
	Released  uint64
	Exhausted uint64
	InUse     int
	Capacity  int
}

// allocator hands out and reclaims page slots from a pool
// whose capacity is fixed at construction.
// Acquired buffers are not zeroed.
type allocator interface {
	acquire() (*Page, error)
	release(*Page) error
	// page resolves a slot id to its descriptor.
	// The slot must have been handed out at least once.
	page(slot int) *Page
	capacity() int
	stats() AllocatorStats
}

func newAllocator(kind AllocatorKind, capacity, pageSize int) allocator {
	switch kind {
	case AllocPool:
		return newPoolAllocator(capacity, pageSize)
	default:
		return newStaticAllocator(capacity, pageSize)
	}
}

// releaseError reports a bad release; in debug builds it is fatal.
func releaseError(err error, p *Page) error {
	invariant(false, fmt.Sprintf("%v: %p", err, p))
	return err
}
