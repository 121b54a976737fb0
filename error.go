package pagecache

import "fmt"

type constError string

const (
	// ErrExhausted is returned when the page allocator has no free page.
	// Callers may evict and retry once.
	ErrExhausted = constError("page pool exhausted")
	// ErrCapacity is returned by [Device] writes when a page could not
	// be obtained even after an eviction pass.
	ErrCapacity = constError("insufficient cache capacity")
	// ErrNotResident is returned when a page handle does not refer to
	// the resident descriptor of its index.
	ErrNotResident = constError("page not resident")
	// ErrForeignPage is returned when releasing a page
	// that was not acquired from the same allocator.
	ErrForeignPage = constError("page does not belong to this pool")
	// ErrDoubleRelease is returned when releasing a page that is already free.
	ErrDoubleRelease = constError("page already released")
	// ErrClosed is returned by operations on a torn down cache.
	ErrClosed = constError("cache closed")
	// ErrInvalidConfig may be returned from [New].
	ErrInvalidConfig = constError("invalid configuration")
	// ErrOutOfRange is returned by [Device] requests past the end of the device.
	ErrOutOfRange = constError("request out of range")
)

func (errStr constError) Error() string { return string(errStr) }

func configError(field string, value, limit int, relation string) error {
	return fmt.Errorf(
		"%w: %s must be %s%d but %d was requested",
		ErrInvalidConfig, field, relation, limit, value)
}

func flushError(index uint64, err error) error {
	return fmt.Errorf("flushing page %d: %w", index, err)
}
