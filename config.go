package pagecache

import (
	"github.com/djdv/go-pagecache/internal/pagemath"
	"github.com/phuslu/log"
)

const (
	// MinimumCapacity defines the lowest page count supported by [New].
	MinimumCapacity = 1
	// DefaultPageSize is used when [Config.PageSize] is zero.
	DefaultPageSize = 4096
	// DefaultEvictionBatch is used when [Config.EvictionBatch] is zero.
	// It is clamped to the capacity.
	DefaultEvictionBatch = 10
	// DefaultScanBatch is used when [Config.ScanBatch] is zero.
	DefaultScanBatch = 16
)

// Config describes a cache instance.
// Zero fields other than CapacityPages take their defaults.
type Config struct {
	// CapacityPages is the fixed number of page slots.
	CapacityPages int
	// HighWatermark is the resident page count at or above
	// which [Cache.Full] reports true. Defaults to CapacityPages.
	HighWatermark int
	// EvictionBatch is the number of pages removed per [Cache.EvictBatch].
	EvictionBatch int
	// PageSize is the size of a page in bytes; it must be a power of two.
	PageSize int
	// ScanBatch bounds the number of pages gathered per index scan
	// during [Cache.FlushAll] and teardown.
	ScanBatch int
	// Allocator selects the page allocation strategy.
	Allocator AllocatorKind
	// Logger receives cache events; nil discards them.
	Logger *log.Logger
}

func (config Config) withDefaults() Config {
	if config.PageSize == 0 {
		config.PageSize = DefaultPageSize
	}
	if config.HighWatermark == 0 {
		config.HighWatermark = config.CapacityPages
	}
	if config.EvictionBatch == 0 {
		config.EvictionBatch = max(min(DefaultEvictionBatch, config.CapacityPages), 1)
	}
	if config.ScanBatch == 0 {
		config.ScanBatch = DefaultScanBatch
	}
	return config
}

func (config Config) validate() error {
	capacity := config.CapacityPages
	switch {
	case capacity < MinimumCapacity:
		return configError("capacity", capacity, MinimumCapacity, ">=")
	case config.HighWatermark < 1:
		return configError("high watermark", config.HighWatermark, 1, ">=")
	case config.HighWatermark > capacity:
		return configError("high watermark", config.HighWatermark, capacity, "<=")
	case config.EvictionBatch < 1:
		return configError("eviction batch", config.EvictionBatch, 1, ">=")
	case config.EvictionBatch > capacity:
		return configError("eviction batch", config.EvictionBatch, capacity, "<=")
	case !pagemath.IsPowerOfTwo(config.PageSize):
		return configError("page size", config.PageSize, DefaultPageSize, "a power of two such as ")
	case config.ScanBatch < 1:
		return configError("scan batch", config.ScanBatch, 1, ">=")
	case config.Allocator != AllocStatic && config.Allocator != AllocPool:
		return configError("allocator", int(config.Allocator), int(AllocPool), "<=")
	}
	return nil
}
