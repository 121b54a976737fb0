package pagecache_test

import (
	"fmt"
	"math/bits"
	"math/rand"
	"testing"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/djdv/go-pagecache"
	"github.com/hashicorp/golang-lru/arc/v2"
)

type (
	// residentSet is the part of a cache the hit-rate benchmarks drive:
	// a page offset is either resident or gets admitted.
	residentSet interface {
		Resident(pgoff int) bool
		Admit(pgoff int)
	}
	residentSetCtor = func(b *testing.B, capacity int) residentSet
	contender       struct {
		name string
		new  residentSetCtor
	}
	workload struct {
		name     string
		generate func(capacity int) []int
	}
	fifoSet struct {
		tb    testing.TB
		cache *pagecache.Cache
	}
	arcSet struct {
		*arc.ARCCache[int, struct{}]
	}
	ristrettoSet struct {
		*ristretto.Cache[int, struct{}]
	}
)

func (set fifoSet) Resident(pgoff int) bool {
	_, ok := set.cache.Lookup(uint64(pgoff))
	return ok
}

func (set fifoSet) Admit(pgoff int) {
	if set.cache.Full() {
		if _, err := set.cache.EvictBatch(); err != nil {
			set.tb.Fatal(err)
		}
	}
	if _, err := set.cache.Insert(uint64(pgoff)); err != nil {
		set.tb.Fatal(err)
	}
}

func (set arcSet) Resident(pgoff int) bool { return set.Contains(pgoff) }
func (set arcSet) Admit(pgoff int)         { set.Add(pgoff, struct{}{}) }

func (set ristrettoSet) Resident(pgoff int) bool {
	_, ok := set.Get(pgoff)
	return ok
}

func (set ristrettoSet) Admit(pgoff int) {
	set.Set(pgoff, struct{}{}, 1)
	set.Wait()
}

// Fixed RNG seed for reproducibility.
// Change to test variance between runs.
const rngSeed = 1

func BenchmarkCache(b *testing.B) {
	var (
		contenders = contenders()
		capacities = []int{128, 512, 2048}
	)
	for _, load := range workloads() {
		b.Run(load.name, func(b *testing.B) {
			for _, capacity := range capacities {
				sequence := load.generate(capacity)
				b.Run(fmt.Sprintf("Cap%d", capacity), func(b *testing.B) {
					for _, contender := range contenders {
						b.Run(contender.name, benchHitRate(contender.new, capacity, sequence))
					}
				})
			}
		})
	}
}

func BenchmarkDevice(b *testing.B) {
	const (
		capacity  = 256
		devPages  = capacity * 8
		chunkSize = pagecache.DefaultPageSize / 2
	)
	for _, kind := range allocators {
		b.Run(kind.String(), func(b *testing.B) {
			var (
				size   = int64(devPages * pagecache.DefaultPageSize)
				store  = pagecache.NewMemStore(int(size))
				cache  = newCacheWith(b, store, pagecache.Config{CapacityPages: capacity, Allocator: kind})
				device = pagecache.NewDevice(cache, size, pagecache.MissReadThrough)
				chunk  = pattern(chunkSize, 'w')
				chunks = size / chunkSize
			)
			b.ReportAllocs()
			b.SetBytes(chunkSize)
			for i := int64(0); b.Loop(); i++ {
				if _, err := device.WriteAt(chunk, (i%chunks)*chunkSize); err != nil {
					b.Fatal(err)
				}
			}
			b.StopTimer()
			if err := device.Close(); err != nil {
				b.Fatal(err)
			}
		})
	}
}

func contenders() []contender {
	return []contender{
		{
			"FIFO/static",
			func(b *testing.B, capacity int) residentSet {
				return fifoSet{tb: b, cache: newCache(b, pagecache.AllocStatic, capacity)}
			},
		},
		{
			"FIFO/pool",
			func(b *testing.B, capacity int) residentSet {
				return fifoSet{tb: b, cache: newCache(b, pagecache.AllocPool, capacity)}
			},
		},
		{
			"ARC",
			func(b *testing.B, capacity int) residentSet {
				cache, err := arc.NewARC[int, struct{}](capacity)
				if err != nil {
					b.Fatal(err)
				}
				return arcSet{ARCCache: cache}
			},
		},
		{
			"Ristretto",
			func(b *testing.B, capacity int) residentSet {
				cache, err := ristretto.NewCache(&ristretto.Config[int, struct{}]{
					NumCounters: int64(capacity) * 10,
					MaxCost:     int64(capacity),
					BufferItems: 64,
				})
				if err != nil {
					b.Fatal(err)
				}
				b.Cleanup(cache.Close)
				return ristrettoSet{Cache: cache}
			},
		},
	}
}

func workloads() []workload {
	return []workload{
		{
			"Sequential scan",
			func(int) []int {
				const (
					universe = 1 << 16 // Offset space large enough to force misses.
					seqLen   = 1 << 15
				)
				return makeSequential(universe, seqLen)
			},
		},
		{
			"Hot region",
			func(capacity int) []int {
				const (
					universe = 8192
					seqLen   = 1 << 16
					hotRatio = 0.9
				)
				return makeHotRegion(capacity, universe, seqLen, hotRatio)
			},
		},
		{
			"Zipf",
			func(int) []int {
				const (
					universe = 16384
					seqLen   = 1 << 16
					skew     = 1.2
					bias     = 1.0
				)
				return makeZipf(universe, seqLen, skew, bias)
			},
		},
	}
}

func benchHitRate(ctor residentSetCtor, capacity int, sequence []int) func(b *testing.B) {
	return func(b *testing.B) {
		set := ctor(b, capacity)
		for _, pgoff := range sequence {
			if !set.Resident(pgoff) {
				set.Admit(pgoff)
			}
		}
		b.ReportAllocs()
		b.ResetTimer()
		var (
			hits, misses int64
			seqMask      = len(sequence) - 1
		)
		for i := 0; b.Loop(); i++ {
			pgoff := sequence[i&seqMask]
			if set.Resident(pgoff) {
				hits++
				continue
			}
			misses++
			set.Admit(pgoff)
		}
		b.StopTimer()
		total := float64(hits + misses)
		b.ReportMetric(float64(hits)/total*100.0, "hit_rate_pct")
	}
}

func makeSequential(universe, seqLen int) []int {
	seq := make([]int, nextPow2(seqLen))
	for i := range seq {
		seq[i] = i % universe
	}
	return seq
}

// makeHotRegion sends hotRatio of accesses to the first capacity pages.
func makeHotRegion(capacity, universe, seqLen int, hotRatio float64) []int {
	var (
		seq      = make([]int, nextPow2(seqLen))
		rng      = newReproducibleRNG()
		hotSize  = max(1, capacity)
		coldSize = max(1, universe-hotSize)
	)
	for i := range seq {
		if rng.Float64() < hotRatio {
			seq[i] = rng.Intn(hotSize)
		} else {
			seq[i] = hotSize + rng.Intn(coldSize)
		}
	}
	return seq
}

func makeZipf(universe, seqLen int, skew, bias float64) []int {
	var (
		seq  = make([]int, nextPow2(seqLen))
		rng  = newReproducibleRNG()
		imax = uint64(max(universe, 2) - 1)
		zipf = rand.NewZipf(rng, skew, bias, imax)
	)
	for i := range seq {
		seq[i] = int(zipf.Uint64())
	}
	return seq
}

func nextPow2(x int) int {
	if x <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(x)-1)
}

func newReproducibleRNG() *rand.Rand {
	return rand.New(rand.NewSource(rngSeed))
}
