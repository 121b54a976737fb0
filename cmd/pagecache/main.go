// Command pagecache performs a single read or write through
// a write-back page cache over a backing file.
//
// Usage: pagecache [flags] write <offset> < data
//
//	pagecache [flags] read <offset> <length> > data
//	pagecache [flags] stats
//
// Offsets, lengths and sizes accept units, such as 4KiB or 1MB.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/djdv/go-pagecache"
	"github.com/djdv/go-pagecache/internal/logging"
	"github.com/djdv/go-pagecache/internal/pagemath"
	"github.com/dustin/go-humanize"
	"github.com/phuslu/log"
)

type settings struct {
	cachePages int
	hiwat      int
	evict      int
	pageSize   string
	allocator  string
	size       string
	backing    string
	readMiss   bool
	verbose    bool
}

var errUsage = errors.New("usage")

func main() {
	var set settings
	flags := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flags.IntVar(&set.cachePages, "cache-pages", 64, "number of page slots")
	flags.IntVar(&set.hiwat, "hiwat", 0, "resident pages at which eviction starts (default: cache-pages)")
	flags.IntVar(&set.evict, "evict", pagecache.DefaultEvictionBatch, "pages evicted per batch")
	flags.StringVar(&set.pageSize, "page-size", humanize.IBytes(pagecache.DefaultPageSize), "page size, a power of two")
	flags.StringVar(&set.allocator, "allocator", pagecache.AllocStatic.String(), "page allocator: static or pool")
	flags.StringVar(&set.size, "size", "16MiB", "device size")
	flags.StringVar(&set.backing, "backing", "", "backing file (default: memory)")
	flags.BoolVar(&set.readMiss, "read-through", true, "read non-resident pages from the backing store")
	flags.BoolVar(&set.verbose, "v", false, "log cache events")
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(),
			"Usage: %s [flags] write <offset> | read <offset> <length> | stats\n", os.Args[0])
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if err := run(set, flags.Args()); err != nil {
		if errors.Is(err, errUsage) {
			flags.Usage()
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(set settings, args []string) (err error) {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	logger := logging.CreateLogger(log.WarnLevel)
	if set.verbose {
		logger = logging.CreateDebugLogger()
	}
	device, closeStore, err := openDevice(set, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, device.Close(), closeStore())
	}()
	switch command, operands := args[0], args[1:]; command {
	case "write":
		if len(operands) != 1 {
			return fmt.Errorf("%w: write <offset>", errUsage)
		}
		err = write(device, operands[0], os.Stdin)
	case "read":
		if len(operands) != 2 {
			return fmt.Errorf("%w: read <offset> <length>", errUsage)
		}
		err = read(device, operands[0], operands[1], os.Stdout)
	case "stats":
		printStats(os.Stdout, device)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
	if err != nil {
		return err
	}
	if err = device.Sync(); err == nil && set.verbose {
		printStats(os.Stderr, device)
	}
	return err
}

func openDevice(set settings, logger *log.Logger) (*pagecache.Device, func() error, error) {
	size, err := parseSize("size", set.size)
	if err != nil {
		return nil, nil, err
	}
	pageSize, err := parseSize("page size", set.pageSize)
	if err != nil {
		return nil, nil, err
	}
	kind, err := pagecache.ParseAllocatorKind(set.allocator)
	if err != nil {
		return nil, nil, err
	}
	var (
		store      pagecache.Store
		closeStore = func() error { return nil }
	)
	if set.backing == "" {
		store = pagecache.NewMemStore(int(size))
	} else {
		file, err := openBacking(set.backing, size)
		if err != nil {
			return nil, nil, err
		}
		store, closeStore = file, file.Close
	}
	cache, err := pagecache.New(store, pagecache.Config{
		CapacityPages: set.cachePages,
		HighWatermark: set.hiwat,
		EvictionBatch: set.evict,
		PageSize:      int(pageSize),
		Allocator:     kind,
		Logger:        logger,
	})
	if err != nil {
		return nil, nil, errors.Join(err, closeStore())
	}
	miss := pagecache.MissZeroFill
	if set.readMiss {
		miss = pagecache.MissReadThrough
	}
	return pagecache.NewDevice(cache, int64(size), miss), closeStore, nil
}

// openBacking opens or creates the file at path,
// growing it to at least size bytes.
func openBacking(path string, size uint64) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err == nil && uint64(info.Size()) < size {
		err = file.Truncate(int64(size))
	}
	if err != nil {
		return nil, errors.Join(err, file.Close())
	}
	return file, nil
}

func write(device *pagecache.Device, offset string, input io.Reader) error {
	off, err := parseSize("offset", offset)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(input)
	if err != nil {
		return err
	}
	_, err = device.WriteAt(data, int64(off))
	return err
}

func read(device *pagecache.Device, offset, length string, output io.Writer) error {
	off, err := parseSize("offset", offset)
	if err != nil {
		return err
	}
	n, err := parseSize("length", length)
	if err != nil {
		return err
	}
	data := make([]byte, n)
	if _, err := device.ReadAt(data, int64(off)); err != nil {
		return err
	}
	_, err = output.Write(data)
	return err
}

func parseSize(name, value string) (uint64, error) {
	if n, err := strconv.ParseUint(value, 0, 64); err == nil {
		return n, nil
	}
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", errUsage, name, err)
	}
	return n, nil
}

func printStats(output io.Writer, device *pagecache.Device) {
	var (
		cache    = device.Cache()
		stats    = cache.Stats()
		pageSize = uint64(cache.PageSize())
	)
	fmt.Fprintf(output, "device:     %s (%d pages)\n",
		humanize.IBytes(uint64(device.Size())),
		pagemath.Pages(uint64(device.Size()), pageSize))
	fmt.Fprintf(output, "cache:      %d pages of %s (%s), high watermark %d\n",
		stats.Capacity, humanize.IBytes(pageSize),
		humanize.IBytes(uint64(stats.Capacity)*pageSize), stats.HighWatermark)
	fmt.Fprintf(output, "resident:   %d (%d dirty)\n", stats.Resident, stats.Dirty)
	fmt.Fprintf(output, "lookups:    %s hits, %s misses\n",
		humanize.Comma(int64(stats.Hits)), humanize.Comma(int64(stats.Misses)))
	fmt.Fprintf(output, "inserts:    %s, evictions: %s\n",
		humanize.Comma(int64(stats.Inserts)), humanize.Comma(int64(stats.Evictions)))
	fmt.Fprintf(output, "flushes:    %s (%d failed)\n",
		humanize.Comma(int64(stats.Flushes)), stats.FlushErrors)
	fmt.Fprintf(output, "allocator:  %d/%d in use, %d exhausted\n",
		stats.Allocator.InUse, stats.Allocator.Capacity, stats.Allocator.Exhausted)
}
