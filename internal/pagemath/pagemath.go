// Package pagemath converts byte ranges into page-granular spans.
package pagemath

import (
	"iter"

	"golang.org/x/exp/constraints"
)

// Span is the part of a byte range that falls within a single page.
type Span struct {
	// Page is the page index (byte offset / page size).
	Page uint64
	// Offset is where the span starts within the page.
	Offset int
	// Length is the number of bytes covered inside the page.
	Length int
	// Cursor is where the span starts within the caller's buffer.
	Cursor int
}

// Full reports whether the span covers its whole page.
func (s Span) Full(pageSize int) bool {
	return s.Offset == 0 && s.Length == pageSize
}

// IsPowerOfTwo reports whether v is a positive power of two.
func IsPowerOfTwo[T constraints.Integer](v T) bool {
	return v > 0 && v&(v-1) == 0
}

// AlignDown rounds v down to a multiple of size.
// size must be a power of two.
func AlignDown[T constraints.Integer](v, size T) T {
	return v &^ (size - 1)
}

// Pages returns the number of pages needed to hold n bytes.
func Pages[T constraints.Integer](n, pageSize T) T {
	return (n + pageSize - 1) / pageSize
}

// Spans splits the range [off, off+n) into per-page spans, in ascending order.
// pageSize must be a power of two, off must not be negative.
func Spans(off int64, n, pageSize int) iter.Seq[Span] {
	return func(yield func(Span) bool) {
		size := int64(pageSize)
		for cursor := 0; cursor < n; {
			var (
				at     = off + int64(cursor)
				within = int(at - AlignDown(at, size))
				length = min(pageSize-within, n-cursor)
			)
			if !yield(Span{
				Page:   uint64(at / size),
				Offset: within,
				Length: length,
				Cursor: cursor,
			}) {
				return
			}
			cursor += length
		}
	}
}
