package pagemath_test

import (
	"slices"
	"testing"

	"github.com/djdv/go-pagecache/internal/pagemath"
	"github.com/stretchr/testify/assert"
)

func TestSpans(t *testing.T) {
	const pageSize = 8
	for _, test := range []struct {
		name string
		off  int64
		n    int
		want []pagemath.Span
	}{
		{"empty", 3, 0, nil},
		{"within page", 2, 4, []pagemath.Span{{Page: 0, Offset: 2, Length: 4, Cursor: 0}}},
		{"whole page", 8, 8, []pagemath.Span{{Page: 1, Offset: 0, Length: 8, Cursor: 0}}},
		{"straddle", 6, 4, []pagemath.Span{
			{Page: 0, Offset: 6, Length: 2, Cursor: 0},
			{Page: 1, Offset: 0, Length: 2, Cursor: 2},
		}},
		{"many pages", 4, 20, []pagemath.Span{
			{Page: 0, Offset: 4, Length: 4, Cursor: 0},
			{Page: 1, Offset: 0, Length: 8, Cursor: 4},
			{Page: 2, Offset: 0, Length: 8, Cursor: 12},
		}},
	} {
		t.Run(test.name, func(t *testing.T) {
			got := slices.Collect(pagemath.Spans(test.off, test.n, pageSize))
			assert.Equal(t, test.want, got)
		})
	}
}

func TestHelpers(t *testing.T) {
	assert.True(t, pagemath.IsPowerOfTwo(4096))
	assert.False(t, pagemath.IsPowerOfTwo(0))
	assert.False(t, pagemath.IsPowerOfTwo(-8))
	assert.False(t, pagemath.IsPowerOfTwo(12))
	assert.Equal(t, int64(4096), pagemath.AlignDown(int64(5000), 4096))
	assert.Equal(t, uint64(3), pagemath.Pages(uint64(9000), 4096))
	assert.True(t, pagemath.Span{Offset: 0, Length: 16}.Full(16))
	assert.False(t, pagemath.Span{Offset: 1, Length: 15}.Full(16))
}
