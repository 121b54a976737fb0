//go:build !pagecache_debug

package pagecache

const debugging = false

func invariant(bool, string) {}
