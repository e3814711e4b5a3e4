package sstable

import "sort"

// searchIndex returns the smallest index in [0, n) for which pred holds,
// or n if none does. It is the shared binary-search helper both the block
// and table iterators seek with.
func searchIndex(n int, pred func(int) bool) int {
	return sort.Search(n, pred)
}
