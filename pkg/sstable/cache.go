package sstable

import (
	"sync"
	"time"

	"github.com/zhangyunhao116/fastrand"
)

// blockCacheKey identifies one cached block by its owning table and index
// within that table.
type blockCacheKey struct {
	tableID  uint64
	blockIdx int
}

type cacheItem struct {
	key      blockCacheKey
	block    *Block
	lastUsed time.Time
}

// sampleSize is how many candidate items BlockCache.evict inspects before
// picking the oldest one to drop, approximating LRU without maintaining an
// exact recency list.
const sampleSize = 5

// BlockCache is a capacity-bounded cache of decoded blocks shared across a
// table's readers. Eviction samples a handful of entries at random via
// fastrand and drops the least recently used among the sample, rather than
// tracking exact global recency.
type BlockCache struct {
	mu       sync.Mutex
	capacity int
	items    map[blockCacheKey]*cacheItem
	keys     []blockCacheKey
}

// NewBlockCache creates a cache holding at most capacity blocks.
func NewBlockCache(capacity int) *BlockCache {
	return &BlockCache{
		capacity: capacity,
		items:    make(map[blockCacheKey]*cacheItem),
	}
}

// Get returns the cached block for key, if present, bumping its recency.
func (c *BlockCache) Get(key blockCacheKey) (*Block, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return nil, false
	}
	item.lastUsed = time.Now()
	return item.block, true
}

// Set inserts or refreshes the cached block for key, evicting a sampled
// victim if the cache is at capacity.
func (c *BlockCache) Set(key blockCacheKey, blk *Block) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, ok := c.items[key]; ok {
		item.block = blk
		item.lastUsed = time.Now()
		return
	}

	if c.capacity > 0 && len(c.items) >= c.capacity {
		c.evictLocked()
	}

	c.items[key] = &cacheItem{key: key, block: blk, lastUsed: time.Now()}
	c.keys = append(c.keys, key)
}

// evictLocked drops the oldest block among a random sample of entries.
// Caller must hold c.mu.
func (c *BlockCache) evictLocked() {
	c.compactKeysLocked()
	if len(c.keys) == 0 {
		return
	}

	n := sampleSize
	if n > len(c.keys) {
		n = len(c.keys)
	}

	// Sampled keys may be stale leftovers from earlier evictions; only
	// keys still present in the map are eviction candidates.
	var victim blockCacheKey
	var victimItem *cacheItem
	for i := 0; i < n; i++ {
		cand := c.keys[fastrand.Uint32n(uint32(len(c.keys)))]
		item, ok := c.items[cand]
		if !ok {
			continue
		}
		if victimItem == nil || item.lastUsed.Before(victimItem.lastUsed) {
			victim, victimItem = cand, item
		}
	}
	if victimItem == nil {
		// Every sample was stale; fall back to dropping an arbitrary
		// live entry.
		for k := range c.items {
			delete(c.items, k)
			return
		}
		return
	}
	delete(c.items, victim)
}

// compactKeysLocked drops stale entries from c.keys left behind by prior
// evictions so sampling stays proportional to the live set.
func (c *BlockCache) compactKeysLocked() {
	if len(c.keys) <= len(c.items)*2 {
		return
	}
	fresh := make([]blockCacheKey, 0, len(c.items))
	for k := range c.items {
		fresh = append(fresh, k)
	}
	c.keys = fresh
}
