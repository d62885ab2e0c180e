package bigfft

import (
	"container/list"
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/zeebo/blake3"
)

// TransformCacheConfig controls memoization of forward transforms.
// Workloads that multiply repeatedly by the same large operand (modular
// exponentiation ladders, iterated products) skip recomputing its
// transform, which is roughly a third of the cost of a multiplication.
type TransformCacheConfig struct {
	// MaxEntries bounds the cache; least recently used transforms are
	// evicted beyond it.
	MaxEntries int
	// MinBitLen excludes small operands, for which the transform is too
	// cheap to be worth hashing.
	MinBitLen int
	Enabled   bool
}

// DefaultTransformCacheConfig returns the configuration used until
// SetTransformCacheConfig is called.
func DefaultTransformCacheConfig() TransformCacheConfig {
	return TransformCacheConfig{
		MaxEntries: 128,
		MinBitLen:  100000,
		Enabled:    true,
	}
}

// CacheStats is a snapshot of transform cache effectiveness counters.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Entries   int
}

type cacheKey [32]byte

type cacheEntry struct {
	key    cacheKey
	values polValues
}

type transformCache struct {
	mu      sync.Mutex
	config  TransformCacheConfig
	ll      *list.List
	entries map[cacheKey]*list.Element

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

var theTransformCache = &transformCache{
	config:  DefaultTransformCacheConfig(),
	ll:      list.New(),
	entries: make(map[cacheKey]*list.Element),
}

// SetTransformCacheConfig replaces the cache configuration, evicting
// entries as needed to satisfy it.
func SetTransformCacheConfig(cfg TransformCacheConfig) {
	c := theTransformCache
	c.mu.Lock()
	defer c.mu.Unlock()
	if cfg.MaxEntries < 0 {
		cfg.MaxEntries = 0
	}
	c.config = cfg
	if !cfg.Enabled {
		c.ll.Init()
		c.entries = make(map[cacheKey]*list.Element)
		return
	}
	for c.ll.Len() > cfg.MaxEntries {
		c.evictOldest()
	}
}

// GetTransformCacheConfig returns the current cache configuration.
func GetTransformCacheConfig() TransformCacheConfig {
	c := theTransformCache
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// TransformCacheStats returns a snapshot of the cache counters.
func TransformCacheStats() CacheStats {
	c := theTransformCache
	c.mu.Lock()
	entries := c.ll.Len()
	c.mu.Unlock()
	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   entries,
	}
}

// ResetTransformCache drops all entries and zeroes the counters.
func ResetTransformCache() {
	c := theTransformCache
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.entries = make(map[cacheKey]*list.Element)
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}

// computeKey hashes the operand words and transform geometry. BLAKE3 keeps
// the hashing cost well below the transform it may save.
func computeKey(words nat, k uint, n int) cacheKey {
	h := blake3.New()
	var hdr [24]byte
	binary.LittleEndian.PutUint64(hdr[0:], uint64(k))
	binary.LittleEndian.PutUint64(hdr[8:], uint64(n))
	binary.LittleEndian.PutUint64(hdr[16:], uint64(len(words)))
	h.Write(hdr[:])
	var buf [512]byte
	i := 0
	for i < len(words) {
		j := 0
		for j+8 <= len(buf) && i < len(words) {
			binary.LittleEndian.PutUint64(buf[j:], uint64(words[i]))
			j += 8
			i++
		}
		h.Write(buf[:j])
	}
	var key cacheKey
	copy(key[:], h.Sum(nil))
	return key
}

func (c *transformCache) snapshot() TransformCacheConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// get returns a private deep copy of the cached transform, so callers may
// mutate it freely.
func (c *transformCache) get(key cacheKey) (polValues, bool) {
	c.mu.Lock()
	el, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)
		return polValues{}, false
	}
	c.ll.MoveToFront(el)
	v := el.Value.(*cacheEntry).values
	c.mu.Unlock()
	c.hits.Add(1)
	return v.clone(), true
}

// put stores a private deep copy of v.
func (c *transformCache) put(key cacheKey, v polValues) {
	stored := v.clone()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.config.MaxEntries == 0 {
		return
	}
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).values = stored
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(&cacheEntry{key: key, values: stored})
	c.entries[key] = el
	for c.ll.Len() > c.config.MaxEntries {
		c.evictOldest()
	}
}

// evictOldest removes the least recently used entry. Caller holds mu.
func (c *transformCache) evictOldest() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.entries, el.Value.(*cacheEntry).key)
	c.evictions.Add(1)
}

// transformForMul computes the forward transform of p, whose integer
// value is words, consulting the cache for eligible operands. The
// returned transform is always private to the caller.
func transformForMul(p *poly, words nat, n int, alloc tempAllocator) (polValues, func(), error) {
	cfg := theTransformCache.snapshot()
	if !cfg.Enabled || len(words)*_W < cfg.MinBitLen {
		return p.transform(n, alloc)
	}
	key := computeKey(words, p.k, n)
	if v, ok := theTransformCache.get(key); ok {
		return v, func() {}, nil
	}
	v, release, err := p.transform(n, alloc)
	if err != nil {
		return v, release, err
	}
	theTransformCache.put(key, v)
	return v, release, nil
}
