package bigfft

import (
	"math/big"
	"sync"
)

// tempAllocator hands out zeroed word buffers for transform temporaries.
// Each allocation comes with a release function; releases may run in any
// order. Implementations are not safe for concurrent allocation: parallel
// transform branches draw from the package pools directly.
type tempAllocator interface {
	// fermatTemp returns a zeroed residue of n+1 words.
	fermatTemp(n int) (fermat, func())
	// fermatSlice returns K zeroed residues of n+1 words backed by one
	// contiguous arena, which is also returned.
	fermatSlice(K, n int) ([]fermat, []big.Word, func())
	// wordScratch returns a zeroed word buffer.
	wordScratch(size int) (nat, func())
}

// poolAllocator serves temporaries straight from the package pools. It is
// the allocator of last resort: paths with a known allocation profile use
// a bump arena instead.
type poolAllocator struct{}

var poolAlloc poolAllocator

func (poolAllocator) fermatTemp(n int) (fermat, func()) {
	return acquireFermat(n)
}

func (poolAllocator) fermatSlice(K, n int) ([]fermat, []big.Word, func()) {
	return acquireFermatSlice(K, n)
}

func (poolAllocator) wordScratch(size int) (nat, func()) {
	return acquireWords(size)
}

// bumpAllocator carves temporaries sequentially out of one arena sized
// for a whole multiplication pipeline, reducing a few dozen pool
// round-trips to one. Individual releases are no-ops; the arena is
// recycled whole. Requests beyond the estimated capacity fall back to
// the heap rather than fail.
type bumpAllocator struct {
	buffer []big.Word
	offset int
}

var bumpPool = sync.Pool{
	New: func() any { return new(bumpAllocator) },
}

// acquireBump returns an arena with at least the given word capacity.
func acquireBump(capacity int) *bumpAllocator {
	b := bumpPool.Get().(*bumpAllocator)
	if cap(b.buffer) < capacity {
		b.buffer = make([]big.Word, capacity)
	}
	b.buffer = b.buffer[:cap(b.buffer)]
	b.offset = 0
	return b
}

// releaseBump recycles the arena, keeping its buffer for reuse.
func releaseBump(b *bumpAllocator) {
	b.offset = 0
	bumpPool.Put(b)
}

func (b *bumpAllocator) alloc(size int) []big.Word {
	if b.offset+size > len(b.buffer) {
		return make([]big.Word, size)
	}
	w := b.buffer[b.offset : b.offset+size]
	b.offset += size
	clear(w)
	return w
}

// allocator adapts the arena to the tempAllocator interface.
func (b *bumpAllocator) allocator() tempAllocator {
	return bumpAdapter{b}
}

type bumpAdapter struct {
	b *bumpAllocator
}

func (a bumpAdapter) fermatTemp(n int) (fermat, func()) {
	return fermat(a.b.alloc(n + 1)), func() {}
}

func (a bumpAdapter) fermatSlice(K, n int) ([]fermat, []big.Word, func()) {
	words := a.b.alloc(K * (n + 1))
	fs := make([]fermat, K)
	for i := range fs {
		fs[i] = fermat(words[i*(n+1) : (i+1)*(n+1)])
	}
	return fs, words, func() {}
}

func (a bumpAdapter) wordScratch(size int) (nat, func()) {
	return nat(a.b.alloc(size)), func() {}
}

// estimateBumpCapacity sizes the arena for one multiplication: two forward
// transforms (input and value arenas each), the inverse pair with its
// scratch copy, pointwise scratch, reassembly, and the matrix transform's
// gather buffers, plus a 20% margin for recursion temporaries.
func estimateBumpCapacity(k uint, m, n int) int {
	K := 1 << k
	C := 1 << (k - k/2)
	words := 6*K*(n+1) + K*m + 2*m + 2
	words += 6*C*(n+1) + 16*(n+1)
	return words + words/5
}
