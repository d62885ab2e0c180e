package bigfft

import (
	"math/big"
	"sync"
	"sync/atomic"
)

// Transform temporaries churn hard at a few steady sizes, so word buffers
// are pooled by size class. Residues and residue slices are views over
// pooled word buffers rather than pools of their own.
var wordPoolSizes = [...]int{
	64, 256, 1 << 10, 4 << 10, 16 << 10,
	64 << 10, 256 << 10, 1 << 20, 4 << 20, 16 << 20,
}

var wordPools [len(wordPoolSizes)]sync.Pool

func init() {
	for i := range wordPools {
		size := wordPoolSizes[i]
		wordPools[i].New = func() any {
			s := make([]big.Word, size)
			return &s
		}
	}
}

// acquireWords returns a zeroed buffer of the given size and its release
// function. Requests beyond the largest class are served by the heap and
// not recycled.
func acquireWords(size int) (nat, func()) {
	for i, s := range wordPoolSizes {
		if size <= s {
			p := wordPools[i].Get().(*[]big.Word)
			w := (*p)[:size]
			clear(w)
			return nat(w), func() { wordPools[i].Put(p) }
		}
	}
	return make(nat, size), func() {}
}

// acquireFermat returns a zeroed residue of n+1 words.
func acquireFermat(n int) (fermat, func()) {
	w, release := acquireWords(n + 1)
	return fermat(w), release
}

// acquireFermatSlice returns K zeroed residues of n+1 words over one
// contiguous buffer, which is also returned.
func acquireFermatSlice(K, n int) ([]fermat, []big.Word, func()) {
	words, release := acquireWords(K * (n + 1))
	fs := make([]fermat, K)
	for i := range fs {
		fs[i] = fermat(words[i*(n+1) : (i+1)*(n+1)])
	}
	return fs, []big.Word(words), release
}

var poolsWarmed atomic.Bool

// EnsurePoolsWarmed primes the buffer pools and the bump arena for
// multiplying operands up to the given size in bits, so the first large
// request does not pay the allocations. Only the first call does work; it
// is safe to call concurrently.
func EnsurePoolsWarmed(bits uint64) {
	if !poolsWarmed.CompareAndSwap(false, true) {
		return
	}
	words := int(bits/uint64(_W)) + 1
	k, m := FFTParams(2 * words)
	n := valueSize(k, m, 0)
	releaseBump(acquireBump(estimateBumpCapacity(k, m, n)))
	for _, size := range wordPoolSizes {
		if size > 2*words {
			break
		}
		_, release := acquireWords(size)
		release()
	}
}

// resetPoolWarming lets tests exercise warming repeatedly.
func resetPoolWarming() {
	poolsWarmed.Store(false)
}
