package bigfft

import (
	"fmt"
	"runtime"
	"sync"
)

// Parallel decomposition kicks in for transforms of at least
// 2^parallelFourierSize coefficients, and stops spawning below
// maxParallelFourierDepth to keep goroutine overhead bounded.
const (
	parallelFourierSize     uint = 4
	maxParallelFourierDepth uint = 3
)

var (
	fourierSemaphore     chan struct{}
	fourierSemaphoreOnce sync.Once
)

// getSemaphore bounds transform concurrency to the number of CPUs.
func getSemaphore() chan struct{} {
	fourierSemaphoreOnce.Do(func() {
		fourierSemaphore = make(chan struct{}, runtime.NumCPU())
	})
	return fourierSemaphore
}

// fourierSplit computes dst = transform(src) by radix-2 decimation in time.
//
// The transform has 2^size points; src is indexed with stride 2^(k-size) so
// that recursive calls share the original backing array. Coefficients are
// n+1 words; the transform root is ω = √2^((4·n·_W)>>size), inverted when
// backward is set.
//
// trunc is the number of leading src positions (in this call's stride view)
// that may be nonzero: everything at or past index trunc is known to be
// zero, and the recursion prunes the corresponding work. Callers that make
// no such promise pass 1<<size. Output positions are always fully written.
//
// tmp and tmp2 are scratch coefficients owned by this call; parallel
// branches draw their own from the pool.
func fourierSplit(dst, src []fermat, backward bool, n int, k, size, depth uint, trunc int, tmp, tmp2 fermat) error {
	if len(src[0]) != n+1 {
		return fmt.Errorf("fourier: src coefficient has %d words, want %d", len(src[0]), n+1)
	}
	if len(dst[0]) != n+1 {
		return fmt.Errorf("fourier: dst coefficient has %d words, want %d", len(dst[0]), n+1)
	}
	if trunc <= 0 {
		for i := range dst {
			clear(dst[i])
		}
		return nil
	}
	idxShift := k - size
	ω2shift := (4 * n * _W) >> size
	if backward {
		ω2shift = -ω2shift
	}
	switch size {
	case 0:
		copy(dst[0], src[0])
		return nil
	case 1:
		if trunc < 2 {
			// The odd input is zero, so both outputs equal src[0].
			copy(dst[0], src[0])
			copy(dst[1], src[0])
			return nil
		}
		dst[0].Add(src[0], src[1<<idxShift])
		dst[1].Sub(src[0], src[1<<idxShift])
		return nil
	}

	// Decimate: even-indexed inputs feed dst1, odd-indexed feed dst2.
	// Of the trunc nonzero inputs, ceil(trunc/2) have even index.
	dst1 := dst[:1<<(size-1)]
	dst2 := dst[1<<(size-1):]
	truncEven, truncOdd := (trunc+1)/2, trunc/2

	if truncOdd == 0 {
		// Every odd-indexed input is zero, so the full transform is two
		// copies of the half-size transform of the even part and the
		// butterflies collapse.
		if err := fourierSplit(dst1, src, backward, n, k, size-1, depth, truncEven, tmp, tmp2); err != nil {
			return err
		}
		for i := range dst1 {
			copy(dst2[i], dst1[i])
		}
		return nil
	}

	if size >= parallelFourierSize && depth < maxParallelFourierDepth {
		select {
		case getSemaphore() <- struct{}{}:
			var wg sync.WaitGroup
			var errOdd error
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-getSemaphore() }()
				t1, release1 := acquireFermat(n)
				t2, release2 := acquireFermat(n)
				defer release1()
				defer release2()
				errOdd = fourierSplit(dst2, src[1<<idxShift:], backward, n, k, size-1, depth+1, truncOdd, t1, t2)
			}()
			errEven := fourierSplit(dst1, src, backward, n, k, size-1, depth+1, truncEven, tmp, tmp2)
			wg.Wait()
			if errEven != nil {
				return errEven
			}
			if errOdd != nil {
				return errOdd
			}
			goto reconstruct
		default:
			// No token available, fall through to the sequential path.
		}
	}
	if err := fourierSplit(dst1, src, backward, n, k, size-1, depth+1, truncEven, tmp, tmp2); err != nil {
		return err
	}
	if err := fourierSplit(dst2, src[1<<idxShift:], backward, n, k, size-1, depth+1, truncOdd, tmp, tmp2); err != nil {
		return err
	}

reconstruct:
	for i := range dst1 {
		butterfly(dst1[i], dst2[i], tmp, tmp2, i*ω2shift)
	}
	return nil
}

// fourier computes the length-2^k transform of src into dst (unnormalized:
// the backward transform of the forward one yields 2^k times the input).
// Coefficients are n+1 words. trunc declares how many leading src positions
// may be nonzero; pass 1<<k when unknown. dst and src must not overlap.
//
// Transforms above mfaThresholdK points go through the matrix decomposition
// in fourierMatrix, which touches memory in blocks instead of strides; it
// needs src to be writable scratch, which holds for every caller here.
func fourier(dst, src []fermat, backward bool, n int, k uint, trunc int, alloc tempAllocator) error {
	if k >= mfaThresholdK {
		return fourierMatrix(dst, src, backward, n, k, trunc, alloc)
	}
	tmp, release := alloc.fermatTemp(n)
	tmp2, release2 := alloc.fermatTemp(n)
	defer release()
	defer release2()
	return fourierSplit(dst, src, backward, n, k, k, 0, trunc, tmp, tmp2)
}
