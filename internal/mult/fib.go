package mult

import (
	"context"
	"fmt"
	"math/big"
	"math/bits"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/fermatlab/gauss/internal/bigfft"
	apperrors "github.com/fermatlab/gauss/internal/errors"
	"github.com/fermatlab/gauss/internal/parallel"
)

// MaxFibUint64 = 93 because F(93) is the largest Fibonacci number that fits
// in a uint64; F(94) exceeds 2^64. Below this bound iterative addition beats
// any doubling scheme.
const MaxFibUint64 = 93

// Fibonacci computes F(n) with the fast-doubling identities
//
//	F(2k)   = F(k) * (2*F(k+1) - F(k))
//	F(2k+1) = F(k+1)² + F(k)²
//
// driving every product through the named backend. It exists as a workload
// generator: a doubling run multiplies integers of every size from a few
// words up to F(n), exercising each tier of a backend in one call, which
// makes it the natural end-to-end stress for the registry (and a convenient
// demo for the CLI).
//
// The run is dominated by the last few products, so with M(b) the cost of a
// b-bit product the total is O(log n * M(n)) and the per-step work grows
// geometrically. Cancellation is checked at every bit; a canceled run
// returns context.Canceled wrapped in apperrors.ComputeError.
func Fibonacci(ctx context.Context, n uint64, backend string, opts Options, progress chan<- float64) (*big.Int, error) {
	return defaultRegistry.Fibonacci(ctx, n, backend, opts, progress)
}

// Fibonacci computes F(n) using one of this registry's backends. See the
// package-level Fibonacci for the algorithm.
func (r *Registry) Fibonacci(ctx context.Context, n uint64, backend string, opts Options, progress chan<- float64) (result *big.Int, err error) {
	tracer := otel.Tracer("mult")
	ctx, span := tracer.Start(ctx, "Fibonacci")
	defer span.End()

	core, err := r.core(backend)
	if err != nil {
		return nil, err
	}

	began := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		log.Debug().
			Str("algo", core.Name()).
			Uint64("n", n).
			Float64("duration", time.Since(began).Seconds()).
			Str("status", status).
			Msg("fibonacci completed")
	}()

	reporter := newChannelReporter(progress)

	if n <= MaxFibUint64 {
		reporter(1.0)
		return fibSmall(n), nil
	}

	configureTransformCache(opts)

	// F(n) has about 0.69*n bits, so n safely over-estimates the warm size.
	bigfft.EnsurePoolsWarmed(n)

	s := acquireFibState()
	defer releaseFibState(s)

	result, err = fibDoubling(ctx, core, reporter, n, normalizeOptions(opts), s)
	if err != nil {
		return nil, apperrors.ComputeError{Err: err}
	}
	reporter(1.0)
	return result, nil
}

// fibSmall returns F(n) for n ≤ MaxFibUint64 using iterative addition.
func fibSmall(n uint64) *big.Int {
	if n == 0 {
		return big.NewInt(0)
	}
	if n == 1 {
		return big.NewInt(1)
	}
	a := big.NewInt(0)
	b := big.NewInt(1)
	for i := uint64(2); i <= n; i++ {
		a.Add(a, b)
		a, b = b, a
	}
	return b
}

// fibDoubling runs the doubling loop over the bits of n from most
// significant to least significant. The state's six integers are rotated by
// pointer swaps so the loop itself allocates nothing; destinations are
// chosen to land results in the buffer most likely to already have the
// capacity.
func fibDoubling(ctx context.Context, core coreMultiplier, report progressReporter, n uint64, opts Options, s *fibState) (*big.Int, error) {
	numBits := bits.Len64(n)
	totalWork := calcTotalWork(numBits)
	powers := precomputePowers4(numBits)
	workDone := 0.0
	lastReported := -1.0

	useParallel := opts.Parallel && runtime.GOMAXPROCS(0) > 1

	for i := numBits - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fast doubling canceled at bit %d/%d: %w", i, numBits-1, err)
		}

		// T4 = 2*FK1 - FK. Swap in T1's buffer first when it is the larger
		// of the two; it held a full-sized square two rotations ago.
		if cap(s.t1.Bits()) > cap(s.t4.Bits()) {
			s.t1, s.t4 = s.t4, s.t1
		}
		s.t4.Lsh(s.fk1, 1).Sub(s.t4, s.fk)

		// BitLen traverses the representation, so cache it per iteration.
		fkBits := s.fk.BitLen()
		fk1Bits := s.fk1.BitLen()

		inParallel := useParallel && shouldParallelizeStep(opts, fkBits, fk1Bits)
		if err := doublingStepProducts(core, s, opts, inParallel); err != nil {
			return nil, fmt.Errorf("doubling step failed at bit %d/%d: %w", i, numBits-1, err)
		}

		// F(2k+1) = F(k+1)² + F(k)². T1 already holds F(k+1)², which has the
		// same order of size as the sum, so adding in place avoids growth.
		s.t1.Add(s.t1, s.t2)
		// Rotate: FK <- F(2k) (T3), FK1 <- F(2k+1) (T1); the old FK/FK1
		// become scratch for the next iteration.
		s.fk, s.fk1, s.t2, s.t3, s.t1 = s.t3, s.t1, s.fk, s.fk1, s.t2

		// Addition step when bit i of n is set:
		// F(k) <- F(k+1), F(k+1) <- F(k) + F(k+1).
		if (n>>uint(i))&1 == 1 {
			s.t4.Add(s.fk, s.fk1)
			s.fk, s.fk1, s.t4 = s.fk1, s.t4, s.fk
		}

		workDone = reportStepProgress(report, &lastReported, totalWork, workDone, i, numBits, powers)
	}
	return new(big.Int).Set(s.fk), nil
}

// doublingStepProducts performs the three products of a doubling step:
//
//	T3 = FK * T4, T1 = FK1², T2 = FK²
//
// sequentially or on three goroutines. The destinations are disjoint and
// the sources are read-only within the step, so the parallel branch needs
// no locking; the first error wins via the collector.
func doublingStepProducts(core coreMultiplier, s *fibState, opts Options, inParallel bool) error {
	if inParallel {
		var wg sync.WaitGroup
		var firstErr parallel.FirstErr
		wg.Add(3)

		go func() {
			defer wg.Done()
			var err error
			s.t3, err = core.MultiplyInto(s.t3, s.fk, s.t4, opts)
			if err != nil {
				firstErr.Set(fmt.Errorf("parallel multiply F(k)*(2F(k+1)-F(k)) failed: %w", err))
			}
		}()
		go func() {
			defer wg.Done()
			var err error
			s.t1, err = core.SquareInto(s.t1, s.fk1, opts)
			if err != nil {
				firstErr.Set(fmt.Errorf("parallel square F(k+1) failed: %w", err))
			}
		}()
		go func() {
			defer wg.Done()
			var err error
			s.t2, err = core.SquareInto(s.t2, s.fk, opts)
			if err != nil {
				firstErr.Set(fmt.Errorf("parallel square F(k) failed: %w", err))
			}
		}()

		wg.Wait()
		return firstErr.Err()
	}

	var err error
	s.t3, err = core.MultiplyInto(s.t3, s.fk, s.t4, opts)
	if err != nil {
		return fmt.Errorf("multiply F(k)*(2F(k+1)-F(k)) failed: %w", err)
	}
	s.t1, err = core.SquareInto(s.t1, s.fk1, opts)
	if err != nil {
		return fmt.Errorf("square F(k+1) failed: %w", err)
	}
	s.t2, err = core.SquareInto(s.t2, s.fk, opts)
	if err != nil {
		return fmt.Errorf("square F(k) failed: %w", err)
	}
	return nil
}

// shouldParallelizeStep decides whether the step's products are worth three
// goroutines. The FFT core saturates CPUs on its own, so once any operand
// is FFT-sized the step runs sequentially until operands are so large that
// three concurrent transforms still win. opts must be normalized.
func shouldParallelizeStep(opts Options, fkBits, fk1Bits int) bool {
	maxBits := fk1Bits
	if fkBits > maxBits {
		maxBits = fkBits
	}

	// Squaring engages the FFT from a single operand, so the max length
	// decides whether the step is FFT-bound.
	fftBits := opts.FFTThresholdWords * bits.UintSize
	if fftBits > 0 && maxBits > fftBits {
		return maxBits > ParallelFFTThresholdBits
	}
	return maxBits > opts.ParallelThresholdBits
}

// fibState aggregates the working integers of a doubling run so they can be
// pooled between calls.
type fibState struct {
	fk, fk1, t1, t2, t3, t4 *big.Int
}

// reset seeds the doubling base case F(0)=0, F(1)=1. The temporaries are
// scratch and keep whatever capacity they grew to.
func (s *fibState) reset() {
	s.fk.SetInt64(0)
	s.fk1.SetInt64(1)
}

var fibStatePool = sync.Pool{
	New: func() any {
		return &fibState{
			fk:  new(big.Int),
			fk1: new(big.Int),
			t1:  new(big.Int),
			t2:  new(big.Int),
			t3:  new(big.Int),
			t4:  new(big.Int),
		}
	},
}

// acquireFibState gets a reset state from the pool. Release with
// releaseFibState, preferably via defer so panics still return it.
func acquireFibState() *fibState {
	s := fibStatePool.Get().(*fibState)
	s.reset()
	return s
}

// releaseFibState returns a state to the pool unless any of its integers
// grew past MaxPooledBitLen, in which case the whole state is left to the
// GC. Safe to call with nil.
func releaseFibState(s *fibState) {
	if s == nil {
		return
	}
	if checkLimit(s.fk) || checkLimit(s.fk1) ||
		checkLimit(s.t1) || checkLimit(s.t2) ||
		checkLimit(s.t3) || checkLimit(s.t4) {
		return
	}
	fibStatePool.Put(s)
}

// checkLimit reports whether z is too large to pool.
func checkLimit(z *big.Int) bool {
	return z != nil && z.BitLen() > MaxPooledBitLen
}
