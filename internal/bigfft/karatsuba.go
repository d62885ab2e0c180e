package bigfft

import (
	"math/big"
	"sync"
	"sync/atomic"
)

// Karatsuba multiplication on word slices. The transform uses it for
// mid-size pointwise products; it is also exported for callers that want
// the subquadratic algorithm without transform overhead, such as the
// karatsuba multiplier strategy and calibration probes.

// DefaultKaratsubaThreshold is the size in words below which schoolbook
// multiplication is faster than splitting.
const DefaultKaratsubaThreshold = 32

// DefaultParallelKaratsubaThreshold is the operand size in words from which
// the recursion runs its independent branches concurrently.
const DefaultParallelKaratsubaThreshold = 4096

// MaxKaratsubaParallelDepth bounds how many recursion levels may spawn
// goroutines, keeping their count in check on huge operands.
const MaxKaratsubaParallelDepth = 3

var karatsubaThreshold atomic.Int64

func init() {
	karatsubaThreshold.Store(DefaultKaratsubaThreshold)
}

// SetKaratsubaThreshold moves the schoolbook crossover, in words. Values
// below 1 are clamped. Safe for concurrent use with multiplications.
func SetKaratsubaThreshold(threshold int) {
	karatsubaThreshold.Store(int64(max(threshold, 1)))
}

// KaratsubaThreshold returns the current schoolbook crossover in words.
func KaratsubaThreshold() int {
	return int(karatsubaThreshold.Load())
}

// intPool recycles big.Int headers used for sign juggling in the public
// entry points.
var intPool = sync.Pool{
	New: func() any { return new(big.Int) },
}

func borrowInt() *big.Int {
	return intPool.Get().(*big.Int)
}

func recycleInt(x *big.Int) {
	x.SetInt64(0)
	intPool.Put(x)
}

// KaratsubaMultiply computes x·y by Karatsuba recursion regardless of the
// FFT threshold. It returns a new *big.Int.
func KaratsubaMultiply(x, y *big.Int) *big.Int {
	return KaratsubaMultiplyTo(new(big.Int), x, y)
}

// KaratsubaMultiplyTo computes x·y into z, reusing z's storage where
// possible.
func KaratsubaMultiplyTo(z, x, y *big.Int) *big.Int {
	if x == nil || y == nil || x.Sign() == 0 || y.Sign() == 0 {
		return z.SetInt64(0)
	}
	ax, ay := borrowInt(), borrowInt()
	defer recycleInt(ax)
	defer recycleInt(ay)
	ax.Abs(x)
	ay.Abs(y)
	neg := x.Sign() != y.Sign()

	z.SetBits(karatsuba(nat(ax.Bits()), nat(ay.Bits()), 0))
	if neg {
		z.Neg(z)
	}
	return z
}

// KaratsubaSqr computes x² by Karatsuba recursion.
func KaratsubaSqr(x *big.Int) *big.Int {
	return KaratsubaSqrTo(new(big.Int), x)
}

// KaratsubaSqrTo computes x² into z, reusing z's storage where possible.
func KaratsubaSqrTo(z, x *big.Int) *big.Int {
	if x == nil || x.Sign() == 0 {
		return z.SetInt64(0)
	}
	ax := borrowInt()
	defer recycleInt(ax)
	ax.Abs(x)
	return z.SetBits(karatsubaSqr(nat(ax.Bits()), 0))
}

// karatsuba multiplies word slices:
//
//	z0 = x0·y0
//	z2 = x1·y1
//	z1 = (x0+x1)·(y0+y1) - z0 - z2
//	x·y = z0 + z1·B^k + z2·B^2k
//
// The two independent sub-products run concurrently when the operands are
// large and a semaphore token is free.
func karatsuba(x, y nat, level int) nat {
	if len(x) < len(y) {
		x, y = y, x
	}
	n, m := len(x), len(y)
	if m == 0 {
		return nil
	}
	if n <= KaratsubaThreshold() {
		z := make(nat, n+m)
		basicMul(z, x, y)
		return trim(z)
	}
	if n > 2*m {
		return mulUnbalanced(x, y, level)
	}

	k := n / 2
	xlo, xhi := x[:k], x[k:]
	ylo, yhi := y, nat(nil)
	if len(y) > k {
		ylo, yhi = y[:k], y[k:]
	}

	var z0, z2 nat
	if level < MaxKaratsubaParallelDepth && n >= DefaultParallelKaratsubaThreshold {
		select {
		case getSemaphore() <- struct{}{}:
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-getSemaphore() }()
				z2 = karatsuba(xhi, yhi, level+1)
			}()
			z0 = karatsuba(xlo, ylo, level+1)
			wg.Wait()
		default:
			z0 = karatsuba(xlo, ylo, level+1)
			z2 = karatsuba(xhi, yhi, level+1)
		}
	} else {
		z0 = karatsuba(xlo, ylo, level+1)
		z2 = karatsuba(xhi, yhi, level+1)
	}

	z1 := karatsuba(natAdd(xlo, xhi), natAdd(ylo, yhi), level+1)
	z1 = natSub(z1, z0)
	z1 = natSub(z1, z2)

	return recombine(z0, z1, z2, k)
}

// karatsubaSqr is karatsuba specialized to x·x, saving the asymmetric
// handling and one operand sum.
func karatsubaSqr(x nat, level int) nat {
	n := len(x)
	if n <= KaratsubaThreshold() {
		z := make(nat, 2*n)
		basicMul(z, x, x)
		return trim(z)
	}
	k := n / 2
	lo, hi := x[:k], x[k:]

	z0 := karatsubaSqr(lo, level+1)
	z2 := karatsubaSqr(hi, level+1)
	z1 := karatsubaSqr(natAdd(lo, hi), level+1)
	z1 = natSub(z1, z0)
	z1 = natSub(z1, z2)

	return recombine(z0, z1, z2, k)
}

// mulUnbalanced splits the much larger operand into blocks of the smaller
// one's size.
func mulUnbalanced(x, y nat, level int) nat {
	acc := make(nat, len(x)+len(y))
	step := len(y)
	for i := 0; i < len(x); i += step {
		addShifted(acc, karatsuba(x[i:min(i+step, len(x))], y, level+1), i)
	}
	return trim(acc)
}

func natAdd(x, y nat) nat {
	if len(x) < len(y) {
		x, y = y, x
	}
	if len(y) == 0 {
		return x
	}
	sum := make(nat, len(x)+1)
	c := addVV(sum[:len(y)], x[:len(y)], y)
	if len(x) > len(y) {
		c = addVW(sum[len(y):len(x)], x[len(y):], c)
	}
	sum[len(x)] = c
	return trim(sum)
}

// natSub computes x-y for x >= y.
func natSub(x, y nat) nat {
	diff := make(nat, len(x))
	if len(y) == 0 {
		copy(diff, x)
		return diff
	}
	b := subVV(diff[:len(y)], x[:len(y)], y)
	if len(x) > len(y) {
		subVW(diff[len(y):], x[len(y):], b)
	}
	return trim(diff)
}

// addShifted adds x·B^shift into z in place. z must be long enough; the
// final carry vanishes by the value bounds of the callers.
func addShifted(z, x nat, shift int) {
	if len(x) == 0 {
		return
	}
	if shift+len(x) > len(z) {
		panic("addShifted: out of bounds")
	}
	window := z[shift : shift+len(x)]
	c := addVV(window, window, x)
	if c != 0 && shift+len(x) < len(z) {
		tail := z[shift+len(x):]
		addVW(tail, tail, c)
	}
}

// recombine computes z0 + z1·B^k + z2·B^2k.
func recombine(z0, z1, z2 nat, k int) nat {
	size := max(len(z0), len(z1)+k, len(z2)+2*k)
	out := make(nat, size+1)
	copy(out, z0)
	addShifted(out, z1, k)
	addShifted(out, z2, 2*k)
	return trim(out)
}
