// Package bigfft implements multiplication of big.Int using the
// Schönhage-Strassen method: operands are split into chunks forming a
// polynomial, the polynomial is evaluated by a fast Fourier transform
// over Z/(2^(n·_W)+1), values are multiplied pointwise, and the product
// polynomial is recovered by the inverse transform.
//
// The transform recursion prunes work for zero coefficient tails,
// switches to a cache-friendly matrix decomposition for large transform
// sizes, and spreads independent halves over multiple CPUs. Pointwise
// products above a size threshold recurse into a negacyclic convolution,
// which is also exposed directly as MulModFermat for arithmetic modulo
// 2^(n·_W)+1.
//
// Multiplying n-bit numbers takes O(n log n log log n) bit operations,
// against O(n^1.58) for the Karatsuba multiplication in math/big. The
// crossover sits around 115k bits on 64-bit platforms and is tunable
// with SetFFTThreshold.
package bigfft

import (
	"fmt"
	"math/big"
	"runtime/debug"
	"sync/atomic"
	"unsafe"
)

const _W = int(unsafe.Sizeof(big.Word(0)) * 8)

type nat []big.Word

func (n nat) String() string {
	return new(big.Int).SetBits(n).String()
}

// trim drops leading zero words.
func trim(n nat) nat {
	for i := len(n); i > 0; i-- {
		if n[i-1] != 0 {
			return n[:i]
		}
	}
	return nil
}

// defaultFFTThresholdWords is the default size (in words) above which FFT
// is used over Karatsuba from math/big. 1800 words is approximately 115k
// bits on 64-bit systems; calibration can move the crossover.
const defaultFFTThresholdWords = 1800

var fftThreshold atomic.Int64

func init() {
	fftThreshold.Store(defaultFFTThresholdWords)
}

// FFTThreshold reports the operand size in words above which
// multiplication uses the FFT.
func FFTThreshold() int {
	return int(fftThreshold.Load())
}

// SetFFTThreshold moves the FFT crossover to the given operand size in
// words. Zero or a negative value restores the default; values below 16
// words are clamped. Safe for concurrent use with multiplications.
func SetFFTThreshold(words int) {
	switch {
	case words <= 0:
		words = defaultFFTThresholdWords
	case words < 16:
		words = 16
	}
	fftThreshold.Store(int64(words))
}

// Mul computes the product x·y, switching to the FFT when both operands
// exceed the threshold. It can be used instead of the Mul method of
// *big.Int. The error is non-nil only if the computation panicked, which
// indicates memory exhaustion or an internal inconsistency.
func Mul(x, y *big.Int) (res *big.Int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bigfft.Mul: panic: %v\n%s", r, debug.Stack())
		}
	}()
	if x == nil || y == nil {
		return nil, fmt.Errorf("bigfft: nil operand")
	}
	threshold := FFTThreshold()
	if len(x.Bits()) > threshold && len(y.Bits()) > threshold {
		return mulFFT(new(big.Int), x, y)
	}
	return new(big.Int).Mul(x, y), nil
}

// MulTo computes the product x·y into z, reusing z's storage when it is
// large enough. z may be one of the operands.
func MulTo(z, x, y *big.Int) (res *big.Int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bigfft.MulTo: panic: %v\n%s", r, debug.Stack())
		}
	}()
	if z == nil {
		return Mul(x, y)
	}
	if x == nil || y == nil {
		return nil, fmt.Errorf("bigfft: nil operand")
	}
	threshold := FFTThreshold()
	if len(x.Bits()) > threshold && len(y.Bits()) > threshold {
		return mulFFT(z, x, y)
	}
	return z.Mul(x, y), nil
}

// Sqr computes x². Squaring transforms x only once, saving about a third
// of the work of Mul(x, x).
func Sqr(x *big.Int) (res *big.Int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bigfft.Sqr: panic: %v\n%s", r, debug.Stack())
		}
	}()
	if x == nil {
		return nil, fmt.Errorf("bigfft: nil operand")
	}
	if len(x.Bits()) > FFTThreshold() {
		return sqrFFT(new(big.Int), x)
	}
	return new(big.Int).Mul(x, x), nil
}

// SqrTo computes x² into z, reusing z's storage when it is large enough.
// z may be x itself.
func SqrTo(z, x *big.Int) (res *big.Int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bigfft.SqrTo: panic: %v\n%s", r, debug.Stack())
		}
	}()
	if z == nil {
		return Sqr(x)
	}
	if x == nil {
		return nil, fmt.Errorf("bigfft: nil operand")
	}
	if len(x.Bits()) > FFTThreshold() {
		return sqrFFT(z, x)
	}
	return z.Mul(x, x), nil
}

func mulFFT(z, x, y *big.Int) (*big.Int, error) {
	sign := x.Sign() * y.Sign()
	if sign == 0 {
		return z.SetInt64(0), nil
	}
	zb, err := fftmulTo(z.Bits(), nat(x.Bits()), nat(y.Bits()))
	if err != nil {
		return nil, err
	}
	z.SetBits(zb)
	if sign < 0 {
		z.Neg(z)
	}
	return z, nil
}

func sqrFFT(z, x *big.Int) (*big.Int, error) {
	if x.Sign() == 0 {
		return z.SetInt64(0), nil
	}
	zb, err := fftsqrTo(z.Bits(), nat(x.Bits()))
	if err != nil {
		return nil, err
	}
	z.SetBits(zb)
	return z, nil
}

// A transform size of K = 1<<k is adequate when K is about 2·√N with
// N = x.BitLen() + y.BitLen().

// fftSizeThreshold[i] holds the largest operand size in bits for which
// transform size i should be used.
var fftSizeThreshold = [...]int64{
	0, 0, 0, 4 << 10, // k = 0
	8 << 10, 16 << 10, 32 << 10, 64 << 10, // k = 4
	1 << 18, 1 << 20, 3 << 20, 8 << 20, // k = 8
	30 << 20, 100 << 20, 300 << 20, 600 << 20, // k = 12
}

// fftSize returns the transform length exponent k and the chunk size m in
// words, such that m << k covers the words of x·y.
func fftSize(x, y nat) (k uint, m int) {
	return FFTParams(len(x) + len(y))
}

// fftSizeSqr returns the transform parameters for squaring x.
func fftSizeSqr(x nat) (k uint, m int) {
	return FFTParams(2 * len(x))
}

// FFTParams returns the transform parameters k and m suitable for a
// result of the given number of words.
func FFTParams(words int) (k uint, m int) {
	bits := int64(words) * int64(_W)
	k = uint(len(fftSizeThreshold))
	for i := range fftSizeThreshold {
		if fftSizeThreshold[i] > bits {
			k = uint(i)
			break
		}
	}
	m = words>>k + 1
	return
}

// ValueSize returns the coefficient length (in words) for a transform of
// 2^k points with m-word chunks. The length is a multiple of 2^(k-extra)
// words so that the roots of unity the transform needs are integral
// powers of √2.
func ValueSize(k uint, m int, extra uint) int {
	return valueSize(k, m, extra)
}

func valueSize(k uint, m int, extra uint) int {
	// The coefficients of P·Q are less than b^(2m)·K, so we need
	// _W·valueSize >= 2·m·_W+k.
	n := 2*m*_W + int(k) // necessary bits
	K := 1 << (k - extra)
	if K < _W {
		K = _W
	}
	n = ((n / K) + 1) * K // round to a multiple of K
	return n / _W
}

// fftmulTo computes x·y into dst, which is grown as needed, and returns
// the trimmed result. dst may alias an operand: it is only written after
// the transforms have consumed both.
func fftmulTo(dst, x, y nat) (nat, error) {
	k, m := fftSize(x, y)
	n := valueSize(k, m, 0)

	bump := acquireBump(estimateBumpCapacity(k, m, n))
	defer releaseBump(bump)
	alloc := bump.allocator()

	px := polyFromNat(x, k, m)
	py := polyFromNat(y, k, m)
	xt, releaseXt, err := transformForMul(&px, x, n, alloc)
	if err != nil {
		return nil, err
	}
	defer releaseXt()
	yt, releaseYt, err := transformForMul(&py, y, n, alloc)
	if err != nil {
		return nil, err
	}
	defer releaseYt()

	xt.mulInto(&yt, alloc)
	rp, releaseRp, err := xt.invTransform(m, alloc)
	if err != nil {
		return nil, err
	}
	defer releaseRp()

	buf, releaseBuf := alloc.wordScratch(intSize(k, m))
	defer releaseBuf()
	r := rp.intTo(buf)
	if len(dst) < len(r) {
		dst = make(nat, len(r))
	}
	copy(dst, r)
	return dst[:len(r)], nil
}

// fftsqrTo computes x² into dst, which is grown as needed, and returns
// the trimmed result. dst may alias x.
func fftsqrTo(dst, x nat) (nat, error) {
	k, m := fftSizeSqr(x)
	n := valueSize(k, m, 0)

	bump := acquireBump(estimateBumpCapacity(k, m, n))
	defer releaseBump(bump)
	alloc := bump.allocator()

	px := polyFromNat(x, k, m)
	xt, releaseXt, err := transformForMul(&px, x, n, alloc)
	if err != nil {
		return nil, err
	}
	defer releaseXt()

	xt.sqrInto(alloc)
	rp, releaseRp, err := xt.invTransform(m, alloc)
	if err != nil {
		return nil, err
	}
	defer releaseRp()

	buf, releaseBuf := alloc.wordScratch(intSize(k, m))
	defer releaseBuf()
	r := rp.intTo(buf)
	if len(dst) < len(r) {
		dst = make(nat, len(r))
	}
	copy(dst, r)
	return dst[:len(r)], nil
}
