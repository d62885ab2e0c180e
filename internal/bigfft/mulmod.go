package bigfft

import (
	"fmt"
	"math/big"
	"math/bits"
	"runtime/debug"
)

// mulModK picks the chunk count 2^k for a negacyclic convolution of
// residues with n-word low halves. k is limited by the 2-adic valuation of
// n, since chunks must be whole words of equal size; a result below 2 means
// no worthwhile decomposition exists.
func mulModK(n int) uint {
	bitl := int64(n) * int64(_W)
	k := uint(3)
	for k < uint(len(fftSizeThreshold)) && fftSizeThreshold[k] < bitl {
		k++
	}
	if v := uint(bits.TrailingZeros(uint(n))); k > v {
		k = v
	}
	return k
}

// mulModFFT computes x·y mod 2^(n·_W)+1 into z (scratch of at least
// 2(n+1) words, result returned as its prefix) by splitting the operands
// into 2^k chunks and taking a negacyclic convolution: chunk i is twisted
// by θ^i with θ = 2^(nn·_W/K), the cyclic transform multiplies the
// pointwise values, and untwisting recovers the signed coefficients of the
// product modulo x^K+1, which evaluate at 2^(m·_W) to the desired residue.
//
// x and y must be normalized. Returns nil when n admits no suitable chunk
// count, in which case the caller falls back to a plain product.
func mulModFFT(z, x, y fermat) fermat {
	n := len(x) - 1
	k := mulModK(n)
	if k < 2 {
		return nil
	}
	K := 1 << k
	m := n >> k

	// A normalized -1 has no chunk decomposition, and zero operands
	// would defeat the nonzero-chunk counting below.
	if x[n] != 0 {
		return z[:n+1].neg(y)
	}
	if y[n] != 0 {
		return z[:n+1].neg(x)
	}
	xl := len(trim(nat(x[:n])))
	yl := len(trim(nat(y[:n])))
	if xl == 0 || yl == 0 {
		r := z[:n+1]
		clear(r)
		return r
	}

	// Coefficients of the negacyclic product are bounded by K·B^(2m) in
	// absolute value, so 2m·_W+k+2 bits separate the signs. Round the
	// inner ring up so that θ and the recursion's √2 powers are integral
	// bit shifts.
	g := K
	if g < _W {
		g = _W
	}
	nnBits := 2*m*_W + int(k) + 2
	nnBits = (nnBits/g + 1) * g
	nn := nnBits / _W
	θshift := nnBits / K

	alloc := poolAlloc
	a, _, releaseA := alloc.fermatSlice(K, nn)
	defer releaseA()
	b, _, releaseB := alloc.fermatSlice(K, nn)
	defer releaseB()
	t, _, releaseT := alloc.fermatSlice(K, nn)
	defer releaseT()
	sc, releaseSc := alloc.fermatTemp(nn)
	defer releaseSc()

	square := &x[0] == &y[0]

	// Twist the chunks: a[i] = x_i·θ^i.
	for i := 0; i < K; i++ {
		clear(sc)
		copy(sc, x[i*m:(i+1)*m])
		a[i].Shift(sc, θshift*i)
	}
	if !square {
		for i := 0; i < K; i++ {
			clear(sc)
			copy(sc, y[i*m:(i+1)*m])
			b[i].Shift(sc, θshift*i)
		}
	}

	// Forward transforms reuse freed arrays as destinations; the matrix
	// transform destroys its source, so nothing may be read twice.
	if err := fourier(t, a, false, nn, k, (xl+m-1)/m, alloc); err != nil {
		return nil
	}
	buf, releaseBuf := alloc.wordScratch(2 * (nn + 1))
	defer releaseBuf()
	if square {
		for i := 0; i < K; i++ {
			r := fermat(buf).Mul(t[i], t[i])
			copy(t[i], r)
		}
	} else {
		if err := fourier(a, b, false, nn, k, (yl+m-1)/m, alloc); err != nil {
			return nil
		}
		for i := 0; i < K; i++ {
			r := fermat(buf).Mul(t[i], a[i])
			copy(t[i], r)
		}
	}
	if err := fourier(b, t, true, nn, k, K, alloc); err != nil {
		return nil
	}

	// Untwist and divide by K, then split each signed coefficient into
	// magnitude and sign and accumulate Σ c_i·B^(m·i) with wraparound
	// into positive and negative parts carved from z.
	zpos := z[: n+1 : n+1]
	zneg := z[n+1 : 2*(n+1)]
	clear(zpos)
	clear(zneg)
	for i := 0; i < K; i++ {
		t[i].Shift(b[i], -int(k)-i*θshift)
		w := nat(t[i])
		neg := t[i][nn] != 0 || t[i][nn-1]>>(_W-1) != 0
		if neg {
			sc.neg(t[i])
			w = nat(sc)
		}
		w = trim(w)
		if len(w) == 0 {
			continue
		}
		if neg {
			addAtWrap(zneg, zpos, w, i*m)
		} else {
			addAtWrap(zpos, zneg, w, i*m)
		}
	}
	return zpos.Sub(zpos, zneg)
}

// addAtWrap adds w·B^off to dst, both residues mod 2^(n·_W)+1 held in n+1
// words. The part of w that would extend past word n wraps to offset zero
// with flipped sign, so it accumulates into other instead.
func addAtWrap(dst, other fermat, w nat, off int) {
	n := len(dst) - 1
	l := len(w)
	if off+l <= n {
		if c := addVV(dst[off:off+l], dst[off:off+l], w); c != 0 {
			addVW(dst[off+l:], dst[off+l:], c)
		}
		return
	}
	l1 := n - off
	c := addVV(dst[off:n], dst[off:n], w[:l1])
	// c·B^n and the high part of w both re-enter at offset zero negated.
	if c2 := addVV(other[:l-l1], other[:l-l1], w[l1:]); c2 != 0 {
		addVW(other[l-l1:], other[l-l1:], c2)
	}
	if c != 0 {
		addVW(other, other, c)
	}
}

// MulModFermat computes x·y mod 2^(words·_W)+1, reducing the operands
// first. The result is the canonical representative in [0, 2^(words·_W)].
func MulModFermat(x, y *big.Int, words int) (res *big.Int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bigfft.MulModFermat: panic: %v\n%s", r, debug.Stack())
		}
	}()
	if x == nil || y == nil {
		return nil, fmt.Errorf("bigfft: nil operand")
	}
	if words <= 0 {
		return nil, fmt.Errorf("bigfft: modulus size %d words, must be positive", words)
	}
	xf := reduceFermat(x, words)
	yf := reduceFermat(y, words)
	buf := make(fermat, 2*(words+1))
	r := buf.Mul(xf, yf)
	return new(big.Int).SetBits(trim(nat(r))), nil
}

// ModFermat reduces x mod 2^(words·_W)+1 to its canonical representative.
func ModFermat(x *big.Int, words int) (*big.Int, error) {
	if x == nil {
		return nil, fmt.Errorf("bigfft: nil operand")
	}
	if words <= 0 {
		return nil, fmt.Errorf("bigfft: modulus size %d words, must be positive", words)
	}
	return new(big.Int).SetBits(trim(nat(reduceFermat(x, words)))), nil
}

// reduceFermat folds |x| into a normalized residue mod 2^(n·_W)+1, then
// negates if x is negative. Successive n-word chunks of x alternate sign
// since B^n ≡ -1.
func reduceFermat(x *big.Int, n int) fermat {
	f := make(fermat, n+1)
	w := x.Bits()
	if len(w) <= n {
		copy(f, w)
	} else {
		hi := (len(w) - 1) / n
		for j := hi; j >= 0; j-- {
			f.neg(f)
			chunk := w[j*n:]
			if len(chunk) > n {
				chunk = chunk[:n]
			}
			chunk = trim(nat(chunk))
			if len(chunk) == 0 {
				continue
			}
			if c := addVV(f[:len(chunk)], f[:len(chunk)], chunk); c != 0 {
				addVW(f[len(chunk):], f[len(chunk):], c)
			}
			f.norm()
		}
	}
	if x.Sign() < 0 {
		f.neg(f)
	}
	return f
}
