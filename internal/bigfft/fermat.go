package bigfft

import "math/big"

// fermat is a residue modulo 2^(n·_W)+1, stored as n+1 little-endian words.
// A normalized value has either z[n] == 0, or z[n] == 1 with all lower words
// zero (the residue 2^(n·_W) ≡ -1).
//
// Operations do not allocate. Unless noted otherwise the destination must
// not alias the sources.
type fermat nat

func (z fermat) String() string { return nat(z).String() }

// norm folds the top word back into the low words, using 2^(n·_W) ≡ -1.
func (z fermat) norm() {
	n := len(z) - 1
	c := z[n]
	if c == 0 {
		return
	}
	z[n] = 0
	if b := subVW(z[:n], z[:n], c); b != 0 {
		// The low words went negative: -2^(n·_W) ≡ 1.
		z[n] = addVW(z[:n], z[:n], 1)
	}
}

// Add computes z = x+y. z may alias x.
func (z fermat) Add(x, y fermat) fermat {
	if len(z) != len(x) || len(x) != len(y) {
		panic("Add: length mismatch")
	}
	addVV(z, x, y) // top words are at most 1 each, no carry out
	z.norm()
	return z
}

// Sub computes z = x-y. z may alias x, but not y. The top word of y must be
// small (it is at most 1 for normalized values).
func (z fermat) Sub(x, y fermat) fermat {
	if len(z) != len(x) || len(x) != len(y) {
		panic("Sub: length mismatch")
	}
	n := len(y) - 1
	b := subVV(z[:n], x[:n], y[:n])
	b += y[n]
	// Subtracting b·2^(n·_W) is the same as adding b.
	z[n] = x[n]
	if z[0] <= ^big.Word(0)-b {
		z[0] += b
	} else {
		addVW(z, z, b)
	}
	z.norm()
	return z
}

// Shift computes z = x·2^k for an arbitrary (possibly negative) k.
// z must not alias x.
func (z fermat) Shift(x fermat, k int) fermat {
	if len(z) != len(x) {
		panic("Shift: length mismatch")
	}
	n := len(x) - 1
	// 2 has multiplicative order 2·n·_W.
	k %= 2 * n * _W
	if k < 0 {
		k += 2 * n * _W
	}
	neg := false
	if k >= n*_W { // 2^(n·_W) ≡ -1
		k -= n * _W
		neg = true
	}
	kw, kb := k/_W, k%_W

	// Word-level rotation. Splitting x = hi·B^(n-kw) + lo with B = 2^_W,
	// where hi takes the kw+1 top words of x,
	//	x·B^kw ≡ lo·B^kw - hi (mod 2^(n·_W)+1).
	// Seeding z with the modulus M = B^n + 1 ≡ 0 keeps every intermediate
	// nonnegative, so borrows below cannot run off the top.
	for i := 1; i < n; i++ {
		z[i] = 0
	}
	z[0], z[n] = 1, 1
	if !neg {
		// z = (M - hi) + lo·B^kw
		if b := subVV(z[:kw+1], z[:kw+1], x[n-kw:]); b != 0 {
			subVW(z[kw+1:], z[kw+1:], b)
		}
		if c := addVV(z[kw:n], z[kw:n], x[:n-kw]); c != 0 {
			addVW(z[n:], z[n:], c)
		}
	} else {
		// z = (M - lo·B^kw) + hi
		if b := subVV(z[kw:n], z[kw:n], x[:n-kw]); b != 0 {
			subVW(z[n:], z[n:], b)
		}
		if c := addVV(z[:kw+1], z[:kw+1], x[n-kw:]); c != 0 {
			addVW(z[kw+1:], z[kw+1:], c)
		}
	}
	z.norm()
	if kb > 0 {
		shlVU(z, z, uint(kb))
		z.norm()
	}
	return z
}

// ShiftHalf computes z = x·√2^k, using √2 = 2^(3·n·_W/4) - 2^(n·_W/4),
// which holds whenever 4 divides n·_W. tmp is scratch; z, x and tmp must be
// pairwise distinct.
func (z fermat) ShiftHalf(x fermat, k int, tmp fermat) fermat {
	n := len(z) - 1
	if k%2 == 0 {
		return z.Shift(x, k/2)
	}
	u := (k - 1) / 2 // exact for odd k, negative included
	m := n * _W / 4
	tmp.Shift(x, u+m)
	z.Shift(x, u+3*m)
	return z.Sub(z, tmp)
}

// butterfly performs the radix-2 step a, b = a + √2^e·b, a - √2^e·b
// in place. tmp and tmp2 are scratch.
func butterfly(a, b, tmp, tmp2 fermat, e int) {
	tmp.ShiftHalf(b, e, tmp2)
	b.Sub(a, tmp)
	a.Add(a, tmp)
}

// neg computes z = -x. z may alias x.
func (z fermat) neg(x fermat) fermat {
	n := len(x) - 1
	if x[n] != 0 { // x ≡ -1
		clear(z[:n])
		z[0], z[n] = 1, 0
		return z
	}
	zero := true
	for i := 0; i < n; i++ {
		if x[i] != 0 {
			zero = false
			break
		}
	}
	if zero {
		clear(z)
		return z
	}
	// M - x = (B^n - 1 - x) + 2
	for i := 0; i < n; i++ {
		z[i] = ^x[i]
	}
	z[n] = addVW(z[:n], z[:n], 2)
	return z
}

// Mul computes x·y. The receiver is scratch for the double-length product
// and must hold at least 2·len(x) words; the reduced result is returned as
// a prefix of it. x and y must be normalized.
func (z fermat) Mul(x, y fermat) fermat {
	if len(x) != len(y) {
		panic("Mul: length mismatch")
	}
	n := len(x) - 1
	if n >= fermatFFTThreshold {
		if r := mulModFFT(z, x, y); r != nil {
			return r
		}
	}
	z = z[:2*(n+1)]
	clear(z)
	xt, yt := trim(nat(x)), trim(nat(y))
	switch {
	case len(xt) == 0 || len(yt) == 0:
	case n < fermatBasicThreshold:
		basicMul(nat(z), xt, yt)
	default:
		copy(z, karatsuba(xt, yt, 0))
	}
	return z.fold(n)
}

// fold reduces the 2(n+1)-word product in z to n+1 words, splitting it at
// word n and using B^n ≡ -1.
func (z fermat) fold(n int) fermat {
	// The high half is at most B^n, so its own top words are z[2n] ≤ 1
	// and z[2n+1] == 0.
	b := subVV(z[:n], z[:n], z[n:2*n])
	b += z[2*n]
	z[n] = 0
	if z[0] <= ^big.Word(0)-b {
		z[0] += b
	} else {
		addVW(z[:n+1], z[:n+1], b)
	}
	r := z[:n+1]
	r.norm()
	return r
}

// basicMul computes the full product x·y into z, which must be zeroed and
// hold at least len(x)+len(y) words.
func basicMul(z, x, y nat) {
	for i, d := range y {
		if d != 0 {
			z[len(x)+i] = addMulVVW(z[i:i+len(x)], x, d)
		}
	}
}

// fermatBasicThreshold is the coefficient size in words below which the
// schoolbook product beats Karatsuba for the pointwise multiplications.
const fermatBasicThreshold = 32

// fermatFFTThreshold is the coefficient size in words above which pointwise
// products recurse into a negacyclic transform of their own.
const fermatFFTThreshold = 1800
