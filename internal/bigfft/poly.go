package bigfft

import "math/big"

// poly represents an integer as a polynomial in Z[x]/(x^K-1) with K = 2^k:
// the value is Σ a[i]·2^(m·_W·i). Multiplication parameters are chosen so
// that product coefficients stay below the coefficient modulus and no
// cyclic wraparound occurs, making the cyclic product equal the integer
// product.
type poly struct {
	k uint  // transform length is 1<<k
	m int   // coefficients are chunks of m words
	a []nat // coefficients; short or empty at the tail
}

// polyFromNat slices x into chunks of m words. The chunks alias x.
func polyFromNat(x nat, k uint, m int) poly {
	p := poly{k: k, m: m}
	length := len(x)/m + 1
	p.a = make([]nat, length)
	for i := range p.a {
		if len(x) < m {
			p.a[i] = trim(x)
			break
		}
		p.a[i] = x[:m]
		x = x[m:]
	}
	return p
}

// intTo reassembles the integer value of p into dst, which must be zeroed
// and hold at least intSize(p.k, p.m) words. The trimmed result is
// returned as a prefix of dst.
func (p poly) intTo(dst nat) nat {
	if len(dst) < intSize(p.k, p.m) {
		panic("intTo: destination too short")
	}
	np := dst
	for i := range p.a {
		l := len(p.a[i])
		if l == 0 {
			np = np[p.m:]
			continue
		}
		c := addVV(np[:l], np[:l], p.a[i])
		if np[l] < ^big.Word(0) {
			np[l] += c
		} else {
			addVW(np[l:], np[l:], c)
		}
		np = np[p.m:]
	}
	return trim(dst)
}

// intSize is the buffer size intTo needs: K chunks of m words, plus room
// for the widest coefficient (2m+1 words) starting at the last chunk.
func intSize(k uint, m int) int {
	return (1<<k)*m + 2*m + 2
}

// polValues holds the transform of a poly's coefficients, as residues of
// n+1 words each.
type polValues struct {
	k      uint
	n      int
	values []fermat
}

// transform computes the forward transform of p's coefficients embedded in
// residues of n+1 words. The returned values live in memory obtained from
// alloc; the release function returns it.
func (p *poly) transform(n int, alloc tempAllocator) (polValues, func(), error) {
	k := p.k
	K := 1 << k
	input, _, releaseIn := alloc.fermatSlice(K, n)
	defer releaseIn()
	for i, c := range p.a {
		copy(input[i], c)
	}
	values, _, release := alloc.fermatSlice(K, n)
	if err := fourier(values, input, false, n, k, len(p.a), alloc); err != nil {
		release()
		return polValues{}, func() {}, err
	}
	return polValues{k: k, n: n, values: values}, release, nil
}

// invTransform computes the inverse transform and rescales by 1/K,
// recovering the coefficients of the product polynomial. The returned
// poly's coefficients live in memory obtained from alloc until the release
// function is called.
func (v *polValues) invTransform(m int, alloc tempAllocator) (poly, func(), error) {
	k, n := v.k, v.n
	K := 1 << k

	// The matrix transform destroys its input, and v.values may be a
	// cached transform, so feed the inverse from a scratch copy.
	src, _, releaseSrc := alloc.fermatSlice(K, n)
	defer releaseSrc()
	for i, val := range v.values {
		copy(src[i], val)
	}
	dst, _, release := alloc.fermatSlice(K, n)
	if err := fourier(dst, src, true, n, k, K, alloc); err != nil {
		release()
		return poly{}, func() {}, err
	}
	tmp, releaseTmp := alloc.fermatTemp(n)
	defer releaseTmp()
	p := poly{k: k, m: m, a: make([]nat, K)}
	for i := range dst {
		tmp.Shift(dst[i], -int(k))
		copy(dst[i], tmp)
		p.a[i] = trim(nat(dst[i]))
	}
	return p, release, nil
}

// mulInto replaces x's values with the elementwise product x·y. x must own
// its values (cached transforms are deep-copied before they get here).
func (x *polValues) mulInto(y *polValues, alloc tempAllocator) {
	n := x.n
	buf, releaseBuf := alloc.wordScratch(2 * (n + 1))
	defer releaseBuf()
	for i := range x.values {
		r := fermat(buf).Mul(x.values[i], y.values[i])
		copy(x.values[i], r)
	}
}

// sqrInto replaces x's values with their elementwise squares.
func (x *polValues) sqrInto(alloc tempAllocator) {
	n := x.n
	buf, releaseBuf := alloc.wordScratch(2 * (n + 1))
	defer releaseBuf()
	for i := range x.values {
		r := fermat(buf).Mul(x.values[i], x.values[i])
		copy(x.values[i], r)
	}
}

// clone deep-copies the transform into GC-managed memory, detaching it
// from any allocator arena. Used when handing values to the cache.
func (v *polValues) clone() polValues {
	c := polValues{k: v.k, n: v.n}
	words := make(nat, len(v.values)*(v.n+1))
	c.values = make([]fermat, len(v.values))
	for i, val := range v.values {
		c.values[i] = fermat(words[i*(v.n+1) : (i+1)*(v.n+1)])
		copy(c.values[i], val)
	}
	return c
}
