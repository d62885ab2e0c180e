// Package ffield implements arithmetic in small finite fields GF(p^k),
// q = p^k ≤ 2^20, using a polynomial basis with exponential and
// discrete-log tables over a multiplicative generator.
//
// Elements are packed base-p codes: the element Σ c_i·t^i with digits
// c_i ∈ [0, p) is the code Σ c_i·p^i, so 0 and 1 are the field's zero
// and one. The modulus polynomial is chosen primitive, which makes the
// basis element t itself the generator backing the tables.
package ffield

import (
	"fmt"
	"math/big"

	"github.com/fermatlab/gauss/internal/randsrc"
)

// MaxOrder bounds the field size so the tables stay small.
const MaxOrder = 1 << 20

// Elem is a field element as a packed base-p code in [0, q).
type Elem uint32

// Field is a finite field GF(p^k). All methods are safe for concurrent
// use once the field is built.
type Field struct {
	p uint64 // characteristic
	k int    // extension degree
	q uint64 // p^k

	modulus []uint64 // monic primitive polynomial, coefficients 0..k
	exp     []Elem   // exp[i] = t^i, length q-1
	log     []uint32 // log[exp[i]] = i; log[0] is unused
}

// NewField constructs GF(p^k). p must be prime and p^k at most 2^20.
func NewField(p, k uint64) (*Field, error) {
	if p < 2 {
		return nil, fmt.Errorf("cannot NewField: characteristic %d, must be at least 2", p)
	}
	if k < 1 {
		return nil, fmt.Errorf("cannot NewField: extension degree %d, must be at least 1", k)
	}
	if !new(big.Int).SetUint64(p).ProbablyPrime(0) {
		return nil, fmt.Errorf("cannot NewField: %d is not prime", p)
	}
	q := uint64(1)
	for i := uint64(0); i < k; i++ {
		if q > MaxOrder/p {
			return nil, fmt.Errorf("cannot NewField: %d^%d exceeds the maximum order 2^20", p, k)
		}
		q *= p
	}

	f := &Field{p: p, k: int(k), q: q}
	if err := f.build(); err != nil {
		return nil, err
	}
	return f, nil
}

// Char returns the characteristic p.
func (f *Field) Char() uint64 { return f.p }

// Degree returns the extension degree k.
func (f *Field) Degree() int { return f.k }

// Order returns the field size q = p^k.
func (f *Field) Order() uint64 { return f.q }

// Generator returns the multiplicative generator the tables are built
// on (the polynomial basis element t, or its reduction for k = 1).
func (f *Field) Generator() Elem { return f.exp[1] }

func (f *Field) String() string {
	if f.k == 1 {
		return fmt.Sprintf("GF(%d)", f.p)
	}
	return fmt.Sprintf("GF(%d^%d)", f.p, f.k)
}

// build finds a primitive modulus and fills the tables. A monic f with
// t of multiplicative order q-1 modulo f forces every nonzero residue
// to be a power of t, hence invertible, so the quotient is a field and
// irreducibility needs no separate test.
func (f *Field) build() error {
	primes := primeFactors(f.q - 1)

	pk1 := uint64(1) // p^(k-1)
	for i := 1; i < f.k; i++ {
		pk1 *= f.p
	}

	found := false
	for c := uint64(1); c < pk1*f.p && !found; c++ {
		if c%f.p == 0 {
			continue // t divides the candidate
		}
		f.modulus = f.unpackModulus(c)
		if f.primitiveCheck(primes) {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("cannot NewField: no primitive polynomial found for GF(%d^%d)", f.p, f.k)
	}

	f.exp = make([]Elem, f.q-1)
	f.log = make([]uint32, f.q)
	acc := uint64(1)
	for i := uint64(0); i < f.q-1; i++ {
		f.exp[i] = Elem(acc)
		f.log[acc] = uint32(i)
		acc = f.mulByT(acc)
	}
	if acc != 1 {
		return fmt.Errorf("cannot NewField: generator order mismatch for GF(%d^%d)", f.p, f.k)
	}
	return nil
}

// unpackModulus returns the monic polynomial t^k + digits(c).
func (f *Field) unpackModulus(c uint64) []uint64 {
	m := make([]uint64, f.k+1)
	for i := 0; i < f.k; i++ {
		m[i] = c % f.p
		c /= f.p
	}
	m[f.k] = 1
	return m
}

// primitiveCheck reports whether t has multiplicative order exactly q-1
// modulo the current candidate modulus.
func (f *Field) primitiveCheck(primes []uint64) bool {
	t := uint64(f.p) // the code of the basis element t
	if f.k == 1 {
		t = (f.p - f.modulus[0]%f.p) % f.p // t reduces to -modulus[0]
		if t == 0 {
			return false
		}
	}
	if f.powPacked(t, f.q-1) != 1 {
		return false
	}
	for _, r := range primes {
		if f.powPacked(t, (f.q-1)/r) == 1 {
			return false
		}
	}
	return true
}

// mulByT multiplies a packed code by t modulo the modulus.
func (f *Field) mulByT(a uint64) uint64 {
	if f.k == 1 {
		t := (f.p - f.modulus[0]%f.p) % f.p
		return a * t % f.p
	}
	pk1 := f.q / f.p
	hi := a / pk1
	z := (a - hi*pk1) * f.p
	if hi == 0 {
		return z
	}
	// Fold the overflow digit through t^k = -modulus mod p.
	pw := uint64(1)
	for i := 0; i < f.k; i++ {
		old := z / pw % f.p
		d := (old + hi*(f.p-f.modulus[i])) % f.p
		z = z - old*pw + d*pw
		pw *= f.p
	}
	return z
}

// mulPacked multiplies two packed codes modulo the modulus by Horner
// recursion on the digits of b.
func (f *Field) mulPacked(a, b uint64) uint64 {
	if f.k == 1 {
		return a * b % f.p
	}
	var z uint64
	pw := f.q / f.p
	for i := f.k - 1; i >= 0; i-- {
		z = f.mulByT(z)
		if d := b / pw % f.p; d != 0 {
			z = f.addScaled(z, d, a)
		}
		pw /= f.p
	}
	return z
}

// addScaled returns z + s·a digit-wise mod p.
func (f *Field) addScaled(z, s, a uint64) uint64 {
	var r, pw uint64 = 0, 1
	for i := 0; i < f.k; i++ {
		d := (z/pw%f.p + s*(a/pw%f.p)) % f.p
		r += d * pw
		pw *= f.p
	}
	return r
}

func (f *Field) powPacked(a, e uint64) uint64 {
	z := uint64(1)
	for ; e > 0; e >>= 1 {
		if e&1 == 1 {
			z = f.mulPacked(z, a)
		}
		a = f.mulPacked(a, a)
	}
	return z
}

// primeFactors returns the distinct prime divisors of n.
func primeFactors(n uint64) []uint64 {
	var ps []uint64
	for d := uint64(2); d*d <= n; d++ {
		if n%d == 0 {
			ps = append(ps, d)
			for n%d == 0 {
				n /= d
			}
		}
	}
	if n > 1 {
		ps = append(ps, n)
	}
	return ps
}

// valid reports whether e is a code of this field.
func (f *Field) valid(e Elem) bool { return uint64(e) < f.q }

// Add returns a + b.
func (f *Field) Add(a, b Elem) Elem {
	if f.k == 1 {
		return Elem((uint64(a) + uint64(b)) % f.p)
	}
	var r, pw uint64 = 0, 1
	ua, ub := uint64(a), uint64(b)
	for i := 0; i < f.k; i++ {
		d := (ua/pw%f.p + ub/pw%f.p) % f.p
		r += d * pw
		pw *= f.p
	}
	return Elem(r)
}

// Neg returns -a.
func (f *Field) Neg(a Elem) Elem {
	var r, pw uint64 = 0, 1
	ua := uint64(a)
	for i := 0; i < f.k; i++ {
		d := (f.p - ua/pw%f.p) % f.p
		r += d * pw
		pw *= f.p
	}
	return Elem(r)
}

// Sub returns a - b.
func (f *Field) Sub(a, b Elem) Elem {
	return f.Add(a, f.Neg(b))
}

// Mul returns a·b.
func (f *Field) Mul(a, b Elem) Elem {
	if a == 0 || b == 0 {
		return 0
	}
	i := (uint64(f.log[a]) + uint64(f.log[b])) % (f.q - 1)
	return f.exp[i]
}

// Inv returns the multiplicative inverse of a, or an error for a = 0.
func (f *Field) Inv(a Elem) (Elem, error) {
	if a == 0 {
		return 0, fmt.Errorf("cannot Inv: zero has no inverse in %v", f)
	}
	i := (f.q - 1 - uint64(f.log[a])) % (f.q - 1)
	return f.exp[i], nil
}

// Pow returns a^e. Negative exponents invert; 0^0 is 1 and 0 raised to
// a negative exponent is an error.
func (f *Field) Pow(a Elem, e int64) (Elem, error) {
	if a == 0 {
		switch {
		case e == 0:
			return 1, nil
		case e > 0:
			return 0, nil
		default:
			return 0, fmt.Errorf("cannot Pow: zero to negative exponent in %v", f)
		}
	}
	n := int64(f.q - 1)
	r := e % n
	if r < 0 {
		r += n
	}
	i := uint64(f.log[a]) * uint64(r) % (f.q - 1)
	return f.exp[i], nil
}

// Frobenius returns a^p, the field's Frobenius automorphism. Applied k
// times it is the identity.
func (f *Field) Frobenius(a Elem) Elem {
	r, _ := f.Pow(a, int64(f.p)) // p > 0, cannot fail
	return r
}

// FrobeniusPow returns a^(p^j), the j-th power of the Frobenius
// automorphism. j is taken modulo k.
func (f *Field) FrobeniusPow(a Elem, j int) Elem {
	j %= f.k
	if j < 0 {
		j += f.k
	}
	if a == 0 || j == 0 {
		return a
	}
	pj := uint64(1)
	for i := 0; i < j; i++ {
		pj = pj * f.p % (f.q - 1)
	}
	i := uint64(f.log[a]) * pj % (f.q - 1)
	return f.exp[i]
}

// IsPrimitive reports whether a generates the multiplicative group.
func (f *Field) IsPrimitive(a Elem) bool {
	if a == 0 {
		return false
	}
	if f.q == 2 {
		return a == 1
	}
	return gcd64(uint64(f.log[a]), f.q-1) == 1
}

func gcd64(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// EachUnit calls fn for every nonzero element in generator-power order,
// stopping early if fn returns false.
func (f *Field) EachUnit(fn func(Elem) bool) {
	for _, e := range f.exp {
		if !fn(e) {
			return
		}
	}
}

// Rand draws a uniform element.
func (f *Field) Rand(prng randsrc.PRNG) (Elem, error) {
	v, err := prng.Uint64n(f.q)
	if err != nil {
		return 0, fmt.Errorf("cannot Rand in %v: %w", f, err)
	}
	return Elem(v), nil
}

// RandUnit draws a uniform nonzero element.
func (f *Field) RandUnit(prng randsrc.PRNG) (Elem, error) {
	v, err := prng.Uint64n(f.q - 1)
	if err != nil {
		return 0, fmt.Errorf("cannot RandUnit in %v: %w", f, err)
	}
	return f.exp[v], nil
}

// FormatElem renders a as a polynomial in t, e.g. "t^2+2t+1".
func (f *Field) FormatElem(a Elem) string {
	if !f.valid(a) {
		return fmt.Sprintf("<invalid %d>", uint64(a))
	}
	if a == 0 {
		return "0"
	}
	var s []byte
	ua := uint64(a)
	pw := f.q / f.p
	for i := f.k - 1; i >= 0; i-- {
		d := ua / pw % f.p
		pw /= f.p
		if d == 0 {
			continue
		}
		if len(s) > 0 {
			s = append(s, '+')
		}
		switch {
		case i == 0:
			s = append(s, fmt.Sprintf("%d", d)...)
		case i == 1:
			if d != 1 {
				s = append(s, fmt.Sprintf("%d", d)...)
			}
			s = append(s, 't')
		default:
			if d != 1 {
				s = append(s, fmt.Sprintf("%d", d)...)
			}
			s = append(s, fmt.Sprintf("t^%d", i)...)
		}
	}
	return string(s)
}
