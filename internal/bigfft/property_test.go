package bigfft

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestRingLaws_PropertyBased verifies that FFT multiplication behaves as
// integer multiplication must: commutative, distributive over addition,
// and in agreement with math/big on every input.
func TestRingLaws_PropertyBased(t *testing.T) {
	forceFFT(t)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("Mul is commutative and matches math/big", prop.ForAll(
		func(seed int64, xBits, yBits int) bool {
			rnd := rand.New(rand.NewSource(seed))
			x := randInt(rnd, xBits)
			y := randInt(rnd, yBits)
			xy, err := Mul(x, y)
			if err != nil {
				t.Logf("Mul: %v", err)
				return false
			}
			yx, err := Mul(y, x)
			if err != nil {
				t.Logf("Mul: %v", err)
				return false
			}
			want := new(big.Int).Mul(x, y)
			return xy.Cmp(want) == 0 && yx.Cmp(want) == 0
		},
		gen.Int64(),
		gen.IntRange(1100, 4000),
		gen.IntRange(1100, 4000),
	))

	properties.Property("Mul distributes over addition", prop.ForAll(
		func(seed int64, bits int) bool {
			rnd := rand.New(rand.NewSource(seed))
			x := randInt(rnd, bits)
			y := randInt(rnd, bits)
			z := randInt(rnd, bits)
			sum := new(big.Int).Add(y, z)
			left, err := Mul(x, sum)
			if err != nil {
				return false
			}
			xy, err := Mul(x, y)
			if err != nil {
				return false
			}
			xz, err := Mul(x, z)
			if err != nil {
				return false
			}
			return left.Cmp(new(big.Int).Add(xy, xz)) == 0
		},
		gen.Int64(),
		gen.IntRange(1100, 3000),
	))

	properties.Property("Sqr agrees with Mul", prop.ForAll(
		func(seed int64, bits int) bool {
			rnd := rand.New(rand.NewSource(seed))
			x := randInt(rnd, bits)
			sq, err := Sqr(x)
			if err != nil {
				return false
			}
			xx, err := Mul(x, x)
			if err != nil {
				return false
			}
			return sq.Cmp(xx) == 0
		},
		gen.Int64(),
		gen.IntRange(1100, 4000),
	))

	properties.TestingRun(t)
}

// TestMulModFermat_PropertyBased verifies modular multiplication against
// math/big for arbitrary operands, including negatives and values far
// beyond the modulus.
func TestMulModFermat_PropertyBased(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("residue matches math/big", prop.ForAll(
		func(seed int64, words int, negX, negY bool) bool {
			rnd := rand.New(rand.NewSource(seed))
			m := fermatModulus(words)
			span := new(big.Int).Lsh(big.NewInt(1), uint(3*words*_W))
			x := new(big.Int).Rand(rnd, span)
			y := new(big.Int).Rand(rnd, span)
			if negX {
				x.Neg(x)
			}
			if negY {
				y.Neg(y)
			}
			got, err := MulModFermat(x, y, words)
			if err != nil {
				t.Logf("MulModFermat: %v", err)
				return false
			}
			want := new(big.Int).Mul(x, y)
			want.Mod(want, m)
			return got.Cmp(want) == 0
		},
		gen.Int64(),
		gen.IntRange(1, 24),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// TestScan_PropertyBased verifies that decimal parsing inverts decimal
// formatting.
func TestScan_PropertyBased(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("FromDecimalString inverts String", prop.ForAll(
		func(seed int64, bits int) bool {
			rnd := rand.New(rand.NewSource(seed))
			x := randInt(rnd, bits)
			parsed, err := FromDecimalString(x.String())
			if err != nil {
				t.Logf("FromDecimalString: %v", err)
				return false
			}
			return parsed.Cmp(x) == 0
		},
		gen.Int64(),
		gen.IntRange(1, 60000),
	))

	properties.TestingRun(t)
}

// TestKaratsuba_PropertyBased verifies the explicit Karatsuba entry point
// against math/big.
func TestKaratsuba_PropertyBased(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("KaratsubaMultiply matches math/big", prop.ForAll(
		func(seed int64, xBits, yBits int, negX bool) bool {
			rnd := rand.New(rand.NewSource(seed))
			x := randInt(rnd, xBits)
			y := randInt(rnd, yBits)
			if negX {
				x.Neg(x)
			}
			return KaratsubaMultiply(x, y).Cmp(new(big.Int).Mul(x, y)) == 0
		},
		gen.Int64(),
		gen.IntRange(1, 20000),
		gen.IntRange(1, 20000),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
