package bigfft

import (
	"fmt"
	"math/big"
	"math/rand"
	"strings"
	"testing"
)

// forceFFT lowers the crossover so that modest operands take the FFT
// path, and restores the default when the test ends.
func forceFFT(t *testing.T) {
	t.Helper()
	SetFFTThreshold(16)
	t.Cleanup(func() { SetFFTThreshold(0) })
}

// randInt returns a uniformly random integer of exactly the given bit length.
func randInt(rnd *rand.Rand, bits int) *big.Int {
	v := new(big.Int).Rand(rnd, new(big.Int).Lsh(big.NewInt(1), uint(bits-1)))
	return v.SetBit(v, bits-1, 1)
}

func TestMulOracle(t *testing.T) {
	forceFFT(t)
	rnd := rand.New(rand.NewSource(1))
	sizes := []int{1100, 1500, 2048, 3000, 8192, 30000, 100001}
	for _, xb := range sizes {
		for _, yb := range sizes {
			x := randInt(rnd, xb)
			y := randInt(rnd, yb)
			got, err := Mul(x, y)
			if err != nil {
				t.Fatalf("Mul(%d,%d bits): %v", xb, yb, err)
			}
			want := new(big.Int).Mul(x, y)
			if got.Cmp(want) != 0 {
				t.Fatalf("Mul(%d,%d bits): wrong product", xb, yb)
			}
		}
	}
}

func TestMulSigns(t *testing.T) {
	forceFFT(t)
	rnd := rand.New(rand.NewSource(2))
	x := randInt(rnd, 4000)
	y := randInt(rnd, 3500)
	for _, sx := range []int{1, -1} {
		for _, sy := range []int{1, -1} {
			a := new(big.Int).Mul(x, big.NewInt(int64(sx)))
			b := new(big.Int).Mul(y, big.NewInt(int64(sy)))
			got, err := Mul(a, b)
			if err != nil {
				t.Fatalf("Mul signs (%d,%d): %v", sx, sy, err)
			}
			want := new(big.Int).Mul(a, b)
			if got.Cmp(want) != 0 {
				t.Fatalf("Mul signs (%d,%d): wrong product", sx, sy)
			}
		}
	}
}

func TestMulSmallAndZero(t *testing.T) {
	cases := []struct{ x, y int64 }{
		{0, 0}, {0, 5}, {7, 0}, {1, 1}, {-1, 1}, {3, -4}, {-6, -7},
	}
	for _, c := range cases {
		got, err := Mul(big.NewInt(c.x), big.NewInt(c.y))
		if err != nil {
			t.Fatalf("Mul(%d,%d): %v", c.x, c.y, err)
		}
		if got.Int64() != c.x*c.y {
			t.Errorf("Mul(%d,%d) = %v, want %d", c.x, c.y, got, c.x*c.y)
		}
	}
	if _, err := Mul(nil, big.NewInt(1)); err == nil {
		t.Error("Mul(nil, 1): expected error")
	}
	if _, err := Mul(big.NewInt(1), nil); err == nil {
		t.Error("Mul(1, nil): expected error")
	}
}

func TestMulTo(t *testing.T) {
	forceFFT(t)
	rnd := rand.New(rand.NewSource(3))
	x := randInt(rnd, 5000)
	y := randInt(rnd, 5000)
	want := new(big.Int).Mul(x, y)

	z := new(big.Int)
	got, err := MulTo(z, x, y)
	if err != nil {
		t.Fatalf("MulTo: %v", err)
	}
	if got != z {
		t.Error("MulTo did not return its destination")
	}
	if z.Cmp(want) != 0 {
		t.Fatal("MulTo: wrong product")
	}

	// Destination aliasing an operand.
	a := new(big.Int).Set(x)
	if _, err := MulTo(a, a, y); err != nil {
		t.Fatalf("MulTo aliased: %v", err)
	}
	if a.Cmp(want) != 0 {
		t.Fatal("MulTo aliased: wrong product")
	}
}

func TestSqrOracle(t *testing.T) {
	forceFFT(t)
	rnd := rand.New(rand.NewSource(4))
	for _, bits := range []int{1100, 2048, 10000, 65537} {
		x := randInt(rnd, bits)
		got, err := Sqr(x)
		if err != nil {
			t.Fatalf("Sqr(%d bits): %v", bits, err)
		}
		want := new(big.Int).Mul(x, x)
		if got.Cmp(want) != 0 {
			t.Fatalf("Sqr(%d bits): wrong square", bits)
		}

		neg := new(big.Int).Neg(x)
		got, err = Sqr(neg)
		if err != nil {
			t.Fatalf("Sqr(-x, %d bits): %v", bits, err)
		}
		if got.Cmp(want) != 0 {
			t.Fatalf("Sqr(-x, %d bits): wrong square", bits)
		}
	}
}

// Repunit squares have a closed form: (10^n-1)/9 squared is a palindrome of
// digit runs, so (10^n-1)² = 10^2n - 2·10^n + 1 is checkable without an
// oracle multiplication.
func TestSqrClosedForm(t *testing.T) {
	forceFFT(t)
	n := 40000
	nines, ok := new(big.Int).SetString(strings.Repeat("9", n), 10)
	if !ok {
		t.Fatal("SetString failed")
	}
	got, err := Sqr(nines)
	if err != nil {
		t.Fatalf("Sqr: %v", err)
	}
	ten := big.NewInt(10)
	want := new(big.Int).Exp(ten, big.NewInt(int64(2*n)), nil)
	sub := new(big.Int).Exp(ten, big.NewInt(int64(n)), nil)
	sub.Lsh(sub, 1)
	want.Sub(want, sub)
	want.Add(want, big.NewInt(1))
	if got.Cmp(want) != 0 {
		t.Fatal("repunit square mismatch")
	}
}

func TestPowersOfTwo(t *testing.T) {
	forceFFT(t)
	for _, e := range []uint{1100, 4096, 20000} {
		x := new(big.Int).Lsh(big.NewInt(1), e)
		got, err := Mul(x, x)
		if err != nil {
			t.Fatalf("Mul(2^%d, 2^%d): %v", e, e, err)
		}
		want := new(big.Int).Lsh(big.NewInt(1), 2*e)
		if got.Cmp(want) != 0 {
			t.Fatalf("2^%d · 2^%d: wrong product", e, e)
		}
	}
}

func TestFFTParams(t *testing.T) {
	cases := []struct {
		words int
		k     uint
	}{
		{10, 3},
		{100, 4},
		{200, 5},
		{1800, 8},
		{4 << 10, 9},
		{5000, 9},
		{1 << 16, 11},
	}
	for _, c := range cases {
		k, m := FFTParams(c.words)
		if k != c.k {
			t.Errorf("FFTParams(%d): k = %d, want %d", c.words, k, c.k)
		}
		if (m-1)<<k > c.words || m<<k < c.words {
			t.Errorf("FFTParams(%d): m = %d does not cover the input at k = %d", c.words, m, k)
		}
	}
}

func TestValueSize(t *testing.T) {
	for _, k := range []uint{3, 5, 8, 11} {
		for _, m := range []int{1, 7, 100, 1801} {
			n := ValueSize(k, m, 0)
			bits := n * _W
			if bits < 2*m*_W+int(k) {
				t.Errorf("ValueSize(%d,%d): %d words cannot hold coefficients", k, m, n)
			}
			g := 1 << k
			if g < _W {
				g = _W
			}
			if bits%g != 0 {
				t.Errorf("ValueSize(%d,%d): %d bits not aligned to %d", k, m, bits, g)
			}
		}
	}
}

func TestFFTThresholdClamp(t *testing.T) {
	defer SetFFTThreshold(0)
	SetFFTThreshold(5)
	if got := FFTThreshold(); got != 16 {
		t.Errorf("threshold clamped to %d, want 16", got)
	}
	SetFFTThreshold(0)
	if got := FFTThreshold(); got != defaultFFTThresholdWords {
		t.Errorf("threshold reset to %d, want %d", got, defaultFFTThresholdWords)
	}
	SetFFTThreshold(2400)
	if got := FFTThreshold(); got != 2400 {
		t.Errorf("threshold = %d, want 2400", got)
	}
}

func TestFftmulToDirect(t *testing.T) {
	// Exercises the low-level path on word slices directly, below the
	// public dispatch threshold.
	rnd := rand.New(rand.NewSource(5))
	for _, words := range []int{2, 3, 17, 64, 200} {
		xi := randInt(rnd, words*_W)
		yi := randInt(rnd, words*_W)
		x := nat(xi.Bits())
		y := nat(yi.Bits())
		r, err := fftmulTo(nil, x, y)
		if err != nil {
			t.Fatalf("fftmulTo(%d words): %v", words, err)
		}
		got := new(big.Int).SetBits(r)
		want := new(big.Int).Mul(xi, yi)
		if got.Cmp(want) != 0 {
			t.Fatalf("fftmulTo(%d words): wrong product", words)
		}
	}
}

func benchmarkMul(b *testing.B, bits int) {
	rnd := rand.New(rand.NewSource(1))
	x := randInt(rnd, bits)
	y := randInt(rnd, bits)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Mul(x, y); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMul1e5Bits(b *testing.B) { benchmarkMul(b, 1e5) }
func BenchmarkMul1e6Bits(b *testing.B) { benchmarkMul(b, 1e6) }
func BenchmarkMul1e7Bits(b *testing.B) { benchmarkMul(b, 1e7) }

func BenchmarkMulBig1e6Bits(b *testing.B) {
	rnd := rand.New(rand.NewSource(1))
	x := randInt(rnd, 1e6)
	y := randInt(rnd, 1e6)
	z := new(big.Int)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		z.Mul(x, y)
	}
}

func ExampleMul() {
	x, _ := new(big.Int).SetString("1"+strings.Repeat("0", 50), 10)
	z, err := Mul(x, x)
	if err != nil {
		panic(err)
	}
	fmt.Println(z.String() == "1"+strings.Repeat("0", 100))
	// Output: true
}
