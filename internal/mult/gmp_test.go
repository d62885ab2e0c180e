//go:build gmp

package mult

import (
	"context"
	"fmt"
	"math/big"
	"math/rand"
	"testing"
)

func TestGMPCoreRegistered(t *testing.T) {
	t.Parallel()
	if !Default().Has("gmp") {
		t.Fatal("gmp backend should self-register under the gmp build tag")
	}
	m, err := Get("gmp")
	if err != nil {
		t.Fatalf("Get(gmp) failed: %v", err)
	}
	if m.Name() != "GMP (cgo)" {
		t.Errorf("Name() = %q, want %q", m.Name(), "GMP (cgo)")
	}
}

func TestGMPCoreMatchesStdlib(t *testing.T) {
	t.Parallel()
	rnd := rand.New(rand.NewSource(29))
	m, err := Get("gmp")
	if err != nil {
		t.Fatalf("Get(gmp) failed: %v", err)
	}

	tests := []struct {
		name string
		x, y *big.Int
	}{
		{"small", big.NewInt(12345), big.NewInt(-6789)},
		{"zero", new(big.Int), randInt(rnd, 4_000)},
		{"large", randInt(rnd, 20_000), randInt(rnd, 21_000)},
		{"neg neg", new(big.Int).Neg(randInt(rnd, 9_000)), new(big.Int).Neg(randInt(rnd, 8_000))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := new(big.Int).Mul(tt.x, tt.y)
			got, err := m.Multiply(context.Background(), tt.x, tt.y, Options{}, nil)
			if err != nil {
				t.Fatalf("Multiply failed: %v", err)
			}
			if got.Cmp(want) != 0 {
				t.Errorf("got %s, want %s", got, want)
			}
		})
	}
}

func TestGMPFibonacci(t *testing.T) {
	t.Parallel()
	got, err := Fibonacci(context.Background(), 100, "gmp", Options{}, nil)
	if err != nil {
		t.Fatalf("Fibonacci(100, gmp) failed: %v", err)
	}
	if got.String() != "354224848179261915075" {
		t.Errorf("F(100) = %s, want 354224848179261915075", got)
	}
}

// BenchmarkGMPMultiply allows comparison against the pure-Go backends.
func BenchmarkGMPMultiply(b *testing.B) {
	rnd := rand.New(rand.NewSource(31))
	m, err := Get("gmp")
	if err != nil {
		b.Fatalf("Get(gmp) failed: %v", err)
	}

	for _, bits := range []int{10_000, 100_000, 1_000_000} {
		x := randInt(rnd, bits)
		y := randInt(rnd, bits)
		b.Run(fmt.Sprintf("bits=%d", bits), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = m.Multiply(context.Background(), x, y, Options{}, nil)
			}
		})
	}
}
