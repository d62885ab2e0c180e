package mult

import (
	"math/big"
	"slices"
	"sync"
	"testing"

	"github.com/fermatlab/gauss/internal/bigfft"
)

// mockCore is a trivial coreMultiplier for registry tests.
type mockCore struct{}

func (mockCore) Name() string { return "mock" }
func (mockCore) MultiplyInto(z, x, y *big.Int, opts Options) (*big.Int, error) {
	if z == nil {
		z = new(big.Int)
	}
	return z.Mul(x, y), nil
}
func (mockCore) SquareInto(z, x *big.Int, opts Options) (*big.Int, error) {
	if z == nil {
		z = new(big.Int)
	}
	return z.Mul(x, x), nil
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	t.Run("standard backends present", func(t *testing.T) {
		for _, name := range []string{"big", "karatsuba", "fft"} {
			if !r.Has(name) {
				t.Errorf("registry should have %q", name)
			}
		}
	})

	t.Run("register and has", func(t *testing.T) {
		if err := r.Register("test", func() coreMultiplier { return mockCore{} }); err != nil {
			t.Fatalf("Register: %v", err)
		}
		if !r.Has("test") {
			t.Error("registry should know the backend it just registered")
		}
		if r.Has("nonexistent") {
			t.Error("registry should not claim an unregistered backend")
		}
	})

	t.Run("nil creator rejected", func(t *testing.T) {
		if err := r.Register("broken", nil); err == nil {
			t.Error("Register should reject a nil creator")
		}
	})

	t.Run("get caches the instance", func(t *testing.T) {
		m1, err := r.Get("test")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		m2, err := r.Get("test")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if m1 != m2 {
			t.Error("a second Get should hand back the same instance")
		}
		if _, err := r.Get("nonexistent"); err == nil {
			t.Error("Get should fail for an unknown backend")
		}
	})

	t.Run("create is always fresh", func(t *testing.T) {
		m, err := r.Create("test")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if m == nil {
			t.Fatal("Create returned nil multiplier")
		}
		cached, _ := r.Get("test")
		if m == cached {
			t.Error("Create should never hand back the cached instance")
		}
		if _, err := r.Create("nonexistent"); err == nil {
			t.Error("Create should fail for an unknown backend")
		}
	})

	t.Run("must get panics on unknown", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("MustGet should panic for an unknown backend")
			}
		}()
		_ = r.MustGet("test")
		_ = r.MustGet("nonexistent")
	})

	t.Run("names sorted", func(t *testing.T) {
		names := r.Names()
		if !slices.IsSorted(names) {
			t.Errorf("Names should come back sorted, got %v", names)
		}
		if !slices.Contains(names, "test") {
			t.Errorf("Names should include the registered backend, got %v", names)
		}
	})

	t.Run("all includes registered", func(t *testing.T) {
		all := r.All()
		if len(all) != len(r.Names()) {
			t.Errorf("All returned %d backends, Names %d", len(all), len(r.Names()))
		}
		if _, ok := all["test"]; !ok {
			t.Error("All should include the registered backend")
		}
	})

	t.Run("re-register drops the cache", func(t *testing.T) {
		before, _ := r.Get("test")
		if err := r.Register("test", func() coreMultiplier { return mockCore{} }); err != nil {
			t.Fatalf("Register: %v", err)
		}
		after, _ := r.Get("test")
		if before == after {
			t.Error("re-registering should drop the cached instance")
		}
	})
}

func TestDefaultRegistry(t *testing.T) {
	t.Parallel()
	if Default() == nil {
		t.Fatal("Default returned nil")
	}
	if err := Register("registry_test_backend", func() coreMultiplier { return mockCore{} }); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !Default().Has("registry_test_backend") {
		t.Error("default registry should have 'registry_test_backend'")
	}
	m, err := Get("registry_test_backend")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if m.Name() != "mock" {
		t.Errorf("unexpected backend name %q", m.Name())
	}
	names := Names()
	if len(names) < 3 {
		t.Errorf("expected at least the standard backends, got %v", names)
	}
}

// TestRegistryConcurrentAccess hammers the registry from many goroutines.
// Run with -race to verify the locking discipline.
func TestRegistryConcurrentAccess(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	const goroutines = 16
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				switch i % 4 {
				case 0:
					_ = r.Register("churn", func() coreMultiplier { return mockCore{} })
				case 1:
					if _, err := r.Get("fft"); err != nil {
						t.Errorf("Get(fft) failed: %v", err)
					}
				case 2:
					_ = r.Names()
				default:
					_ = r.Has("big")
				}
			}
		}(g)
	}
	wg.Wait()

	first, err := r.Get("fft")
	if err != nil {
		t.Fatalf("Get failed after churn: %v", err)
	}
	second, _ := r.Get("fft")
	if first != second {
		t.Error("instance caching broke under concurrency")
	}
}

func TestAutoSelect(t *testing.T) {
	t.Parallel()
	fftWords := bigfft.FFTThreshold()

	tests := []struct {
		name string
		bits int
		want string
	}{
		{"tiny", 64, "big"},
		{"small boundary", DefaultKaratsubaTierWords * 64, "big"},
		{"mid band", (DefaultKaratsubaTierWords + 1) * 64, "karatsuba"},
		{"below fft", fftWords * 64, "karatsuba"},
		{"above fft", (fftWords + 1) * 64, "fft"},
		{"huge", 100_000_000, "fft"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AutoSelect(tt.bits); got != tt.want {
				t.Errorf("AutoSelect(%d) = %q, want %q", tt.bits, got, tt.want)
			}
			if !Default().Has(AutoSelect(tt.bits)) {
				t.Errorf("AutoSelect(%d) returned unregistered backend", tt.bits)
			}
		})
	}
}
