package bigfft

import (
	"math/big"
	"math/rand"
	"sync"
	"testing"
)

// cacheTestSetup points the cache at small operands and restores the
// default configuration afterwards.
func cacheTestSetup(t *testing.T, cfg TransformCacheConfig) {
	t.Helper()
	ResetTransformCache()
	SetTransformCacheConfig(cfg)
	t.Cleanup(func() {
		SetTransformCacheConfig(DefaultTransformCacheConfig())
		ResetTransformCache()
	})
}

func TestTransformCacheHits(t *testing.T) {
	forceFFT(t)
	cacheTestSetup(t, TransformCacheConfig{MaxEntries: 16, MinBitLen: 64, Enabled: true})

	rnd := rand.New(rand.NewSource(51))
	x := randInt(rnd, 3000)
	y := randInt(rnd, 3000)
	want := new(big.Int).Mul(x, y)

	r1, err := Mul(x, y)
	if err != nil {
		t.Fatal(err)
	}
	after1 := TransformCacheStats()
	if after1.Misses < 2 {
		t.Errorf("first multiply: misses = %d, want at least 2", after1.Misses)
	}
	if after1.Entries < 2 {
		t.Errorf("first multiply: entries = %d, want at least 2", after1.Entries)
	}

	r2, err := Mul(x, y)
	if err != nil {
		t.Fatal(err)
	}
	after2 := TransformCacheStats()
	if after2.Hits < 2 {
		t.Errorf("second multiply: hits = %d, want at least 2", after2.Hits)
	}

	if r1.Cmp(want) != 0 || r2.Cmp(want) != 0 {
		t.Fatal("cached multiplication returned a wrong product")
	}
}

// A cached transform must stay pristine while multiplications mutate
// their private copies.
func TestTransformCachePrivacy(t *testing.T) {
	forceFFT(t)
	cacheTestSetup(t, TransformCacheConfig{MaxEntries: 16, MinBitLen: 64, Enabled: true})

	rnd := rand.New(rand.NewSource(52))
	x := randInt(rnd, 2500)
	y1 := randInt(rnd, 2500)
	y2 := randInt(rnd, 2500)

	r1, err := Mul(x, y1)
	if err != nil {
		t.Fatal(err)
	}
	if want := new(big.Int).Mul(x, y1); r1.Cmp(want) != 0 {
		t.Fatal("first product wrong")
	}
	// Same x: its transform comes from the cache this time.
	r2, err := Mul(x, y2)
	if err != nil {
		t.Fatal(err)
	}
	if want := new(big.Int).Mul(x, y2); r2.Cmp(want) != 0 {
		t.Fatal("second product wrong after cache hit")
	}
	// And once more with the first pair.
	r3, err := Mul(x, y1)
	if err != nil {
		t.Fatal(err)
	}
	if want := new(big.Int).Mul(x, y1); r3.Cmp(want) != 0 {
		t.Fatal("third product wrong after repeated hits")
	}
}

func TestTransformCacheEviction(t *testing.T) {
	forceFFT(t)
	cacheTestSetup(t, TransformCacheConfig{MaxEntries: 2, MinBitLen: 64, Enabled: true})

	rnd := rand.New(rand.NewSource(53))
	for i := 0; i < 3; i++ {
		x := randInt(rnd, 2000)
		y := randInt(rnd, 2000)
		want := new(big.Int).Mul(x, y)
		got, err := Mul(x, y)
		if err != nil {
			t.Fatal(err)
		}
		if got.Cmp(want) != 0 {
			t.Fatalf("round %d: wrong product", i)
		}
	}
	st := TransformCacheStats()
	if st.Entries > 2 {
		t.Errorf("entries = %d, want at most 2", st.Entries)
	}
	if st.Evictions == 0 {
		t.Error("expected evictions with MaxEntries=2")
	}
}

func TestTransformCacheDisabled(t *testing.T) {
	forceFFT(t)
	cacheTestSetup(t, TransformCacheConfig{MaxEntries: 16, MinBitLen: 64, Enabled: false})

	rnd := rand.New(rand.NewSource(54))
	x := randInt(rnd, 2000)
	y := randInt(rnd, 2000)
	want := new(big.Int).Mul(x, y)
	got, err := Mul(x, y)
	if err != nil {
		t.Fatal(err)
	}
	if got.Cmp(want) != 0 {
		t.Fatal("wrong product with cache disabled")
	}
	st := TransformCacheStats()
	if st.Hits != 0 || st.Misses != 0 || st.Entries != 0 {
		t.Errorf("disabled cache saw traffic: %+v", st)
	}
}

func TestTransformCacheMinBitLen(t *testing.T) {
	forceFFT(t)
	cacheTestSetup(t, TransformCacheConfig{MaxEntries: 16, MinBitLen: 1 << 30, Enabled: true})

	rnd := rand.New(rand.NewSource(55))
	x := randInt(rnd, 2000)
	if _, err := Mul(x, x); err != nil {
		t.Fatal(err)
	}
	st := TransformCacheStats()
	if st.Misses != 0 || st.Entries != 0 {
		t.Errorf("small operands reached the cache: %+v", st)
	}
}

func TestComputeKey(t *testing.T) {
	a := nat{1, 2, 3}
	b := nat{1, 2, 3}
	c := nat{1, 2, 4}
	if computeKey(a, 4, 10) != computeKey(b, 4, 10) {
		t.Error("equal inputs produced different keys")
	}
	if computeKey(a, 4, 10) == computeKey(c, 4, 10) {
		t.Error("different words produced the same key")
	}
	if computeKey(a, 4, 10) == computeKey(a, 5, 10) {
		t.Error("different k produced the same key")
	}
	if computeKey(a, 4, 10) == computeKey(a, 4, 11) {
		t.Error("different n produced the same key")
	}
	// Word content that only differs across a batching boundary.
	long := make(nat, 70)
	long2 := make(nat, 70)
	for i := range long {
		long[i] = big.Word(i)
		long2[i] = big.Word(i)
	}
	long2[69] ^= 1
	if computeKey(long, 4, 10) == computeKey(long2, 4, 10) {
		t.Error("tail difference not reflected in key")
	}
}

func TestSetTransformCacheConfigShrinks(t *testing.T) {
	forceFFT(t)
	cacheTestSetup(t, TransformCacheConfig{MaxEntries: 8, MinBitLen: 64, Enabled: true})

	rnd := rand.New(rand.NewSource(56))
	for i := 0; i < 3; i++ {
		x := randInt(rnd, 2000)
		y := randInt(rnd, 2000)
		if _, err := Mul(x, y); err != nil {
			t.Fatal(err)
		}
	}
	if st := TransformCacheStats(); st.Entries < 3 {
		t.Fatalf("setup produced %d entries, want at least 3", st.Entries)
	}
	SetTransformCacheConfig(TransformCacheConfig{MaxEntries: 1, MinBitLen: 64, Enabled: true})
	if st := TransformCacheStats(); st.Entries > 1 {
		t.Errorf("entries = %d after shrink, want at most 1", st.Entries)
	}
}

// Concurrent multiplies share the cache and the buffer pools; a repeated
// operand makes every goroutine hit the same entry while the others
// insert fresh ones. Run under -race this covers the whole pipeline's
// shared state.
func TestTransformCacheConcurrentMul(t *testing.T) {
	forceFFT(t)
	cacheTestSetup(t, TransformCacheConfig{MaxEntries: 32, MinBitLen: 64, Enabled: true})

	rnd := rand.New(rand.NewSource(97))
	shared := randInt(rnd, 4000)
	others := make([]*big.Int, 8)
	wants := make([]*big.Int, len(others))
	for i := range others {
		others[i] = randInt(rnd, 3000+100*i)
		wants[i] = new(big.Int).Mul(shared, others[i])
	}

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for round := 0; round < 3; round++ {
				for i, y := range others {
					got, err := Mul(shared, y)
					if err != nil {
						t.Errorf("Mul: %v", err)
						return
					}
					if got.Cmp(wants[i]) != 0 {
						t.Errorf("concurrent Mul mismatch on operand %d", i)
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	if st := TransformCacheStats(); st.Hits == 0 {
		t.Error("repeated operand never hit the cache")
	}
}
