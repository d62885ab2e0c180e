package mult

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fermatlab/gauss/internal/bigfft"
)

// Registry is a thread-safe catalogue of multiplication backends.
// Backends are registered as creators and instantiated lazily; instances
// are cached and shared, which is safe because all backends are
// stateless.
type Registry struct {
	mu        sync.RWMutex
	creators  map[string]func() coreMultiplier
	instances map[string]Multiplier
}

// NewRegistry creates a registry with the standard backends registered:
//
//   - "big": math/big only (oracle)
//   - "karatsuba": pooled Karatsuba for all sizes
//   - "fft": adaptive math/big → Karatsuba → FFT tiering
//
// The "gmp" backend joins under the gmp build tag.
func NewRegistry() *Registry {
	r := &Registry{
		creators:  make(map[string]func() coreMultiplier),
		instances: make(map[string]Multiplier),
	}
	_ = r.Register("big", func() coreMultiplier { return stdlibCore{} })
	_ = r.Register("karatsuba", func() coreMultiplier { return karatsubaCore{} })
	_ = r.Register("fft", func() coreMultiplier { return fftCore{} })
	return r
}

// Register adds or replaces a backend. The creator runs lazily on first
// Get.
func (r *Registry) Register(name string, creator func() coreMultiplier) error {
	if creator == nil {
		return fmt.Errorf("mult: nil creator for %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creators[name] = creator
	delete(r.instances, name)
	return nil
}

// Get returns the shared instance of a backend, creating it on first
// use.
func (r *Registry) Get(name string) (Multiplier, error) {
	r.mu.RLock()
	if m, ok := r.instances[name]; ok {
		r.mu.RUnlock()
		return m, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.instances[name]; ok {
		return m, nil
	}
	creator, ok := r.creators[name]
	if !ok {
		return nil, fmt.Errorf("mult: unknown multiplier %q", name)
	}
	m := NewMultiplier(creator())
	r.instances[name] = m
	return m, nil
}

// Create returns a fresh, uncached instance of a backend.
func (r *Registry) Create(name string) (Multiplier, error) {
	r.mu.RLock()
	creator, ok := r.creators[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("mult: unknown multiplier %q", name)
	}
	return NewMultiplier(creator()), nil
}

// MustGet is Get for backends that are required to exist; it panics on
// unknown names.
func (r *Registry) MustGet(name string) Multiplier {
	m, err := r.Get(name)
	if err != nil {
		panic(fmt.Sprintf("mult: required multiplier not registered: %s", name))
	}
	return m
}

// Has reports whether a backend name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.creators[name]
	return ok
}

// Names returns the registered backend names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.creators))
	for name := range r.creators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns instances of every registered backend, keyed by name.
func (r *Registry) All() map[string]Multiplier {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, creator := range r.creators {
		if _, ok := r.instances[name]; !ok {
			r.instances[name] = NewMultiplier(creator())
		}
	}
	out := make(map[string]Multiplier, len(r.instances))
	for name, m := range r.instances {
		out[name] = m
	}
	return out
}

// core resolves the raw backend for package-internal callers (the
// doubling loop) that need destination-reusing operations.
func (r *Registry) core(name string) (coreMultiplier, error) {
	r.mu.RLock()
	creator, ok := r.creators[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("mult: unknown multiplier %q", name)
	}
	return creator(), nil
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// Register adds a backend to the default registry.
func Register(name string, creator func() coreMultiplier) error {
	return defaultRegistry.Register(name, creator)
}

// Get resolves a backend from the default registry.
func Get(name string) (Multiplier, error) { return defaultRegistry.Get(name) }

// Names lists the default registry's backends in sorted order.
func Names() []string { return defaultRegistry.Names() }

// AutoSelect picks a backend name for operands of the given bit size:
// math/big for small operands, Karatsuba for the middle band, the
// adaptive FFT backend above the current bigfft threshold. Calibration
// shifts the bands by adjusting the package thresholds.
func AutoSelect(bits int) string {
	words := (bits + 63) / 64
	switch {
	case words <= DefaultKaratsubaTierWords:
		return "big"
	case words <= bigfft.FFTThreshold():
		return "karatsuba"
	default:
		return "fft"
	}
}
