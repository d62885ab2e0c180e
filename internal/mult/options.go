package mult

import "github.com/fermatlab/gauss/internal/bigfft"

// Options configures a multiplication.
type Options struct {
	// FFTThresholdWords is the operand size in 64-bit words above which
	// the adaptive backend switches to FFT multiplication. If 0, the
	// bigfft package threshold (possibly set by calibration) is used.
	FFTThresholdWords int
	// KaratsubaThreshold is the operand size in words above which the
	// adaptive backend switches from math/big to the pooled Karatsuba
	// implementation. If 0, DefaultKaratsubaTierWords is used.
	KaratsubaThreshold int
	// ParallelThresholdBits is the operand bit size above which
	// independent products (doubling steps, cross-checks) run
	// concurrently. If 0, DefaultParallelThresholdBits is used.
	ParallelThresholdBits int
	// Parallel enables concurrent execution of independent products.
	Parallel bool
	// CacheMinBitLen is the minimum operand bit length for transform
	// caching. If 0, the bigfft default applies.
	CacheMinBitLen int
	// CacheMaxEntries bounds the transform cache. If 0, the bigfft
	// default applies.
	CacheMaxEntries int
	// CacheEnabled toggles transform caching. Nil keeps the current
	// setting.
	CacheEnabled *bool
}

// normalizeOptions returns opts with defaults filled in for zero values
// so every backend sees the same effective thresholds.
func normalizeOptions(opts Options) Options {
	n := opts
	if n.FFTThresholdWords == 0 {
		n.FFTThresholdWords = bigfft.FFTThreshold()
	}
	if n.KaratsubaThreshold == 0 {
		n.KaratsubaThreshold = DefaultKaratsubaTierWords
	}
	if n.ParallelThresholdBits == 0 {
		n.ParallelThresholdBits = DefaultParallelThresholdBits
	}
	return n
}

// configureTransformCache pushes the cache-related options down into the
// bigfft transform cache. Zero values leave the current configuration
// untouched.
func configureTransformCache(opts Options) {
	if opts.CacheMaxEntries == 0 && opts.CacheMinBitLen == 0 && opts.CacheEnabled == nil {
		return
	}
	cfg := bigfft.DefaultTransformCacheConfig()
	if opts.CacheMaxEntries > 0 {
		cfg.MaxEntries = opts.CacheMaxEntries
	}
	if opts.CacheMinBitLen > 0 {
		cfg.MinBitLen = opts.CacheMinBitLen
	}
	if opts.CacheEnabled != nil {
		cfg.Enabled = *opts.CacheEnabled
	}
	bigfft.SetTransformCacheConfig(cfg)
}
