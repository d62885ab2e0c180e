package bigfft

// Host CPU capabilities, filled in by the architecture-specific detector
// at init. Detection never selects a code path inside this package; the
// flags describe the host so calibration can key profiles to it and seed
// its threshold heuristics.
var (
	simdLevel    SIMDLevel
	hasFastCarry bool
)

// SIMDLevel classifies the widest vector extension available on the host.
type SIMDLevel int

const (
	// SIMDNone means no vector extension was detected, including every
	// architecture without a detector.
	SIMDNone SIMDLevel = iota
	// SIMDAVX2 means 256-bit vectors are available.
	SIMDAVX2
	// SIMDAVX512 means 512-bit vectors with the F and DQ subsets are
	// available.
	SIMDAVX512
)

func (l SIMDLevel) String() string {
	switch l {
	case SIMDAVX512:
		return "AVX-512"
	case SIMDAVX2:
		return "AVX2"
	default:
		return "none"
	}
}

// CurrentSIMDLevel reports the widest vector extension detected on this
// host.
func CurrentSIMDLevel() SIMDLevel {
	return simdLevel
}

// HasFastCarryChains reports whether the CPU exposes BMI2 and ADX. The
// schoolbook and Karatsuba word loops are carry-chain bound, so these two
// extensions move the stdlib-vs-FFT crossover measurably.
func HasFastCarryChains() bool {
	return hasFastCarry
}

// CPUFeatureTag returns a short identifier of the detected features. It is
// embedded in calibration profile identities so a profile measured on one
// microarchitecture is not replayed on another.
func CPUFeatureTag() string {
	var tag string
	switch CurrentSIMDLevel() {
	case SIMDAVX512:
		tag = "avx512"
	case SIMDAVX2:
		tag = "avx2"
	default:
		tag = "base"
	}
	if hasFastCarry {
		tag += "+adx"
	}
	return tag
}
