package mult

const (
	// DefaultKaratsubaTierWords is the operand size in words above which
	// the adaptive backend prefers the pooled Karatsuba implementation
	// over math/big. Below it, math/big's own schoolbook/Karatsuba mix
	// wins on constant factors.
	DefaultKaratsubaTierWords = 32

	// DefaultParallelThresholdBits is the operand bit size above which
	// the three independent products of a doubling step are run on
	// separate goroutines. Below it, goroutine overhead dominates.
	DefaultParallelThresholdBits = 4096

	// ParallelFFTThresholdBits re-enables doubling-step parallelism for
	// FFT-sized operands. The FFT core saturates CPUs internally, so
	// running three transforms at once only pays off for very large
	// operands.
	ParallelFFTThresholdBits = 10_000_000

	// MaxPooledBitLen bounds the integers accepted back into the
	// doubling-state pool. Larger values are left to the GC.
	MaxPooledBitLen = 4_000_000

	// progressReportThreshold is the minimum progress delta before a new
	// update is pushed to the caller's channel.
	progressReportThreshold = 0.01
)
