// Package calibration measures multiplication crossover points on the
// current host. This file derives the candidate grids the sweeps walk,
// sized to the machine the binary finds itself on.
package calibration

import (
	"math/bits"
	"runtime"

	"github.com/fermatlab/gauss/internal/bigfft"
)

// ─────────────────────────────────────────────────────────────────────────────
// Candidate grids
// ─────────────────────────────────────────────────────────────────────────────

// parallelSweep returns the parallel threshold candidates, in operand bits,
// for a host with the given core count.
//
// One core gets the lone sequential candidate, since splitting can only add
// overhead there. Low core counts start the sweep high, where goroutine
// startup no longer dominates the split halves. High core counts reach
// further down so more of the recursion tree can fan out.
func parallelSweep(cpus int) []int {
	if cpus == 1 {
		return []int{0}
	}

	sweep := []int{0}
	switch {
	case cpus <= 4:
		sweep = append(sweep, 2048, 4096, 8192, 16384)
	case cpus <= 8:
		sweep = append(sweep, 1024, 2048, 4096, 8192, 16384)
	case cpus <= 16:
		sweep = append(sweep, 1024, 2048, 4096, 8192, 16384, 32768)
	default:
		sweep = append(sweep, 512, 1024, 2048, 4096, 8192, 16384, 32768)
	}
	return sweep
}

// quickParallelSweep is the reduced grid used when calibration runs at
// startup rather than on demand.
func quickParallelSweep(cpus int) []int {
	switch {
	case cpus == 1:
		return []int{0}
	case cpus <= 4:
		return []int{0, 4096, 8192}
	case cpus <= 8:
		return []int{0, 2048, 4096, 8192}
	default:
		return []int{0, 1024, 2048, 4096, 8192}
	}
}

// karatsubaSweep returns the Karatsuba candidates, in words. Below the
// crossover the schoolbook loop wins on split overhead alone. A 32-bit word
// carries half the payload, so such hosts need more of them before splitting
// pays.
func karatsubaSweep(wordBits int) []int {
	if wordBits == 64 {
		return []int{16, 24, 32, 48, 64, 96}
	}
	return []int{24, 32, 48, 64, 96, 128}
}

func quickKaratsubaSweep() []int {
	return []int{24, 32, 48}
}

// fftSweep returns the FFT candidates, in words. The crossover against
// Karatsuba tracks the memory hierarchy rather than the core count, so the
// grid only distinguishes word sizes.
func fftSweep(wordBits int) []int {
	if wordBits == 64 {
		return []int{900, 1200, 1800, 2700, 3600, 5400}
	}
	return []int{600, 900, 1200, 1800, 2400}
}

func quickFFTSweep() []int {
	return []int{1200, 1800, 2700}
}

// ThresholdSet is a complete candidate grid for one calibration run.
// Karatsuba and FFT are word counts, Parallel is a bit count.
type ThresholdSet struct {
	Karatsuba []int
	FFT       []int
	Parallel  []int
}

// FullThresholdSet assembles the grid for an on-demand sweep, sized to this
// host's core count and word size.
func FullThresholdSet() ThresholdSet {
	return ThresholdSet{
		Karatsuba: karatsubaSweep(bits.UintSize),
		FFT:       fftSweep(bits.UintSize),
		Parallel:  parallelSweep(runtime.NumCPU()),
	}
}

// QuickThresholdSet assembles the reduced grid used at startup.
func QuickThresholdSet() ThresholdSet {
	return ThresholdSet{
		Karatsuba: quickKaratsubaSweep(),
		FFT:       quickFFTSweep(),
		Parallel:  quickParallelSweep(runtime.NumCPU()),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// No-benchmark estimates
// ─────────────────────────────────────────────────────────────────────────────

// EstimatedParallelBits is the fallback parallel threshold when no
// measurement is available. More cores justify splitting smaller operands.
func EstimatedParallelBits() int {
	switch cpus := runtime.NumCPU(); {
	case cpus == 1:
		return 0
	case cpus <= 2:
		return 16384
	case cpus <= 4:
		return 8192
	case cpus <= 8:
		return 4096
	case cpus <= 16:
		return 2048
	default:
		return 1024
	}
}

// EstimatedKaratsubaWords is the fallback Karatsuba threshold when no
// measurement is available.
func EstimatedKaratsubaWords() int {
	if bits.UintSize == 64 {
		return 32
	}
	return 48
}

// EstimatedFFTWords is the fallback FFT threshold when no measurement is
// available.
func EstimatedFFTWords() int {
	if bits.UintSize == 64 {
		if bigfft.HasFastCarryChains() {
			// BMI2+ADX speed up the word loops, not the transform, so the
			// crossover moves up on such hosts.
			return 2700
		}
		return 1800
	}
	return 1200
}

// ClampThresholds forces each threshold into its legal range. Karatsuba and
// FFT are word counts, parallel is a bit count.
func ClampThresholds(karatsuba, fft, parallel int) (int, int, int) {
	clamp := func(v, ceiling int) int {
		if v < 0 {
			return 0
		}
		if v > ceiling {
			return ceiling
		}
		return v
	}
	return clamp(karatsuba, 1024), clamp(fft, 1000000), clamp(parallel, 1<<20)
}
