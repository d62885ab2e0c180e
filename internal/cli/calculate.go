package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/fermatlab/gauss/internal/bigfft"
	"github.com/fermatlab/gauss/internal/config"
	"github.com/fermatlab/gauss/internal/mult"
)

// SelectBackends resolves the configured backend selection against the
// registry. "all" yields every registered backend in name order, so that
// comparison runs are reproducible; any other name yields that single
// backend, or nil when the registry does not know it.
func SelectBackends(cfg config.AppConfig, reg *mult.Registry) []mult.Multiplier {
	if cfg.Backend == "all" {
		names := reg.Names() // Names() returns sorted keys
		multipliers := make([]mult.Multiplier, 0, len(names))
		for _, name := range names {
			if m, err := reg.Get(name); err == nil {
				multipliers = append(multipliers, m)
			}
		}
		return multipliers
	}
	if m, err := reg.Get(cfg.Backend); err == nil {
		return []mult.Multiplier{m}
	}
	return nil
}

// PrintRunConfig describes the run ahead of execution: the operands, the
// timeout, the host environment and the optimization thresholds. Threshold
// values of zero are resolved to the effective package defaults first.
func PrintRunConfig(cfg config.AppConfig, out io.Writer) {
	fmt.Fprintln(out, "--- Execution Configuration ---")
	switch {
	case cfg.Fib > 0:
		fmt.Fprintf(out, "Calculating %sF(%d)%s by fast doubling with a timeout of %s%s%s.\n",
			ColorMagenta(), cfg.Fib, ColorReset(), ColorYellow(), cfg.Timeout, ColorReset())
	case cfg.Synthesize():
		fmt.Fprintf(out, "Multiplying two synthesized %s%s-bit%s operands (seed %s%d%s) with a timeout of %s%s%s.\n",
			ColorMagenta(), groupThousands(fmt.Sprintf("%d", cfg.Bits)), ColorReset(),
			ColorCyan(), cfg.Seed, ColorReset(), ColorYellow(), cfg.Timeout, ColorReset())
	default:
		fmt.Fprintf(out, "Multiplying %s%d-digit%s and %s%d-digit%s operands with a timeout of %s%s%s.\n",
			ColorMagenta(), operandDigits(cfg.X), ColorReset(),
			ColorMagenta(), operandDigits(cfg.Y), ColorReset(),
			ColorYellow(), cfg.Timeout, ColorReset())
	}
	fmt.Fprintf(out, "Environment: Go %s%s%s on %s%d%s logical processors.\n",
		ColorCyan(), runtime.Version(), ColorReset(), ColorCyan(), runtime.NumCPU(), ColorReset())

	fftWords := cfg.FFTThreshold
	if fftWords == 0 {
		fftWords = bigfft.FFTThreshold()
	}
	karatsubaWords := cfg.KaratsubaThreshold
	if karatsubaWords == 0 {
		karatsubaWords = bigfft.KaratsubaThreshold()
	}
	fmt.Fprintf(out, "Optimization thresholds: Parallelism=%s%d%s bits, FFT=%s%d%s words, Karatsuba=%s%d%s words.\n",
		ColorCyan(), cfg.Threshold, ColorReset(),
		ColorCyan(), fftWords, ColorReset(),
		ColorCyan(), karatsubaWords, ColorReset())
}

// PrintBackendLineup announces whether the run is a single calculation or
// a parallel comparison across the whole lineup.
func PrintBackendLineup(multipliers []mult.Multiplier, out io.Writer) {
	mode := "Parallel comparison of all backends"
	if len(multipliers) == 1 {
		mode = fmt.Sprintf("Single calculation with the %s%s%s backend",
			ColorGreen(), multipliers[0].Name(), ColorReset())
	}
	fmt.Fprintf(out, "Execution mode: %s.\n", mode)
	fmt.Fprintln(out, "\n--- Starting Execution ---")
}

// operandDigits counts the decimal digits of an operand string, ignoring a
// leading sign.
func operandDigits(s string) int {
	return len(strings.TrimPrefix(s, "-"))
}
