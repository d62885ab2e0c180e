package calibration

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fermatlab/gauss/internal/cli"
	"github.com/fermatlab/gauss/internal/config"
)

// printCalibrationResults renders the per-threshold timing table. The row
// matching winner is tagged so the chosen value can be read straight off
// the screen.
func printCalibrationResults(out io.Writer, results []trialResult, winner int) {
	fmt.Fprintln(out, "\n--- Calibration Summary ---")
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "  %s%-12s%s │ %s%s%s\n",
		cli.ColorUnderline(), "Threshold", cli.ColorReset(),
		cli.ColorUnderline(), "Execution Time", cli.ColorReset())
	rule := strings.Repeat("─", 14) + "┼" + strings.Repeat("─", 25)
	fmt.Fprintf(w, "  %s\n", rule)
	for _, r := range results {
		tag := ""
		if r.threshold == winner && r.err == nil {
			tag = fmt.Sprintf(" %s(Optimal)%s", cli.ColorGreen(), cli.ColorReset())
		}
		fmt.Fprintf(w, "  %s%-12s%s │ %s%s%s%s\n",
			cli.ColorCyan(), thresholdLabel(r.threshold), cli.ColorReset(),
			cli.ColorYellow(), timingCell(r), cli.ColorReset(), tag)
	}
	w.Flush()
}

// thresholdLabel names a trial row; zero stands for the serial baseline.
func thresholdLabel(threshold int) string {
	if threshold == 0 {
		return "Sequential"
	}
	return fmt.Sprintf("%d bits", threshold)
}

// timingCell renders one measured duration. Failed trials show N/A, and
// sub-microsecond ones are floored so the column never prints a bare zero.
func timingCell(res trialResult) string {
	switch {
	case res.err != nil:
		return fmt.Sprintf("%sN/A%s", cli.ColorRed(), cli.ColorReset())
	case res.took == 0:
		return "< 1µs"
	default:
		return cli.FormatDuration(res.took)
	}
}

// printAutoCalibration prints the one-line summary of what auto-calibration
// settled on, in the order the thresholds take effect.
func printAutoCalibration(cfg config.AppConfig, out io.Writer) {
	num := func(v int) string {
		return fmt.Sprintf("%s%d%s", cli.ColorYellow(), v, cli.ColorReset())
	}
	fmt.Fprintf(out, "%sAuto-calibration%s: parallelism=%s bits, FFT=%s words, Karatsuba=%s words\n",
		cli.ColorGreen(), cli.ColorReset(), num(cfg.Threshold), num(cfg.FFTThreshold), num(cfg.KaratsubaThreshold))
}
