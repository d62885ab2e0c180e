// Package cli implements the terminal front end of the calculator: a live
// spinner with an averaged progress bar while backends run, and the formatted
// result report once they finish.
package cli

import (
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ALTree/bigfloat"
	"github.com/briandowns/spinner"

	"github.com/fermatlab/gauss/internal/mult"
	"github.com/fermatlab/gauss/internal/ui"
)

// FormatDuration renders d at a unit matching its magnitude: whole
// microseconds below a millisecond, whole milliseconds below a second, and
// time.Duration's own formatting beyond that. Sub-microsecond values truncate
// to "0µs".
func FormatDuration(d time.Duration) string {
	if d >= time.Second {
		return d.String()
	}
	if d >= time.Millisecond {
		return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
	}
	return strconv.FormatInt(d.Microseconds(), 10) + "µs"
}

const (
	TruncationLimit         = 100                    // digits above which a printed value is shortened to its edges
	DisplayEdges            = 25                     // digits surviving at each end of a truncated value
	ProgressRefreshInterval = 200 * time.Millisecond // paces the spinner animation and the bar redraw
	ProgressBarWidth        = 40                     // bar width in characters
)

// The Color* values resolve ANSI sequences through the active theme at call
// time, so output follows a theme change (or -no-color) made after startup.
var (
	ColorReset     = ui.ColorReset
	ColorRed       = ui.ColorRed
	ColorGreen     = ui.ColorGreen
	ColorYellow    = ui.ColorYellow
	ColorBlue      = ui.ColorBlue
	ColorMagenta   = ui.ColorMagenta
	ColorCyan      = ui.ColorCyan
	ColorBold      = ui.ColorBold
	ColorUnderline = ui.ColorUnderline
	ColorDim       = ui.ColorDim
)

// paintf wraps a formatted string in the given color and the theme's reset
// sequence. With colors off both ends render empty, so callers never need a
// no-color branch.
func paintf(color func() string, format string, args ...any) string {
	return color() + fmt.Sprintf(format, args...) + ColorReset()
}

// Spinner is the minimal control surface DisplayProgress needs from a
// terminal spinner. Tests substitute their own implementation through the
// newSpinner hook.
type Spinner interface {
	Start()
	Stop()
	// SetSuffix replaces the text trailing the spinner glyph.
	SetSuffix(suffix string)
}

// realSpinner backs Spinner with briandowns/spinner. Start and Stop are the
// library's own.
type realSpinner struct{ *spinner.Spinner }

func (rs *realSpinner) SetSuffix(suffix string) { rs.Suffix = suffix }

// newSpinner is a package variable so tests can inject a fake.
var newSpinner = func(opts ...spinner.Option) Spinner {
	// Spinning at the refresh interval keeps the glyph and the bar in step.
	return &realSpinner{spinner.New(spinner.CharSets[11], ProgressRefreshInterval, opts...)}
}

// ProgressState folds per-backend progress reports into one average, so a run
// with several concurrent backends still renders as a single bar.
type ProgressState struct{ values []float64 }

// NewProgressState tracks numBackends independent progress values, all
// starting at zero.
func NewProgressState(numBackends int) *ProgressState {
	return &ProgressState{values: make([]float64, numBackends)}
}

// Update stores the latest value reported by the backend at index.
// Out-of-range indices are dropped rather than grown; the producer fixes the
// backend count before the run starts.
func (s *ProgressState) Update(index int, value float64) {
	if index >= 0 && index < len(s.values) {
		s.values[index] = value
	}
}

// CalculateAverage returns the mean progress across all tracked backends, or
// 0 when none are tracked.
func (s *ProgressState) CalculateAverage() float64 {
	if len(s.values) == 0 {
		return 0
	}
	var total float64
	for _, v := range s.values {
		total += v
	}
	return total / float64(len(s.values))
}

// progressBar renders progress as width cells filled from the left. Inputs
// outside [0, 1] are clamped.
func progressBar(progress float64, width int) string {
	filled := int(min(max(progress, 0), 1) * float64(width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// progressLine is shared by the live spinner suffix and the persistent final
// line so the two formats cannot drift apart.
func progressLine(label string, progress float64, eta string, width int) string {
	return fmt.Sprintf("%s: %6.2f%% [%s] ETA: %s", label, progress*100, progressBar(progress, width), eta)
}

// DisplayProgress consumes backend updates and animates a spinner with an
// averaged bar and ETA until the channel closes, then replaces the animation
// with a permanent 100% line. It runs on its own goroutine and releases wg on
// return. With numBackends <= 0 there is nothing to render and the channel is
// drained silently.
func DisplayProgress(wg *sync.WaitGroup, updates <-chan mult.ProgressUpdate, numBackends int, out io.Writer) {
	defer wg.Done()
	if numBackends <= 0 {
		for range updates {
		}
		return
	}

	forecast := NewProgressForecast(numBackends)
	spin := newSpinner(spinner.WithWriter(out))
	spin.Start()
	var stopOnce sync.Once
	stop := func() { stopOnce.Do(spin.Stop) }
	defer stop()

	ticker := time.NewTicker(ProgressRefreshInterval)
	defer ticker.Stop()

	label := pick(numBackends > 1, "Avg progress", "Progress")
	for {
		select {
		case update, ok := <-updates:
			if !ok {
				// Stop the animation before printing, otherwise the final
				// line races the spinner's own erase sequence.
				stop()
				fmt.Fprintln(out, progressLine(label, 1.0, "< 1s", ProgressBarWidth))
				return
			}
			forecast.Observe(update.BackendIndex, update.Value)
		case <-ticker.C:
			avg := forecast.CalculateAverage()
			spin.SetSuffix(" " + progressLine(label, avg, formatETA(forecast.Remaining()), ProgressBarWidth))
		}
	}
}

// digitCountExactBits is the size up to which digit counting converts the
// number to its decimal form directly.
const digitCountExactBits = 256

// digitGuard is the fractional distance from an integer below which the
// floating-point digit estimate is considered ambiguous.
const digitGuard = 1e-9

// DecimalDigits returns the number of decimal digits of |x|.
//
// Small values are converted directly. Large values are counted through
// floor(log10|x|)+1 on a reduced-precision float, which avoids materializing
// the full decimal expansion of multi-million-bit products. When the
// fractional part of log10|x| falls within digitGuard of an integer, the
// estimate could land on the wrong side of a power of ten and the exact
// conversion is used instead.
func DecimalDigits(x *big.Int) int {
	if x.Sign() == 0 {
		return 1
	}
	abs := new(big.Int).Abs(x)
	if abs.BitLen() <= digitCountExactBits {
		return len(abs.Text(10))
	}

	// 96 bits of precision leave ~60 bits for the fractional part even for
	// operands in the billion-digit range.
	const prec = 96
	f := new(big.Float).SetPrec(prec).SetInt(abs)
	ln10 := bigfloat.Log(big.NewFloat(10).SetPrec(prec))
	log10 := new(big.Float).SetPrec(prec).Quo(bigfloat.Log(f), ln10)

	floor, _ := log10.Int(nil)
	frac, _ := new(big.Float).SetPrec(prec).Sub(log10, new(big.Float).SetInt(floor)).Float64()
	if frac < digitGuard || frac > 1-digitGuard {
		return len(abs.Text(10))
	}
	return int(floor.Int64()) + 1
}

// DisplayResult prints the result report: always the binary size, the
// detailed analysis section when details is set, and the decimal value itself
// when concise is set. Values longer than TruncationLimit digits print only
// DisplayEdges digits at each end unless verbose forces the full expansion.
func DisplayResult(result *big.Int, label string, duration time.Duration, verbose, details, concise bool, out io.Writer) {
	size := groupThousands(strconv.Itoa(result.BitLen()))
	fmt.Fprintf(out, "Result binary size: %s bits.\n", paintf(ColorCyan, size))

	if details {
		printAnalysis(result, duration, out)
	}
	// Rendering the full decimal expansion of a huge product is itself
	// expensive, so it stays opt-in behind -c.
	if concise {
		printValue(result, label, verbose, out)
	}
}

func printAnalysis(result *big.Int, duration time.Duration, out io.Writer) {
	fmt.Fprintf(out, "\n%s\n", paintf(ColorBold, "--- Detailed result analysis ---"))

	elapsed := "< 1µs"
	if duration > 0 {
		elapsed = FormatDuration(duration)
	}
	fmt.Fprintf(out, "Calculation time        : %s\n", paintf(ColorGreen, elapsed))

	digits := DecimalDigits(result)
	fmt.Fprintf(out, "Number of digits      : %s\n", paintf(ColorCyan, groupThousands(strconv.Itoa(digits))))

	if digits > 6 {
		// A reduced-precision copy keeps the scientific preview cheap for
		// multi-million-bit results.
		f := new(big.Float).SetPrec(64).SetInt(result)
		fmt.Fprintf(out, "Scientific notation    : %s\n", paintf(ColorCyan, "%.6e", f))
	}
}

func printValue(result *big.Int, label string, verbose bool, out io.Writer) {
	s := result.String()
	digits := len(s)

	fmt.Fprintf(out, "\n%s\n", paintf(ColorBold, "--- Calculated value ---"))
	switch {
	case verbose:
		fmt.Fprintf(out, "%s =\n%s\n", paintf(ColorMagenta, label), paintf(ColorGreen, groupThousands(s)))
	case digits > TruncationLimit:
		edges := s[:DisplayEdges] + "..." + s[digits-DisplayEdges:]
		fmt.Fprintf(out, "%s (truncated) = %s\n", paintf(ColorMagenta, label), paintf(ColorGreen, edges))
		tip := ColorDim() + "(Tip: use the " + paintf(ColorYellow, "-v") + ColorDim() +
			" or " + paintf(ColorYellow, "--verbose") + ColorDim() +
			" option to display the full value)" + ColorReset()
		fmt.Fprintln(out, tip)
	default:
		fmt.Fprintf(out, "%s = %s\n", paintf(ColorMagenta, label), paintf(ColorGreen, groupThousands(s)))
	}
}

// groupThousands inserts comma separators into a decimal string, preserving
// a leading minus sign.
func groupThousands(s string) string {
	digits, negative := strings.CutPrefix(s, "-")
	if len(digits) <= 3 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + (len(digits)-1)/3)
	if negative {
		b.WriteByte('-')
	}
	head := len(digits) % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(digits[:head])
	for i := head; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
