package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fermatlab/gauss/internal/bigfft"
	"github.com/fermatlab/gauss/internal/mult"
)

// SessionConfig carries the settings an interactive session starts from. The
// backend and the hex toggle can be changed at the prompt; the thresholds
// and the timeout stay fixed for the whole session.
type SessionConfig struct {
	DefaultBackend     string        // backend selected at startup; "" or "all" picks the first registered
	Timeout            time.Duration // deadline applied to every product
	Threshold          int           // parallel recursion cutover in bits
	FFTThreshold       int           // FFT cutover in words
	KaratsubaThreshold int           // Karatsuba cutover in words
	Hex                bool          // print products in base 16
}

// REPL is one interactive multiplication session bound to a backend
// registry and an input/output pair.
type REPL struct {
	config         SessionConfig
	registry       *mult.Registry
	currentBackend string
	in             io.Reader
	out            io.Writer
}

// NewREPL builds a session over the given registry, reading from stdin and
// writing to stdout until redirected. An empty or "all" default backend
// falls back to the first registered name.
func NewREPL(registry *mult.Registry, config SessionConfig) *REPL {
	r := &REPL{config: config, registry: registry, in: os.Stdin, out: os.Stdout}
	r.currentBackend = config.DefaultBackend
	if r.currentBackend == "" || r.currentBackend == "all" {
		if names := registry.Names(); len(names) > 0 {
			r.currentBackend = names[0]
		}
	}
	return r
}

// SetInput redirects where commands are read from.
func (r *REPL) SetInput(in io.Reader) {
	r.in = in
}

// SetOutput redirects where prompts and results are written.
func (r *REPL) SetOutput(out io.Writer) {
	r.out = out
}

// Start runs the read-eval-print loop until an exit command, EOF or a read
// failure. A final line without a trailing newline is still processed.
func (r *REPL) Start() {
	r.showBanner()
	r.showHelp()
	fmt.Fprintln(r.out)

	in := bufio.NewReader(r.in)
	for {
		fmt.Fprint(r.out, paintf(ColorGreen, "gauss> "))

		line, err := in.ReadString('\n')
		if text := strings.TrimSpace(line); text != "" && !r.processCommand(text) {
			return
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				r.farewell()
			} else {
				fmt.Fprintln(r.out, paintf(ColorRed, "Read error: "+err.Error()))
			}
			return
		}
	}
}

func (r *REPL) farewell() {
	fmt.Fprintln(r.out, paintf(ColorGreen, "Goodbye!"))
}

func (r *REPL) showBanner() {
	edge := strings.Repeat("═", 58)
	fmt.Fprintf(r.out, "\n%s\n", paintf(ColorCyan, "╔"+edge+"╗"))
	fmt.Fprintf(r.out, "%s     %s%s%s\n",
		paintf(ColorCyan, "║"),
		paintf(ColorBold, "🔢 Gauss Multiplier - Interactive Mode"),
		strings.Repeat(" ", 15),
		paintf(ColorCyan, "║"))
	fmt.Fprintf(r.out, "%s\n\n", paintf(ColorCyan, "╚"+edge+"╝"))
}

func (r *REPL) showHelp() {
	fmt.Fprintln(r.out, paintf(ColorBold, "Available commands:"))
	entries := []struct{ usage, what string }{
		{"<x>*<y>", "Multiply two decimal integers"},
		{"calc <x>*<y>", "Same, as an explicit command"},
		{"backend <name>", "Change backend (" + r.backendList() + ")"},
		{"compare <x>*<y>", "Compare all backends on the same product"},
		{"list", "List available backends"},
		{"hex", "Toggle hexadecimal display"},
		{"status", "Display current configuration"},
		{"help", "Display this help"},
		{"exit / quit", "Exit interactive mode"},
	}
	for _, e := range entries {
		fmt.Fprintf(r.out, "  %s - %s\n", paintf(ColorYellow, "%-15s", e.usage), e.what)
	}
}

func (r *REPL) backendList() string {
	return strings.Join(r.registry.Names(), ", ")
}

// replAliases maps shorthand spellings onto canonical command names.
var replAliases = map[string]string{
	"c":    "calc",
	"b":    "backend",
	"cmp":  "compare",
	"ls":   "list",
	"st":   "status",
	"h":    "help",
	"?":    "help",
	"quit": "exit",
	"q":    "exit",
}

// processCommand runs one line of input and reports whether the loop
// should keep going. Anything that is not a known command is tried as a
// bare x*y expression before being rejected.
func (r *REPL) processCommand(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}

	cmd, args := strings.ToLower(fields[0]), fields[1:]
	if canonical, ok := replAliases[cmd]; ok {
		cmd = canonical
	}

	switch cmd {
	case "calc":
		r.runProduct(args)
	case "backend":
		r.switchBackend(args)
	case "compare":
		r.compareBackends(args)
	case "list":
		r.listBackends()
	case "hex":
		r.toggleHex()
	case "status":
		r.showStatus()
	case "help":
		r.showHelp()
	case "exit":
		r.farewell()
		return false
	default:
		x, y, err := parseProductExpr(line)
		if err != nil {
			fmt.Fprintln(r.out, paintf(ColorRed, "Unknown command: "+cmd))
			fmt.Fprintf(r.out, "Type %s to see available commands.\n", paintf(ColorYellow, "help"))
			return true
		}
		r.evaluate(x, y)
	}

	return true
}

// parseDecimal converts one trimmed decimal literal, sign included. The
// digits go through the subquadratic scanner, so pasting a million-digit
// operand into the prompt does not stall the session.
func parseDecimal(s string) (*big.Int, error) {
	digits, negative := strings.CutPrefix(s, "-")
	n, err := bigfft.FromDecimalString(digits)
	if err != nil {
		return nil, fmt.Errorf("invalid operand: %q", s)
	}
	if negative {
		n.Neg(n)
	}
	return n, nil
}

// parseProductExpr splits an "x*y" expression into its two decimal operands.
func parseProductExpr(expr string) (*big.Int, *big.Int, error) {
	left, right, found := strings.Cut(expr, "*")
	if !found || strings.Contains(right, "*") {
		return nil, nil, errors.New("expected <x>*<y>")
	}
	x, err := parseDecimal(strings.TrimSpace(left))
	if err != nil {
		return nil, nil, err
	}
	y, err := parseDecimal(strings.TrimSpace(right))
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

// parseOperands accepts either an "x*y" expression, possibly split across
// arguments, or a plain pair of decimal integers.
func parseOperands(args []string) (*big.Int, *big.Int, error) {
	joined := strings.Join(args, " ")
	if strings.Contains(joined, "*") {
		return parseProductExpr(joined)
	}
	if len(args) != 2 {
		return nil, nil, errors.New("expected <x>*<y> or <x> <y>")
	}
	x, err := parseDecimal(args[0])
	if err != nil {
		return nil, nil, err
	}
	y, err := parseDecimal(args[1])
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

func (r *REPL) runProduct(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(r.out, paintf(ColorRed, "Usage: calc <x>*<y>"))
		return
	}

	x, y, err := parseOperands(args)
	if err != nil {
		fmt.Fprintln(r.out, paintf(ColorRed, err.Error()))
		return
	}

	r.evaluate(x, y)
}

// productContext caps one product at the session timeout.
func (r *REPL) productContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.config.Timeout)
}

// singleBackendUpdates relabels a lone backend's progress stream as indexed
// updates for the shared progress display.
func singleBackendUpdates(progress <-chan float64) <-chan mult.ProgressUpdate {
	updates := make(chan mult.ProgressUpdate, 10)
	go func() {
		for v := range progress {
			updates <- mult.ProgressUpdate{BackendIndex: 0, Value: v}
		}
		close(updates)
	}()
	return updates
}

// evaluate runs one product on the current backend with a live progress bar,
// then reports timing and the (possibly truncated) value.
func (r *REPL) evaluate(x, y *big.Int) {
	m, err := r.registry.Get(r.currentBackend)
	if err != nil {
		fmt.Fprintln(r.out, paintf(ColorRed, "Backend not found: "+r.currentBackend))
		return
	}

	ctx, cancel := r.productContext()
	defer cancel()

	fmt.Fprintf(r.out, "Multiplying %s by %s with %s...\n",
		paintf(ColorMagenta, "%d-bit", x.BitLen()),
		paintf(ColorMagenta, "%d-bit", y.BitLen()),
		paintf(ColorCyan, m.Name()))

	progress := make(chan float64, 10)
	updates := singleBackendUpdates(progress)

	var wg sync.WaitGroup
	wg.Add(1)
	go DisplayProgress(&wg, updates, 1, r.out)

	began := time.Now()
	result, err := m.Multiply(ctx, x, y, r.multOptions(), progress)
	elapsed := time.Since(began)
	close(progress)
	wg.Wait()

	if err != nil {
		fmt.Fprintln(r.out, paintf(ColorRed, fmt.Sprintf("Error: %v", err)))
		return
	}

	r.printProduct(result, elapsed)
}

// printProduct reports timing and size, then the value in the session's
// display mode. Long decimal values keep only their leading and trailing
// digits.
func (r *REPL) printProduct(result *big.Int, elapsed time.Duration) {
	fmt.Fprintln(r.out, "\n"+paintf(ColorBold, "Result:"))
	fmt.Fprintf(r.out, "  Time:   %s\n", paintf(ColorGreen, FormatDuration(elapsed)))
	fmt.Fprintf(r.out, "  Bits:   %s\n", paintf(ColorCyan, "%d", result.BitLen()))

	digits := DecimalDigits(result)
	fmt.Fprintf(r.out, "  Digits: %s\n", paintf(ColorCyan, "%d", digits))

	switch {
	case r.config.Hex:
		fmt.Fprintf(r.out, "  Product = %s\n", paintf(ColorGreen, "0x"+result.Text(16)))
	case digits > TruncationLimit:
		s := result.String()
		fmt.Fprintf(r.out, "  Product = %s (truncated)\n", paintf(ColorGreen, s[:DisplayEdges]+"..."+s[len(s)-DisplayEdges:]))
	default:
		fmt.Fprintf(r.out, "  Product = %s\n", paintf(ColorGreen, result.String()))
	}
	fmt.Fprintln(r.out)
}

// multOptions maps the session settings onto one calculation's options.
func (r *REPL) multOptions() mult.Options {
	return mult.Options{
		ParallelThresholdBits: r.config.Threshold,
		FFTThresholdWords:     r.config.FFTThreshold,
		KaratsubaThreshold:    r.config.KaratsubaThreshold,
		Parallel:              true,
	}
}

func (r *REPL) switchBackend(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(r.out, paintf(ColorRed, "Usage: backend <name>"))
		fmt.Fprintf(r.out, "Available backends: %s\n", r.backendList())
		return
	}

	want := strings.ToLower(args[0])
	m, err := r.registry.Get(want)
	if err != nil {
		fmt.Fprintln(r.out, paintf(ColorRed, "Unknown backend: "+want))
		fmt.Fprintf(r.out, "Available backends: %s\n", r.backendList())
		return
	}

	r.currentBackend = want
	fmt.Fprintf(r.out, "Backend changed to: %s\n", paintf(ColorGreen, m.Name()))
}

// compareBackends runs the same product on every registered backend and
// prints a timing table. Each result is checked against the first one to
// come back, so a broken backend is flagged right in the listing.
func (r *REPL) compareBackends(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(r.out, paintf(ColorRed, "Usage: compare <x>*<y>"))
		return
	}

	x, y, err := parseOperands(args)
	if err != nil {
		fmt.Fprintln(r.out, paintf(ColorRed, err.Error()))
		return
	}

	fmt.Fprintln(r.out, "\n"+paintf(ColorBold, fmt.Sprintf("Comparison for a %d-bit by %d-bit product:", x.BitLen(), y.BitLen())))
	rule := paintf(ColorCyan, strings.Repeat("─", 45))
	fmt.Fprintln(r.out, rule)

	opts := r.multOptions()
	var reference *big.Int

	for _, name := range r.registry.Names() {
		m, err := r.registry.Get(name)
		if err != nil {
			continue
		}

		ctx, cancel := r.productContext()
		began := time.Now()
		result, err := m.Multiply(ctx, x, y, opts, nil)
		elapsed := time.Since(began)
		cancel()

		label := paintf(ColorYellow, "%-20s", name)
		if err != nil {
			fmt.Fprintf(r.out, "  %s: %s\n", label, paintf(ColorRed, fmt.Sprintf("Error - %v", err)))
			continue
		}

		if reference == nil {
			reference = result
		}
		mark := paintf(ColorGreen, "✓")
		if result.Cmp(reference) != 0 {
			mark = paintf(ColorRed, "✗ INCONSISTENT")
		}
		fmt.Fprintf(r.out, "  %s: %s %s\n", label, paintf(ColorCyan, "%12s", FormatDuration(elapsed)), mark)
	}

	fmt.Fprintln(r.out, rule)
	fmt.Fprintln(r.out)
}

func (r *REPL) listBackends() {
	fmt.Fprintln(r.out, "\n"+paintf(ColorBold, "Available backends:"))
	for _, name := range r.registry.Names() {
		m, err := r.registry.Get(name)
		if err != nil {
			continue
		}
		bullet := "  "
		if name == r.currentBackend {
			bullet = paintf(ColorGreen, "► ")
		}
		fmt.Fprintf(r.out, "%s%s - %s\n", bullet, paintf(ColorYellow, "%-10s", name), m.Name())
	}
	fmt.Fprintln(r.out)
}

func (r *REPL) toggleHex() {
	r.config.Hex = !r.config.Hex
	fmt.Fprintf(r.out, "Hexadecimal display: %s\n", paintf(ColorGreen, pick(r.config.Hex, "enabled", "disabled")))
}

func (r *REPL) showStatus() {
	fmt.Fprintln(r.out, "\n"+paintf(ColorBold, "Current configuration:"))
	rows := []struct{ label, value string }{
		{"Backend", r.currentBackend},
		{"Timeout", r.config.Timeout.String()},
		{"Threshold", fmt.Sprintf("%d bits", r.config.Threshold)},
		{"FFT Threshold", fmt.Sprintf("%d words", r.config.FFTThreshold)},
		{"Karatsuba Threshold", fmt.Sprintf("%d words", r.config.KaratsubaThreshold)},
		{"Hexadecimal", pick(r.config.Hex, "yes", "no")},
	}
	for _, row := range rows {
		fmt.Fprintf(r.out, "  %-20s %s\n", row.label+":", paintf(ColorCyan, row.value))
	}
	fmt.Fprintln(r.out)
}

// pick returns yes when cond holds and no otherwise.
func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
