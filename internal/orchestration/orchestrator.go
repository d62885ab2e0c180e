package orchestration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"

	"github.com/fermatlab/gauss/internal/cli"
	"github.com/fermatlab/gauss/internal/config"
	apperrors "github.com/fermatlab/gauss/internal/errors"
	"github.com/fermatlab/gauss/internal/mult"
	"github.com/fermatlab/gauss/internal/ui"
)

// BackendResult records how a single backend fared on one computation.
type BackendResult struct {
	Name     string        // registry name of the backend
	Result   *big.Int      // computed value, nil when Err is set
	Duration time.Duration // wall time of the backend's run
	Err      error         // terminal failure, nil on success
}

// ErrMismatch reports that at least two backends returned different results
// for the same operands. Callers test for it with errors.Is.
var ErrMismatch = errors.New("backend results disagree")

// progressSlack sizes each progress channel so a slow terminal does not stall
// the computation goroutines behind it.
const progressSlack = 5

// fanOut runs one task per named backend concurrently and collects the
// per-backend outcomes. Each task reports progress on its own channel; a
// forwarding goroutine tags updates with the backend index and merges them
// into the single stream consumed by the progress display.
func fanOut(ctx context.Context, names []string, out io.Writer, run func(ctx context.Context, idx int, progress chan<- float64) (*big.Int, error)) []BackendResult {
	g, ctx := errgroup.WithContext(ctx)
	outcomes := make([]BackendResult, len(names))
	updates := make(chan mult.ProgressUpdate, len(names)*progressSlack)

	var display sync.WaitGroup
	display.Add(1)
	go cli.DisplayProgress(&display, updates, len(names), out)

	var forwarders sync.WaitGroup
	for i, name := range names {
		reports := make(chan float64, progressSlack)
		forwarders.Add(1)
		go func() {
			defer forwarders.Done()
			for p := range reports {
				updates <- mult.ProgressUpdate{BackendIndex: i, Value: p}
			}
		}()

		g.Go(func() error {
			defer close(reports)
			began := time.Now()
			res, err := run(ctx, i, reports)
			outcomes[i] = BackendResult{
				Name: name, Result: res, Duration: time.Since(began), Err: err,
			}
			return nil
		})
	}

	g.Wait()
	forwarders.Wait()
	close(updates)
	display.Wait()

	return outcomes
}

// CompareBackends multiplies the same pair of operands on every given backend
// at once. A failing backend does not cancel the others: the comparison table
// is only worth printing when each backend has had its chance to finish, so
// every outcome is recorded and returned.
func CompareBackends(ctx context.Context, multipliers []mult.Multiplier, cfg config.AppConfig, x, y *big.Int, out io.Writer) []BackendResult {
	names := make([]string, len(multipliers))
	for i, m := range multipliers {
		names[i] = m.Name()
	}
	opts := cfg.ToMultOptions()
	return fanOut(ctx, names, out, func(ctx context.Context, idx int, progress chan<- float64) (*big.Int, error) {
		return multipliers[idx].Multiply(ctx, x, y, opts, progress)
	})
}

// CompareFibonacci races the named backends on F(n). The fast-doubling
// recurrence multiplies through whichever backend it is given, so a single
// index exercises each backend across the growing operand sizes the doubling
// steps produce.
func CompareFibonacci(ctx context.Context, reg *mult.Registry, names []string, n uint64, cfg config.AppConfig, out io.Writer) []BackendResult {
	opts := cfg.ToMultOptions()
	return fanOut(ctx, names, out, func(ctx context.Context, idx int, progress chan<- float64) (*big.Int, error) {
		return reg.Fibonacci(ctx, n, names[idx], opts, progress)
	})
}

// SummarizeComparison renders the comparison table, fastest backend first,
// and decides the run's exit code. Successful results must all agree; a
// disagreement outranks any individual backend failure and is reported with
// a digest diff of the two values.
func SummarizeComparison(results []BackendResult, cfg config.AppConfig, label string, out io.Writer) int {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := &results[i], &results[j]
		if (a.Err == nil) != (b.Err == nil) {
			return a.Err == nil
		}
		return a.Duration < b.Duration
	})

	var firstValid *BackendResult
	var firstFailure error
	succeeded := 0

	fmt.Fprintln(out, "\n--- Comparison Summary ---")
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	und := func(s string) string { return ui.ColorUnderline() + s + ui.ColorReset() }
	fmt.Fprintf(tw, "%s\t%s\t%s\n", und("Backend"), und("Duration"), und("Status"))

	for i := range results {
		r := &results[i]
		if r.Err != nil {
			if firstFailure == nil {
				firstFailure = r.Err
			}
		} else {
			succeeded++
			if firstValid == nil {
				firstValid = r
			}
		}
		took := "< 1µs"
		if r.Duration > 0 {
			took = cli.FormatDuration(r.Duration)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			ui.ColorBlue()+r.Name+ui.ColorReset(),
			ui.ColorYellow()+took+ui.ColorReset(),
			verdictCell(r.Err))
	}
	tw.Flush()

	if succeeded == 0 {
		fmt.Fprintln(out, "\nGlobal Status: Failure. No backend could complete the calculation.")
		return apperrors.HandleComputeError(firstFailure, 0, out, cli.ThemePalette{})
	}

	for i := range results {
		r := &results[i]
		if r.Err == nil && r.Result.Cmp(firstValid.Result) != 0 {
			fmt.Fprintf(out, "\nGlobal Status: CRITICAL ERROR! Backends %s and %s disagree on the result.\n%s",
				firstValid.Name, r.Name,
				cmp.Diff(footprintOf(firstValid.Result), footprintOf(r.Result)))
			return apperrors.ExitMismatch
		}
	}

	fmt.Fprintln(out, "\nGlobal Status: Success. All valid results are consistent.")
	cli.DisplayResult(firstValid.Result, label, firstValid.Duration, cfg.Verbose, cfg.Details, cfg.Concise, out)
	return apperrors.ExitOK
}

func verdictCell(err error) string {
	if err != nil {
		return fmt.Sprintf("%s❌ Failure (%v)%s", ui.ColorRed(), err, ui.ColorReset())
	}
	return ui.ColorGreen() + "✅ Success" + ui.ColorReset()
}

// RunCrossCheck runs the named backends concurrently on the same operands and
// verifies that every result agrees.
//
// Unlike CompareBackends, which always runs every backend to completion to
// produce a comparative report, RunCrossCheck aborts the remaining work as
// soon as one backend fails. It is the verification primitive behind the HTTP
// service and scripted cross-check runs.
func RunCrossCheck(ctx context.Context, reg *mult.Registry, names []string, x, y *big.Int, opts mult.Options) (*big.Int, error) {
	if len(names) == 0 {
		return nil, apperrors.NewConfigError("cross-check requires at least one backend")
	}
	multipliers := make([]mult.Multiplier, len(names))
	for i, name := range names {
		m, err := reg.Get(name)
		if err != nil {
			return nil, err
		}
		multipliers[i] = m
	}
	return crossCheck(ctx, multipliers, x, y, opts)
}

// crossCheck fans the backends out under an errgroup so the first failure
// cancels the rest, then compares every product against the first.
func crossCheck(ctx context.Context, multipliers []mult.Multiplier, x, y *big.Int, opts mult.Options) (*big.Int, error) {
	g, ctx := errgroup.WithContext(ctx)
	products := make([]*big.Int, len(multipliers))
	for i, m := range multipliers {
		g.Go(func() error {
			res, err := m.Multiply(ctx, x, y, opts, nil)
			if err != nil {
				return fmt.Errorf("backend %s: %w", m.Name(), err)
			}
			products[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reference := products[0]
	for i := 1; i < len(products); i++ {
		if products[i].Cmp(reference) != 0 {
			return nil, fmt.Errorf("%w: %s vs %s:\n%s",
				ErrMismatch, multipliers[0].Name(), multipliers[i].Name(),
				cmp.Diff(footprintOf(reference), footprintOf(products[i])))
		}
	}
	return reference, nil
}

// resultFootprint is the comparable shape of a computed value used in
// mismatch reports. Digesting keeps reports readable when results reach
// millions of bits.
type resultFootprint struct {
	Bits   int
	Digest string
}

func footprintOf(v *big.Int) resultFootprint {
	if v == nil {
		return resultFootprint{}
	}
	h := blake3.New()
	if v.Sign() < 0 {
		h.Write([]byte{'-'})
	}
	h.Write(v.Bytes())
	return resultFootprint{Bits: v.BitLen(), Digest: fmt.Sprintf("%x", h.Sum(nil))}
}
