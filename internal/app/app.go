package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/big"

	"github.com/fermatlab/gauss/internal/calibration"
	"github.com/fermatlab/gauss/internal/cli"
	"github.com/fermatlab/gauss/internal/config"
	apperrors "github.com/fermatlab/gauss/internal/errors"
	"github.com/fermatlab/gauss/internal/mult"
	"github.com/fermatlab/gauss/internal/orchestration"
	"github.com/fermatlab/gauss/internal/randsrc"
	"github.com/fermatlab/gauss/internal/server"
	"github.com/fermatlab/gauss/internal/ui"
)

// App ties the parsed configuration to the backend registry and
// dispatches into one of the run modes: calculation, server, REPL,
// calibration or completion generation.
type App struct {
	Cfg      config.AppConfig
	Registry *mult.Registry
	Stderr   io.Writer
}

// New parses args (args[0] is the program name) into an App. Flag
// and validation errors have already been written to stderr when New
// returns an error.
func New(args []string, stderr io.Writer) (*App, error) {
	registry := mult.NewRegistry()

	programName, cmdArgs := "gauss", args
	if len(args) > 0 {
		programName, cmdArgs = args[0], args[1:]
	}

	cfg, err := config.ParseConfig(programName, cmdArgs, stderr, registry.Names())
	if err != nil {
		return nil, err
	}

	// A cached calibration profile beats the built-in heuristics; without
	// one, estimate thresholds from the host instead of shipping static
	// defaults tuned on some other machine.
	cfg, fromProfile := calibration.LoadCachedCalibration(cfg, cfg.ProfilePath)
	if !fromProfile {
		cfg = adaptThresholds(cfg)
	}

	return &App{
		Cfg:      cfg,
		Registry: registry,
		Stderr:   stderr,
	}, nil
}

// adaptThresholds fills in host-estimated thresholds. Only values
// still at their flag defaults move, so explicit -threshold/-fft-threshold/
// -karatsuba-threshold overrides always win.
func adaptThresholds(cfg config.AppConfig) config.AppConfig {
	if cfg.Threshold == config.DefaultThreshold {
		cfg.Threshold = calibration.EstimatedParallelBits()
	}
	if cfg.FFTThreshold == config.DefaultFFTThreshold {
		cfg.FFTThreshold = calibration.EstimatedFFTWords()
	}
	if cfg.KaratsubaThreshold == config.DefaultKaratsubaThreshold {
		cfg.KaratsubaThreshold = calibration.EstimatedKaratsubaWords()
	}
	return cfg
}

// Run executes the mode the configuration selected and returns the process
// exit code.
func (a *App) Run(ctx context.Context, out io.Writer) int {
	// Completion scripts must stay free of theme initialization side
	// effects, so they are handled before anything else.
	if a.Cfg.Completion != "" {
		return a.writeCompletion(out)
	}

	ui.SelectTheme(a.Cfg.NoColor)

	switch {
	case a.Cfg.Serve:
		return a.serve(ctx)
	case a.Cfg.REPL:
		return a.repl()
	case a.Cfg.Calibrate:
		return a.calibrate(ctx, out)
	}

	a.Cfg = a.autoCalibratedConfig(ctx, out)
	return a.calculate(ctx, out)
}

func (a *App) writeCompletion(out io.Writer) int {
	if err := cli.GenerateCompletion(out, a.Cfg.Completion, a.Registry.Names()); err != nil {
		fmt.Fprintf(a.Stderr, "Completion script error: %v\n", err)
		return apperrors.ExitBadConfig
	}
	return apperrors.ExitOK
}

func (a *App) serve(ctx context.Context) int {
	srv := server.NewServer(a.Registry, a.Cfg)
	if err := srv.Start(ctx); err != nil {
		fmt.Fprintf(a.Stderr, "Server failed: %v\n", err)
		return apperrors.ExitFailure
	}
	return apperrors.ExitOK
}

func (a *App) repl() int {
	r := cli.NewREPL(a.Registry, cli.SessionConfig{
		DefaultBackend:     a.Cfg.Backend,
		Timeout:            a.Cfg.Timeout,
		Threshold:          a.Cfg.Threshold,
		FFTThreshold:       a.Cfg.FFTThreshold,
		KaratsubaThreshold: a.Cfg.KaratsubaThreshold,
		Hex:                a.Cfg.Hex,
	})
	r.Start()
	return apperrors.ExitOK
}

func (a *App) calibrate(ctx context.Context, out io.Writer) int {
	return calibration.RunCalibration(ctx, out, a.Registry)
}

// autoCalibratedConfig returns the configuration with quick-probe
// thresholds applied when -auto-calibrate is set, or unchanged otherwise.
func (a *App) autoCalibratedConfig(ctx context.Context, out io.Writer) config.AppConfig {
	if !a.Cfg.AutoCalibrate {
		return a.Cfg
	}
	if updated, ok := calibration.AutoCalibrate(ctx, a.Cfg, out, a.Registry); ok {
		return updated
	}
	return a.Cfg
}

// progressWriter returns the destination for spinner and progress output,
// which quiet mode discards wholesale.
func (a *App) progressWriter(out io.Writer) io.Writer {
	if a.Cfg.Quiet {
		return io.Discard
	}
	return out
}

// printRunHeader shows the run parameters and the backend lineup, except in
// the machine-readable output modes.
func (a *App) printRunHeader(multipliers []mult.Multiplier, out io.Writer) {
	if a.Cfg.JSON || a.Cfg.Quiet {
		return
	}
	cli.PrintRunConfig(a.Cfg, out)
	cli.PrintBackendLineup(multipliers, out)
}

// calculate drives the standard CLI flow: resolve operands, fan the
// selected backends out, and report the comparison.
func (a *App) calculate(ctx context.Context, out io.Writer) int {
	ctx, release := runContext(ctx, a.Cfg.Timeout)
	defer release()

	progressOut := a.progressWriter(out)

	// -fib drives the backends through the fast-doubling recurrence
	// instead of a single product.
	if a.Cfg.Fib > 0 {
		return a.fibonacci(ctx, out, progressOut)
	}

	x, y, err := a.resolveOperands()
	if err != nil {
		fmt.Fprintf(a.Stderr, "Error: %v\n", err)
		return apperrors.ExitBadConfig
	}

	multipliersToRun := cli.SelectBackends(a.Cfg, a.Registry)
	a.printRunHeader(multipliersToRun, out)

	results := orchestration.CompareBackends(ctx, multipliersToRun, a.Cfg, x, y, progressOut)

	return a.reportResults(results, "Product", x.BitLen(), y.BitLen(), out)
}

func (a *App) fibonacci(ctx context.Context, out, progressOut io.Writer) int {
	multipliersToRun := cli.SelectBackends(a.Cfg, a.Registry)
	names := make([]string, len(multipliersToRun))
	for i, m := range multipliersToRun {
		names[i] = m.Name()
	}

	a.printRunHeader(multipliersToRun, out)

	results := orchestration.CompareFibonacci(ctx, a.Registry, names, a.Cfg.Fib, a.Cfg, progressOut)

	label := fmt.Sprintf("F(%d)", a.Cfg.Fib)
	return a.reportResults(results, label, 0, 0, out)
}

// resolveOperands produces the operand pair, either synthesized from
// -bits/-seed or parsed from the explicit -x/-y decimal values.
func (a *App) resolveOperands() (*big.Int, *big.Int, error) {
	if a.Cfg.Synthesize() {
		x, y, err := randsrc.OperandPair(a.Cfg.Seed, int(a.Cfg.Bits))
		if err != nil {
			return nil, nil, fmt.Errorf("synthesizing operands: %w", err)
		}
		return x, y, nil
	}

	x, ok := new(big.Int).SetString(a.Cfg.X, 10)
	if !ok {
		return nil, nil, fmt.Errorf("invalid operand x: %q is not a decimal integer", a.Cfg.X)
	}
	y, ok := new(big.Int).SetString(a.Cfg.Y, 10)
	if !ok {
		return nil, nil, fmt.Errorf("invalid operand y: %q is not a decimal integer", a.Cfg.Y)
	}
	return x, y, nil
}

// reportResults renders the comparison outcome in the configured output
// mode: JSON, quiet, or the full comparison report.
func (a *App) reportResults(results []orchestration.BackendResult, label string, xBits, yBits int, out io.Writer) int {
	if a.Cfg.JSON {
		return emitJSON(results, out)
	}
	return a.reportComparison(results, cli.OutputConfigFrom(a.Cfg), label, xBits, yBits, out)
}

func (a *App) reportComparison(results []orchestration.BackendResult, outputCfg cli.OutputConfig, label string, xBits, yBits int, out io.Writer) int {
	best := fastestResult(results)

	// Quiet mode prints the bare value and skips the comparison table.
	if outputCfg.Quiet && best != nil {
		cli.DisplayQuietResult(out, best.Result, outputCfg.Hex)
		if err := a.saveResultIfNeeded(best, label, xBits, yBits, outputCfg); err != nil {
			return apperrors.ExitFailure
		}
		return apperrors.ExitOK
	}

	exitCode := orchestration.SummarizeComparison(results, a.Cfg, label, out)

	if best != nil && exitCode == apperrors.ExitOK {
		a.displayHexIfNeeded(best, label, outputCfg, out)
		if err := a.saveResultIfNeeded(best, label, xBits, yBits, outputCfg); err != nil {
			return apperrors.ExitFailure
		}
		if outputCfg.OutputPath != "" {
			fmt.Fprintf(out, "\n%s✓ Result saved to: %s\n", cli.ColorGreen(),
				cli.ColorCyan()+outputCfg.OutputPath+cli.ColorReset())
		}
	}

	return exitCode
}

// HelpRequested reports whether err is flag.ErrHelp, i.e. the user asked for
// -h and the program should exit successfully.
func HelpRequested(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}

// fastestResult picks the fastest successful result, or nil when every
// backend failed.
func fastestResult(results []orchestration.BackendResult) *orchestration.BackendResult {
	var fastest *orchestration.BackendResult
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			continue
		}
		if fastest == nil || r.Duration < fastest.Duration {
			fastest = r
		}
	}
	return fastest
}

func (a *App) saveResultIfNeeded(res *orchestration.BackendResult, label string, xBits, yBits int, cfg cli.OutputConfig) error {
	if cfg.OutputPath == "" {
		return nil
	}
	if err := cli.WriteResultToFile(res.Result, label, xBits, yBits, res.Duration, res.Name, cfg); err != nil {
		fmt.Fprintf(a.Stderr, "Error saving result: %v\n", err)
		return err
	}
	return nil
}

func (a *App) displayHexIfNeeded(res *orchestration.BackendResult, label string, cfg cli.OutputConfig, out io.Writer) {
	if !cfg.Hex {
		return
	}
	fmt.Fprintf(out, "\n%s\n", cli.ColorBold()+"--- Hexadecimal Format ---"+cli.ColorReset())
	digits := res.Result.Text(16)
	if len(digits) > 100 && !a.Cfg.Verbose {
		fmt.Fprintf(out, "%s [hex] = %s0x%s...%s%s\n",
			label, cli.ColorGreen(), digits[:40], digits[len(digits)-40:], cli.ColorReset())
		return
	}
	fmt.Fprintf(out, "%s [hex] = %s0x%s%s\n", label, cli.ColorGreen(), digits, cli.ColorReset())
}

// jsonEntry is the machine-readable form of one backend's outcome.
type jsonEntry struct {
	Backend  string `json:"backend"`
	Duration string `json:"duration"`
	Result   string `json:"result,omitempty"`
	Error    string `json:"error,omitempty"`
}

func emitJSON(results []orchestration.BackendResult, w io.Writer) int {
	entries := make([]jsonEntry, 0, len(results))
	for _, res := range results {
		entry := jsonEntry{Backend: res.Name, Duration: res.Duration.String()}
		if res.Err != nil {
			entry.Error = res.Err.Error()
		} else {
			entry.Result = res.Result.String()
		}
		entries = append(entries, entry)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return apperrors.ExitFailure
	}
	return apperrors.ExitOK
}
