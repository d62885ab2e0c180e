// Package config defines the runtime settings of the calculator, parses
// them from command-line flags and GAUSS_* environment variables, and
// validates the combination before anything else runs.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	apperrors "github.com/fermatlab/gauss/internal/errors"
	"github.com/fermatlab/gauss/internal/mult"
)

const (
	// EnvPrefix is prepended to every environment variable the application
	// reads. An explicit command-line flag always beats its environment
	// counterpart.
	EnvPrefix = "GAUSS_"
)

// Defaults applied before flags and environment overrides. The zero
// thresholds defer to the calibrated bigfft threshold and the built-in
// Karatsuba tiering respectively.
const (
	DefaultBits               uint64 = 1_000_000 // synthesized operand length
	DefaultSeed               uint64 = 1         // deterministic synthesis key
	DefaultTimeout                   = 5 * time.Minute
	DefaultPort                      = "8080" // served when -server is given without -port
	DefaultBackend                   = "all"
	DefaultThreshold                 = 4096 // bits; smaller independent products stay sequential
	DefaultFFTThreshold              = 0    // 64-bit words
	DefaultKaratsubaThreshold        = 0    // 64-bit words
)

// AppConfig is the complete runtime configuration, one field per flag.
type AppConfig struct {
	// Operand selection. Explicit decimal strings win; empty X and Y mean
	// the operands are synthesized deterministically from Bits and Seed.
	// A non-zero Fib switches to the Fibonacci fast-doubling demo instead.
	X    string
	Y    string
	Bits uint64
	Seed uint64
	Fib  uint64

	Timeout time.Duration // bounds the whole calculation
	Backend string        // single multiplier, or "all" to race every registered one

	// Algorithm thresholds, in the units each algorithm thinks in. Zero
	// defers to the calibrated or built-in defaults.
	Threshold          int  // bits; smaller independent products stay sequential
	FFTThreshold       int  // 64-bit words; above it FFT engages
	KaratsubaThreshold int  // 64-bit words; above it Karatsuba engages
	Parallel           bool // run independent products concurrently above Threshold

	Cache        bool // FFT transform caching for repeated operands
	CacheEntries int  // transform cache bound, zero = package default

	Calibrate     bool   // run the full calibration benchmark and exit
	AutoCalibrate bool   // quick threshold probe before the calculation
	ProfilePath   string // overrides <user config dir>/gauss/calibration.json

	// Output shaping.
	Verbose    bool   // print the result in full, however long
	Details    bool   // add the performance report and result metadata
	Concise    bool   // include the calculated-value section (-c, -calculate)
	Quiet      bool   // bare value only, keeping stdout fit for scripting
	Hex        bool   // print the value in base 16
	JSON       bool   // render the result as a single JSON document
	NoColor    bool   // strip ANSI colors; the NO_COLOR variable does the same
	OutputPath string // also save the result to this path when non-empty

	// Alternative run modes.
	Serve      bool   // run the HTTP API server instead of calculating once
	Port       string // listen port in server mode
	REPL       bool   // drop into the interactive loop
	Completion string // emit a completion script: bash, zsh, fish, powershell
}

// ToMultOptions converts the application configuration into mult.Options for
// use by the multiplier backends.
func (cfg AppConfig) ToMultOptions() mult.Options {
	opts := mult.Options{
		FFTThresholdWords:     cfg.FFTThreshold,
		KaratsubaThreshold:    cfg.KaratsubaThreshold,
		ParallelThresholdBits: cfg.Threshold,
		Parallel:              cfg.Parallel,
		CacheMaxEntries:       cfg.CacheEntries,
	}
	if !cfg.Cache {
		disabled := false
		opts.CacheEnabled = &disabled
	}
	return opts
}

// Synthesize reports whether the operands must be generated from Bits and
// Seed rather than parsed from X and Y.
func (cfg AppConfig) Synthesize() bool {
	return cfg.X == "" && cfg.Y == ""
}

// Validate checks the parsed values against each other: positive timeout,
// non-negative thresholds, operands given as a pair, and a backend name
// that is actually registered. Violations come back as a ConfigError.
func (cfg AppConfig) Validate(availableBackends []string) error {
	if cfg.Timeout <= 0 {
		return apperrors.NewConfigError("timeout must be greater than zero")
	}
	if cfg.Threshold < 0 {
		return apperrors.NewConfigError("negative parallelism threshold: %d", cfg.Threshold)
	}
	if cfg.FFTThreshold < 0 {
		return apperrors.NewConfigError("negative FFT threshold: %d", cfg.FFTThreshold)
	}
	if cfg.KaratsubaThreshold < 0 {
		return apperrors.NewConfigError("negative Karatsuba threshold: %d", cfg.KaratsubaThreshold)
	}
	if cfg.CacheEntries < 0 {
		return apperrors.NewConfigError("negative cache entry limit: %d", cfg.CacheEntries)
	}
	if (cfg.X == "") != (cfg.Y == "") {
		return apperrors.NewConfigError("operands must be provided together: set both -x and -y, or neither")
	}
	if cfg.Synthesize() && cfg.Fib == 0 && cfg.Bits == 0 {
		return apperrors.NewConfigError("synthesized operand size must be greater than zero")
	}
	if cfg.Backend != "all" && !slices.Contains(availableBackends, cfg.Backend) {
		return apperrors.NewConfigError("unrecognized backend: '%s'. Valid backends are: 'all' or [%s]", cfg.Backend, strings.Join(availableBackends, ", "))
	}
	return nil
}

// ParseConfig builds the configuration from args: flag definitions with
// their defaults, then GAUSS_* environment overrides for whatever the
// command line left untouched, then validation. programName and errOut
// feed the flag set's usage output, which is what keeps this function
// testable. On a validation failure the usage is printed to errOut and
// a bare error returned for the caller to map to an exit code.
func ParseConfig(programName string, args []string, errOut io.Writer, availableBackends []string) (AppConfig, error) {
	flags := flag.NewFlagSet(programName, flag.ContinueOnError)
	flags.SetOutput(errOut)
	backendHelp := fmt.Sprintf("Multiplier backend to use: 'all' (default) or one of [%s].", strings.Join(availableBackends, ", "))

	var cfg AppConfig
	flags.StringVar(&cfg.X, "x", "", "First operand as a decimal integer (synthesized from -bits/-seed if omitted).")
	flags.StringVar(&cfg.Y, "y", "", "Second operand as a decimal integer.")
	flags.Uint64Var(&cfg.Bits, "bits", DefaultBits, "Bit length of synthesized random operands.")
	flags.Uint64Var(&cfg.Seed, "seed", DefaultSeed, "Seed for deterministic operand synthesis.")
	flags.Uint64Var(&cfg.Fib, "fib", 0, "Compute the nth Fibonacci number with fast doubling instead of a product (0 = off).")
	flags.BoolVar(&cfg.Verbose, "v", false, "Display the full value of the result (can be very long).")
	flags.BoolVar(&cfg.Details, "d", false, "Display performance details and result metadata.")
	flags.BoolVar(&cfg.Details, "details", false, "Alias for -d.")
	flags.DurationVar(&cfg.Timeout, "timeout", DefaultTimeout, "Maximum execution time for the calculation.")
	flags.StringVar(&cfg.Backend, "backend", DefaultBackend, backendHelp)
	flags.IntVar(&cfg.Threshold, "threshold", DefaultThreshold, "Threshold (in bits) for parallel execution of independent products.")
	flags.IntVar(&cfg.FFTThreshold, "fft-threshold", DefaultFFTThreshold, "Operand size (in 64-bit words) above which FFT multiplication engages (0 = calibrated default).")
	flags.IntVar(&cfg.KaratsubaThreshold, "karatsuba-threshold", DefaultKaratsubaThreshold, "Operand size (in 64-bit words) above which Karatsuba multiplication engages (0 = built-in default).")
	flags.BoolVar(&cfg.Parallel, "parallel", true, "Run independent products concurrently above the parallelism threshold.")
	flags.BoolVar(&cfg.Cache, "cache", true, "Enable FFT transform caching for repeated operands.")
	flags.IntVar(&cfg.CacheEntries, "cache-entries", 0, "Maximum entries in the transform cache (0 = package default).")
	flags.BoolVar(&cfg.Calibrate, "calibrate", false, "Run the full calibration benchmark, store the thresholds, and exit.")
	flags.BoolVar(&cfg.AutoCalibrate, "auto-calibrate", false, "Refine thresholds with a quick probe at startup (adds a little latency).")
	flags.StringVar(&cfg.ProfilePath, "calibration-profile", "", "Path to calibration profile file (default: <user config dir>/gauss/calibration.json).")
	flags.BoolVar(&cfg.JSON, "json", false, "Output results in JSON format.")
	flags.BoolVar(&cfg.Serve, "server", false, "Start in HTTP server mode.")
	flags.StringVar(&cfg.Port, "port", DefaultPort, "Port to listen on in server mode.")
	flags.BoolVar(&cfg.NoColor, "no-color", false, "Disable colored output (also respects NO_COLOR env var).")

	flags.StringVar(&cfg.OutputPath, "output", "", "Output file path for the result.")
	flags.StringVar(&cfg.OutputPath, "o", "", "Output file path (shorthand).")
	flags.BoolVar(&cfg.Quiet, "quiet", false, "Quiet mode: print the bare value only, for scripts.")
	flags.BoolVar(&cfg.Quiet, "q", false, "Quiet mode (shorthand).")
	flags.BoolVar(&cfg.Hex, "hex", false, "Display result in hexadecimal format.")
	flags.BoolVar(&cfg.REPL, "interactive", false, "Start in interactive REPL mode.")
	flags.StringVar(&cfg.Completion, "completion", "", "Generate shell completion script (bash, zsh, fish, powershell).")
	flags.BoolVar(&cfg.Concise, "calculate", false, "Display the calculated value (disabled by default).")
	flags.BoolVar(&cfg.Concise, "c", false, "Display the calculated value (shorthand).")

	installUsage(flags)

	if err := flags.Parse(args); err != nil {
		return AppConfig{}, err
	}

	// Environment values fill in only the flags the command line left alone.
	applyEnvOverrides(&cfg, flags)

	cfg.Backend = strings.ToLower(cfg.Backend)
	if err := cfg.Validate(availableBackends); err != nil {
		fmt.Fprintf(errOut, "Configuration error: %v\n", err)
		flags.Usage()
		return AppConfig{}, errors.New("configuration rejected")
	}
	return cfg, nil
}
