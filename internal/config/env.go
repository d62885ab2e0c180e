package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Environment overrides
// ─────────────────────────────────────────────────────────────────────────────

// The env* readers share one contract: the key is looked up under EnvPrefix,
// and anything unset or unparseable falls back to the supplied default
// without complaint.

func envString(key, fallback string) string {
	if raw := os.Getenv(EnvPrefix + key); raw != "" {
		return raw
	}
	return fallback
}

func envUint64(key string, fallback uint64) uint64 {
	raw := os.Getenv(EnvPrefix + key)
	n, err := strconv.ParseUint(raw, 10, 64)
	if raw == "" || err != nil {
		return fallback
	}
	return n
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(EnvPrefix + key)
	n, err := strconv.Atoi(raw)
	if raw == "" || err != nil {
		return fallback
	}
	return n
}

// envBool accepts true/1/yes/on and false/0/no/off in any letter case.
func envBool(key string, fallback bool) bool {
	switch strings.ToLower(os.Getenv(EnvPrefix + key)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return fallback
}

// envDuration takes anything time.ParseDuration does: "5m", "90s", "1h30m".
func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(EnvPrefix + key)
	d, err := time.ParseDuration(raw)
	if raw == "" || err != nil {
		return fallback
	}
	return d
}

// flagsGiven collects the names of every flag set explicitly on the command
// line. flag.Visit walks only those, which is what lets an explicit flag win
// over its environment variable.
func flagsGiven(flags *flag.FlagSet) map[string]bool {
	given := make(map[string]bool)
	flags.Visit(func(f *flag.Flag) { given[f.Name] = true })
	return given
}

// envBinding ties one environment variable to the config field it may fill
// and the command-line spellings that shadow it.
type envBinding struct {
	flags []string
	apply func(*AppConfig)
}

// envBindings enumerates every recognized variable:
//
//	GAUSS_X, GAUSS_Y                 operands as decimal integer strings
//	GAUSS_BITS, GAUSS_SEED           operand synthesis size and seed
//	GAUSS_FIB                        Fibonacci index for the fast-doubling demo
//	GAUSS_BACKEND                    multiplier selection (big, karatsuba, fft, all)
//	GAUSS_PORT                       listen port for server mode
//	GAUSS_TIMEOUT                    calculation budget ("5m", "30s")
//	GAUSS_THRESHOLD                  parallelism threshold in bits
//	GAUSS_FFT_THRESHOLD              FFT threshold in 64-bit words
//	GAUSS_KARATSUBA_THRESHOLD        Karatsuba threshold in 64-bit words
//	GAUSS_PARALLEL, GAUSS_CACHE      backend toggles
//	GAUSS_CACHE_ENTRIES              transform cache bound
//	GAUSS_SERVER, GAUSS_INTERACTIVE  mode toggles
//	GAUSS_CALIBRATE                  run the calibration benchmark and exit
//	GAUSS_AUTO_CALIBRATE             quick threshold probe before calculating
//	GAUSS_CALIBRATION_PROFILE        tuned-threshold profile path
//	GAUSS_JSON, GAUSS_VERBOSE        output shaping
//	GAUSS_QUIET, GAUSS_HEX           output shaping
//	GAUSS_CALCULATE                  include the calculated-value section
//	GAUSS_NO_COLOR                   strip ANSI colors
//	GAUSS_OUTPUT                     result file path
//
// Booleans accept true/1/yes/on and false/0/no/off.
func envBindings() []envBinding {
	return []envBinding{
		{[]string{"x"}, func(c *AppConfig) { c.X = envString("X", c.X) }},
		{[]string{"y"}, func(c *AppConfig) { c.Y = envString("Y", c.Y) }},
		{[]string{"bits"}, func(c *AppConfig) { c.Bits = envUint64("BITS", c.Bits) }},
		{[]string{"seed"}, func(c *AppConfig) { c.Seed = envUint64("SEED", c.Seed) }},
		{[]string{"fib"}, func(c *AppConfig) { c.Fib = envUint64("FIB", c.Fib) }},
		{[]string{"backend"}, func(c *AppConfig) { c.Backend = envString("BACKEND", c.Backend) }},
		{[]string{"port"}, func(c *AppConfig) { c.Port = envString("PORT", c.Port) }},
		{[]string{"timeout"}, func(c *AppConfig) { c.Timeout = envDuration("TIMEOUT", c.Timeout) }},
		{[]string{"threshold"}, func(c *AppConfig) { c.Threshold = envInt("THRESHOLD", c.Threshold) }},
		{[]string{"fft-threshold"}, func(c *AppConfig) { c.FFTThreshold = envInt("FFT_THRESHOLD", c.FFTThreshold) }},
		{[]string{"karatsuba-threshold"}, func(c *AppConfig) { c.KaratsubaThreshold = envInt("KARATSUBA_THRESHOLD", c.KaratsubaThreshold) }},
		{[]string{"parallel"}, func(c *AppConfig) { c.Parallel = envBool("PARALLEL", c.Parallel) }},
		{[]string{"cache"}, func(c *AppConfig) { c.Cache = envBool("CACHE", c.Cache) }},
		{[]string{"cache-entries"}, func(c *AppConfig) { c.CacheEntries = envInt("CACHE_ENTRIES", c.CacheEntries) }},
		{[]string{"server"}, func(c *AppConfig) { c.Serve = envBool("SERVER", c.Serve) }},
		{[]string{"interactive"}, func(c *AppConfig) { c.REPL = envBool("INTERACTIVE", c.REPL) }},
		{[]string{"calibrate"}, func(c *AppConfig) { c.Calibrate = envBool("CALIBRATE", c.Calibrate) }},
		{[]string{"auto-calibrate"}, func(c *AppConfig) { c.AutoCalibrate = envBool("AUTO_CALIBRATE", c.AutoCalibrate) }},
		{[]string{"calibration-profile"}, func(c *AppConfig) { c.ProfilePath = envString("CALIBRATION_PROFILE", c.ProfilePath) }},
		{[]string{"json"}, func(c *AppConfig) { c.JSON = envBool("JSON", c.JSON) }},
		{[]string{"v"}, func(c *AppConfig) { c.Verbose = envBool("VERBOSE", c.Verbose) }},
		{[]string{"d", "details"}, func(c *AppConfig) { c.Details = envBool("DETAILS", c.Details) }},
		{[]string{"quiet", "q"}, func(c *AppConfig) { c.Quiet = envBool("QUIET", c.Quiet) }},
		{[]string{"hex"}, func(c *AppConfig) { c.Hex = envBool("HEX", c.Hex) }},
		{[]string{"calculate", "c"}, func(c *AppConfig) { c.Concise = envBool("CALCULATE", c.Concise) }},
		{[]string{"no-color"}, func(c *AppConfig) { c.NoColor = envBool("NO_COLOR", c.NoColor) }},
		{[]string{"output", "o"}, func(c *AppConfig) { c.OutputPath = envString("OUTPUT", c.OutputPath) }},
	}
}

// applyEnvOverrides fills the configuration from the environment for every
// flag the command line left untouched, giving the priority order flags,
// then environment, then defaults.
func applyEnvOverrides(cfg *AppConfig, flags *flag.FlagSet) {
	given := flagsGiven(flags)

nextBinding:
	for _, b := range envBindings() {
		for _, name := range b.flags {
			if given[name] {
				continue nextBinding
			}
		}
		b.apply(cfg)
	}
}
