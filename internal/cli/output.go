package cli

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fermatlab/gauss/internal/config"
)

// OutputConfig selects where and how a finished result is rendered.
type OutputConfig struct {
	OutputPath string // destination path, empty for screen only
	Hex        bool   // base 16 instead of decimal
	Quiet      bool   // bare value, no analysis and no save message
	Verbose    bool   // never truncate the value
	Concise    bool   // include the calculated-value section
}

// OutputConfigFrom extracts the output-shaping subset of the application
// configuration.
func OutputConfigFrom(cfg config.AppConfig) OutputConfig {
	return OutputConfig{
		OutputPath: cfg.OutputPath,
		Hex:        cfg.Hex,
		Quiet:      cfg.Quiet,
		Verbose:    cfg.Verbose,
		Concise:    cfg.Concise,
	}
}

// WriteResultToFile saves a result under cfg.OutputPath, creating parent
// directories as needed. The file starts with a commented header recording
// the backend, the timing and the operand sizes, so a saved product can be
// traced back to the run that made it. Operand sizes of zero are left out
// of the header. An empty OutputPath is a no-op.
func WriteResultToFile(result *big.Int, label string, xBits, yBits int, duration time.Duration, backend string, cfg OutputConfig) error {
	if cfg.OutputPath == "" {
		return nil
	}
	if dir := filepath.Dir(cfg.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	var body strings.Builder
	fmt.Fprintf(&body, "# Gauss calculation record\n")
	fmt.Fprintf(&body, "# Written: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&body, "# Backend: %s\n", backend)
	fmt.Fprintf(&body, "# Duration: %s\n", duration)
	if xBits > 0 && yBits > 0 {
		fmt.Fprintf(&body, "# Operands: %d bits x %d bits\n", xBits, yBits)
	}
	fmt.Fprintf(&body, "# Bits: %d\n# Digits: %d\n\n", result.BitLen(), DecimalDigits(result))

	if cfg.Hex {
		fmt.Fprintf(&body, "%s [hex] =\n0x%s\n", label, result.Text(16))
	} else {
		fmt.Fprintf(&body, "%s =\n%s\n", label, result.String())
	}

	if err := os.WriteFile(cfg.OutputPath, []byte(body.String()), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", cfg.OutputPath, err)
	}
	return nil
}

// FormatQuietResult renders the bare value on a single line, decimal or
// 0x-prefixed hex, so scripts can consume it without stripping decoration.
func FormatQuietResult(result *big.Int, asHex bool) string {
	if asHex {
		return "0x" + result.Text(16)
	}
	return result.String()
}

// DisplayQuietResult writes the bare value and a newline to out.
func DisplayQuietResult(out io.Writer, result *big.Int, asHex bool) {
	fmt.Fprintln(out, FormatQuietResult(result, asHex))
}

// OutputResult drives the full output pipeline from one config:
// quiet mode prints the bare value, normal mode prints the analysis block
// plus an optional hex rendition, and either mode saves to a file when a
// path is set. The save confirmation is suppressed in quiet mode so stdout
// stays machine-readable.
func OutputResult(out io.Writer, result *big.Int, label string, xBits, yBits int, duration time.Duration, backend string, cfg OutputConfig) error {
	if cfg.Quiet {
		DisplayQuietResult(out, result, cfg.Hex)
		return saveWithConfirmation(out, result, label, xBits, yBits, duration, backend, cfg)
	}

	DisplayResult(result, label, duration, cfg.Verbose, true, cfg.Concise, out)
	if cfg.Hex {
		printHexSection(out, result, label, cfg.Verbose)
	}
	return saveWithConfirmation(out, result, label, xBits, yBits, duration, backend, cfg)
}

// printHexSection renders the base-16 form, truncating long values to their
// first and last 40 digits unless verbose output was requested.
func printHexSection(out io.Writer, result *big.Int, label string, verbose bool) {
	fmt.Fprintf(out, "\n%s\n", ColorBold()+"Hexadecimal format:"+ColorReset())
	digits := result.Text(16)
	if len(digits) > 100 && !verbose {
		fmt.Fprintf(out, "%s [hex] = %s0x%s...%s%s\n", label, ColorGreen(), digits[:40], digits[len(digits)-40:], ColorReset())
		return
	}
	fmt.Fprintf(out, "%s [hex] = %s0x%s%s\n", label, ColorGreen(), digits, ColorReset())
}

func saveWithConfirmation(out io.Writer, result *big.Int, label string, xBits, yBits int, duration time.Duration, backend string, cfg OutputConfig) error {
	if cfg.OutputPath == "" {
		return nil
	}
	if err := WriteResultToFile(result, label, xBits, yBits, duration, backend, cfg); err != nil {
		return err
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "\n%s✓ Result saved to: %s%s%s\n", ColorGreen(), ColorCyan(), cfg.OutputPath, ColorReset())
	}
	return nil
}
