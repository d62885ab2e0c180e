package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fermatlab/gauss/internal/config"
	"github.com/fermatlab/gauss/internal/mult"
)

// TestSelectBackends tests backend selection for every -backend spelling.
func TestSelectBackends(t *testing.T) {
	t.Parallel()
	registry := mult.NewRegistry()

	t.Run("Single backend returns one multiplier", func(t *testing.T) {
		t.Parallel()
		cfg := config.AppConfig{Backend: "fft"}
		multipliers := SelectBackends(cfg, registry)

		if len(multipliers) != 1 {
			t.Errorf("Expected 1 multiplier, got %d", len(multipliers))
		}
		if multipliers[0].Name() == "" {
			t.Error("Multiplier name should not be empty")
		}
	})

	t.Run("All backends returns multiple multipliers", func(t *testing.T) {
		t.Parallel()
		cfg := config.AppConfig{Backend: "all"}
		multipliers := SelectBackends(cfg, registry)

		if len(multipliers) < 2 {
			t.Errorf("Expected at least 2 multipliers for 'all', got %d", len(multipliers))
		}
	})

	t.Run("Karatsuba backend", func(t *testing.T) {
		t.Parallel()
		cfg := config.AppConfig{Backend: "karatsuba"}
		multipliers := SelectBackends(cfg, registry)

		if len(multipliers) != 1 {
			t.Errorf("Expected 1 multiplier, got %d", len(multipliers))
		}
	})

	t.Run("Unknown backend returns nil", func(t *testing.T) {
		t.Parallel()
		cfg := config.AppConfig{Backend: "toomcook"}
		if multipliers := SelectBackends(cfg, registry); multipliers != nil {
			t.Errorf("Expected nil for unknown backend, got %d multipliers", len(multipliers))
		}
	})
}

// TestPrintRunConfig checks the run-parameter header lines.
func TestPrintRunConfig(t *testing.T) {
	t.Parallel()

	t.Run("Synthesized operands", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		cfg := config.AppConfig{
			Bits:               1_000_000,
			Seed:               1,
			Timeout:            time.Minute,
			Threshold:          4096,
			FFTThreshold:       1800,
			KaratsubaThreshold: 32,
		}

		PrintRunConfig(cfg, &out)

		got := out.String()
		if got == "" {
			t.Error("PrintRunConfig should produce output")
		}
		if !strings.Contains(got, "synthesized") {
			t.Errorf("Expected synthesized operand description, got: %s", got)
		}
		if !strings.Contains(got, "1,000,000-bit") {
			t.Errorf("Expected formatted bit size, got: %s", got)
		}
	})

	t.Run("Explicit operands", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		cfg := config.AppConfig{
			X:         "123",
			Y:         "4567",
			Timeout:   time.Minute,
			Threshold: 4096,
		}

		PrintRunConfig(cfg, &out)

		got := out.String()
		if !strings.Contains(got, "3-digit") || !strings.Contains(got, "4-digit") {
			t.Errorf("Expected digit counts for explicit operands, got: %s", got)
		}
	})

	t.Run("Fibonacci mode", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		cfg := config.AppConfig{
			Fib:       1000,
			Timeout:   time.Minute,
			Threshold: 4096,
		}

		PrintRunConfig(cfg, &out)

		got := out.String()
		if !strings.Contains(got, "F(1000)") {
			t.Errorf("Expected F(1000) in output, got: %s", got)
		}
		if !strings.Contains(got, "fast doubling") {
			t.Errorf("Expected fast doubling description, got: %s", got)
		}
	})
}

// TestPrintBackendLineup checks the backend lineup header.
func TestPrintBackendLineup(t *testing.T) {
	t.Parallel()
	registry := mult.NewRegistry()

	t.Run("Single multiplier mode", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		multipliers := []mult.Multiplier{registry.MustGet("big")}

		PrintBackendLineup(multipliers, &out)

		got := out.String()
		if !strings.Contains(got, "Single calculation") {
			t.Errorf("Expected single-backend mode description, got: %s", got)
		}
	})

	t.Run("Multiple multipliers mode", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		cfg := config.AppConfig{Backend: "all"}
		multipliers := SelectBackends(cfg, registry)

		PrintBackendLineup(multipliers, &out)

		got := out.String()
		if !strings.Contains(got, "Parallel comparison") {
			t.Errorf("Expected comparison mode description, got: %s", got)
		}
	})
}
