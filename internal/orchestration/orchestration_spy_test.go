package orchestration

import (
	"context"
	"io"
	"math/big"
	"testing"

	"github.com/fermatlab/gauss/internal/config"
	"github.com/fermatlab/gauss/internal/mult"
)

// TestCompareBackendsRespectsThresholdConfig verifies that the orchestration
// layer passes the tuning thresholds from the AppConfig through to the
// backend Options. The values below are deliberately unusual so a default
// leaking in anywhere along the path would be caught.
func TestCompareBackendsRespectsThresholdConfig(t *testing.T) {
	t.Parallel()

	spy := &thresholdSpy{}
	cfg := config.AppConfig{
		FFTThreshold:       12345,
		KaratsubaThreshold: 678,
		Threshold:          90123,
		Parallel:           true,
	}

	CompareBackends(context.Background(), []mult.Multiplier{spy}, cfg, big.NewInt(2), big.NewInt(3), io.Discard)

	if spy.opts.FFTThresholdWords != 12345 {
		t.Errorf("FFTThresholdWords = %d, want 12345", spy.opts.FFTThresholdWords)
	}
	if spy.opts.KaratsubaThreshold != 678 {
		t.Errorf("KaratsubaThreshold = %d, want 678", spy.opts.KaratsubaThreshold)
	}
	if spy.opts.ParallelThresholdBits != 90123 {
		t.Errorf("ParallelThresholdBits = %d, want 90123", spy.opts.ParallelThresholdBits)
	}
	if !spy.opts.Parallel {
		t.Error("Parallel = false, want true")
	}
}

// thresholdSpy records the Options it was handed instead of computing.
type thresholdSpy struct {
	opts mult.Options
}

func (s *thresholdSpy) Multiply(ctx context.Context, x, y *big.Int, opts mult.Options, progress chan<- float64) (*big.Int, error) {
	s.opts = opts
	return new(big.Int).Mul(x, y), nil
}

func (s *thresholdSpy) Name() string {
	return "spy"
}
