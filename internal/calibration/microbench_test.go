package calibration

import (
	"context"
	"math/bits"
	"runtime"
	"testing"
	"time"
)

func TestNewProbeSuite(t *testing.T) {
	t.Parallel()
	ps := newProbeSuite()
	if ps.iterations <= 0 {
		t.Errorf("iterations = %d, want > 0", ps.iterations)
	}
	if ps.budget <= 0 {
		t.Errorf("budget = %v, want > 0", ps.budget)
	}
	if len(KaratsubaProbeSizes) == 0 || len(FFTProbeSizes) == 0 || len(ParallelProbeSizes) == 0 {
		t.Error("default probe size sets must not be empty")
	}
}

func TestProbeSuiteRun(t *testing.T) {
	ps := newProbeSuite()
	ps.iterations = 3
	ps.budget = 2 * time.Second

	est, err := ps.run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	t.Logf("probe suite: Karatsuba=%d, FFT=%d, Par=%d, Conf=%f, Dur=%v",
		est.KaratsubaThresholdWords, est.FFTThresholdWords,
		est.ParallelThresholdBits, est.Confidence, est.Duration)

	if est.KaratsubaThresholdWords <= 0 {
		t.Errorf("KaratsubaThresholdWords = %d, want > 0", est.KaratsubaThresholdWords)
	}
	if est.FFTThresholdWords <= 0 {
		t.Errorf("FFTThresholdWords = %d, want > 0", est.FFTThresholdWords)
	}
	if est.ParallelThresholdBits < 0 {
		t.Errorf("ParallelThresholdBits = %d, want >= 0", est.ParallelThresholdBits)
	}
	if est.Confidence < 0 || est.Confidence > 1.0 {
		t.Errorf("Confidence = %f, want within [0, 1]", est.Confidence)
	}
	if est.Duration <= 0 {
		t.Errorf("Duration = %v, want > 0", est.Duration)
	}
}

func TestQuickCalibrate(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	est, err := QuickCalibrate(ctx)
	if err != nil {
		t.Fatalf("QuickCalibrate: %v", err)
	}
	if est.Confidence < 0 || est.Confidence > 1.0 {
		t.Errorf("Confidence = %f, want within [0, 1]", est.Confidence)
	}
}

func TestEstimateThresholdsEmpty(t *testing.T) {
	t.Parallel()
	est := estimateThresholds(nil)
	if est.Confidence != 0 {
		t.Errorf("Confidence = %f, want 0 for empty measurements", est.Confidence)
	}

	// Even with nothing measured, the estimates must be usable.
	if est.KaratsubaThresholdWords != EstimatedKaratsubaWords() {
		t.Errorf("KaratsubaThresholdWords = %d, want hardware estimate %d", est.KaratsubaThresholdWords, EstimatedKaratsubaWords())
	}
	if est.FFTThresholdWords != EstimatedFFTWords() {
		t.Errorf("FFTThresholdWords = %d, want hardware estimate %d", est.FFTThresholdWords, EstimatedFFTWords())
	}
	if est.ParallelThresholdBits != EstimatedParallelBits() {
		t.Errorf("ParallelThresholdBits = %d, want hardware estimate %d", est.ParallelThresholdBits, EstimatedParallelBits())
	}
}

func TestProbeSuiteCanceledContext(t *testing.T) {
	t.Parallel()
	ps := newProbeSuite()
	ps.iterations = 100

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	est, err := ps.run(ctx)
	if err != nil {
		t.Errorf("run on a canceled context: err = %v, want nil", err)
	}
	if est.Confidence != 0 {
		t.Errorf("Confidence = %f, want 0 for a canceled run", est.Confidence)
	}
}

func TestEngineCrossover(t *testing.T) {
	t.Parallel()

	// Karatsuba loses at 16 words and wins from 32 words up. The crossover is
	// the smallest winning size, reported with a 10% margin.
	measurements := []measurement{
		{probe: probeKaratsuba, words: 16, eng: engineStdlib, median: 100 * time.Microsecond},
		{probe: probeKaratsuba, words: 16, eng: engineKaratsuba, median: 150 * time.Microsecond},
		{probe: probeKaratsuba, words: 32, eng: engineStdlib, median: 400 * time.Microsecond},
		{probe: probeKaratsuba, words: 32, eng: engineKaratsuba, median: 300 * time.Microsecond},
		{probe: probeKaratsuba, words: 64, eng: engineStdlib, median: 1600 * time.Microsecond},
		{probe: probeKaratsuba, words: 64, eng: engineKaratsuba, median: 900 * time.Microsecond},
	}

	got := engineCrossover(measurements, probeKaratsuba, engineStdlib, engineKaratsuba)
	if got != 32*9/10 {
		t.Errorf("engineCrossover = %d, want %d", got, 32*9/10)
	}
}

func TestEngineCrossoverNotObserved(t *testing.T) {
	t.Parallel()

	// FFT never wins at the probed sizes: no crossover to report.
	measurements := []measurement{
		{probe: probeFFT, words: 900, eng: engineKaratsuba, median: 100 * time.Microsecond},
		{probe: probeFFT, words: 900, eng: engineFFT, median: 300 * time.Microsecond},
		{probe: probeFFT, words: 1800, eng: engineKaratsuba, median: 400 * time.Microsecond},
		{probe: probeFFT, words: 1800, eng: engineFFT, median: 500 * time.Microsecond},
	}

	if got := engineCrossover(measurements, probeFFT, engineKaratsuba, engineFFT); got != 0 {
		t.Errorf("engineCrossover = %d, want 0", got)
	}
}

func TestParallelCrossover(t *testing.T) {
	t.Parallel()
	if runtime.NumCPU() <= 1 {
		t.Skip("parallel crossover requires multiple CPUs")
	}

	measurements := []measurement{
		// 64 words: concurrency not worth it (under 10% improvement)
		{probe: probeParallel, words: 64, concurrent: false, median: 100 * time.Microsecond},
		{probe: probeParallel, words: 64, concurrent: true, median: 95 * time.Microsecond},
		// 256 words: clear win
		{probe: probeParallel, words: 256, concurrent: false, median: 1000 * time.Microsecond},
		{probe: probeParallel, words: 256, concurrent: true, median: 600 * time.Microsecond},
	}

	got := parallelCrossover(measurements)
	if want := 256 * bits.UintSize; got != want {
		t.Errorf("parallelCrossover = %d, want %d", got, want)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()
	samples := []float64{100, 200, 300, 400, 500}
	median, p90, err := summarize(samples)
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if median != 300*time.Nanosecond {
		t.Errorf("median = %v, want 300ns", median)
	}
	if p90 < 400*time.Nanosecond || p90 > 500*time.Nanosecond {
		t.Errorf("p90 = %v, want within [400ns, 500ns]", p90)
	}

	if _, _, err := summarize(nil); err == nil {
		t.Error("summarize(nil): err = nil, want error")
	}
}

func TestProbeOperand(t *testing.T) {
	t.Parallel()
	const words = 12
	op := probeOperand(words, 0)
	if len(op.Bits()) != words {
		t.Errorf("len(Bits) = %d, want %d", len(op.Bits()), words)
	}

	// Different seeds must decorrelate the operands.
	if other := probeOperand(words, 1); op.Cmp(other) == 0 {
		t.Error("seeds 0 and 1 produced the same operand")
	}

	// The same seed must be deterministic.
	if again := probeOperand(words, 0); op.Cmp(again) != 0 {
		t.Error("seed 0 is not deterministic")
	}
}
