// Package calibration measures the multiplication crossover points on the
// current host. This file holds the quick probe suite used at startup; the
// full timed sweep behind the -calibrate flag lives alongside it.
package calibration

import (
	"context"
	"math/big"
	"math/bits"
	"runtime"
	"sync"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/fermatlab/gauss/internal/bigfft"
)

// ─────────────────────────────────────────────────────────────────────────────
// Probe budgets
// ─────────────────────────────────────────────────────────────────────────────

const (
	// defaultProbeIterations is the number of timed products per configuration.
	defaultProbeIterations = 3

	// probeSuiteBudget caps the whole suite. Startup latency is the
	// constraint here, not measurement quality.
	probeSuiteBudget = 400 * time.Millisecond

	// perProbeBudget bounds a single configuration. A probe that blows
	// through it keeps whatever samples it already collected.
	perProbeBudget = 40 * time.Millisecond
)

// KaratsubaProbeSizes spans the crossover between math/big and the pooled
// Karatsuba implementation, in words.
var KaratsubaProbeSizes = []int{16, 32, 64, 128}

// FFTProbeSizes spans the crossover between Karatsuba and the FFT engine,
// in words.
var FFTProbeSizes = []int{900, 1800, 3600, 7200}

// ParallelProbeSizes spans the operand sizes where running independent
// products on separate goroutines starts to pay, in words.
var ParallelProbeSizes = []int{64, 256, 1024}

// ─────────────────────────────────────────────────────────────────────────────
// Probe types
// ─────────────────────────────────────────────────────────────────────────────

// engine selects the multiplication path a probe exercises.
type engine int

const (
	engineStdlib engine = iota
	engineKaratsuba
	engineFFT
)

// probeKind identifies which crossover a measurement contributes to.
type probeKind int

const (
	probeKaratsuba probeKind = iota // math/big vs pooled Karatsuba
	probeFFT                        // Karatsuba vs FFT
	probeParallel                   // serial pair vs concurrent pair
)

// probeSuite estimates the threshold set from a few dozen very short timed
// products.
type probeSuite struct {
	iterations int           // timed products per configuration
	budget     time.Duration // cap on the whole suite
}

// Thresholds is the outcome of one probe suite.
type Thresholds struct {
	// KaratsubaThresholdWords is the estimated crossover from math/big to
	// the pooled Karatsuba implementation, in words.
	KaratsubaThresholdWords int
	// FFTThresholdWords is the estimated crossover from Karatsuba to FFT,
	// in words.
	FFTThresholdWords int
	// ParallelThresholdBits is the estimated operand size above which
	// independent products should run concurrently, in bits.
	ParallelThresholdBits int
	// Confidence in [0, 1] rates how much of the suite produced usable
	// signal; callers below 0.3 should keep their defaults.
	Confidence float64
	// Duration is the wall time the suite actually took.
	Duration time.Duration
}

// measurement carries the summarized timings of one probed configuration.
type measurement struct {
	probe      probeKind
	words      int
	eng        engine
	concurrent bool
	median     time.Duration
	p90        time.Duration
	err        error
}

// noisy reports whether the sample spread suggests an unreliable measurement.
func (m measurement) noisy() bool {
	return m.median > 0 && m.p90 > 2*m.median
}

// ─────────────────────────────────────────────────────────────────────────────
// Probe execution
// ─────────────────────────────────────────────────────────────────────────────

func newProbeSuite() *probeSuite {
	return &probeSuite{
		iterations: defaultProbeIterations,
		budget:     probeSuiteBudget,
	}
}

// run times the multiplication engines against each other at sizes spanning
// each crossover and estimates where Karatsuba, FFT and parallelism start to
// win. Probes cut short by the budget lower the confidence score instead of
// failing the run.
func (ps *probeSuite) run(ctx context.Context) (Thresholds, error) {
	began := time.Now()

	ctx, cancel := context.WithTimeout(ctx, ps.budget)
	defer cancel()

	// Phase 1: engine probes run concurrently for speed.
	measurements := ps.runEngineProbes(ctx)

	// Phase 2: the concurrency probe runs alone. Interference from other
	// probes sharing the cores would mask the serial-vs-parallel signal.
	measurements = append(measurements, ps.runParallelProbes(ctx)...)

	est := estimateThresholds(measurements)
	est.Duration = time.Since(began)

	return est, nil
}

// runEngineProbes executes the stdlib/Karatsuba/FFT comparisons in parallel.
func (ps *probeSuite) runEngineProbes(ctx context.Context) []measurement {
	type plan struct {
		probe probeKind
		words int
		eng   engine
	}

	plans := make([]plan, 0, 2*(len(KaratsubaProbeSizes)+len(FFTProbeSizes)))
	for _, size := range KaratsubaProbeSizes {
		plans = append(plans,
			plan{probeKaratsuba, size, engineStdlib},
			plan{probeKaratsuba, size, engineKaratsuba},
		)
	}
	for _, size := range FFTProbeSizes {
		plans = append(plans,
			plan{probeFFT, size, engineKaratsuba},
			plan{probeFFT, size, engineFFT},
		)
	}

	measurements := make([]measurement, len(plans))
	var wg sync.WaitGroup

	// One probe per core at a time; oversubscription would skew the timings.
	slots := make(chan struct{}, runtime.NumCPU())

	for i, pl := range plans {
		i, pl := i, pl
		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case <-ctx.Done():
				measurements[i] = measurement{probe: pl.probe, words: pl.words, eng: pl.eng, err: ctx.Err()}
				return
			case slots <- struct{}{}:
				defer func() { <-slots }()
			}

			median, p90, err := ps.timeProbe(ctx, pl.words, pl.eng, false)
			measurements[i] = measurement{
				probe:  pl.probe,
				words:  pl.words,
				eng:    pl.eng,
				median: median,
				p90:    p90,
				err:    err,
			}
		}()
	}

	wg.Wait()
	return measurements
}

// runParallelProbes times a pair of independent products executed serially
// and concurrently, one configuration at a time.
func (ps *probeSuite) runParallelProbes(ctx context.Context) []measurement {
	if runtime.NumCPU() <= 1 {
		return nil
	}

	var measurements []measurement
	for _, size := range ParallelProbeSizes {
		for _, concurrent := range []bool{false, true} {
			select {
			case <-ctx.Done():
				return measurements
			default:
			}

			median, p90, err := ps.timeProbe(ctx, size, engineKaratsuba, concurrent)
			measurements = append(measurements, measurement{
				probe:      probeParallel,
				words:      size,
				eng:        engineKaratsuba,
				concurrent: concurrent,
				median:     median,
				p90:        p90,
				err:        err,
			})
		}
	}
	return measurements
}

// timeProbe times one configuration and summarizes the samples.
func (ps *probeSuite) timeProbe(ctx context.Context, words int, eng engine, concurrent bool) (median, p90 time.Duration, err error) {
	x := probeOperand(words, 0)
	y := probeOperand(words, 1)

	// One untimed pass to fault in pools and caches.
	multiplyPair(x, y, eng, concurrent)

	samples := make([]float64, 0, ps.iterations)
	for i := 0; i < ps.iterations; i++ {
		select {
		case <-ctx.Done():
			if len(samples) > 0 {
				return summarize(samples)
			}
			return 0, 0, ctx.Err()
		default:
		}

		began := time.Now()
		multiplyPair(x, y, eng, concurrent)
		elapsed := time.Since(began)
		samples = append(samples, float64(elapsed.Nanoseconds()))

		if elapsed > perProbeBudget {
			break
		}
	}

	return summarize(samples)
}

// summarize reduces raw nanosecond samples to median and 90th percentile.
func summarize(samples []float64) (median, p90 time.Duration, err error) {
	m, err := stats.Median(samples)
	if err != nil {
		return 0, 0, err
	}
	p, err := stats.Percentile(samples, 90)
	if err != nil {
		return 0, 0, err
	}
	return time.Duration(m), time.Duration(p), nil
}

// probeOperand builds a deterministic big.Int with the specified word
// count. The pattern exercises all bits without being uniform, and the seed
// decorrelates operands from each other.
func probeOperand(words, seed int) *big.Int {
	ws := make([]big.Word, words)
	for i := range ws {
		ws[i] = big.Word(0xAAAAAAAAAAAAAAAA ^ uint64(i*0x1234567+seed*0x9E3779B9))
	}
	return new(big.Int).SetBits(ws)
}

// multiplyPair performs two independent products with the given engine,
// either back to back or on separate goroutines.
func multiplyPair(x, y *big.Int, eng engine, concurrent bool) {
	if !concurrent {
		multiplyOnce(x, y, eng)
		multiplyOnce(y, x, eng)
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		multiplyOnce(x, y, eng)
	}()
	go func() {
		defer wg.Done()
		multiplyOnce(y, x, eng)
	}()
	wg.Wait()
}

// multiplyOnce performs a multiplication using the specified engine.
func multiplyOnce(x, y *big.Int, eng engine) *big.Int {
	switch eng {
	case engineKaratsuba:
		return bigfft.KaratsubaMultiply(x, y)
	case engineFFT:
		z, _ := bigfft.Mul(x, y)
		return z
	default:
		return new(big.Int).Mul(x, y)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Result Analysis
// ─────────────────────────────────────────────────────────────────────────────

// estimateThresholds turns the raw probe timings into a threshold set with a
// confidence score attached.
func estimateThresholds(measurements []measurement) Thresholds {
	// Hardware-derived estimates stand in wherever a crossover went unmeasured.
	est := Thresholds{
		KaratsubaThresholdWords: EstimatedKaratsubaWords(),
		FFTThresholdWords:       EstimatedFFTWords(),
		ParallelThresholdBits:   EstimatedParallelBits(),
	}

	usable := 0
	unstable := 0
	for _, m := range measurements {
		if m.err != nil {
			continue
		}
		usable++
		if m.noisy() {
			unstable++
		}
	}
	if usable == 0 {
		// Nothing measured, e.g. the budget expired before any probe finished.
		est.Confidence = 0
		return est
	}
	est.Confidence = 0.4

	if crossover := engineCrossover(measurements, probeKaratsuba, engineStdlib, engineKaratsuba); crossover > 0 {
		est.KaratsubaThresholdWords = crossover
		est.Confidence += 0.2
	}

	if crossover := engineCrossover(measurements, probeFFT, engineKaratsuba, engineFFT); crossover > 0 {
		est.FFTThresholdWords = crossover
		est.Confidence += 0.2
	}

	if crossover := parallelCrossover(measurements); crossover > 0 {
		est.ParallelThresholdBits = crossover
		est.Confidence += 0.2
	}

	// Unstable samples devalue whatever crossovers were found.
	if unstable*2 > usable {
		est.Confidence -= 0.1
	}

	est.Confidence = min(est.Confidence, 1)
	return est
}

// engineCrossover finds the smallest word size at which the fast engine beat
// the slow one among the measurements for the given crossover. It returns 0
// when no such size was observed.
func engineCrossover(measurements []measurement, kind probeKind, slow, fast engine) int {
	bySize := make(map[int]map[engine]time.Duration)
	for _, m := range measurements {
		if m.probe != kind || m.err != nil {
			continue
		}
		if bySize[m.words] == nil {
			bySize[m.words] = make(map[engine]time.Duration)
		}
		bySize[m.words][m.eng] = m.median
	}

	crossover := 0
	for size, medians := range bySize {
		slowMedian, haveSlow := medians[slow]
		fastMedian, haveFast := medians[fast]
		if haveSlow && haveFast && fastMedian < slowMedian {
			if crossover == 0 || size < crossover {
				crossover = size
			}
		}
	}

	if crossover == 0 {
		return 0
	}
	// Report 10% below the observed break-even point so the faster engine
	// engages slightly early rather than slightly late.
	return crossover * 9 / 10
}

// parallelCrossover finds the operand size in bits where running independent
// products concurrently beat running them back to back. It returns 0 when no
// such size was observed.
func parallelCrossover(measurements []measurement) int {
	if runtime.NumCPU() <= 1 {
		return 0
	}

	type timing struct {
		serial, concurrent time.Duration
	}
	bySize := make(map[int]*timing)
	for _, m := range measurements {
		if m.probe != probeParallel || m.err != nil {
			continue
		}
		tm := bySize[m.words]
		if tm == nil {
			tm = &timing{}
			bySize[m.words] = tm
		}
		if m.concurrent {
			tm.concurrent = m.median
		} else {
			tm.serial = m.median
		}
	}

	crossover := 0
	for size, tm := range bySize {
		if tm.serial == 0 || tm.concurrent == 0 {
			continue
		}
		// A size counts only when the concurrent run wins by 10% or more.
		if tm.concurrent < tm.serial*9/10 {
			bitSize := size * bits.UintSize
			if crossover == 0 || bitSize < crossover {
				crossover = bitSize
			}
		}
	}

	return crossover
}

// ─────────────────────────────────────────────────────────────────────────────
// Startup entry points
// ─────────────────────────────────────────────────────────────────────────────

// QuickCalibrate runs the probe suite with the stock budget. It is the
// startup-time entry point and stays well under a second on current hardware.
func QuickCalibrate(ctx context.Context) (Thresholds, error) {
	return newProbeSuite().run(ctx)
}
