package calibration

import (
	"context"
	"math/big"
	"math/bits"
	"time"

	"github.com/fermatlab/gauss/internal/mult"
)

// probeIterations is the number of timed samples per probe; the median is
// what gets compared.
const probeIterations = 5

// calibrationWords converts CalibrationBits to whole machine words.
func calibrationWords() int {
	return CalibrationBits / bits.UintSize
}

// probeRunner encapsulates the timed probes used by calibration.
type probeRunner struct {
	ctx         context.Context
	trialBudget time.Duration
	trialX      *big.Int
	trialY      *big.Int
}

// newProbeRunner creates a new calibration runner. The per-trial
// budget is derived from the overall timeout with a 2 second floor, so a
// zero timeout yields the floor.
func newProbeRunner(ctx context.Context, timeout time.Duration) *probeRunner {
	trialBudget := timeout / 6
	if trialBudget < 2*time.Second {
		trialBudget = 2 * time.Second
	}
	return &probeRunner{ctx: ctx, trialBudget: trialBudget}
}

// runTrial times one product of two CalibrationBits operands with the
// given multiplier and options, under the per-trial budget. The trial
// operands are generated once and reused across trials.
func (r *probeRunner) runTrial(m mult.Multiplier, opts mult.Options) (duration time.Duration, err error) {
	if r.trialX == nil {
		r.trialX = probeOperand(calibrationWords(), 0)
		r.trialY = probeOperand(calibrationWords(), 1)
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.trialBudget)
	defer cancel()
	began := time.Now()
	_, err = m.Multiply(ctx, r.trialX, r.trialY, opts, nil)
	return time.Since(began), err
}

// timeEngine measures the median duration of one product of two size-word
// operands with the given engine.
func (r *probeRunner) timeEngine(size int, eng engine) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(r.ctx, r.trialBudget)
	defer cancel()

	x := probeOperand(size, 0)
	y := probeOperand(size, 1)

	// Warm up
	multiplyOnce(x, y, eng)

	samples := make([]float64, 0, probeIterations)
	for i := 0; i < probeIterations; i++ {
		if err := ctx.Err(); err != nil {
			if len(samples) > 0 {
				break
			}
			return 0, err
		}
		began := time.Now()
		multiplyOnce(x, y, eng)
		samples = append(samples, float64(time.Since(began).Nanoseconds()))
	}

	median, _, err := summarize(samples)
	return median, err
}

// fastWinsAt reports whether the fast engine beats the slow one at the
// given operand size.
func (r *probeRunner) fastWinsAt(size int, slow, fast engine) (bool, error) {
	slowDur, err := r.timeEngine(size, slow)
	if err != nil {
		return false, err
	}
	fastDur, err := r.timeEngine(size, fast)
	if err != nil {
		return false, err
	}
	return fastDur < slowDur, nil
}

// findCrossover locates the operand size in words at which the fast engine
// overtakes the slow one. It walks geometrically spaced sizes upward from lo
// until the fast engine wins, then bisects the bracket down to roughly 10%
// resolution. Returns 0 when the fast engine never wins at or below hi.
func (r *probeRunner) findCrossover(slow, fast engine, lo, hi int) (int, error) {
	below, above := 0, 0
	for size := lo; size <= hi; size *= 2 {
		faster, err := r.fastWinsAt(size, slow, fast)
		if err != nil {
			return 0, err
		}
		if faster {
			above = size
			break
		}
		below = size
	}
	if above == 0 {
		return 0, nil
	}
	if below == 0 {
		// Fast already wins at the smallest probe size
		return above, nil
	}

	for above-below > below/8+1 {
		mid := (below + above) / 2
		faster, err := r.fastWinsAt(mid, slow, fast)
		if err != nil {
			return 0, err
		}
		if faster {
			above = mid
		} else {
			below = mid
		}
	}
	return above, nil
}

// findBestParallelThreshold sweeps the quick candidate set with full-size
// trial products and returns the parallel threshold in bits that achieved
// the fastest product, along with that duration. Trials that error out are
// skipped, and the fallback wins when every candidate fails.
func (r *probeRunner) findBestParallelThreshold(m mult.Multiplier, fallback int) (threshold int, duration time.Duration) {
	threshold, duration = fallback, unsetDuration
	for _, cand := range QuickThresholdSet().Parallel {
		dur, err := r.runTrial(m, mult.Options{Parallel: cand > 0, ParallelThresholdBits: cand})
		if err != nil {
			continue
		}
		if dur < duration {
			threshold, duration = cand, dur
		}
	}
	return threshold, duration
}
