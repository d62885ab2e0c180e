package mult

import "math"

// ProgressUpdate carries the progress state of one multiplication over a
// channel from the worker running it to the user interface.
type ProgressUpdate struct {
	// BackendIndex identifies which backend the update belongs to, so the
	// UI can aggregate several concurrent multiplications.
	BackendIndex int
	// Value is the normalized progress of that backend, from 0.0 to 1.0.
	Value float64
}

// progressReporter is the callback type core loops use to report normalized
// progress (0.0 to 1.0) without being coupled to the channel-based
// communication of the broader application.
type progressReporter func(progress float64)

// newChannelReporter adapts a progress channel into a reporter callback.
// Values are clamped to [0,1] and updates closer than
// progressReportThreshold to the previous one are dropped, except for the
// terminal 1.0. Sends never block: a slow consumer misses intermediate
// updates rather than stalling the computation.
func newChannelReporter(ch chan<- float64) progressReporter {
	if ch == nil {
		return func(float64) {}
	}
	last := -1.0
	return func(p float64) {
		switch {
		case p < 0:
			p = 0
		case p > 1:
			p = 1
		}
		if p < 1 && p-last < progressReportThreshold {
			return
		}
		last = p
		select {
		case ch <- p:
		default:
		}
	}
}

// calcTotalWork estimates the total work of a doubling loop over numBits
// bits. The cost of a doubling step is dominated by the products of the
// current values, whose sizes double each step, so the work per step grows
// roughly by 4x and the total is the geometric sum (4^n - 1) / 3.
func calcTotalWork(bits int) float64 {
	if bits == 0 {
		return 0
	}
	return (math.Pow(4, float64(bits)) - 1) / 3
}

// pow4 caches 4^i for i < 64. Doubling loops index it once per bit, which
// keeps math.Pow out of the hot loop. 64 entries cover any uint64 input.
var pow4 [64]float64

func init() {
	pow4[0] = 1.0
	for i := 1; i < len(pow4); i++ {
		pow4[i] = pow4[i-1] * 4.0
	}
}

// precomputePowers4 returns a slice where the element at i holds 4^i. For
// the uint64 range it aliases the precomputed array and allocates nothing.
func precomputePowers4(bits int) []float64 {
	if bits <= 0 {
		return nil
	}
	if bits > len(pow4) {
		out := make([]float64, bits)
		copy(out, pow4[:])
		for i := len(pow4); i < bits; i++ {
			out[i] = out[i-1] * 4.0
		}
		return out
	}
	return pow4[:bits]
}

// reportStepProgress accumulates the work of the step for bit i (counting
// down from bits-1) and invokes the reporter when progress advanced by at
// least progressReportThreshold or the loop is at either boundary. It
// returns the updated cumulative work.
func reportStepProgress(report progressReporter, last *float64, total, done float64, i, bits int, pow []float64) float64 {
	// The loop runs MSB to LSB: at i = bits-1 the values are tiny, at
	// i = 0 they are full-sized, so the step cost is 4^(bits-1-i).
	done += pow[bits-1-i]

	if total > 0 {
		frac := done / total
		if frac-*last >= progressReportThreshold || i == 0 || i == bits-1 {
			report(frac)
			*last = frac
		}
	}
	return done
}
