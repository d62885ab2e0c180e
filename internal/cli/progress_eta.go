package cli

import (
	"strconv"
	"time"
)

const (
	// etaWarmup is the minimum elapsed time before estimates are produced.
	etaWarmup = 100 * time.Millisecond
	// rateSampleInterval is the minimum spacing between rate resamples.
	rateSampleInterval = 50 * time.Millisecond
	// rateSmoothing is the exponential smoothing weight of a new sample.
	rateSmoothing = 0.3
	// maxETA caps runaway estimates from nearly stalled calculations.
	maxETA = 24 * time.Hour
)

// ProgressForecast extends ProgressState with a smoothed progress rate from
// which the time remaining is estimated.
type ProgressForecast struct {
	*ProgressState
	started    time.Time
	sampledAt  time.Time
	sampledAvg float64
	rate       float64 // smoothed progress per second
}

// NewProgressForecast tracks numBackends backends from a zero baseline.
func NewProgressForecast(numBackends int) *ProgressForecast {
	now := time.Now()
	return &ProgressForecast{ProgressState: NewProgressState(numBackends), started: now, sampledAt: now}
}

// Observe records a progress value for one backend and returns the average
// progress together with the estimated time remaining. No estimate is made
// until etaWarmup has elapsed and some progress exists.
func (f *ProgressForecast) Observe(index int, value float64) (float64, time.Duration) {
	f.Update(index, value)
	avg := f.CalculateAverage()

	now := time.Now()
	if now.Sub(f.started) < etaWarmup || avg <= 0.001 {
		f.sampledAt = now
		f.sampledAvg = avg
		return avg, 0
	}

	f.resample(now, avg)
	return avg, f.remainingAt(avg)
}

// resample folds the progress delta since the last accepted sample into the
// smoothed rate. Samples closer together than rateSampleInterval are
// dropped, which keeps the estimate stable when backends report in bursts.
func (f *ProgressForecast) resample(now time.Time, avg float64) {
	since := now.Sub(f.sampledAt)
	if since < rateSampleInterval {
		return
	}
	if delta := avg - f.sampledAvg; delta > 0 {
		if f.rate > 0 {
			f.rate += rateSmoothing * (delta/since.Seconds() - f.rate)
		} else {
			// The first sample seeds the rate from the start-to-now average.
			f.rate = avg / now.Sub(f.started).Seconds()
		}
	}
	f.sampledAt = now
	f.sampledAvg = avg
}

// Remaining returns the estimate at the current average without recording a
// sample, for display refreshes between backend reports.
func (f *ProgressForecast) Remaining() time.Duration {
	return f.remainingAt(f.CalculateAverage())
}

func (f *ProgressForecast) remainingAt(avg float64) time.Duration {
	if f.rate <= 0 || avg >= 1.0 {
		return 0
	}
	eta := time.Duration((1.0 - avg) / f.rate * float64(time.Second))
	return min(eta, maxETA)
}

// formatETA renders a duration in its shortest unambiguous unit pair, such
// as "45s", "2m30s" or "1h15m". Non-positive durations render as
// "estimating..." because no estimate exists yet.
func formatETA(eta time.Duration) string {
	switch {
	case eta <= 0:
		return "estimating..."
	case eta < time.Second:
		return "< 1s"
	case eta < time.Minute:
		return strconv.Itoa(int(eta.Seconds())) + "s"
	case eta < time.Hour:
		return unitPair(int(eta.Minutes()), "m", int(eta.Seconds())%60, "s")
	default:
		return unitPair(int(eta.Hours()), "h", int(eta.Minutes())%60, "m")
	}
}

// unitPair renders "4m" or "4m30s" style values, dropping a zero remainder.
func unitPair(major int, majorUnit string, minor int, minorUnit string) string {
	s := strconv.Itoa(major) + majorUnit
	if minor > 0 {
		s += strconv.Itoa(minor) + minorUnit
	}
	return s
}
