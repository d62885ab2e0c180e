package calibration

import (
	"context"
	"fmt"
	"io"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/fermatlab/gauss/internal/bigfft"
	"github.com/fermatlab/gauss/internal/cli"
	"github.com/fermatlab/gauss/internal/config"
	apperrors "github.com/fermatlab/gauss/internal/errors"
	"github.com/fermatlab/gauss/internal/mult"
)

// CalibrationBits is the operand size, in bits, used for full calibration
// trials. It is large enough that the FFT path dominates and threshold
// changes show up in the timings.
const CalibrationBits = 4_000_000

// unsetDuration marks a timing slot no trial ever filled.
const unsetDuration = time.Duration(math.MaxInt64)

// CalibrationOptions controls where the profile lives and whether a run
// consults or rewrites it.
type CalibrationOptions struct {
	// Path overrides where the profile is read and written; empty selects
	// DefaultProfilePath.
	Path string
	// Persist writes the measured thresholds back to the profile.
	Persist bool
	// ReuseCached short-circuits the run when a stored profile fits this
	// host.
	ReuseCached bool
}

// trialResult records one timed trial of a parallel threshold
// candidate.
type trialResult struct {
	threshold int
	took      time.Duration
	err       error
}

// ApplyGlobalThresholds pushes calibrated crossovers into the bigfft package
// so every multiplication that defers to the package defaults picks them up.
// Zero values leave the corresponding threshold untouched.
func ApplyGlobalThresholds(karatsubaWords, fftWords int) {
	if karatsubaWords > 0 {
		bigfft.SetKaratsubaThreshold(karatsubaWords)
	}
	if fftWords > 0 {
		bigfft.SetFFTThreshold(fftWords)
	}
}

// RunCalibration measures the multiplication thresholds that suit the
// current hardware and reports them.
//
// It first locates the algorithm crossovers (math/big to Karatsuba, Karatsuba
// to FFT) by timed probes at geometrically spaced operand sizes, narrowing
// each bracket by bisection. It then sweeps the adaptive parallel threshold
// candidates with full-size products through the registry's fft backend and
// keeps the threshold with the fastest run. The exit code follows the usual
// process conventions, with progress and the results table written to out.
// The registry must include the "fft" backend.
func RunCalibration(ctx context.Context, out io.Writer, reg *mult.Registry) int {
	return RunCalibrationWithOptions(ctx, out, reg, CalibrationOptions{
		Persist: true,
		// An explicit -calibrate asks for fresh measurements, so no cache.
		ReuseCached: false,
	})
}

// RunCalibrationWithOptions is RunCalibration with explicit profile handling.
func RunCalibrationWithOptions(ctx context.Context, out io.Writer, reg *mult.Registry, opts CalibrationOptions) int {
	fmt.Fprintf(out, "--- Calibration Mode: Measuring Multiplication Crossovers ---\n")

	if opts.ReuseCached {
		if profile, ok := LoadOrCreateProfile(opts.Path); ok && profile.IsValid() {
			fmt.Fprintf(out, "%sReusing the profile stored at %s%s\n", cli.ColorGreen(), DefaultProfilePath(), cli.ColorReset())
			fmt.Fprintf(out, "%s\n", profile.String())
			fmt.Fprintf(out, "\n%s✅ Using cached calibration: %s--threshold %d --fft-threshold %d%s\n",
				cli.ColorGreen(), cli.ColorYellow(),
				profile.OptimalParallelThresholdBits, profile.OptimalFFTThresholdWords, cli.ColorReset())
			return apperrors.ExitOK
		}
	}

	multiplier, err := reg.Get("fft")
	if err != nil {
		fmt.Fprintf(out, "%sCritical error: the 'fft' backend is required for calibration but was not found.%s\n", cli.ColorRed(), cli.ColorReset())
		return apperrors.ExitFailure
	}

	runStart := time.Now()
	runner := newProbeRunner(ctx, 0)

	// Phase 1: locate the algorithm crossovers.
	fmt.Fprintf(out, "%sProbing algorithm crossovers (geometric sizes, bisection)...%s\n",
		cli.ColorCyan(), cli.ColorReset())

	karatsubaWords, kerr := runner.findCrossover(engineStdlib, engineKaratsuba, 8, 512)
	if ctx.Err() != nil {
		return interrupted(out)
	}
	if kerr != nil || karatsubaWords == 0 {
		karatsubaWords = EstimatedKaratsubaWords()
		fmt.Fprintf(out, "%sKaratsuba crossover not observed, using estimate: %d words%s\n",
			cli.ColorYellow(), karatsubaWords, cli.ColorReset())
	} else {
		fmt.Fprintf(out, "Karatsuba crossover: %s%d words%s\n", cli.ColorCyan(), karatsubaWords, cli.ColorReset())
	}

	fftWords, ferr := runner.findCrossover(engineKaratsuba, engineFFT, 256, 32768)
	if ctx.Err() != nil {
		return interrupted(out)
	}
	if ferr != nil || fftWords == 0 {
		fftWords = EstimatedFFTWords()
		fmt.Fprintf(out, "%sFFT crossover not observed, using estimate: %d words%s\n",
			cli.ColorYellow(), fftWords, cli.ColorReset())
	} else {
		fmt.Fprintf(out, "FFT crossover: %s%d words%s\n", cli.ColorCyan(), fftWords, cli.ColorReset())
	}

	// Phase 2: sweep the parallel threshold candidates with full-size products.
	candidates := FullThresholdSet().Parallel
	fmt.Fprintf(out, "%sCandidate set sized for %d CPU cores%s\n", cli.ColorCyan(), runtime.NumCPU(), cli.ColorReset())

	trials := make([]trialResult, 0, len(candidates))
	best := unsetDuration
	bestAt := 0

	var wg sync.WaitGroup
	updates := make(chan mult.ProgressUpdate, 5)
	wg.Add(1)
	go cli.DisplayProgress(&wg, updates, 1, out)

	backendProgress := make(chan float64, 5)
	var forwardWG sync.WaitGroup
	forwardWG.Add(1)
	go func() {
		defer forwardWG.Done()
		for v := range backendProgress {
			updates <- mult.ProgressUpdate{BackendIndex: 0, Value: v}
		}
	}()

	stopProgress := func() {
		close(backendProgress)
		forwardWG.Wait()
		close(updates)
		wg.Wait()
	}

	x := probeOperand(calibrationWords(), 0)
	y := probeOperand(calibrationWords(), 1)

	for _, threshold := range candidates {
		if ctx.Err() != nil {
			stopProgress()
			return interrupted(out)
		}

		trialOpts := mult.Options{
			KaratsubaThreshold:    karatsubaWords,
			FFTThresholdWords:     fftWords,
			Parallel:              threshold > 0,
			ParallelThresholdBits: threshold,
		}

		trialStart := time.Now()
		_, err := multiplier.Multiply(ctx, x, y, trialOpts, backendProgress)
		took := time.Since(trialStart)

		if err != nil {
			fmt.Fprintf(out, "%s❌ No timing (%v)%s\n", cli.ColorRed(), err, cli.ColorReset())
			trials = append(trials, trialResult{threshold, 0, err})
			if apperrors.IsContextError(err) {
				stopProgress()
				return apperrors.HandleComputeError(err, took, out, cli.ThemePalette{})
			}
			continue
		}

		trials = append(trials, trialResult{threshold, took, nil})
		if took < best {
			best, bestAt = took, threshold
		}
	}
	stopProgress()

	// best still at its sentinel means every trial errored out.
	if best == unsetDuration {
		fmt.Fprintf(out, "\n%sCalibration produced no usable timings.%s\n", cli.ColorRed(), cli.ColorReset())
		return apperrors.ExitFailure
	}

	printCalibrationResults(out, trials, bestAt)

	fmt.Fprintf(out, "\n%s✅ Recommendation for this machine: %s--threshold %d --fft-threshold %d --karatsuba-threshold %d%s\n",
		cli.ColorGreen(), cli.ColorYellow(), bestAt, fftWords, karatsubaWords, cli.ColorReset())

	ApplyGlobalThresholds(karatsubaWords, fftWords)

	if opts.Persist {
		successes := 0
		for _, tr := range trials {
			if tr.err == nil {
				successes++
			}
		}

		p := NewProfile()
		p.OptimalKaratsubaThresholdWords = karatsubaWords
		p.OptimalFFTThresholdWords = fftWords
		p.OptimalParallelThresholdBits = bestAt
		p.CalibrationBits = CalibrationBits
		p.RunDuration = time.Since(runStart).String()
		p.InitializeDefaultRanges()
		for _, r := range DefaultBitRanges {
			if CalibrationBits >= r.MinBits && CalibrationBits <= r.MaxBits {
				p.AddRangeThresholds(RangeThresholds{
					MinBits:                 r.MinBits,
					MaxBits:                 r.MaxBits,
					KaratsubaThresholdWords: karatsubaWords,
					FFTThresholdWords:       fftWords,
					ParallelThresholdBits:   bestAt,
					ConfidenceScore:         0.8,
					MeasurementCount:        successes,
				})
			}
		}

		if err := p.Save(opts.Path); err != nil {
			fmt.Fprintf(out, "%sWarning: profile not saved: %v%s\n", cli.ColorYellow(), err, cli.ColorReset())
		} else {
			fmt.Fprintf(out, "%sThresholds stored in %s%s\n", cli.ColorGreen(), DefaultProfilePath(), cli.ColorReset())
		}
	}

	return apperrors.ExitOK
}

// interrupted reports a canceled run on out and yields the matching exit
// code.
func interrupted(out io.Writer) int {
	fmt.Fprintf(out, "\n%sCalibration stopped before finishing.%s\n", cli.ColorYellow(), cli.ColorReset())
	return apperrors.ExitCanceled
}

// AutoCalibrate tunes the threshold fields of cfg at startup, cheaply enough
// that it does not noticeably delay the actual computation. A valid cached
// profile wins outright; otherwise it runs the quick micro-benchmarks and, if
// those lack confidence, a reduced set of timed probes. The bool reports
// whether any tuned configuration was produced; on false the input cfg comes
// back untouched.
func AutoCalibrate(parentCtx context.Context, cfg config.AppConfig, out io.Writer, reg *mult.Registry) (config.AppConfig, bool) {
	return AutoCalibrateWithProfile(parentCtx, cfg, out, reg, cfg.ProfilePath)
}

// AutoCalibrateWithProfile is AutoCalibrate against a specific profile path.
func AutoCalibrateWithProfile(parentCtx context.Context, cfg config.AppConfig, out io.Writer, reg *mult.Registry, profilePath string) (config.AppConfig, bool) {
	// The fft backend runs the trial products; without it there is nothing
	// to calibrate against.
	multiplier, err := reg.Get("fft")
	if err != nil {
		return cfg, false
	}

	if profile, ok := LoadOrCreateProfile(profilePath); ok && profile.IsValid() {
		tuned := overrideThresholds(cfg, profile.OptimalParallelThresholdBits,
			profile.OptimalFFTThresholdWords, profile.OptimalKaratsubaThresholdWords)
		ApplyGlobalThresholds(tuned.KaratsubaThreshold, tuned.FFTThreshold)

		fmt.Fprintf(out, "%sUsing cached calibration%s: parallelism=%s%d%s bits, FFT=%s%d%s words, Karatsuba=%s%d%s words\n",
			cli.ColorGreen(), cli.ColorReset(), cli.ColorYellow(), tuned.Threshold, cli.ColorReset(),
			cli.ColorYellow(), tuned.FFTThreshold, cli.ColorReset(),
			cli.ColorYellow(), tuned.KaratsubaThreshold, cli.ColorReset())
		return tuned, true
	}

	quick, err := QuickCalibrate(parentCtx)
	if err == nil && quick.Confidence >= 0.5 {
		tuned := overrideThresholds(cfg, quick.ParallelThresholdBits,
			quick.FFTThresholdWords, quick.KaratsubaThresholdWords)
		ApplyGlobalThresholds(tuned.KaratsubaThreshold, tuned.FFTThreshold)

		fmt.Fprintf(out, "%sQuick calibration%s (%v): parallelism=%s%d%s bits, FFT=%s%d%s words, Karatsuba=%s%d%s words (confidence: %.0f%%)\n",
			cli.ColorGreen(), cli.ColorReset(), quick.Duration.Round(time.Millisecond),
			cli.ColorYellow(), tuned.Threshold, cli.ColorReset(),
			cli.ColorYellow(), tuned.FFTThreshold, cli.ColorReset(),
			cli.ColorYellow(), tuned.KaratsubaThreshold, cli.ColorReset(),
			quick.Confidence*100)

		persistThresholds(tuned, profilePath, out)
		return tuned, true
	}

	// Quick calibration failed or came back below the confidence bar; pay
	// for the timed probes.
	runner := newProbeRunner(parentCtx, cfg.Timeout)

	karatsubaWords, kerr := runner.findCrossover(engineStdlib, engineKaratsuba, 8, 512)
	if kerr != nil {
		karatsubaWords = 0
	}
	fftWords, ferr := runner.findCrossover(engineKaratsuba, engineFFT, 256, 32768)
	if ferr != nil {
		fftWords = 0
	}
	bestPar, bestParDur := runner.findBestParallelThreshold(multiplier, cfg.Threshold)

	tuned, ok := applyCalibrationResults(cfg, karatsubaWords, fftWords, bestPar, bestParDur)
	if !ok {
		return cfg, false
	}
	ApplyGlobalThresholds(tuned.KaratsubaThreshold, tuned.FFTThreshold)

	persistThresholds(tuned, profilePath, out)
	printAutoCalibration(tuned, out)

	return tuned, true
}

// LoadCachedCalibration folds a stored profile's thresholds into cfg. It
// reports false, with cfg unchanged, when no usable profile exists.
func LoadCachedCalibration(cfg config.AppConfig, profilePath string) (config.AppConfig, bool) {
	profile, ok := LoadOrCreateProfile(profilePath)
	if !ok || !profile.IsValid() {
		return cfg, false
	}
	return overrideThresholds(cfg, profile.OptimalParallelThresholdBits,
		profile.OptimalFFTThresholdWords, profile.OptimalKaratsubaThresholdWords), true
}

// overrideThresholds returns cfg with all three threshold fields replaced.
func overrideThresholds(cfg config.AppConfig, parallelBits, fftWords, karatsubaWords int) config.AppConfig {
	cfg.Threshold = parallelBits
	cfg.FFTThreshold = fftWords
	cfg.KaratsubaThreshold = karatsubaWords
	return cfg
}

// applyCalibrationResults folds whichever probe results are usable into cfg.
// A crossover of 0 means the probe saw nothing, and a sweep duration still
// at the sentinel means no parallel trial finished; with all three absent
// there is nothing to apply.
func applyCalibrationResults(cfg config.AppConfig, karatsubaWords, fftWords, bestPar int, bestParDur time.Duration) (config.AppConfig, bool) {
	if karatsubaWords == 0 && fftWords == 0 && bestParDur == unsetDuration {
		return cfg, false
	}

	if karatsubaWords > 0 {
		cfg.KaratsubaThreshold = karatsubaWords
	}
	if fftWords > 0 {
		cfg.FFTThreshold = fftWords
	}
	if bestParDur != unsetDuration {
		cfg.Threshold = bestPar
	}
	cfg.KaratsubaThreshold, cfg.FFTThreshold, cfg.Threshold =
		ClampThresholds(cfg.KaratsubaThreshold, cfg.FFTThreshold, cfg.Threshold)
	return cfg, true
}

// persistThresholds writes cfg's thresholds to the profile at profilePath.
// Persistence failures only warn on out; the tuned values are already live
// in the config.
func persistThresholds(cfg config.AppConfig, profilePath string, out io.Writer) {
	p := NewProfile()
	p.OptimalKaratsubaThresholdWords = cfg.KaratsubaThreshold
	p.OptimalFFTThresholdWords = cfg.FFTThreshold
	p.OptimalParallelThresholdBits = cfg.Threshold
	p.CalibrationBits = CalibrationBits

	if err := p.Save(profilePath); err != nil {
		fmt.Fprintf(out, "%sWarning: profile not stored: %v%s\n", cli.ColorYellow(), err, cli.ColorReset())
	}
}
