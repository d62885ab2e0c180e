// Package calibration measures multiplication crossover points on the
// current host. This file implements calibration profile persistence.
package calibration

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fermatlab/gauss/internal/bigfft"
)

// HostFingerprint identifies the machine a set of timings was measured on.
// Two fingerprints compare equal exactly when the timings are transferable.
type HostFingerprint struct {
	CPU       string `json:"cpu"`
	Cores     int    `json:"cores"`
	Arch      string `json:"arch"`
	OS        string `json:"os"`
	Toolchain string `json:"toolchain"`
	WordSize  int    `json:"word_size"`
}

// currentHost fingerprints the running machine. The CPU identity folds in
// the detected SIMD and carry-chain extensions, so a profile measured on one
// microarchitecture is rejected on another even when core count and
// architecture agree.
func currentHost() HostFingerprint {
	return HostFingerprint{
		CPU:       fmt.Sprintf("%s-%d-cores-%s", runtime.GOARCH, runtime.NumCPU(), bigfft.CPUFeatureTag()),
		Cores:     runtime.NumCPU(),
		Arch:      runtime.GOARCH,
		OS:        runtime.GOOS,
		Toolchain: runtime.Version(),
		WordSize:  bits.UintSize,
	}
}

// Profile stores the results of a calibration run. Alongside the
// thresholds it records the hardware the timings were taken on, which is what
// lets a cached profile be accepted or rejected later.
type Profile struct {
	Host HostFingerprint `json:"host"`

	// Calibrated thresholds (default/fallback values). Karatsuba and FFT
	// thresholds are operand sizes in machine words; the parallel
	// threshold is an operand size in bits.
	OptimalKaratsubaThresholdWords int `json:"karatsuba_threshold_words"`
	OptimalFFTThresholdWords       int `json:"fft_threshold_words"`
	OptimalParallelThresholdBits   int `json:"parallel_threshold_bits"`

	// Per-size-range refinements of the global thresholds above.
	Ranges []RangeThresholds `json:"ranges,omitempty"`

	// Provenance of the run itself.
	MeasuredAt      time.Time `json:"measured_at"`
	CalibrationBits uint64    `json:"calibration_bits"`
	RunDuration     string    `json:"run_duration"`

	FormatVersion int `json:"format_version"`
}

// RangeThresholds stores optimal thresholds for a specific range of operand
// sizes. This allows threshold selection to track the problem size instead
// of applying one global crossover everywhere.
type RangeThresholds struct {
	// Operand size bounds in bits, both inclusive.
	MinBits uint64 `json:"min_bits"`
	MaxBits uint64 `json:"max_bits"`

	KaratsubaThresholdWords int `json:"karatsuba_threshold_words"`
	FFTThresholdWords       int `json:"fft_threshold_words"`
	ParallelThresholdBits   int `json:"parallel_threshold_bits"`

	// ConfidenceScore in [0, 1] rates how much to trust this entry;
	// MeasurementCount is how many samples produced it.
	ConfidenceScore  float64 `json:"confidence_score"`
	MeasurementCount int     `json:"measurement_count"`
}

const (
	// CurrentProfileVersion guards the on-disk format. Bump it on any
	// incompatible change and old profiles will be discarded instead of
	// misread.
	CurrentProfileVersion = 3

	// DefaultProfileFileName names the profile file inside the config dir.
	DefaultProfileFileName = "calibration.json"

	// legacyProfileFileName is the home-directory dotfile used when no user
	// config directory is available.
	legacyProfileFileName = ".gauss_calibration.json"
)

// Predefined operand size ranges for calibration, in bits.
var DefaultBitRanges = []struct {
	MinBits, MaxBits uint64
	Label            string
}{
	{0, 1 << 16, "small"},         // under 64 Kbit
	{1 << 16, 1 << 20, "medium"},  // 64 Kbit to 1 Mbit
	{1 << 20, 1 << 24, "large"},   // 1 Mbit to 16 Mbit
	{1 << 24, 1 << 27, "xlarge"},  // 16 Mbit to 128 Mbit
	{1 << 27, ^uint64(0), "huge"}, // 128 Mbit and up
}

// DefaultProfilePath names where the profile lives by default: a gauss
// subdirectory of the user configuration directory, falling back to a
// dotfile in the home directory, then the current directory.
func DefaultProfilePath() string {
	if cfgDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(cfgDir, "gauss", DefaultProfileFileName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, legacyProfileFileName)
	}
	return legacyProfileFileName
}

// NewProfile returns an empty profile fingerprinted to the current host.
func NewProfile() *Profile {
	return &Profile{
		Host:          currentHost(),
		MeasuredAt:    time.Now(),
		FormatVersion: CurrentProfileVersion,
	}
}

// LoadProfile reads the profile at path, or at the default path when path is
// empty. A missing or unparseable file is an error; validity against the
// current host is the caller's question, not this one's.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		path = DefaultProfilePath()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	return &p, nil
}

// Save writes the profile to path, or to the default path when path
// is empty. Parent directories are created as needed, because the default
// lives under the user config dir.
func (p *Profile) Save(path string) error {
	if path == "" {
		path = DefaultProfilePath()
	}

	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create profile directory: %w", err)
		}
	}

	if err := os.WriteFile(path, raw, 0600); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}

	return nil
}

// IsValid reports whether the profile can be trusted on this host. The
// format version must be current and the stored fingerprint must match the
// running machine; only the Go toolchain version is allowed to drift, since
// an upgrade does not move hardware crossovers.
func (p *Profile) IsValid() bool {
	if p == nil || p.FormatVersion != CurrentProfileVersion {
		return false
	}

	have, want := p.Host, currentHost()
	have.Toolchain, want.Toolchain = "", ""
	return have == want
}

// IsStale reports whether the profile's timings are older than maxAge,
// which is the trigger for a periodic re-run.
func (p *Profile) IsStale(maxAge time.Duration) bool {
	if p == nil {
		return true
	}
	return time.Since(p.MeasuredAt) > maxAge
}

// String summarizes the profile for log lines and the calibrate command.
func (p *Profile) String() string {
	if p == nil {
		return "Profile<nil>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Profile{CPU: %s, Karatsuba: %d words, FFT: %d words, Parallel: %d bits",
		p.Host.CPU, p.OptimalKaratsubaThresholdWords,
		p.OptimalFFTThresholdWords, p.OptimalParallelThresholdBits)
	if n := len(p.Ranges); n > 0 {
		fmt.Fprintf(&b, ", Ranges: %d", n)
	}
	fmt.Fprintf(&b, ", Calibrated: %s}", p.MeasuredAt.Format(time.RFC3339))
	return b.String()
}

// GetThresholdsForBits picks the thresholds to use for an operand of the
// given size: the matching measured range when one has earned enough
// confidence, the profile-level globals otherwise.
func (p *Profile) GetThresholdsForBits(bitSize uint64) (karatsubaWords, fftWords, parallelBits int) {
	if p == nil {
		return 0, 0, 0
	}

	// Only ranges that earned at least 0.5 confidence may override the
	// global values.
	for _, r := range p.Ranges {
		if bitSize >= r.MinBits && bitSize <= r.MaxBits && r.ConfidenceScore >= 0.5 {
			karatsubaWords = r.KaratsubaThresholdWords
			fftWords = r.FFTThresholdWords
			parallelBits = r.ParallelThresholdBits
			if karatsubaWords == 0 {
				karatsubaWords = p.OptimalKaratsubaThresholdWords
			}
			return karatsubaWords, fftWords, parallelBits
		}
	}

	return p.OptimalKaratsubaThresholdWords, p.OptimalFFTThresholdWords, p.OptimalParallelThresholdBits
}

// AddRangeThresholds records thresholds for one operand range. An entry with
// the same bounds is merged rather than duplicated, each side weighted by
// how many measurements back it.
func (p *Profile) AddRangeThresholds(r RangeThresholds) {
	for i := range p.Ranges {
		e := &p.Ranges[i]
		if e.MinBits != r.MinBits || e.MaxBits != r.MaxBits {
			continue
		}

		total := e.MeasurementCount + r.MeasurementCount
		if total > 0 {
			wOld := float64(e.MeasurementCount) / float64(total)
			wNew := float64(r.MeasurementCount) / float64(total)
			blend := func(old, new int) int {
				return int(float64(old)*wOld + float64(new)*wNew)
			}

			e.KaratsubaThresholdWords = blend(e.KaratsubaThresholdWords, r.KaratsubaThresholdWords)
			e.FFTThresholdWords = blend(e.FFTThresholdWords, r.FFTThresholdWords)
			e.ParallelThresholdBits = blend(e.ParallelThresholdBits, r.ParallelThresholdBits)
			e.ConfidenceScore = e.ConfidenceScore*wOld + r.ConfidenceScore*wNew
			e.MeasurementCount = total
		}
		return
	}

	p.Ranges = append(p.Ranges, r)
}

// InitializeDefaultRanges seeds a fresh profile with one entry per default
// bit range, so every size bucket has values before anything is measured.
func (p *Profile) InitializeDefaultRanges() {
	if len(p.Ranges) > 0 {
		return
	}

	for _, r := range DefaultBitRanges {
		p.Ranges = append(p.Ranges, RangeThresholds{
			MinBits:                 r.MinBits,
			MaxBits:                 r.MaxBits,
			KaratsubaThresholdWords: p.OptimalKaratsubaThresholdWords,
			FFTThresholdWords:       p.OptimalFFTThresholdWords,
			ParallelThresholdBits:   p.OptimalParallelThresholdBits,
			// Below the 0.5 bar on purpose: seeded entries must not
			// override the globals until real measurements raise them.
			ConfidenceScore:  0.3,
			MeasurementCount: 0,
		})
	}
}

// LoadOrCreateProfile hands back the profile at path when it exists and
// matches this host, and a fresh fingerprinted one otherwise. The boolean
// says which of the two happened.
func LoadOrCreateProfile(path string) (*Profile, bool) {
	p, err := LoadProfile(path)
	if err != nil || !p.IsValid() {
		return NewProfile(), false
	}
	return p, true
}

// ProfileExists reports whether a profile file is present at the given
// path, the default path when empty.
func ProfileExists(path string) bool {
	if path == "" {
		path = DefaultProfilePath()
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
