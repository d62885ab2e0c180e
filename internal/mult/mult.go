// Package mult provides arbitrary-precision integer multiplication behind a
// `Multiplier` interface that abstracts the underlying algorithm, allowing
// different backends (math/big, pooled Karatsuba, Schönhage-Strassen FFT,
// optionally GMP) to be used interchangeably. The package integrates
// optimizations such as memory pooling, parallel processing, and transform
// caching, and exposes a registry so callers select backends by name.
package mult

//go:generate mockgen -source=mult.go -destination=mocks/mock_multiplier.go -package=mocks

import (
	"context"
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/fermatlab/gauss/internal/bigfft"
	apperrors "github.com/fermatlab/gauss/internal/errors"
)

var (
	multiplicationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gauss_multiplications_total",
			Help: "The total number of multiplications processed",
		},
		[]string{"algorithm", "status"},
	)
	multiplicationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "gauss_multiplication_duration_seconds",
			Help: "The duration of multiplications in seconds",
		},
		[]string{"algorithm"},
	)
)

// Multiplier defines the public interface for a multiplication backend.
// It is the primary abstraction used by the application's orchestration layer
// to interact with the different multiplication algorithms.
type Multiplier interface {
	// Multiply computes the product x*y. It is safe for concurrent use and
	// honors cancellation through ctx. The operands are never modified.
	// Progress updates in [0,1] are sent to progress without blocking; a nil
	// channel disables reporting.
	Multiply(ctx context.Context, x, y *big.Int, opts Options, progress chan<- float64) (*big.Int, error)

	// Name returns the display name of the backend (e.g., "FFT
	// (Schönhage-Strassen, adaptive)").
	Name() string
}

// InstrumentedMultiplier wraps a coreMultiplier with the cross-cutting
// concerns every backend shares: metrics, tracing, debug logging, the
// small-operand fast path, transform-cache configuration, and adaptation of
// the progress channel into a reporter callback.
type InstrumentedMultiplier struct {
	core coreMultiplier
}

// NewMultiplier wraps the given core backend in an InstrumentedMultiplier.
// It panics when core is nil.
func NewMultiplier(core coreMultiplier) Multiplier {
	if core == nil {
		panic("mult: the `coreMultiplier` implementation cannot be nil")
	}
	return &InstrumentedMultiplier{core: core}
}

// Name reports the name of the wrapped core backend.
func (m *InstrumentedMultiplier) Name() string {
	return m.core.Name()
}

// Multiply orchestrates the multiplication. Small operands take an iterative
// fast path on math/big where backend differences cannot pay for their
// overhead. For larger operands it configures the transform cache, pre-warms
// the scratch pools, and delegates to the wrapped core on a worker goroutine
// so a canceled context returns promptly; the abandoned computation finishes
// in the background and is discarded. Core failures and cancellations are
// wrapped in apperrors.ComputeError.
func (m *InstrumentedMultiplier) Multiply(ctx context.Context, x, y *big.Int, opts Options, progress chan<- float64) (result *big.Int, err error) {
	tracer := otel.Tracer("mult")
	ctx, span := tracer.Start(ctx, "Multiply")
	defer span.End()

	if x == nil || y == nil {
		return nil, apperrors.NewValidationError("operand", "must not be nil", nil)
	}

	wx := len(x.Bits())
	wy := len(y.Bits())

	began := time.Now()
	defer func() {
		duration := time.Since(began).Seconds()
		status := "success"
		if err != nil {
			status = "error"
		}
		algoName := m.core.Name()
		multiplicationsTotal.WithLabelValues(algoName, status).Inc()
		multiplicationDuration.WithLabelValues(algoName).Observe(duration)

		evt := log.Debug().
			Str("algo", algoName).
			Int("x_words", wx).
			Int("y_words", wy).
			Float64("duration", duration).
			Str("status", status)
		if t := normalizeOptions(opts).FFTThresholdWords; wx > t && wy > t {
			k, chunk := bigfft.FFTParams(wx + wy)
			evt = evt.Uint("fft_k", k).Int("fft_m", chunk)
		}
		evt.Msg("multiplication completed")
	}()

	reporter := newChannelReporter(progress)

	if wx <= DefaultKaratsubaTierWords && wy <= DefaultKaratsubaTierWords {
		reporter(1.0)
		return new(big.Int).Mul(x, y), nil
	}

	configureTransformCache(opts)

	// Pre-warm the scratch pools once for large operands.
	maxBits := x.BitLen()
	if yb := y.BitLen(); yb > maxBits {
		maxBits = yb
	}
	bigfft.EnsurePoolsWarmed(uint64(maxBits))

	result, err = m.compute(ctx, x, y, opts)
	if err != nil {
		return nil, err
	}
	reporter(1.0)
	return result, nil
}

// compute runs the core backend under the context. Squaring is detected by
// operand identity, which lets backends transform the operand only once.
func (m *InstrumentedMultiplier) compute(ctx context.Context, x, y *big.Int, opts Options) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.ComputeError{Err: err}
	}

	type outcome struct {
		z   *big.Int
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		var out outcome
		if x == y {
			out.z, out.err = m.core.SquareInto(nil, x, opts)
		} else {
			out.z, out.err = m.core.MultiplyInto(nil, x, y, opts)
		}
		done <- out
	}()

	select {
	case <-ctx.Done():
		return nil, apperrors.ComputeError{Err: ctx.Err()}
	case out := <-done:
		if out.err != nil {
			return nil, apperrors.ComputeError{Err: out.err}
		}
		return out.z, nil
	}
}
