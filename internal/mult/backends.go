package mult

import (
	"math/big"

	"github.com/fermatlab/gauss/internal/bigfft"
)

// coreMultiplier is the internal interface a multiplication backend
// implements. The Into variants reuse z when non-nil, which the
// doubling loop depends on to stay allocation-free; the returned value
// may be z or a fresh integer.
type coreMultiplier interface {
	// MultiplyInto computes x*y, reusing z when possible.
	MultiplyInto(z, x, y *big.Int, opts Options) (*big.Int, error)
	// SquareInto computes x*x, reusing z when possible.
	SquareInto(z, x *big.Int, opts Options) (*big.Int, error)
	// Name returns the display name of the backend.
	Name() string
}

// setOrReturn copies result into z when a destination was supplied,
// otherwise hands the result through.
func setOrReturn(z, result *big.Int) *big.Int {
	if z != nil {
		z.Set(result)
		return z
	}
	return result
}

// smartMultiply picks the multiplication tier from the operand sizes:
// FFT when both operands exceed the FFT threshold, pooled Karatsuba
// when both exceed the Karatsuba tier, math/big otherwise. Thresholds
// are in words; opts must be normalized.
func smartMultiply(z, x, y *big.Int, opts Options) (*big.Int, error) {
	wx := len(x.Bits())
	wy := len(y.Bits())

	if wx > opts.FFTThresholdWords && wy > opts.FFTThresholdWords {
		return bigfft.MulTo(z, x, y)
	}
	if wx > opts.KaratsubaThreshold && wy > opts.KaratsubaThreshold {
		if z == nil {
			z = new(big.Int)
		}
		return bigfft.KaratsubaMultiplyTo(z, x, y), nil
	}
	if z == nil {
		z = new(big.Int)
	}
	return z.Mul(x, y), nil
}

// smartSquare is the squaring analogue of smartMultiply. Squaring
// engages a tier as soon as the single operand crosses it.
func smartSquare(z, x *big.Int, opts Options) (*big.Int, error) {
	wx := len(x.Bits())

	if wx > opts.FFTThresholdWords {
		return bigfft.SqrTo(z, x)
	}
	if wx > opts.KaratsubaThreshold {
		if z == nil {
			z = new(big.Int)
		}
		return bigfft.KaratsubaSqrTo(z, x), nil
	}
	if z == nil {
		z = new(big.Int)
	}
	return z.Mul(x, x), nil
}

// stdlibCore multiplies with math/big only, regardless of size. It is
// the oracle the other backends are cross-checked against.
type stdlibCore struct{}

func (stdlibCore) Name() string { return "math/big" }

func (stdlibCore) MultiplyInto(z, x, y *big.Int, opts Options) (*big.Int, error) {
	if z == nil {
		z = new(big.Int)
	}
	return z.Mul(x, y), nil
}

func (stdlibCore) SquareInto(z, x *big.Int, opts Options) (*big.Int, error) {
	if z == nil {
		z = new(big.Int)
	}
	return z.Mul(x, x), nil
}

// karatsubaCore forces the pooled Karatsuba implementation for all
// sizes. bigfft falls back to schoolbook below its recursion threshold,
// so small operands remain correct.
type karatsubaCore struct{}

func (karatsubaCore) Name() string { return "Karatsuba (pooled, parallel)" }

func (karatsubaCore) MultiplyInto(z, x, y *big.Int, opts Options) (*big.Int, error) {
	if z == nil {
		z = new(big.Int)
	}
	return bigfft.KaratsubaMultiplyTo(z, x, y), nil
}

func (karatsubaCore) SquareInto(z, x *big.Int, opts Options) (*big.Int, error) {
	if z == nil {
		z = new(big.Int)
	}
	return bigfft.KaratsubaSqrTo(z, x), nil
}

// fftCore is the adaptive backend: FFT above the configured threshold,
// Karatsuba in the middle band, math/big below.
type fftCore struct{}

func (fftCore) Name() string { return "FFT (Schönhage-Strassen, adaptive)" }

func (fftCore) MultiplyInto(z, x, y *big.Int, opts Options) (*big.Int, error) {
	return smartMultiply(z, x, y, normalizeOptions(opts))
}

func (fftCore) SquareInto(z, x *big.Int, opts Options) (*big.Int, error) {
	return smartSquare(z, x, normalizeOptions(opts))
}
