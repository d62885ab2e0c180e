//go:build gmp

// This file provides a GMP-backed multiplication backend, conditionally
// compiled with the "gmp" build tag:
//   - Projects build without GMP by default (math/big and the FFT remain).
//   - GMP support is opt-in, requiring: go build -tags=gmp
//   - The codebase stays portable across systems without libgmp installed.
//
// System requirements:
//   - Linux: sudo apt-get install libgmp-dev (Debian/Ubuntu)
//   - macOS: brew install gmp
//   - Windows: MinGW or WSL with libgmp

package mult

import (
	"math/big"

	"github.com/ncw/gmp"
)

func init() {
	_ = Register("gmp", func() coreMultiplier { return gmpCore{} })
}

// gmpCore multiplies through libgmp's assembly-optimized routines. The cgo
// round trip copies operands in and the product out, so it only pays off
// for very large operands; for small ones the conversion overhead dominates
// and math/big wins.
type gmpCore struct{}

func (gmpCore) Name() string { return "GMP (cgo)" }

// gmpFromStd converts a big.Int to a gmp.Int. Bytes carries the magnitude
// only, so the sign is reapplied.
func gmpFromStd(x *big.Int) *gmp.Int {
	g := new(gmp.Int).SetBytes(x.Bytes())
	if x.Sign() < 0 {
		g.Neg(g)
	}
	return g
}

// gmpToStd converts a gmp.Int back, reusing z when non-nil.
func gmpToStd(z *big.Int, g *gmp.Int) *big.Int {
	if z == nil {
		z = new(big.Int)
	}
	z.SetBytes(g.Bytes())
	if g.Sign() < 0 {
		z.Neg(z)
	}
	return z
}

func (gmpCore) MultiplyInto(z, x, y *big.Int, opts Options) (*big.Int, error) {
	gx := gmpFromStd(x)
	gy := gmpFromStd(y)
	gx.Mul(gx, gy)
	return gmpToStd(z, gx), nil
}

func (gmpCore) SquareInto(z, x *big.Int, opts Options) (*big.Int, error) {
	gx := gmpFromStd(x)
	gx.Mul(gx, gx)
	return gmpToStd(z, gx), nil
}
