// Command generate-golden regenerates the product vector files under
// internal/mult/testdata: a JSON array of synthesized golden vectors and a
// YAML suite of hand-picked structural cases. The oracle for every product
// is math/big.
//
// Operand derivation is pinned so a regeneration on any machine reproduces
// the files byte for byte: for an entry (bits, seed), x is
// 3^(2*bits+2*seed+1) mod 2^bits and y is 5^(2*bits+4*seed+3) mod 2^bits,
// each with the leading bit forced so the operand has exactly the requested
// length.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/fermatlab/gauss/pkg/models"
)

const (
	goldenFileName    = "product_golden.json"
	referenceFileName = "product_reference.yaml"
)

func main() {
	outDir := flag.String("out", "internal/mult/testdata", "Output directory for the vector files")
	flag.Parse()

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		fatalf("create output directory: %v", err)
	}

	fmt.Println("Generating golden product vectors...")
	vectors := goldenVectors()
	if err := writeGolden(filepath.Join(*outDir, goldenFileName), vectors); err != nil {
		fatalf("write %s: %v", goldenFileName, err)
	}

	suite := referenceSuite()
	if err := writeReference(filepath.Join(*outDir, referenceFileName), suite); err != nil {
		fatalf("write %s: %v", referenceFileName, err)
	}
	fmt.Printf("Generated %d reference cases\n", len(suite.Cases))

	fmt.Printf("Successfully generated %s and %s in %s\n", goldenFileName, referenceFileName, *outDir)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "generate-golden: "+format+"\n", args...)
	os.Exit(1)
}

// goldenVectors synthesizes the golden entries. Sizes straddle the
// interesting boundaries: the 32-word inline fast path, the Karatsuba
// band, and sizes large enough to engage the FFT transform.
func goldenVectors() []models.GoldenVector {
	targets := []struct {
		bits int
		seed uint64
	}{
		{64, 1}, {64, 2},
		{128, 1},
		{256, 1}, {256, 2},
		{512, 1},
		{1000, 1},
		{1024, 1},
		{2048, 1},
		{4096, 1}, {4096, 2},
		{8192, 1},
		{16384, 1},
		{65536, 1},
	}

	var vectors []models.GoldenVector
	for _, tgt := range targets {
		x := syntheticOperand(3, tgt.bits, 2*uint64(tgt.bits)+2*tgt.seed+1)
		y := syntheticOperand(5, tgt.bits, 2*uint64(tgt.bits)+4*tgt.seed+3)
		product := new(big.Int).Mul(x, y)

		vectors = append(vectors, models.GoldenVector{
			Bits:    tgt.bits,
			Seed:    tgt.seed,
			X:       x.String(),
			Y:       y.String(),
			Product: product.String(),
		})
		fmt.Printf("Generated %d-bit pair (seed %d), product footprint %s\n",
			tgt.bits, tgt.seed, footprint(product))
	}
	return vectors
}

// syntheticOperand returns base^exp mod 2^bits with the leading bit forced,
// a full-length operand with well-mixed digits that any big-integer
// implementation can rederive.
func syntheticOperand(base int64, bits int, exp uint64) *big.Int {
	mod := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	v := new(big.Int).Exp(big.NewInt(base), new(big.Int).SetUint64(exp), mod)
	v.SetBit(v, bits-1, 1)
	return v
}

// referenceSuite builds the structural cases. Operands are constructed, not
// quoted, so the expected products always come from the math/big oracle.
func referenceSuite() models.ReferenceSuite {
	one := big.NewInt(1)
	pow := func(b int64, e uint) *big.Int {
		return new(big.Int).Exp(big.NewInt(b), big.NewInt(int64(e)), nil)
	}
	mersenne := func(e uint) *big.Int {
		return new(big.Int).Sub(new(big.Int).Lsh(one, e), one)
	}

	tenTo20Minus1 := new(big.Int).Sub(pow(10, 20), one)
	repunit9 := big.NewInt(111_111_111)
	two100 := new(big.Int).Lsh(one, 100)

	cases := []struct {
		name string
		x, y *big.Int
	}{
		{"zero-times-zero", big.NewInt(0), big.NewInt(0)},
		{"zero-annihilates", big.NewInt(0), big.NewInt(123456789123456789)},
		{"one-identity", big.NewInt(1), big.NewInt(987654321987654321)},
		{"minus-one-negates", big.NewInt(-1), big.NewInt(987654321987654321)},
		{"both-negative", big.NewInt(-12345), big.NewInt(-6789)},
		{"mixed-signs", big.NewInt(-99999), big.NewInt(99999)},
		{"repunit-square", repunit9, repunit9},
		{"carry-chain", tenTo20Minus1, tenTo20Minus1},
		{"power-of-two-shift", two100, two100},
		{"mersenne-product", mersenne(127), mersenne(61)},
		{"asymmetric-magnitudes", new(big.Int).Lsh(one, 128), big.NewInt(3)},
	}

	suite := models.ReferenceSuite{
		Suite: models.SuiteProfile{
			Name:        "product-reference",
			Description: "Structural products covering zeros, signs, and carries",
			Generator:   "cmd/generate-golden",
			Version:     1,
		},
	}
	for _, c := range cases {
		product := new(big.Int).Mul(c.x, c.y)
		suite.Cases = append(suite.Cases, models.ReferenceCase{
			Name:    c.name,
			X:       c.x.String(),
			Y:       c.y.String(),
			Product: product.String(),
		})
	}
	return suite
}

func writeGolden(path string, vectors []models.GoldenVector) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(vectors)
}

func writeReference(path string, suite models.ReferenceSuite) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(suite); err != nil {
		return err
	}
	return enc.Close()
}

// footprint is the short form of the digest the cross-check reporter
// prints, so a regeneration log can be compared against an earlier run at a
// glance.
func footprint(v *big.Int) string {
	h := blake3.New()
	if v.Sign() < 0 {
		h.Write([]byte{'-'})
	}
	h.Write(v.Bytes())
	return fmt.Sprintf("%x", h.Sum(nil)[:8])
}
