/*
Package models defines the data transfer objects that cross process
boundaries: the JSON bodies of the HTTP API, the golden product vectors
maintained by cmd/generate-golden, and the YAML reference suites replayed
by the backend tests.

The types here are pure data. Parsing decimal strings into big.Int values
and validating them is the caller's concern, so the same vector files can
be produced and consumed by tools that never link the multiplication
backends.
*/
package models

import "math/big"

// ProductRequest is the JSON body accepted by the product endpoint. Operands
// are given either explicitly as decimal strings, or synthesized
// deterministically from a bit length and a seed.
type ProductRequest struct {
	// X and Y are the operands as decimal strings, optionally negative.
	// Both must be present unless Bits is set.
	X string `json:"x,omitempty"`
	Y string `json:"y,omitempty"`
	// Bits, when positive, synthesizes both operands with exactly this bit
	// length from the deterministic generator instead of parsing X and Y.
	Bits int `json:"bits,omitempty"`
	// Seed keys the deterministic operand generator. Only meaningful
	// together with Bits.
	Seed uint64 `json:"seed,omitempty"`
	// Backend selects the multiplication backend. Empty selects the default;
	// "all" cross-checks every registered backend.
	Backend string `json:"backend,omitempty"`
}

// ProductResponse represents the standardized JSON response for a product
// request.
type ProductResponse struct {
	// Product is the computed value. It is omitted if an error occurred.
	Product *big.Int `json:"product,omitempty"`
	// Bits is the bit length of the product.
	Bits int `json:"bits,omitempty"`
	// XBits and YBits are the operand bit lengths, useful when the operands
	// were synthesized server-side.
	XBits int `json:"x_bits,omitempty"`
	YBits int `json:"y_bits,omitempty"`
	// Duration is the formatted execution time string.
	Duration string `json:"duration"`
	// Backend is the name of the backend used for the calculation.
	Backend string `json:"backend"`
	// Error contains the error message if the calculation failed.
	Error string `json:"error,omitempty"`
}

// BackendsResponse is the JSON body returned by the backend listing endpoint.
type BackendsResponse struct {
	// Backends holds the registered backend names in sorted order.
	Backends []string `json:"backends"`
}

// HealthResponse is the JSON body returned by the health endpoint.
type HealthResponse struct {
	// Status is "healthy" while the server is accepting work.
	Status string `json:"status"`
	// Timestamp is the Unix time the probe was answered.
	Timestamp int64 `json:"timestamp"`
}

// ErrorResponse represents the standardized JSON response for an API error.
type ErrorResponse struct {
	// Error is the short error code or status text.
	Error string `json:"error"`
	// Message is a descriptive error message.
	Message string `json:"message,omitempty"`
}

// GoldenVector is one entry of the golden product file. Operands and the
// expected product are stored as decimal strings so the file is exact,
// self-describing, and diffable; Bits and Seed record how the operands were
// derived so the generator reproduces the identical entry.
type GoldenVector struct {
	// Bits is the exact bit length of both operands.
	Bits int `json:"bits"`
	// Seed selects the deterministic operand derivation for this entry.
	Seed uint64 `json:"seed"`
	// X and Y are the operands as decimal strings.
	X string `json:"x"`
	Y string `json:"y"`
	// Product is the expected value of x*y as a decimal string.
	Product string `json:"product"`
}

// SuiteProfile identifies a reference suite and the generator that wrote it.
// Version gates compatibility: readers reject suites with a version they do
// not understand rather than misinterpreting the cases.
type SuiteProfile struct {
	// Name is a short identifier for the suite.
	Name string `yaml:"name"`
	// Description states what the suite covers.
	Description string `yaml:"description,omitempty"`
	// Generator names the tool that produced the file.
	Generator string `yaml:"generator"`
	// Version is the suite format version.
	Version int `yaml:"version"`
}

// ReferenceCase is one hand-checked product vector. Unlike GoldenVector
// entries, reference cases are chosen for structure (zeros, signs, carry
// chains, power-of-two shifts) rather than synthesized, so each carries a
// name instead of a derivation.
type ReferenceCase struct {
	// Name identifies the case in test output.
	Name string `yaml:"name"`
	// X and Y are the operands as decimal strings, optionally negative.
	X string `yaml:"x"`
	Y string `yaml:"y"`
	// Product is the expected value of x*y as a decimal string.
	Product string `yaml:"product"`
}

// ReferenceSuite is the YAML document holding a profiled set of reference
// cases.
type ReferenceSuite struct {
	// Suite is the provenance header.
	Suite SuiteProfile `yaml:"suite"`
	// Cases holds the vectors in replay order.
	Cases []ReferenceCase `yaml:"cases"`
}
