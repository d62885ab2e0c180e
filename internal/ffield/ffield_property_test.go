package ffield

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestFieldLaws_PropertyBased drives the field axioms with generated
// element codes over a characteristic-2 and an odd-characteristic field.
func TestFieldLaws_PropertyBased(t *testing.T) {
	for _, c := range []struct{ p, k uint64 }{{2, 8}, {3, 5}} {
		f, err := NewField(c.p, c.k)
		if err != nil {
			t.Fatalf("NewField(%d, %d): %v", c.p, c.k, err)
		}
		q := uint32(f.Order())

		parameters := gopter.DefaultTestParameters()
		parameters.MinSuccessfulTests = 200
		properties := gopter.NewProperties(parameters)

		elem := gen.UInt32Range(0, q-1)

		properties.Property("multiplication distributes over addition", prop.ForAll(
			func(a, b, x uint32) bool {
				ea, eb, ex := Elem(a), Elem(b), Elem(x)
				return f.Mul(ea, f.Add(eb, ex)) == f.Add(f.Mul(ea, eb), f.Mul(ea, ex))
			},
			elem, elem, elem,
		))

		properties.Property("multiplication is associative", prop.ForAll(
			func(a, b, x uint32) bool {
				ea, eb, ex := Elem(a), Elem(b), Elem(x)
				return f.Mul(f.Mul(ea, eb), ex) == f.Mul(ea, f.Mul(eb, ex))
			},
			elem, elem, elem,
		))

		properties.Property("inverse is an involution on units", prop.ForAll(
			func(a uint32) bool {
				ea := Elem(a)
				if ea == 0 {
					return true
				}
				inv, err := f.Inv(ea)
				if err != nil {
					return false
				}
				back, err := f.Inv(inv)
				return err == nil && back == ea
			},
			elem,
		))

		properties.Property("product inverse splits", prop.ForAll(
			func(a, b uint32) bool {
				ea, eb := Elem(a), Elem(b)
				if ea == 0 || eb == 0 {
					return true
				}
				ia, _ := f.Inv(ea)
				ib, _ := f.Inv(eb)
				ip, err := f.Inv(f.Mul(ea, eb))
				return err == nil && ip == f.Mul(ia, ib)
			},
			elem, elem,
		))

		properties.Property("exponent addition law", prop.ForAll(
			func(a uint32, e1, e2 int64) bool {
				ea := Elem(a)
				if ea == 0 {
					return true
				}
				p1, _ := f.Pow(ea, e1)
				p2, _ := f.Pow(ea, e2)
				sum, _ := f.Pow(ea, e1+e2)
				return f.Mul(p1, p2) == sum
			},
			elem, gen.Int64Range(-1000, 1000), gen.Int64Range(-1000, 1000),
		))

		properties.Property("Frobenius preserves products", prop.ForAll(
			func(a, b uint32) bool {
				ea, eb := Elem(a), Elem(b)
				return f.Frobenius(f.Mul(ea, eb)) == f.Mul(f.Frobenius(ea), f.Frobenius(eb))
			},
			elem, elem,
		))

		properties.Property("x^q equals x", prop.ForAll(
			func(a uint32) bool {
				ea := Elem(a)
				got, err := f.Pow(ea, int64(f.Order()))
				return err == nil && got == ea
			},
			elem,
		))

		properties.TestingRun(t)
	}
}
