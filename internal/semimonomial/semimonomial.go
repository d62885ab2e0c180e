// Package semimonomial implements the semimonomial transformation group
// SMT(n, q) = (F_q^*)^n ⋊ (S_n × Aut(F_q)) acting on vectors over a
// small finite field.
//
// An element is a triple (v, π, α): a vector v of nonzero scalars, a
// permutation π of the n coordinates, and a field automorphism
// α = Frobenius^a. It acts on w ∈ F_q^n by
//
//	(g·w)[i] = v[i] · α(w[π⁻¹(i)])
//
// and composition follows the action: (g1·g2)·w = g1·(g2·w).
package semimonomial

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/fermatlab/gauss/internal/ffield"
	"github.com/fermatlab/gauss/internal/randsrc"
)

// Group is the semimonomial transformation group of degree n over a
// fixed field. Elements are only composable within one group.
type Group struct {
	n     int
	field *ffield.Field
}

// Element is a semimonomial transformation (v, π, α). The zero value is
// not valid; obtain elements from the owning Group.
type Element struct {
	grp  *Group
	v    []ffield.Elem // nonzero scalars, length n
	perm []int         // perm[i] = π(i)
	aut  int           // Frobenius exponent in [0, k)
}

// NewGroup constructs SMT(n, q) over the given field.
func NewGroup(n int, f *ffield.Field) (*Group, error) {
	if f == nil {
		return nil, fmt.Errorf("cannot NewGroup: nil field")
	}
	if n < 1 {
		return nil, fmt.Errorf("cannot NewGroup: degree %d, must be at least 1", n)
	}
	return &Group{n: n, field: f}, nil
}

// Degree returns the number of coordinates n.
func (g *Group) Degree() int { return g.n }

// Field returns the scalar field.
func (g *Group) Field() *ffield.Field { return g.field }

func (g *Group) String() string {
	return fmt.Sprintf("SMT(%d, %v)", g.n, g.field)
}

// Order returns |SMT(n, q)| = (q-1)^n · n! · k.
func (g *Group) Order() *big.Int {
	o := new(big.Int).Exp(
		new(big.Int).SetUint64(g.field.Order()-1),
		big.NewInt(int64(g.n)), nil)
	o.Mul(o, new(big.Int).MulRange(1, int64(g.n)))
	return o.Mul(o, big.NewInt(int64(g.field.Degree())))
}

// Identity returns the neutral element (1, id, id).
func (g *Group) Identity() *Element {
	e := &Element{
		grp:  g,
		v:    make([]ffield.Elem, g.n),
		perm: make([]int, g.n),
	}
	for i := range e.v {
		e.v[i] = 1
		e.perm[i] = i
	}
	return e
}

// NewElement builds (v, π, Frobenius^aut) after validating the parts.
// The scalars must be nonzero field elements, perm a permutation of
// {0..n-1}; aut is reduced modulo the field degree. The slices are
// copied.
func (g *Group) NewElement(v []ffield.Elem, perm []int, aut int) (*Element, error) {
	if len(v) != g.n {
		return nil, fmt.Errorf("cannot NewElement in %v: scaling vector has length %d, want %d", g, len(v), g.n)
	}
	if len(perm) != g.n {
		return nil, fmt.Errorf("cannot NewElement in %v: permutation has length %d, want %d", g, len(perm), g.n)
	}
	q := g.field.Order()
	for i, s := range v {
		if s == 0 {
			return nil, fmt.Errorf("cannot NewElement in %v: zero scalar at coordinate %d", g, i)
		}
		if uint64(s) >= q {
			return nil, fmt.Errorf("cannot NewElement in %v: scalar %d at coordinate %d outside the field", g, s, i)
		}
	}
	seen := make([]bool, g.n)
	for i, p := range perm {
		if p < 0 || p >= g.n || seen[p] {
			return nil, fmt.Errorf("cannot NewElement in %v: not a permutation at index %d", g, i)
		}
		seen[p] = true
	}
	k := g.field.Degree()
	aut %= k
	if aut < 0 {
		aut += k
	}
	e := &Element{
		grp:  g,
		v:    append([]ffield.Elem(nil), v...),
		perm: append([]int(nil), perm...),
		aut:  aut,
	}
	return e, nil
}

// Rand draws a uniform element: independent uniform unit scalars, a
// Fisher-Yates permutation and a uniform automorphism exponent.
func (g *Group) Rand(prng randsrc.PRNG) (*Element, error) {
	e := &Element{
		grp:  g,
		v:    make([]ffield.Elem, g.n),
		perm: make([]int, g.n),
	}
	for i := range e.v {
		u, err := g.field.RandUnit(prng)
		if err != nil {
			return nil, fmt.Errorf("cannot Rand in %v: %w", g, err)
		}
		e.v[i] = u
		e.perm[i] = i
	}
	for i := g.n - 1; i > 0; i-- {
		j, err := prng.Uint64n(uint64(i + 1))
		if err != nil {
			return nil, fmt.Errorf("cannot Rand in %v: %w", g, err)
		}
		e.perm[i], e.perm[j] = e.perm[j], e.perm[i]
	}
	a, err := prng.Uint64n(uint64(g.field.Degree()))
	if err != nil {
		return nil, fmt.Errorf("cannot Rand in %v: %w", g, err)
	}
	e.aut = int(a)
	return e, nil
}

// Group returns the owning group.
func (e *Element) Group() *Group { return e.grp }

// Scaling returns a copy of the scalar vector v.
func (e *Element) Scaling() []ffield.Elem {
	return append([]ffield.Elem(nil), e.v...)
}

// Permutation returns a copy of π as an image table.
func (e *Element) Permutation() []int {
	return append([]int(nil), e.perm...)
}

// AutExp returns the Frobenius exponent of α in [0, k).
func (e *Element) AutExp() int { return e.aut }

func sameGroup(a, b *Group) bool {
	return a == b || (a.n == b.n && a.field == b.field)
}

// Mul returns the composition e∘o under the action, that is
// (v1·α1(π1·v2), π1∘π2, α1∘α2). It panics if o belongs to a different
// group.
func (e *Element) Mul(o *Element) *Element {
	if o == nil || !sameGroup(e.grp, o.grp) {
		panic("semimonomial: Mul across different groups")
	}
	f := e.grp.field
	z := &Element{
		grp:  e.grp,
		v:    make([]ffield.Elem, e.grp.n),
		perm: make([]int, e.grp.n),
		aut:  (e.aut + o.aut) % f.Degree(),
	}
	for j, i := range e.perm {
		// π1⁻¹(i) = j, so the scalar landing at i is v1[i]·α1(v2[j]).
		z.v[i] = f.Mul(e.v[i], f.FrobeniusPow(o.v[j], e.aut))
	}
	for i := range z.perm {
		z.perm[i] = e.perm[o.perm[i]]
	}
	return z
}

// Inv returns the inverse transformation (α⁻¹(v∘π)⁻¹, π⁻¹, α⁻¹).
func (e *Element) Inv() *Element {
	f := e.grp.field
	k := f.Degree()
	z := &Element{
		grp:  e.grp,
		v:    make([]ffield.Elem, e.grp.n),
		perm: make([]int, e.grp.n),
		aut:  (k - e.aut) % k,
	}
	for j := range z.v {
		z.v[j] = invUnit(f, f.FrobeniusPow(e.v[e.perm[j]], z.aut))
		z.perm[e.perm[j]] = j
	}
	return z
}

// Equal reports whether e and o are the same transformation.
func (e *Element) Equal(o *Element) bool {
	if o == nil || !sameGroup(e.grp, o.grp) || e.aut != o.aut {
		return false
	}
	for i := range e.v {
		if e.v[i] != o.v[i] || e.perm[i] != o.perm[i] {
			return false
		}
	}
	return true
}

// Apply maps w under the transformation: (g·w)[i] = v[i]·α(w[π⁻¹(i)]).
// Zero entries in w are allowed; the result is a fresh slice.
func (e *Element) Apply(w []ffield.Elem) ([]ffield.Elem, error) {
	if len(w) != e.grp.n {
		return nil, fmt.Errorf("cannot Apply in %v: vector has length %d, want %d", e.grp, len(w), e.grp.n)
	}
	f := e.grp.field
	q := f.Order()
	for i, s := range w {
		if uint64(s) >= q {
			return nil, fmt.Errorf("cannot Apply in %v: entry %d at coordinate %d outside the field", e.grp, s, i)
		}
	}
	out := make([]ffield.Elem, e.grp.n)
	for j, i := range e.perm {
		out[i] = f.Mul(e.v[i], f.FrobeniusPow(w[j], e.aut))
	}
	return out, nil
}

func (e *Element) String() string {
	f := e.grp.field
	var b strings.Builder
	b.WriteString("(v=[")
	for i, s := range e.v {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(f.FormatElem(s))
	}
	b.WriteString("] perm=[")
	for i, p := range e.perm {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d", p)
	}
	fmt.Fprintf(&b, "] aut=frob^%d)", e.aut)
	return b.String()
}

// invUnit inverts a scalar known to be nonzero for any validated
// element.
func invUnit(f *ffield.Field, e ffield.Elem) ffield.Elem {
	inv, err := f.Inv(e)
	if err != nil {
		panic("semimonomial: zero scalar in a validated element")
	}
	return inv
}
