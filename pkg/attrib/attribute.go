// Package attrib implements the column-oriented attribute storage used by
// meshes. An Attribute is a named channel with one contiguous array per
// component; a Set groups attributes that share a single element count.
//
// Attributes are a closed variant over element type x component count.
// Only 32-bit floats with 1 to 4 components exist today. Asking for any
// other shape is a programmer error and panics with a *ShapeError.
package attrib

import (
	"fmt"

	"github.com/ungerik/go3d/vec3"
	"github.com/ungerik/go3d/vec4"
)

// ElementType is the scalar type stored in every component array.
type ElementType int

const (
	Float32 ElementType = iota
)

func (t ElementType) String() string {
	switch t {
	case Float32:
		return "float32"
	default:
		return fmt.Sprintf("ElementType(%d)", int(t))
	}
}

// MaxComponents is the widest attribute that can be stored.
const MaxComponents = 4

// Well-known attribute names.
const (
	Position = "P"
	Normal   = "N"
	Color    = "Cd"
)

// ShapeError reports a request for an attribute shape outside the
// supported set.
type ShapeError struct {
	Name       string
	Type       ElementType
	Components int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("attrib: unsupported shape for %q: %s x %d", e.Name, e.Type, e.Components)
}

// checkShape panics when t/components is not a supported combination.
func checkShape(name string, t ElementType, components int) {
	if t != Float32 || components < 1 || components > MaxComponents {
		panic(&ShapeError{Name: name, Type: t, Components: components})
	}
}

// Attribute is a single named data channel. Storage is one slice per
// component, all of identical length.
type Attribute struct {
	name  string
	typ   ElementType
	comps [][]float32
}

// newAttribute allocates a zeroed attribute of the given shape and size.
func newAttribute(name string, t ElementType, components, size int) *Attribute {
	checkShape(name, t, components)
	a := &Attribute{name: name, typ: t, comps: make([][]float32, components)}
	for i := range a.comps {
		a.comps[i] = make([]float32, size)
	}
	return a
}

// Name returns the attribute name.
func (a *Attribute) Name() string { return a.name }

// Type returns the element type.
func (a *Attribute) Type() ElementType { return a.typ }

// Components returns the number of component arrays.
func (a *Attribute) Components() int { return len(a.comps) }

// Len returns the number of elements.
func (a *Attribute) Len() int {
	if len(a.comps) == 0 {
		return 0
	}
	return len(a.comps[0])
}

// IsCompatibleWith reports whether data can be copied between a and b.
func (a *Attribute) IsCompatibleWith(b *Attribute) bool {
	return b != nil && a.typ == b.typ && len(a.comps) == len(b.comps)
}

// Component returns the raw array for component c. Writes through the
// returned slice modify the attribute; it is invalidated by the next resize.
func (a *Attribute) Component(c int) []float32 {
	return a.comps[c]
}

// resize reallocates every component array. The first min(old, n)
// elements are carried over and the rest are zero.
func (a *Attribute) resize(n int) {
	for c, old := range a.comps {
		next := make([]float32, n)
		copy(next, old)
		a.comps[c] = next
	}
}

// Clone returns a deep copy sharing no storage with a.
func (a *Attribute) Clone() *Attribute {
	out := &Attribute{name: a.name, typ: a.typ, comps: make([][]float32, len(a.comps))}
	for c, src := range a.comps {
		out.comps[c] = append([]float32(nil), src...)
	}
	return out
}

// copyFrom copies count elements of src starting at srcIndex into a at
// destIndex, per component.
func (a *Attribute) copyFrom(src *Attribute, srcIndex, destIndex, count int) {
	for c := range a.comps {
		copy(a.comps[c][destIndex:destIndex+count], src.comps[c][srcIndex:srcIndex+count])
	}
}

// Float returns component 0 of element i.
func (a *Attribute) Float(i int) float32 { return a.comps[0][i] }

// SetFloat sets component 0 of element i.
func (a *Attribute) SetFloat(i int, v float32) { a.comps[0][i] = v }

// Vec3 gathers up to three components of element i. Missing components
// read as zero.
func (a *Attribute) Vec3(i int) vec3.T {
	var v vec3.T
	for c := 0; c < len(a.comps) && c < 3; c++ {
		v[c] = a.comps[c][i]
	}
	return v
}

// SetVec3 scatters v into element i, ignoring components the attribute
// does not have.
func (a *Attribute) SetVec3(i int, v vec3.T) {
	for c := 0; c < len(a.comps) && c < 3; c++ {
		a.comps[c][i] = v[c]
	}
}

// Vec4 gathers up to four components of element i.
func (a *Attribute) Vec4(i int) vec4.T {
	var v vec4.T
	for c := 0; c < len(a.comps) && c < 4; c++ {
		v[c] = a.comps[c][i]
	}
	return v
}

// SetVec4 scatters v into element i.
func (a *Attribute) SetVec4(i int, v vec4.T) {
	for c := 0; c < len(a.comps) && c < 4; c++ {
		a.comps[c][i] = v[c]
	}
}
