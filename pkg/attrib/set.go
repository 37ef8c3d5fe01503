package attrib

import "fmt"

// Set is an ordered collection of attributes sharing one element count.
// Size is authoritative: every contained attribute has exactly Size
// elements.
//
// The zero value is an empty set ready for use. Sets have value semantics
// only through Clone; assigning a Set struct copies its bookkeeping but
// aliases the attributes, so callers that need an independent copy must
// use Clone.
type Set struct {
	attrs []*Attribute
	index map[string]int
	size  int
}

// NewSet returns an empty set with the given size.
func NewSet(size int) *Set {
	return &Set{size: size}
}

// Size returns the shared element count.
func (s *Set) Size() int { return s.size }

// Count returns the number of attributes.
func (s *Set) Count() int { return len(s.attrs) }

// At returns the i-th attribute in insertion order.
func (s *Set) At(i int) *Attribute { return s.attrs[i] }

// Names returns attribute names in insertion order.
func (s *Set) Names() []string {
	names := make([]string, len(s.attrs))
	for i, a := range s.attrs {
		names[i] = a.name
	}
	return names
}

// Find returns the attribute with the given name, or nil.
func (s *Set) Find(name string) *Attribute {
	i, ok := s.index[name]
	if !ok {
		return nil
	}
	return s.attrs[i]
}

// FindOrCreate returns the attribute called name if it already has the
// requested shape. Otherwise a zeroed attribute of Size elements is
// created; if an attribute of that name exists with another shape it is
// replaced at the same position.
//
// It panics with a *ShapeError if the shape is unsupported.
func (s *Set) FindOrCreate(name string, t ElementType, components int) *Attribute {
	checkShape(name, t, components)
	if i, ok := s.index[name]; ok {
		a := s.attrs[i]
		if a.typ == t && len(a.comps) == components {
			return a
		}
		a = newAttribute(name, t, components, s.size)
		s.attrs[i] = a
		return a
	}
	a := newAttribute(name, t, components, s.size)
	if s.index == nil {
		s.index = make(map[string]int)
	}
	s.index[name] = len(s.attrs)
	s.attrs = append(s.attrs, a)
	return a
}

// Float3 is shorthand for FindOrCreate(name, Float32, 3).
func (s *Set) Float3(name string) *Attribute {
	return s.FindOrCreate(name, Float32, 3)
}

// Resize changes the element count of every attribute. Storage is always
// reallocated; existing elements up to min(Size, n) are kept and any new
// elements are zero, whatever sizes the set held before.
func (s *Set) Resize(n int) {
	if n < 0 {
		panic(fmt.Sprintf("attrib: negative size %d", n))
	}
	for _, a := range s.attrs {
		a.resize(n)
	}
	s.size = n
}

// Rename changes an attribute's name in place and returns it. It returns
// nil if old does not exist or newName is already taken by another
// attribute.
func (s *Set) Rename(old, newName string) *Attribute {
	i, ok := s.index[old]
	if !ok {
		return nil
	}
	if old == newName {
		return s.attrs[i]
	}
	if _, taken := s.index[newName]; taken {
		return nil
	}
	delete(s.index, old)
	s.index[newName] = i
	s.attrs[i].name = newName
	return s.attrs[i]
}

// Remove deletes the named attribute. It reports whether anything was
// removed.
func (s *Set) Remove(name string) bool {
	i, ok := s.index[name]
	if !ok {
		return false
	}
	s.attrs = append(s.attrs[:i], s.attrs[i+1:]...)
	delete(s.index, name)
	for j := i; j < len(s.attrs); j++ {
		s.index[s.attrs[j].name] = j
	}
	return true
}

// CopyAt copies count elements, starting at element 0 of other, into s
// starting at destIndex. Only attributes present in both sets with
// compatible shapes are copied; attributes that exist only in other are
// not created.
func (s *Set) CopyAt(other *Set, destIndex, count int) {
	s.CopyRange(other, 0, destIndex, count)
}

// CopyRange is CopyAt with an explicit source offset.
func (s *Set) CopyRange(other *Set, srcIndex, destIndex, count int) {
	if count == 0 {
		return
	}
	if srcIndex < 0 || srcIndex+count > other.size || destIndex < 0 || destIndex+count > s.size {
		panic(fmt.Sprintf("attrib: copy [%d,+%d) -> [%d,+%d) out of range (src size %d, dest size %d)",
			srcIndex, count, destIndex, count, other.size, s.size))
	}
	for _, dst := range s.attrs {
		src := other.Find(dst.name)
		if !dst.IsCompatibleWith(src) {
			continue
		}
		dst.copyFrom(src, srcIndex, destIndex, count)
	}
}

// Clone returns a deep copy of s.
func (s *Set) Clone() *Set {
	out := &Set{size: s.size}
	if len(s.attrs) == 0 {
		return out
	}
	out.attrs = make([]*Attribute, len(s.attrs))
	out.index = make(map[string]int, len(s.attrs))
	for i, a := range s.attrs {
		out.attrs[i] = a.Clone()
		out.index[a.name] = i
	}
	return out
}

// MatchShapes creates in s every attribute of other that s lacks, with
// the same shape. Merge callers use it when they want union semantics.
func (s *Set) MatchShapes(other *Set) {
	for _, a := range other.attrs {
		if s.Find(a.name) == nil {
			s.FindOrCreate(a.name, a.typ, len(a.comps))
		}
	}
}
