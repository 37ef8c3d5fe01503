// Package mesh defines the face-vertex polygon mesh produced by nodes and
// the half-edge topology derived from it.
//
// Points are not a special type: position, normal and colour are ordinary
// attributes in PointAttribs, and the point count is PointAttribs.Size().
// Vertices reference points and are grouped contiguously per primitive.
package mesh

import (
	"fmt"
	"math"
	"slices"
	"sync/atomic"

	"github.com/ungerik/go3d/vec3"

	"github.com/chazu/procmesh/pkg/attrib"
	"github.com/chazu/procmesh/pkg/parallel"
)

// Vertex references a point.
type Vertex struct {
	Point int
}

// Primitive is a span [VerticesIndex, VerticesIndex+NumVertices) of the
// vertex list forming one polygon.
type Primitive struct {
	VerticesIndex int
	NumVertices   int
}

// ID identifies a mesh instance. Every constructed or duplicated mesh gets
// a new ID; nodes compare IDs, not contents, to decide whether an input
// changed.
type ID uint64

var lastID atomic.Uint64

func nextID() ID { return ID(lastID.Add(1)) }

// Mesh is a polygon mesh with attribute sets for points, vertices,
// primitives and the mesh as a whole (detail).
//
// A Mesh must not be mutated once it has been returned from a cook;
// operators duplicate their input and edit the copy.
type Mesh struct {
	id ID

	PointAttribs  *attrib.Set
	VertexAttribs *attrib.Set
	PrimAttribs   *attrib.Set
	DetailAttribs *attrib.Set

	Vertices   []Vertex
	Primitives []Primitive
}

// New returns an empty mesh with a position attribute and a detail set
// of size one.
func New() *Mesh {
	m := &Mesh{
		id:            nextID(),
		PointAttribs:  attrib.NewSet(0),
		VertexAttribs: attrib.NewSet(0),
		PrimAttribs:   attrib.NewSet(0),
		DetailAttribs: attrib.NewSet(1),
	}
	m.PointAttribs.Float3(attrib.Position)
	return m
}

// ID returns the mesh identity.
func (m *Mesh) ID() ID { return m.id }

// NumPoints returns the number of points.
func (m *Mesh) NumPoints() int { return m.PointAttribs.Size() }

// NumVertices returns the number of vertices.
func (m *Mesh) NumVertices() int { return len(m.Vertices) }

// NumPrimitives returns the number of primitives.
func (m *Mesh) NumPrimitives() int { return len(m.Primitives) }

// Positions returns the "P" attribute, creating it if absent. Code that
// only reads a mesh uses FindPositions instead.
func (m *Mesh) Positions() *attrib.Attribute {
	return m.PointAttribs.Float3(attrib.Position)
}

// FindPositions returns "P" when it holds three components, or nil. It
// never modifies m, so it is safe on cooked meshes and from parallel
// loops.
func (m *Mesh) FindPositions() *attrib.Attribute {
	p := m.PointAttribs.Find(attrib.Position)
	if p == nil || p.Components() != 3 {
		return nil
	}
	return p
}

// Duplicate returns a deep copy with a fresh ID.
func (m *Mesh) Duplicate() *Mesh {
	return &Mesh{
		id:            nextID(),
		PointAttribs:  m.PointAttribs.Clone(),
		VertexAttribs: m.VertexAttribs.Clone(),
		PrimAttribs:   m.PrimAttribs.Clone(),
		DetailAttribs: m.DetailAttribs.Clone(),
		Vertices:      append([]Vertex(nil), m.Vertices...),
		Primitives:    append([]Primitive(nil), m.Primitives...),
	}
}

// AddPoint appends a point at p and returns its index.
func (m *Mesh) AddPoint(p vec3.T) int {
	i := m.PointAttribs.Size()
	m.PointAttribs.Resize(i + 1)
	m.Positions().SetVec3(i, p)
	return i
}

// AddPoints appends n zeroed points and returns the index of the first.
func (m *Mesh) AddPoints(n int) int {
	i := m.PointAttribs.Size()
	m.PointAttribs.Resize(i + n)
	return i
}

// AddVertex appends a vertex referencing point and returns its index.
func (m *Mesh) AddVertex(point int) int {
	m.Vertices = append(m.Vertices, Vertex{Point: point})
	m.VertexAttribs.Resize(len(m.Vertices))
	return len(m.Vertices) - 1
}

// AddPrimitive appends a primitive spanning existing vertices and returns
// its index.
func (m *Mesh) AddPrimitive(verticesIndex, numVertices int) int {
	m.Primitives = append(m.Primitives, Primitive{VerticesIndex: verticesIndex, NumVertices: numVertices})
	m.PrimAttribs.Resize(len(m.Primitives))
	return len(m.Primitives) - 1
}

// AddPolygons appends one primitive per entry of sizes, taking their
// points in order from points, and returns the index of the first new
// primitive. The vertex and primitive attribute sets are resized once.
// It panics if the sizes do not add up to len(points).
func (m *Mesh) AddPolygons(sizes []int, points []int) int {
	total := 0
	for _, n := range sizes {
		total += n
	}
	if total != len(points) {
		panic(fmt.Sprintf("mesh: polygon sizes sum to %d, have %d points", total, len(points)))
	}
	first := len(m.Primitives)
	start := len(m.Vertices)
	m.Vertices = slices.Grow(m.Vertices, len(points))
	for _, p := range points {
		m.Vertices = append(m.Vertices, Vertex{Point: p})
	}
	m.Primitives = slices.Grow(m.Primitives, len(sizes))
	for _, n := range sizes {
		m.Primitives = append(m.Primitives, Primitive{VerticesIndex: start, NumVertices: n})
		start += n
	}
	m.VertexAttribs.Resize(len(m.Vertices))
	m.PrimAttribs.Resize(len(m.Primitives))
	return first
}

// AddPolygon appends one vertex per point and a primitive over them.
func (m *Mesh) AddPolygon(points ...int) int {
	start := len(m.Vertices)
	for _, p := range points {
		m.Vertices = append(m.Vertices, Vertex{Point: p})
	}
	m.VertexAttribs.Resize(len(m.Vertices))
	return m.AddPrimitive(start, len(points))
}

// PointIndicesOfPrimitive returns the points referenced by primitive i in
// winding order.
func (m *Mesh) PointIndicesOfPrimitive(i int) []int {
	prim := m.Primitives[i]
	out := make([]int, prim.NumVertices)
	for k := range prim.NumVertices {
		out[k] = m.Vertices[prim.VerticesIndex+k].Point
	}
	return out
}

// Center returns the average point position, or the origin for a mesh
// without points or positions.
func (m *Mesh) Center() vec3.T {
	n := m.NumPoints()
	p := m.FindPositions()
	if n == 0 || p == nil {
		return vec3.T{}
	}
	var sum [3]float64
	for c := range 3 {
		for _, v := range p.Component(c) {
			sum[c] += float64(v)
		}
	}
	return vec3.T{float32(sum[0] / float64(n)), float32(sum[1] / float64(n)), float32(sum[2] / float64(n))}
}

// BoundingBox returns the axis-aligned bounds of all points. ok is false
// for a mesh without points or positions.
func (m *Mesh) BoundingBox() (lo, hi vec3.T, ok bool) {
	n := m.NumPoints()
	p := m.FindPositions()
	if n == 0 || p == nil {
		return lo, hi, false
	}
	for c := range 3 {
		lo[c], hi[c] = math.MaxFloat32, -math.MaxFloat32
		for _, v := range p.Component(c) {
			lo[c] = min(lo[c], v)
			hi[c] = max(hi[c], v)
		}
	}
	return lo, hi, true
}

// Validate checks that every vertex references an existing point, every
// primitive span lies within the vertex list, and the per-element
// attribute sets are sized to match.
func (m *Mesh) Validate() error {
	np := m.NumPoints()
	for i, v := range m.Vertices {
		if v.Point < 0 || v.Point >= np {
			return fmt.Errorf("mesh: vertex %d references point %d, have %d points", i, v.Point, np)
		}
	}
	for i, prim := range m.Primitives {
		if prim.NumVertices < 0 || prim.VerticesIndex < 0 || prim.VerticesIndex+prim.NumVertices > len(m.Vertices) {
			return fmt.Errorf("mesh: primitive %d span [%d,+%d) outside %d vertices",
				i, prim.VerticesIndex, prim.NumVertices, len(m.Vertices))
		}
	}
	if m.VertexAttribs.Size() != len(m.Vertices) {
		return fmt.Errorf("mesh: vertex attributes sized %d, have %d vertices", m.VertexAttribs.Size(), len(m.Vertices))
	}
	if m.PrimAttribs.Size() != len(m.Primitives) {
		return fmt.Errorf("mesh: primitive attributes sized %d, have %d primitives", m.PrimAttribs.Size(), len(m.Primitives))
	}
	return nil
}

// Merge appends other to m. Point indices of other's vertices are offset
// by m's point count. Attribute data is spliced for attributes m already
// has; attributes only present in other are dropped.
func (m *Mesh) Merge(other *Mesh) {
	pointBase := m.NumPoints()
	vertexBase := len(m.Vertices)
	primBase := len(m.Primitives)

	m.PointAttribs.Resize(pointBase + other.NumPoints())
	m.PointAttribs.CopyAt(other.PointAttribs, pointBase, other.NumPoints())

	m.Vertices = append(m.Vertices, other.Vertices...)
	added := m.Vertices[vertexBase:]
	parallel.For(len(added), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			added[i].Point += pointBase
		}
	})
	m.VertexAttribs.Resize(len(m.Vertices))
	m.VertexAttribs.CopyAt(other.VertexAttribs, vertexBase, len(other.Vertices))

	m.Primitives = append(m.Primitives, other.Primitives...)
	for i := primBase; i < len(m.Primitives); i++ {
		m.Primitives[i].VerticesIndex += vertexBase
	}
	m.PrimAttribs.Resize(len(m.Primitives))
	m.PrimAttribs.CopyAt(other.PrimAttribs, primBase, len(other.Primitives))
}
