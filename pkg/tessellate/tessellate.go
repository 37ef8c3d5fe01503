// Package tessellate converts between polygon meshes and the flat
// triangle buffers used by kernels and renderers.
package tessellate

import (
	"math"

	"github.com/ungerik/go3d/vec3"

	"github.com/chazu/procmesh/pkg/attrib"
	"github.com/chazu/procmesh/pkg/kernel"
	"github.com/chazu/procmesh/pkg/mesh"
)

// Triangulate fan-triangulates every primitive of m with at least three
// vertices. Points map one-to-one onto buffer vertices. Normals come from
// the "N" point attribute when it has three components, otherwise they
// are computed from the faces. A mesh without positions places every
// vertex at the origin. m is only read.
func Triangulate(m *mesh.Mesh) *kernel.Mesh {
	n := m.NumPoints()
	out := &kernel.Mesh{
		Vertices: make([]float32, 0, 3*n),
		Normals:  make([]float32, 0, 3*n),
	}

	if p := m.FindPositions(); p != nil {
		for i := range n {
			v := p.Vec3(i)
			out.Vertices = append(out.Vertices, v[0], v[1], v[2])
		}
	} else {
		out.Vertices = out.Vertices[:3*n]
	}

	if na := m.PointAttribs.Find(attrib.Normal); na != nil && na.Components() == 3 {
		for i := range n {
			v := na.Vec3(i)
			out.Normals = append(out.Normals, v[0], v[1], v[2])
		}
	} else {
		for _, v := range m.PointNormals() {
			out.Normals = append(out.Normals, v[0], v[1], v[2])
		}
	}

	for i, prim := range m.Primitives {
		if prim.NumVertices < 3 {
			continue
		}
		pts := m.PointIndicesOfPrimitive(i)
		for k := 1; k+1 < len(pts); k++ {
			out.Indices = append(out.Indices, uint32(pts[0]), uint32(pts[k]), uint32(pts[k+1]))
		}
	}
	return out
}

// DefaultWeldTolerance is the grid spacing Weld uses when given a
// non-positive tolerance.
const DefaultWeldTolerance = 1e-5

type cell [3]int64

// Weld turns a triangle buffer into a polygon mesh, merging buffer
// vertices whose positions fall in the same tolerance-sized grid cell.
// Triangles that collapse after welding are dropped. Points keep the
// position of the first buffer vertex welded into them.
//
// The mesh is assembled in bulk: points, vertices and primitives are
// collected first and each attribute set is resized once.
func Weld(km *kernel.Mesh, tolerance float64) *mesh.Mesh {
	if tolerance <= 0 {
		tolerance = DefaultWeldTolerance
	}
	remap := make(map[cell]int, km.VertexCount()/3)
	var unique []vec3.T
	point := func(i uint32) int {
		v := km.Vertex(i)
		key := cell{
			int64(math.Round(float64(v[0]) / tolerance)),
			int64(math.Round(float64(v[1]) / tolerance)),
			int64(math.Round(float64(v[2]) / tolerance)),
		}
		if idx, ok := remap[key]; ok {
			return idx
		}
		idx := len(unique)
		unique = append(unique, vec3.T(v))
		remap[key] = idx
		return idx
	}

	corners := make([]int, 0, len(km.Indices))
	for t := 0; t+2 < len(km.Indices); t += 3 {
		a := point(km.Indices[t])
		b := point(km.Indices[t+1])
		c := point(km.Indices[t+2])
		if a == b || b == c || a == c {
			continue
		}
		corners = append(corners, a, b, c)
	}

	m := mesh.New()
	m.AddPoints(len(unique))
	p := m.Positions()
	for i, v := range unique {
		p.SetVec3(i, v)
	}
	sizes := make([]int, len(corners)/3)
	for i := range sizes {
		sizes[i] = 3
	}
	m.AddPolygons(sizes, corners)
	return m
}
