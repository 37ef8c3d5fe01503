package mesh

import (
	"github.com/ungerik/go3d/vec3"

	"github.com/chazu/procmesh/pkg/attrib"
	"github.com/chazu/procmesh/pkg/parallel"
)

// newell returns the Newell vector of primitive i: perpendicular to the
// face and twice its area long. It tolerates non-planar polygons.
func (m *Mesh) newell(p *attrib.Attribute, i int) vec3.T {
	prim := m.Primitives[i]
	var n vec3.T
	if prim.NumVertices < 3 {
		return n
	}
	for k := range prim.NumVertices {
		a := p.Vec3(m.Vertices[prim.VerticesIndex+k].Point)
		b := p.Vec3(m.Vertices[prim.VerticesIndex+(k+1)%prim.NumVertices].Point)
		n[0] += (a[1] - b[1]) * (a[2] + b[2])
		n[1] += (a[2] - b[2]) * (a[0] + b[0])
		n[2] += (a[0] - b[0]) * (a[1] + b[1])
	}
	return n
}

// PrimitiveNormal returns the unit normal of primitive i. Primitives with
// fewer than three vertices or zero area, and meshes without positions,
// yield the zero vector.
func (m *Mesh) PrimitiveNormal(i int) vec3.T {
	p := m.FindPositions()
	if p == nil {
		return vec3.T{}
	}
	n := m.newell(p, i)
	return n.Normalized()
}

// PointNormals returns one unit normal per point: the normalized sum of
// the area-weighted normals of the primitives using it. Unused points get
// the zero vector.
//
// Primitives are split into ranges, each accumulating into its own
// per-point buffer; the buffers are summed per point afterwards.
func (m *Mesh) PointNormals() []vec3.T {
	out := make([]vec3.T, m.NumPoints())
	p := m.FindPositions()
	if p == nil {
		return out
	}

	chunks := parallel.Split(len(m.Primitives))
	partial := make([][]vec3.T, len(chunks))
	parallel.Each(chunks, func(chunk, lo, hi int) {
		acc := make([]vec3.T, len(out))
		for f := lo; f < hi; f++ {
			n := m.newell(p, f)
			prim := m.Primitives[f]
			for k := range prim.NumVertices {
				acc[m.Vertices[prim.VerticesIndex+k].Point].Add(&n)
			}
		}
		partial[chunk] = acc
	})

	parallel.For(len(out), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			for _, acc := range partial {
				out[i].Add(&acc[i])
			}
			out[i].Normalize()
		}
	})
	return out
}
