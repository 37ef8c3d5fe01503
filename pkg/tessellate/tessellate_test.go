package tessellate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ungerik/go3d/vec3"

	"github.com/chazu/procmesh/pkg/attrib"
	"github.com/chazu/procmesh/pkg/kernel"
	"github.com/chazu/procmesh/pkg/kernel/sdfx"
	"github.com/chazu/procmesh/pkg/mesh"
	"github.com/chazu/procmesh/pkg/tessellate"
)

func quad() *mesh.Mesh {
	m := mesh.New()
	m.AddPoint(vec3.T{0, 0, 0})
	m.AddPoint(vec3.T{0, 0, 1})
	m.AddPoint(vec3.T{1, 0, 1})
	m.AddPoint(vec3.T{1, 0, 0})
	m.AddPolygon(0, 1, 2, 3)
	return m
}

func TestTriangulateFansPolygons(t *testing.T) {
	m := quad()
	m.AddPolygon(0, 2) // skipped
	km := tessellate.Triangulate(m)

	assert.Equal(t, 4, km.VertexCount())
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, km.Indices)
	require.Len(t, km.Normals, 12)
	for i := range 4 {
		assert.InDelta(t, 1, km.Normals[3*i+1], 1e-6)
	}
}

func TestTriangulateUsesNormalAttribute(t *testing.T) {
	m := quad()
	n := m.PointAttribs.Float3(attrib.Normal)
	for i := range 4 {
		n.SetVec3(i, vec3.T{1, 0, 0})
	}
	km := tessellate.Triangulate(m)
	assert.Equal(t, []float32{1, 0, 0}, km.Normals[:3])
}

func TestWeldMergesSharedCorners(t *testing.T) {
	km := &kernel.Mesh{
		Vertices: []float32{
			0, 0, 0, 1, 0, 0, 1, 1, 0,
			0, 0, 0, 1, 1, 0, 0, 1, 0,
			0, 0, 0, 0, 0, 0, 1, 1, 0, // collapses
		},
		Indices: []uint32{0, 1, 2, 3, 4, 5, 6, 7, 8},
	}
	m := tessellate.Weld(km, 0)
	require.NoError(t, m.Validate())
	assert.Equal(t, 4, m.NumPoints())
	assert.Equal(t, 2, m.NumPrimitives())
	assert.Equal(t, []int{0, 2, 3}, m.PointIndicesOfPrimitive(1))
}

func TestWeldThenTriangulateRoundTrip(t *testing.T) {
	k := sdfx.New()
	box, err := k.Box(2, 2, 2, 0)
	require.NoError(t, err)
	soup, err := k.ToMesh(box, 8)
	require.NoError(t, err)

	m := tessellate.Weld(soup, 0)
	require.NoError(t, m.Validate())
	assert.Less(t, m.NumPoints(), soup.VertexCount())

	hes := m.ComputeHalfEdges()
	assert.Less(t, mesh.BoundaryCount(hes), len(hes)/10, "welded box should be mostly closed")

	back := tessellate.Triangulate(m)
	assert.Equal(t, m.NumPrimitives(), back.TriangleCount())
}

// gridSoup returns an n x n grid of unit quads in the XY plane as an
// unshared triangle buffer, two triangles per quad.
func gridSoup(n int) *kernel.Mesh {
	km := &kernel.Mesh{}
	corner := func(x, y int) {
		km.Indices = append(km.Indices, uint32(len(km.Vertices)/3))
		km.Vertices = append(km.Vertices, float32(x), float32(y), 0)
	}
	for y := range n {
		for x := range n {
			corner(x, y)
			corner(x+1, y)
			corner(x+1, y+1)
			corner(x, y)
			corner(x+1, y+1)
			corner(x, y+1)
		}
	}
	return km
}

func TestWeldLargeSoup(t *testing.T) {
	const n = 300
	m := tessellate.Weld(gridSoup(n), 0)
	require.NoError(t, m.Validate())
	assert.Equal(t, (n+1)*(n+1), m.NumPoints())
	assert.Equal(t, 2*n*n, m.NumPrimitives())
	assert.Equal(t, 6*n*n, m.VertexAttribs.Size())
	assert.Equal(t, vec3.T{float32(n), float32(n), 0}, m.Positions().Vec3(m.PointIndicesOfPrimitive(2*n*n - 1)[1]))
}

func BenchmarkWeld(b *testing.B) {
	soup := gridSoup(200)
	b.ResetTimer()
	for range b.N {
		tessellate.Weld(soup, 0)
	}
}

func TestTriangulateLeavesMeshUntouched(t *testing.T) {
	m := quad()
	m.PointAttribs.Remove(attrib.Position)
	km := tessellate.Triangulate(m)
	assert.Equal(t, make([]float32, 12), km.Vertices)
	assert.Len(t, km.Indices, 6)
	assert.Equal(t, 0, m.PointAttribs.Count())
}
