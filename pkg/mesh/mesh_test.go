package mesh

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ungerik/go3d/vec3"

	"github.com/chazu/procmesh/pkg/attrib"
)

// unitCube returns a closed, consistently wound cube with half-size 1.
func unitCube() *Mesh {
	m := New()
	for _, p := range []vec3.T{
		{1, 1, -1}, {-1, 1, -1}, {-1, 1, 1}, {1, 1, 1},
		{1, -1, -1}, {-1, -1, -1}, {-1, -1, 1}, {1, -1, 1},
	} {
		m.AddPoint(p)
	}
	m.AddPolygon(0, 1, 2, 3)
	m.AddPolygon(4, 7, 6, 5)
	m.AddPolygon(3, 2, 6, 7)
	m.AddPolygon(1, 0, 4, 5)
	m.AddPolygon(0, 3, 7, 4)
	m.AddPolygon(2, 1, 5, 6)
	return m
}

// quadGrid returns an open rows x cols grid of quads in the XZ plane.
func quadGrid(rows, cols int) *Mesh {
	m := New()
	for r := 0; r <= rows; r++ {
		for c := 0; c <= cols; c++ {
			m.AddPoint(vec3.T{float32(c), 0, float32(r)})
		}
	}
	stride := cols + 1
	for r := range rows {
		for c := range cols {
			a := r*stride + c
			m.AddPolygon(a, a+stride, a+stride+1, a+1)
		}
	}
	return m
}

func TestAddPolygonAndPointIndices(t *testing.T) {
	m := New()
	a := m.AddPoint(vec3.T{0, 0, 0})
	b := m.AddPoint(vec3.T{1, 0, 0})
	c := m.AddPoint(vec3.T{0, 1, 0})
	prim := m.AddPolygon(a, b, c)

	assert.Equal(t, 0, prim)
	assert.Equal(t, []int{0, 1, 2}, m.PointIndicesOfPrimitive(prim))
	assert.Equal(t, 3, m.NumVertices())
	assert.Equal(t, 3, m.VertexAttribs.Size())
	assert.Equal(t, 1, m.PrimAttribs.Size())
	require.NoError(t, m.Validate())
}

func TestAddPolygonsResizesOnce(t *testing.T) {
	m := New()
	m.AddPoints(5)
	m.VertexAttribs.Float3("uv")
	m.PrimAttribs.FindOrCreate("id", attrib.Float32, 1)

	first := m.AddPolygons([]int{3, 4}, []int{0, 1, 2, 1, 3, 4, 2})
	assert.Equal(t, 0, first)
	assert.Equal(t, []int{0, 1, 2}, m.PointIndicesOfPrimitive(0))
	assert.Equal(t, []int{1, 3, 4, 2}, m.PointIndicesOfPrimitive(1))
	assert.Equal(t, 7, m.VertexAttribs.Size())
	assert.Len(t, m.VertexAttribs.Find("uv").Component(0), 7)
	assert.Equal(t, 2, m.PrimAttribs.Size())
	require.NoError(t, m.Validate())

	assert.Equal(t, 2, m.AddPolygons([]int{3}, []int{4, 3, 0}))
	assert.Panics(t, func() { m.AddPolygons([]int{4}, []int{0, 1, 2}) })
}

func TestReadingDoesNotCreatePositions(t *testing.T) {
	m := unitCube()
	m.PointAttribs.Remove(attrib.Position)
	require.Equal(t, 0, m.PointAttribs.Count())

	assert.Equal(t, vec3.T{}, m.Center())
	_, _, ok := m.BoundingBox()
	assert.False(t, ok)
	assert.Nil(t, m.FindPositions())

	var buf bytes.Buffer
	require.NoError(t, WriteOBJ(&buf, m))
	assert.Equal(t, 8, strings.Count(buf.String(), "v 0 0 0\n"))
	assert.Equal(t, 0, m.PointAttribs.Count())
}

func TestAddVertexAndPrimitive(t *testing.T) {
	m := New()
	m.AddPoint(vec3.T{})
	m.AddPoint(vec3.T{1, 0, 0})
	v0 := m.AddVertex(0)
	m.AddVertex(1)
	prim := m.AddPrimitive(v0, 2)
	assert.Equal(t, []int{0, 1}, m.PointIndicesOfPrimitive(prim))
	require.NoError(t, m.Validate())
}

func TestValidateCatchesBadReferences(t *testing.T) {
	m := New()
	m.AddPoint(vec3.T{})
	m.AddPolygon(0, 3)
	assert.Error(t, m.Validate())

	m = New()
	m.AddPoint(vec3.T{})
	m.AddPrimitive(0, 4)
	assert.Error(t, m.Validate())
}

func TestCenterAndBoundingBox(t *testing.T) {
	m := unitCube()
	assert.Equal(t, vec3.T{0, 0, 0}, m.Center())

	lo, hi, ok := m.BoundingBox()
	require.True(t, ok)
	assert.Equal(t, vec3.T{-1, -1, -1}, lo)
	assert.Equal(t, vec3.T{1, 1, 1}, hi)

	_, _, ok = New().BoundingBox()
	assert.False(t, ok)
	assert.Equal(t, vec3.T{}, New().Center())
}

func TestDuplicateIsIndependent(t *testing.T) {
	m := unitCube()
	d := m.Duplicate()

	assert.NotEqual(t, m.ID(), d.ID())
	d.Positions().SetVec3(0, vec3.T{9, 9, 9})
	d.Vertices[0].Point = 5
	assert.Equal(t, vec3.T{1, 1, -1}, m.Positions().Vec3(0))
	assert.Equal(t, 0, m.Vertices[0].Point)
}

func TestMergeArithmetic(t *testing.T) {
	a := unitCube()
	b := quadGrid(2, 3)
	pa, qa := a.NumPoints(), a.NumPrimitives()
	pb, qb := b.NumPoints(), b.NumPrimitives()

	merged := a.Duplicate()
	merged.Merge(b)

	require.NoError(t, merged.Validate())
	assert.Equal(t, pa+pb, merged.NumPoints())
	assert.Equal(t, qa+qb, merged.NumPrimitives())
	for i := range qb {
		want := b.PointIndicesOfPrimitive(i)
		for k := range want {
			want[k] += pa
		}
		assert.Equal(t, want, merged.PointIndicesOfPrimitive(qa+i))
	}
	for i := range pb {
		assert.Equal(t, b.Positions().Vec3(i), merged.Positions().Vec3(pa+i))
	}
}

func TestMergeDoesNotMaterializeForeignAttributes(t *testing.T) {
	a := unitCube()
	b := unitCube()
	cd := b.PointAttribs.Float3(attrib.Color)
	cd.SetVec3(0, vec3.T{1, 0, 0})

	a.Merge(b)
	assert.Nil(t, a.PointAttribs.Find(attrib.Color))
}

func TestMergeSplicesSharedAttributes(t *testing.T) {
	a := unitCube()
	a.PointAttribs.Float3(attrib.Color)
	b := unitCube()
	b.PointAttribs.Float3(attrib.Color).SetVec3(2, vec3.T{0, 1, 0})

	a.Merge(b)
	cd := a.PointAttribs.Find(attrib.Color)
	require.NotNil(t, cd)
	assert.Equal(t, vec3.T{0, 1, 0}, cd.Vec3(8+2))
	assert.Equal(t, vec3.T{}, cd.Vec3(2))
}

func TestWriteOBJ(t *testing.T) {
	m := New()
	m.AddPoint(vec3.T{0, 0, 0})
	m.AddPoint(vec3.T{1, 0, 0})
	m.AddPoint(vec3.T{0, 1, 0})
	m.AddPolygon(0, 1, 2)
	m.AddPolygon(0, 1)
	m.AddPolygon(2)

	var buf bytes.Buffer
	require.NoError(t, WriteOBJ(&buf, m))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"v 0 0 0",
		"v 1 0 0",
		"v 0 1 0",
		"f 1 2 3",
		"l 1 2",
	}, lines)
}
