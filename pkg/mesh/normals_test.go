package mesh

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ungerik/go3d/vec3"

	"github.com/chazu/procmesh/pkg/attrib"
	"github.com/chazu/procmesh/pkg/parallel"
)

func TestPrimitiveNormalFollowsWinding(t *testing.T) {
	m := unitCube()
	assert.Equal(t, vec3.T{0, 1, 0}, m.PrimitiveNormal(0))
	assert.Equal(t, vec3.T{0, -1, 0}, m.PrimitiveNormal(1))

	m.AddPolygon(0, 1)
	assert.Equal(t, vec3.T{}, m.PrimitiveNormal(6))
}

func TestPointNormalsOfCube(t *testing.T) {
	m := unitCube()
	normals := m.PointNormals()
	inv := float32(1 / math.Sqrt(3))
	for i, n := range normals {
		p := m.Positions().Vec3(i)
		for c := range 3 {
			assert.InDelta(t, p[c]*inv, n[c], 1e-5, "point %d component %d", i, c)
		}
	}
}

func TestPointNormalsUnusedPoint(t *testing.T) {
	m := quadGrid(1, 1)
	m.AddPoint(vec3.T{5, 5, 5})
	normals := m.PointNormals()
	assert.Equal(t, vec3.T{}, normals[4])
	for _, n := range normals[:4] {
		assert.InDelta(t, 1, n[1], 1e-6)
	}
}

func TestPointNormalsWeightByArea(t *testing.T) {
	m := New()
	m.AddPoint(vec3.T{0, 0, 0})
	// +Z quad of area 1e4
	m.AddPoint(vec3.T{100, 0, 0})
	m.AddPoint(vec3.T{100, 100, 0})
	m.AddPoint(vec3.T{0, 100, 0})
	m.AddPolygon(0, 1, 2, 3)
	// +X quad of area 1e-4
	m.AddPoint(vec3.T{0, 0.01, 0})
	m.AddPoint(vec3.T{0, 0.01, 0.01})
	m.AddPoint(vec3.T{0, 0, 0.01})
	m.AddPolygon(0, 4, 5, 6)

	assert.InDelta(t, 1, m.PrimitiveNormal(1)[0], 1e-5)
	n := m.PointNormals()[0]
	assert.InDelta(t, 0, n[0], 1e-6)
	assert.InDelta(t, 0, n[1], 1e-6)
	assert.InDelta(t, 1, n[2], 1e-6)
}

func TestPointNormalsAcrossChunks(t *testing.T) {
	m := quadGrid(120, 120)
	p := m.Positions()
	for i := range m.NumPoints() {
		v := p.Vec3(i)
		v[1] = float32(math.Sin(float64(v[0])*0.3) * math.Cos(float64(v[2])*0.2))
		p.SetVec3(i, v)
	}
	require.Greater(t, m.NumPrimitives(), 4*parallel.MinChunk)

	want := make([][3]float64, m.NumPoints())
	for f := range m.NumPrimitives() {
		n := m.newell(p, f)
		for _, pt := range m.PointIndicesOfPrimitive(f) {
			for c := range 3 {
				want[pt][c] += float64(n[c])
			}
		}
	}
	got := m.PointNormals()
	for i, w := range want {
		l := math.Sqrt(w[0]*w[0] + w[1]*w[1] + w[2]*w[2])
		for c := range 3 {
			assert.InDelta(t, w[c]/l, got[i][c], 1e-4, "point %d component %d", i, c)
		}
	}
}

func TestNormalsWithoutPositions(t *testing.T) {
	m := quadGrid(1, 1)
	m.PointAttribs.Remove(attrib.Position)

	assert.Equal(t, vec3.T{}, m.PrimitiveNormal(0))
	assert.Equal(t, make([]vec3.T, 4), m.PointNormals())
	assert.Nil(t, m.PointAttribs.Find(attrib.Position))
}
