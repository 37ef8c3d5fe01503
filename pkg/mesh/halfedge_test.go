package mesh

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ungerik/go3d/vec3"

	"github.com/chazu/procmesh/pkg/observability"
)

// checkTopology asserts the structural invariants every half-edge array
// must satisfy for m.
func checkTopology(t *testing.T, m *Mesh, hes []HalfEdge) {
	t.Helper()

	want := 0
	for _, prim := range m.Primitives {
		if prim.NumVertices >= 2 {
			want += prim.NumVertices
		}
	}
	require.Len(t, hes, want)

	uses := map[uint64]int{}
	for i := range hes {
		uses[edgeKey(hes[i].Origin, Dest(hes, i))]++
	}

	for i, h := range hes {
		assert.Equal(t, i, hes[h.Next].Prev, "next/prev mismatch at %d", i)
		assert.Equal(t, h.Face, hes[h.Next].Face, "cycle leaves face at %d", i)
		if h.IsBoundary() {
			assert.Equal(t, 1, uses[edgeKey(h.Origin, Dest(hes, i))], "boundary half-edge %d on shared edge", i)
			continue
		}
		tw := hes[h.Twin]
		assert.Equal(t, i, tw.Twin, "twin not symmetric at %d", i)
		assert.Equal(t, h.Origin, Dest(hes, h.Twin))
		assert.Equal(t, tw.Origin, Dest(hes, i))
	}
}

func TestCubeHalfEdgesAllTwinned(t *testing.T) {
	m := unitCube()
	hes := m.ComputeHalfEdges()
	checkTopology(t, m, hes)
	assert.Len(t, hes, 24)
	assert.Equal(t, 0, BoundaryCount(hes))
	for _, v := range Valence(hes, m.NumPoints()) {
		assert.Equal(t, 3, v)
	}
}

func TestGridBoundary(t *testing.T) {
	m := quadGrid(3, 4)
	hes := m.ComputeHalfEdges()
	checkTopology(t, m, hes)
	assert.Equal(t, 2*(3+4), BoundaryCount(hes))
}

func TestDegeneratePrimitivesSkipped(t *testing.T) {
	m := New()
	m.AddPoint(vec3.T{0, 0, 0})
	m.AddPoint(vec3.T{1, 0, 0})
	m.AddPoint(vec3.T{0, 1, 0})
	m.AddPolygon()
	m.AddPolygon(0)
	m.AddPolygon(0, 1, 2)

	hes := m.ComputeHalfEdges()
	checkTopology(t, m, hes)
	require.Len(t, hes, 3)
	for _, h := range hes {
		assert.Equal(t, 2, h.Face)
		assert.True(t, h.IsBoundary())
	}
}

func TestTwoGonTwinsTriangle(t *testing.T) {
	m := New()
	m.AddPoint(vec3.T{0, 0, 0})
	m.AddPoint(vec3.T{1, 0, 0})
	m.AddPoint(vec3.T{0, 1, 0})
	m.AddPolygon(0, 1, 2)
	m.AddPolygon(2, 1)

	hes := m.ComputeHalfEdges()
	require.Len(t, hes, 5)
	// Triangle edge 1->2 meets the 2-gon's 2->1; the 2-gon's 1->2 is left over.
	assert.Equal(t, 3, hes[1].Twin)
	assert.Equal(t, 1, hes[3].Twin)
	assert.Equal(t, NoTwin, hes[4].Twin)
}

func TestNonManifoldEdgePairsAtMostOnce(t *testing.T) {
	m := New()
	for _, p := range []vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}} {
		m.AddPoint(p)
	}
	m.AddPolygon(0, 1, 2)
	m.AddPolygon(1, 0, 3)
	m.AddPolygon(1, 0, 4)

	hes := m.ComputeHalfEdges()
	assert.Equal(t, 3, hes[0].Twin)
	assert.Equal(t, NoTwin, hes[6].Twin)
}

func TestSameWindingLeavesSharedEdgeUnpaired(t *testing.T) {
	m := New()
	for _, p := range []vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, -1, 0}} {
		m.AddPoint(p)
	}
	m.AddPolygon(0, 1, 2)
	m.AddPolygon(0, 1, 3) // traverses 0->1 like the first face

	hes := m.ComputeHalfEdges()
	assert.Equal(t, NoTwin, hes[0].Twin)
	assert.Equal(t, NoTwin, hes[3].Twin)
	assert.Equal(t, len(hes), BoundaryCount(hes))
}

type strategyRecorder struct {
	mu   sync.Mutex
	used []string
}

func (r *strategyRecorder) OnHalfEdges(_ context.Context, strategy string, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.used = append(r.used, strategy)
}

func TestHalfEdgeBuildsReportStrategyUsed(t *testing.T) {
	rec := &strategyRecorder{}
	observability.SetTopologyHooks(rec)
	defer observability.Reset()

	unitCube().ComputeHalfEdges()
	shuffledTriangles(45, 7).ComputeHalfEdges()
	unitCube().ComputeHalfEdgesWith(SortRadix)
	assert.Equal(t, []string{"comparison", "radix", "radix"}, rec.used)

	assert.Equal(t, SortComparison, SortAuto.Resolve(RadixThreshold-1))
	assert.Equal(t, SortRadix, SortAuto.Resolve(RadixThreshold))
	assert.Equal(t, SortComparison, SortComparison.Resolve(RadixThreshold))
}

// shuffledTriangles builds a large triangle soup over a grid with
// primitives in random order so equal-key groups are scattered.
func shuffledTriangles(n int, seed uint64) *Mesh {
	grid := quadGrid(n, n)
	var tris [][3]int
	for i := range grid.NumPrimitives() {
		q := grid.PointIndicesOfPrimitive(i)
		tris = append(tris, [3]int{q[0], q[1], q[2]}, [3]int{q[0], q[2], q[3]})
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(tris), func(i, j int) { tris[i], tris[j] = tris[j], tris[i] })

	m := New()
	m.PointAttribs = grid.PointAttribs.Clone()
	for _, tri := range tris {
		m.AddPolygon(tri[0], tri[1], tri[2])
	}
	return m
}

func TestSortStrategiesAgree(t *testing.T) {
	tests := []struct {
		name string
		mesh *Mesh
	}{
		{"cube", unitCube()},
		{"small grid", quadGrid(4, 7)},
		{"above threshold", shuffledTriangles(45, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp := tt.mesh.ComputeHalfEdgesWith(SortComparison)
			rad := tt.mesh.ComputeHalfEdgesWith(SortRadix)
			auto := tt.mesh.ComputeHalfEdges()
			require.Equal(t, cmp, rad)
			require.Equal(t, cmp, auto)
			checkTopology(t, tt.mesh, rad)
		})
	}
}

func TestAutoPicksRadixAboveThreshold(t *testing.T) {
	m := shuffledTriangles(45, 7)
	hes := m.ComputeHalfEdges()
	assert.GreaterOrEqual(t, len(hes), RadixThreshold)
	// Only the perimeter of the triangulated grid is unshared.
	assert.Equal(t, 4*45, BoundaryCount(hes))
}

func TestRadixSortMatchesComparisonOnRandomKeys(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	a := make([]edgeEntry, 20_000)
	for i := range a {
		a[i] = edgeEntry{key: rng.Uint64() % 5000 << uint(rng.IntN(40)), he: int32(i)}
	}
	b := append([]edgeEntry(nil), a...)
	comparisonSortEntries(a)
	radixSortEntries(b)
	assert.Equal(t, a, b)
}

func TestReconstructRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		mesh *Mesh
	}{
		{"cube", unitCube()},
		{"grid", quadGrid(2, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hes := tt.mesh.ComputeHalfEdges()
			out := ReconstructFromHalfEdges(hes, tt.mesh.PointAttribs)

			require.NoError(t, out.Validate())
			require.Equal(t, tt.mesh.NumPrimitives(), out.NumPrimitives())
			for i := range out.NumPrimitives() {
				assert.Equal(t, tt.mesh.PointIndicesOfPrimitive(i), out.PointIndicesOfPrimitive(i))
			}
			assert.Equal(t, hes, out.ComputeHalfEdges())
			assert.NotSame(t, tt.mesh.PointAttribs, out.PointAttribs)
		})
	}
}
