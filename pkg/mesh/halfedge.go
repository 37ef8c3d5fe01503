package mesh

import (
	"context"
	"slices"
	"time"

	"github.com/chazu/procmesh/pkg/attrib"
	"github.com/chazu/procmesh/pkg/observability"
)

// NoTwin marks a half-edge on a topological boundary.
const NoTwin = -1

// HalfEdge is a directed edge of one face. All fields are indices: Next,
// Prev and Twin into the half-edge array, Origin into the points, Face
// into the primitives.
type HalfEdge struct {
	Next   int
	Prev   int
	Origin int
	Face   int
	Twin   int
}

// IsBoundary reports whether the half-edge has no twin.
func (h HalfEdge) IsBoundary() bool { return h.Twin == NoTwin }

// SortStrategy selects how half-edges are ordered for twin pairing.
type SortStrategy int

const (
	// SortAuto uses comparison sort below RadixThreshold half-edges and
	// radix sort at or above it.
	SortAuto SortStrategy = iota
	SortComparison
	SortRadix
)

func (s SortStrategy) String() string {
	switch s {
	case SortAuto:
		return "auto"
	case SortComparison:
		return "comparison"
	case SortRadix:
		return "radix"
	default:
		return "unknown"
	}
}

// Resolve returns the concrete strategy used for n half-edges: SortAuto
// becomes SortComparison or SortRadix, others are returned unchanged.
func (s SortStrategy) Resolve(n int) SortStrategy {
	if s != SortAuto {
		return s
	}
	if n >= RadixThreshold {
		return SortRadix
	}
	return SortComparison
}

// RadixThreshold is the half-edge count from which SortAuto switches to
// radix sort.
const RadixThreshold = 10_000

// ComputeHalfEdges derives the half-edge structure of m with SortAuto.
func (m *Mesh) ComputeHalfEdges() []HalfEdge {
	return m.ComputeHalfEdgesWith(SortAuto)
}

// ComputeHalfEdgesWith derives the half-edge structure of m using the
// given twin-pairing sort. Every primitive with at least two vertices
// contributes one closed cycle of half-edges, in vertex order; primitives
// with fewer vertices are skipped. The result is identical for every
// strategy.
//
// Twins pair oppositely directed half-edges on the same undirected edge,
// so Twin is NoTwin exactly when one primitive uses the edge only for
// consistently oriented manifold edges. On a non-manifold edge, or where
// two primitives traverse an edge in the same direction, half-edges on a
// shared edge can stay unpaired.
func (m *Mesh) ComputeHalfEdgesWith(strategy SortStrategy) []HalfEdge {
	return m.ComputeHalfEdgesContext(context.Background(), strategy)
}

// ComputeHalfEdgesContext is ComputeHalfEdgesWith that reports the build
// to observability.Topology, naming the sort actually used.
func (m *Mesh) ComputeHalfEdgesContext(ctx context.Context, strategy SortStrategy) []HalfEdge {
	start := time.Now()
	total := 0
	for _, prim := range m.Primitives {
		if prim.NumVertices >= 2 {
			total += prim.NumVertices
		}
	}
	hes := make([]HalfEdge, 0, total)
	for f, prim := range m.Primitives {
		n := prim.NumVertices
		if n < 2 {
			continue
		}
		base := len(hes)
		for k := range n {
			hes = append(hes, HalfEdge{
				Next:   base + (k+1)%n,
				Prev:   base + (k+n-1)%n,
				Origin: m.Vertices[prim.VerticesIndex+k].Point,
				Face:   f,
				Twin:   NoTwin,
			})
		}
	}
	used := pairTwins(hes, strategy)
	observability.Topology().OnHalfEdges(ctx, used.String(), len(hes), time.Since(start))
	return hes
}

// edgeEntry is a half-edge tagged with its undirected edge key.
type edgeEntry struct {
	key uint64
	he  int32
}

// edgeKey packs the undirected edge {a, b} into one sortable key.
func edgeKey(a, b int) uint64 {
	lo, hi := min(a, b), max(a, b)
	return uint64(uint32(lo))<<32 | uint64(uint32(hi))
}

// pairTwins fills in Twin for every half-edge that has an oppositely
// directed partner on the same undirected edge and returns the sort it
// used.
func pairTwins(hes []HalfEdge, strategy SortStrategy) SortStrategy {
	entries := make([]edgeEntry, len(hes))
	for i, h := range hes {
		entries[i] = edgeEntry{key: edgeKey(h.Origin, hes[h.Next].Origin), he: int32(i)}
	}

	strategy = strategy.Resolve(len(entries))
	if strategy == SortRadix {
		radixSortEntries(entries)
	} else {
		comparisonSortEntries(entries)
	}

	for lo := 0; lo < len(entries); {
		hi := lo + 1
		for hi < len(entries) && entries[hi].key == entries[lo].key {
			hi++
		}
		matchGroup(hes, entries[lo:hi])
		lo = hi
	}
	return strategy
}

// matchGroup pairs opposite-direction half-edges sharing one undirected
// edge. Groups larger than two happen on non-manifold edges; each
// half-edge takes the first unmatched opposite partner in sorted order.
func matchGroup(hes []HalfEdge, group []edgeEntry) {
	if len(group) < 2 {
		return
	}
	for i, a := range group {
		ha := &hes[a.he]
		if ha.Twin != NoTwin {
			continue
		}
		aDest := hes[ha.Next].Origin
		for _, b := range group[i+1:] {
			hb := &hes[b.he]
			if hb.Twin != NoTwin {
				continue
			}
			if hb.Origin == aDest && hes[hb.Next].Origin == ha.Origin {
				ha.Twin = int(b.he)
				hb.Twin = int(a.he)
				break
			}
		}
	}
}

// comparisonSortEntries orders entries by key, ties by half-edge index.
func comparisonSortEntries(entries []edgeEntry) {
	slices.SortFunc(entries, func(a, b edgeEntry) int {
		switch {
		case a.key < b.key:
			return -1
		case a.key > b.key:
			return 1
		}
		return int(a.he - b.he)
	})
}

// radixSortEntries is a stable LSD radix sort over the 64-bit key in four
// 16-bit passes. Entries start in half-edge order, so stability gives the
// same tie order as comparisonSortEntries.
func radixSortEntries(entries []edgeEntry) {
	const (
		bits    = 16
		buckets = 1 << bits
		mask    = buckets - 1
	)
	buf := make([]edgeEntry, len(entries))
	src, dst := entries, buf
	var counts [buckets]int
	for pass := range 4 {
		shift := uint(pass * bits)
		clear(counts[:])
		for _, e := range src {
			counts[(e.key>>shift)&mask]++
		}
		sum := 0
		for i, c := range counts {
			counts[i] = sum
			sum += c
		}
		for _, e := range src {
			d := (e.key >> shift) & mask
			dst[counts[d]] = e
			counts[d]++
		}
		src, dst = dst, src
	}
	// Four passes leave the result back in entries.
}

// ReconstructFromHalfEdges builds a mesh from a half-edge array. Each
// Next cycle becomes one primitive whose vertices are the cycle's origins
// in order, so winding is preserved. Cycles are emitted in order of their
// lowest half-edge index, which reproduces the primitive order of a mesh
// the array was derived from.
//
// points is cloned into the new mesh; vertex and primitive attributes
// start empty.
func ReconstructFromHalfEdges(hes []HalfEdge, points *attrib.Set) *Mesh {
	m := New()
	m.PointAttribs = points.Clone()
	visited := make([]bool, len(hes))
	for start := range hes {
		if visited[start] {
			continue
		}
		first := len(m.Vertices)
		for h := start; !visited[h]; h = hes[h].Next {
			visited[h] = true
			m.Vertices = append(m.Vertices, Vertex{Point: hes[h].Origin})
		}
		m.Primitives = append(m.Primitives, Primitive{VerticesIndex: first, NumVertices: len(m.Vertices) - first})
	}
	m.VertexAttribs.Resize(len(m.Vertices))
	m.PrimAttribs.Resize(len(m.Primitives))
	return m
}

// Dest returns the point a half-edge points to.
func Dest(hes []HalfEdge, i int) int {
	return hes[hes[i].Next].Origin
}

// BoundaryCount returns how many half-edges have no twin.
func BoundaryCount(hes []HalfEdge) int {
	n := 0
	for _, h := range hes {
		if h.IsBoundary() {
			n++
		}
	}
	return n
}

// Valence returns the number of half-edges leaving each point.
func Valence(hes []HalfEdge, numPoints int) []int {
	v := make([]int, numPoints)
	for _, h := range hes {
		v[h.Origin]++
	}
	return v
}
