package nodes

import (
	"context"
	"fmt"

	"github.com/chazu/procmesh/pkg/attrib"
	"github.com/chazu/procmesh/pkg/graph"
	"github.com/chazu/procmesh/pkg/mesh"
)

// maxSubdivisions bounds the iterations field; each level multiplies the
// face count by the average polygon size.
const maxSubdivisions = 6

// Subdivide splits every face into one quad per corner, joining the
// corner, the midpoints of its two edges and the face centroid. Shared
// edges get a single midpoint. Point attributes of new points are the
// average of the points they are built from; vertex and primitive
// attributes are not carried over.
func Subdivide(ctx context.Context, m *mesh.Mesh) *mesh.Mesh {
	hes := m.ComputeHalfEdgesContext(ctx, mesh.SortAuto)

	points := m.PointAttribs.Clone()
	next := points.Size()

	// One midpoint per undirected edge.
	edgePoint := make([]int, len(hes))
	var edges [][2]int
	for h, he := range hes {
		if he.Twin != mesh.NoTwin && he.Twin < h {
			edgePoint[h] = edgePoint[he.Twin]
			continue
		}
		edgePoint[h] = next + len(edges)
		edges = append(edges, [2]int{he.Origin, mesh.Dest(hes, h)})
	}
	next += len(edges)

	// One centroid per face that has half-edges, keyed by its first one.
	facePoint := make([]int, len(hes))
	var faces [][]int
	for h, he := range hes {
		if h > 0 && hes[h-1].Face == he.Face {
			facePoint[h] = facePoint[h-1]
			continue
		}
		facePoint[h] = next + len(faces)
		faces = append(faces, m.PointIndicesOfPrimitive(he.Face))
	}

	points.Resize(next + len(faces))
	for i, e := range edges {
		average(points, next-len(edges)+i, e[:])
	}
	for i, f := range faces {
		average(points, next+i, f)
	}

	// Four half-edges per original one: corner, outgoing midpoint,
	// centroid, incoming midpoint.
	quads := make([]mesh.HalfEdge, 4*len(hes))
	for h, he := range hes {
		origins := [4]int{he.Origin, edgePoint[h], facePoint[h], edgePoint[he.Prev]}
		base := 4 * h
		for k := range 4 {
			quads[base+k] = mesh.HalfEdge{
				Next:   base + (k+1)%4,
				Prev:   base + (k+3)%4,
				Origin: origins[k],
				Face:   h,
				Twin:   mesh.NoTwin,
			}
		}
	}

	out := mesh.ReconstructFromHalfEdges(quads, points)
	out.DetailAttribs = m.DetailAttribs.Clone()
	return out
}

// average sets element dst of every attribute in s to the mean of the
// elements in src.
func average(s *attrib.Set, dst int, src []int) {
	inv := 1 / float32(len(src))
	for i := range s.Count() {
		a := s.At(i)
		for c := range a.Components() {
			comp := a.Component(c)
			var sum float32
			for _, j := range src {
				sum += comp[j]
			}
			comp[dst] = sum * inv
		}
	}
}

// SubdivideKind applies Subdivide iterations times.
func SubdivideKind() graph.KindSpec {
	return graph.KindSpec{
		Name:        "subdivide",
		Description: "split faces into quads around edge midpoints and centroids",
		Inputs:      1,
		Outputs:     1,
		New: func(n *graph.Node) graph.Operator {
			iterations := graph.AddField(n, "iterations", 1)
			return graph.OperatorFunc(func(ctx context.Context, _ int, in []*mesh.Mesh) (*mesh.Mesh, error) {
				if in[0] == nil {
					return nil, nil
				}
				iters := iterations.Value()
				if iters < 0 || iters > maxSubdivisions {
					return nil, fmt.Errorf("iterations %d outside [0, %d]", iters, maxSubdivisions)
				}
				m := in[0]
				for range iters {
					if err := ctx.Err(); err != nil {
						return nil, err
					}
					m = Subdivide(ctx, m)
				}
				return m, nil
			})
		},
	}
}
