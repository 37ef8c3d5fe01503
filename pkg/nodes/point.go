package nodes

import (
	"context"

	"github.com/ungerik/go3d/vec3"

	"github.com/chazu/procmesh/pkg/graph"
	"github.com/chazu/procmesh/pkg/mesh"
)

// PointKind produces a mesh holding one point and no primitives.
func PointKind() graph.KindSpec {
	return graph.KindSpec{
		Name:        "point",
		Description: "single point at position",
		Outputs:     1,
		New: func(n *graph.Node) graph.Operator {
			pos := graph.AddField(n, "position", vec3.T{})
			return graph.OperatorFunc(func(context.Context, int, []*mesh.Mesh) (*mesh.Mesh, error) {
				m := mesh.New()
				m.AddPoint(pos.Value())
				return m, nil
			})
		},
	}
}

// AddKind appends one point to its input. Output 0 appends point0 and
// output 1 appends point1, so the two outputs are cached independently.
func AddKind() graph.KindSpec {
	return graph.KindSpec{
		Name:        "add",
		Description: "append point0 on output 0, point1 on output 1",
		Inputs:      1,
		Outputs:     2,
		New: func(n *graph.Node) graph.Operator {
			points := []*graph.Field[vec3.T]{
				graph.AddField(n, "point0", vec3.T{1, 0, 2}),
				graph.AddField(n, "point1", vec3.T{-8, 10, 20}),
			}
			return graph.OperatorFunc(func(_ context.Context, output int, in []*mesh.Mesh) (*mesh.Mesh, error) {
				var m *mesh.Mesh
				if in[0] != nil {
					m = in[0].Duplicate()
				} else {
					m = mesh.New()
				}
				m.AddPoint(points[output].Value())
				return m, nil
			})
		},
	}
}

// NullKind passes its input through unchanged.
func NullKind() graph.KindSpec {
	return graph.KindSpec{
		Name:        "null",
		Description: "pass-through",
		Inputs:      1,
		Outputs:     1,
		New: func(*graph.Node) graph.Operator {
			return graph.OperatorFunc(func(_ context.Context, _ int, in []*mesh.Mesh) (*mesh.Mesh, error) {
				return in[0], nil
			})
		},
	}
}
