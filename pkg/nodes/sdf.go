package nodes

import (
	"context"
	"fmt"

	"github.com/ungerik/go3d/vec3"

	"github.com/chazu/procmesh/pkg/graph"
	"github.com/chazu/procmesh/pkg/kernel"
	"github.com/chazu/procmesh/pkg/mesh"
	"github.com/chazu/procmesh/pkg/tessellate"
)

// solid builds shape ("box", "sphere" or "cylinder") sized by size. A
// sphere uses size.X as its diameter; a cylinder uses size.X as diameter
// and size.Z as height.
func solid(k kernel.Kernel, shape string, size vec3.T, round float64) (kernel.Solid, error) {
	x, y, z := float64(size[0]), float64(size[1]), float64(size[2])
	switch shape {
	case "box":
		return k.Box(x, y, z, round)
	case "sphere":
		return k.Sphere(x / 2)
	case "cylinder":
		return k.Cylinder(z, x/2, round)
	default:
		return nil, fmt.Errorf("unknown shape %q", shape)
	}
}

// combine applies op to a and b. An empty op returns a.
func combine(k kernel.Kernel, op string, a, b kernel.Solid) (kernel.Solid, error) {
	switch op {
	case "":
		return a, nil
	case "union":
		return k.Union(a, b), nil
	case "difference":
		return k.Difference(a, b), nil
	case "intersection":
		return k.Intersection(a, b), nil
	default:
		return nil, fmt.Errorf("unknown boolean op %q", op)
	}
}

// SDFKind builds a solid with k, optionally combines it with a second
// "tool" solid, and tessellates the result into a welded triangle mesh.
func SDFKind(k kernel.Kernel) graph.KindSpec {
	return graph.KindSpec{
		Name:        "sdf",
		Description: "signed-distance solid, tessellated by marching cubes",
		Outputs:     1,
		New: func(n *graph.Node) graph.Operator {
			shape := graph.AddField(n, "shape", "box")
			size := graph.AddField(n, "size", vec3.T{1, 1, 1})
			round := graph.AddField(n, "round", 0.0)
			op := graph.AddField(n, "op", "")
			tool := graph.AddField(n, "tool", "sphere")
			toolSize := graph.AddField(n, "tool_size", vec3.T{1, 1, 1})
			toolOffset := graph.AddField(n, "tool_offset", vec3.T{})
			rotate := graph.AddField(n, "rotate", vec3.T{})
			cells := graph.AddField(n, "cells", 64)
			weld := graph.AddField(n, "weld", tessellate.DefaultWeldTolerance)

			return graph.OperatorFunc(func(ctx context.Context, _ int, _ []*mesh.Mesh) (*mesh.Mesh, error) {
				s, err := solid(k, shape.Value(), size.Value(), round.Value())
				if err != nil {
					return nil, err
				}
				if o := op.Value(); o != "" {
					t, err := solid(k, tool.Value(), toolSize.Value(), 0)
					if err != nil {
						return nil, fmt.Errorf("tool: %w", err)
					}
					off := toolOffset.Value()
					t = k.Translate(t, float64(off[0]), float64(off[1]), float64(off[2]))
					if s, err = combine(k, o, s, t); err != nil {
						return nil, err
					}
				}
				if r := rotate.Value(); r != (vec3.T{}) {
					s = k.Rotate(s, float64(r[0]), float64(r[1]), float64(r[2]))
				}
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				soup, err := k.ToMesh(s, cells.Value())
				if err != nil {
					return nil, err
				}
				return tessellate.Weld(soup, weld.Value()), nil
			})
		},
	}
}
