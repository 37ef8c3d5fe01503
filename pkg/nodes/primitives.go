package nodes

import (
	"context"
	"fmt"

	"github.com/ungerik/go3d/vec3"

	"github.com/chazu/procmesh/pkg/graph"
	"github.com/chazu/procmesh/pkg/mesh"
)

// cubeCorners are the corners of a cube of size 2, in point order.
var cubeCorners = [8]vec3.T{
	{1, 1, -1}, {-1, 1, -1}, {-1, 1, 1}, {1, 1, 1},
	{1, -1, -1}, {-1, -1, -1}, {-1, -1, 1}, {1, -1, 1},
}

// cubeFaces wind counter-clockwise seen from outside.
var cubeFaces = [6][4]int{
	{0, 1, 2, 3}, // +y
	{4, 7, 6, 5}, // -y
	{3, 2, 6, 7}, // +z
	{1, 0, 4, 5}, // -z
	{0, 3, 7, 4}, // +x
	{2, 1, 5, 6}, // -x
}

// Cube builds an axis-aligned cube with edge length size centred on
// center.
func Cube(size float32, center vec3.T) *mesh.Mesh {
	m := mesh.New()
	h := size / 2
	for _, c := range cubeCorners {
		m.AddPoint(vec3.T{c[0]*h + center[0], c[1]*h + center[1], c[2]*h + center[2]})
	}
	for _, f := range cubeFaces {
		m.AddPolygon(f[:]...)
	}
	return m
}

// CubeKind produces a six-quad cube.
func CubeKind() graph.KindSpec {
	return graph.KindSpec{
		Name:        "cube",
		Description: "axis-aligned cube of edge length size",
		Outputs:     1,
		New: func(n *graph.Node) graph.Operator {
			size := graph.AddField(n, "size", 1.0)
			center := graph.AddField(n, "center", vec3.T{})
			return graph.OperatorFunc(func(context.Context, int, []*mesh.Mesh) (*mesh.Mesh, error) {
				return Cube(float32(size.Value()), center.Value()), nil
			})
		},
	}
}

// Grid builds a rows x cols grid of quads in the XZ plane, centred on the
// origin and facing +Y.
func Grid(rows, cols int, width, depth float32) *mesh.Mesh {
	m := mesh.New()
	m.AddPoints((rows + 1) * (cols + 1))
	p := m.Positions()
	for r := 0; r <= rows; r++ {
		for c := 0; c <= cols; c++ {
			x := width * (float32(c)/float32(cols) - 0.5)
			z := depth * (float32(r)/float32(rows) - 0.5)
			p.SetVec3(r*(cols+1)+c, vec3.T{x, 0, z})
		}
	}
	stride := cols + 1
	sizes := make([]int, 0, rows*cols)
	quads := make([]int, 0, 4*rows*cols)
	for r := range rows {
		for c := range cols {
			a := r*stride + c
			sizes = append(sizes, 4)
			quads = append(quads, a, a+stride, a+stride+1, a+1)
		}
	}
	m.AddPolygons(sizes, quads)
	return m
}

// GridKind produces a planar quad grid.
func GridKind() graph.KindSpec {
	return graph.KindSpec{
		Name:        "grid",
		Description: "rows x cols quad grid in the XZ plane",
		Outputs:     1,
		New: func(n *graph.Node) graph.Operator {
			rows := graph.AddField(n, "rows", 10)
			cols := graph.AddField(n, "cols", 10)
			width := graph.AddField(n, "width", 10.0)
			depth := graph.AddField(n, "depth", 10.0)
			return graph.OperatorFunc(func(context.Context, int, []*mesh.Mesh) (*mesh.Mesh, error) {
				r, c := rows.Value(), cols.Value()
				if r < 1 || c < 1 {
					return nil, fmt.Errorf("grid needs at least one row and column, got %dx%d", r, c)
				}
				return Grid(r, c, float32(width.Value()), float32(depth.Value())), nil
			})
		},
	}
}
