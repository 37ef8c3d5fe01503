package nodes

import (
	"context"
	"math"

	"github.com/ungerik/go3d/vec3"

	"github.com/chazu/procmesh/pkg/attrib"
	"github.com/chazu/procmesh/pkg/graph"
	"github.com/chazu/procmesh/pkg/mesh"
	"github.com/chazu/procmesh/pkg/parallel"
)

// xform is scale, then rotation about X, Y and Z in that order, then
// translation.
type xform struct {
	scale     vec3.T
	rot       [3][3]float64
	translate vec3.T
}

func newXform(translate, rotateDeg, scale vec3.T) xform {
	sx, cx := math.Sincos(float64(rotateDeg[0]) * math.Pi / 180)
	sy, cy := math.Sincos(float64(rotateDeg[1]) * math.Pi / 180)
	sz, cz := math.Sincos(float64(rotateDeg[2]) * math.Pi / 180)
	// Rz * Ry * Rx
	rot := [3][3]float64{
		{cz * cy, cz*sy*sx - sz*cx, cz*sy*cx + sz*sx},
		{sz * cy, sz*sy*sx + cz*cx, sz*sy*cx - cz*sx},
		{-sy, cy * sx, cy * cx},
	}
	return xform{scale: scale, rot: rot, translate: translate}
}

func (x *xform) rotate(v vec3.T) vec3.T {
	var out vec3.T
	for r := range 3 {
		out[r] = float32(x.rot[r][0]*float64(v[0]) + x.rot[r][1]*float64(v[1]) + x.rot[r][2]*float64(v[2]))
	}
	return out
}

func (x *xform) point(v vec3.T) vec3.T {
	v = x.rotate(vec3.T{v[0] * x.scale[0], v[1] * x.scale[1], v[2] * x.scale[2]})
	return vec3.T{v[0] + x.translate[0], v[1] + x.translate[1], v[2] + x.translate[2]}
}

// normal transforms a normal by the inverse transpose, which for
// rotation times scale is rotation times inverse scale.
func (x *xform) normal(n vec3.T) vec3.T {
	for c := range 3 {
		if x.scale[c] != 0 {
			n[c] /= x.scale[c]
		}
	}
	n = x.rotate(n)
	return n.Normalized()
}

// TransformKind scales, rotates and translates the points of its input.
// An "N" attribute is transformed as a normal.
func TransformKind() graph.KindSpec {
	return graph.KindSpec{
		Name:        "transform",
		Description: "scale, rotate (degrees, XYZ) and translate points",
		Inputs:      1,
		Outputs:     1,
		New: func(n *graph.Node) graph.Operator {
			translate := graph.AddField(n, "translate", vec3.T{})
			rotate := graph.AddField(n, "rotate", vec3.T{})
			scale := graph.AddField(n, "scale", vec3.T{1, 1, 1})
			return graph.OperatorFunc(func(_ context.Context, _ int, in []*mesh.Mesh) (*mesh.Mesh, error) {
				if in[0] == nil {
					return nil, nil
				}
				m := in[0].Duplicate()
				x := newXform(translate.Value(), rotate.Value(), scale.Value())
				p := m.Positions()
				nrm := m.PointAttribs.Find(attrib.Normal)
				if nrm != nil && nrm.Components() != 3 {
					nrm = nil
				}
				parallel.For(m.NumPoints(), func(lo, hi int) {
					for i := lo; i < hi; i++ {
						p.SetVec3(i, x.point(p.Vec3(i)))
						if nrm != nil {
							nrm.SetVec3(i, x.normal(nrm.Vec3(i)))
						}
					}
				})
				return m, nil
			})
		},
	}
}

// MergeKind concatenates its two inputs. Attributes present only on the
// second input are dropped unless the union field is set.
func MergeKind() graph.KindSpec {
	return graph.KindSpec{
		Name:        "merge",
		Description: "append input 1 to input 0",
		Inputs:      2,
		Outputs:     1,
		New: func(n *graph.Node) graph.Operator {
			union := graph.AddField(n, "union", false)
			return graph.OperatorFunc(func(_ context.Context, _ int, in []*mesh.Mesh) (*mesh.Mesh, error) {
				switch {
				case in[0] == nil && in[1] == nil:
					return nil, nil
				case in[0] == nil:
					return in[1].Duplicate(), nil
				}
				m := in[0].Duplicate()
				if in[1] != nil {
					if union.Value() {
						m.PointAttribs.MatchShapes(in[1].PointAttribs)
						m.VertexAttribs.MatchShapes(in[1].VertexAttribs)
						m.PrimAttribs.MatchShapes(in[1].PrimAttribs)
					}
					m.Merge(in[1])
				}
				return m, nil
			})
		},
	}
}
