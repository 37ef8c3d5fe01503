package nodes

import (
	"context"
	"math/rand/v2"

	"github.com/aquilax/go-perlin"
	"github.com/ungerik/go3d/vec3"

	"github.com/chazu/procmesh/pkg/attrib"
	"github.com/chazu/procmesh/pkg/graph"
	"github.com/chazu/procmesh/pkg/mesh"
	"github.com/chazu/procmesh/pkg/parallel"
)

// RandomizeKind offsets every point by a uniform random vector in
// [-amount, amount] per axis. The offset of a point depends only on seed
// and the point index.
func RandomizeKind() graph.KindSpec {
	return graph.KindSpec{
		Name:        "randomize",
		Description: "jitter points by a seeded random offset",
		Inputs:      1,
		Outputs:     1,
		New: func(n *graph.Node) graph.Operator {
			seed := graph.AddField(n, "seed", uint64(1))
			amount := graph.AddField(n, "amount", vec3.T{0.1, 0.1, 0.1})
			return graph.OperatorFunc(func(_ context.Context, _ int, in []*mesh.Mesh) (*mesh.Mesh, error) {
				if in[0] == nil {
					return nil, nil
				}
				m := in[0].Duplicate()
				p := m.Positions()
				s, a := seed.Value(), amount.Value()
				parallel.For(m.NumPoints(), func(lo, hi int) {
					src := rand.NewPCG(s, 0)
					r := rand.New(src)
					for i := lo; i < hi; i++ {
						src.Seed(s, uint64(i))
						v := p.Vec3(i)
						for c := range 3 {
							v[c] += a[c] * (2*r.Float32() - 1)
						}
						p.SetVec3(i, v)
					}
				})
				return m, nil
			})
		},
	}
}

// Perlin noise parameters: alpha weights successive octaves, beta scales
// their frequency.
const (
	noiseAlpha   = 2
	noiseBeta    = 2
	noiseOctaves = 3
)

// NoiseKind displaces points along their normal by 3D Perlin noise
// sampled at the point position. Points without a usable normal move
// along +Y.
func NoiseKind() graph.KindSpec {
	return graph.KindSpec{
		Name:        "noise",
		Description: "displace points along the normal by Perlin noise",
		Inputs:      1,
		Outputs:     1,
		New: func(n *graph.Node) graph.Operator {
			seed := graph.AddField(n, "seed", int64(1))
			amplitude := graph.AddField(n, "amplitude", 0.5)
			frequency := graph.AddField(n, "frequency", 1.0)
			offset := graph.AddField(n, "offset", vec3.T{})
			return graph.OperatorFunc(func(_ context.Context, _ int, in []*mesh.Mesh) (*mesh.Mesh, error) {
				if in[0] == nil {
					return nil, nil
				}
				m := in[0].Duplicate()
				gen := perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed.Value())
				normals := pointNormals(m)
				amp, freq, off := float32(amplitude.Value()), frequency.Value(), offset.Value()
				p := m.Positions()
				parallel.For(m.NumPoints(), func(lo, hi int) {
					for i := lo; i < hi; i++ {
						v := p.Vec3(i)
						d := float32(gen.Noise3D(
							float64(v[0]+off[0])*freq,
							float64(v[1]+off[1])*freq,
							float64(v[2]+off[2])*freq,
						)) * amp
						dir := normals[i]
						if dir == (vec3.T{}) {
							dir = vec3.T{0, 1, 0}
						}
						p.SetVec3(i, vec3.T{v[0] + dir[0]*d, v[1] + dir[1]*d, v[2] + dir[2]*d})
					}
				})
				return m, nil
			})
		},
	}
}

// pointNormals returns the "N" attribute values if m has a 3-component
// one, otherwise normals computed from the faces.
func pointNormals(m *mesh.Mesh) []vec3.T {
	na := m.PointAttribs.Find(attrib.Normal)
	if na == nil || na.Components() != 3 {
		return m.PointNormals()
	}
	out := make([]vec3.T, m.NumPoints())
	for i := range out {
		out[i] = na.Vec3(i)
	}
	return out
}

// NormalKind writes face-derived unit normals to the "N" point
// attribute.
func NormalKind() graph.KindSpec {
	return graph.KindSpec{
		Name:        "normal",
		Description: "compute point normals into N",
		Inputs:      1,
		Outputs:     1,
		New: func(*graph.Node) graph.Operator {
			return graph.OperatorFunc(func(_ context.Context, _ int, in []*mesh.Mesh) (*mesh.Mesh, error) {
				if in[0] == nil {
					return nil, nil
				}
				m := in[0].Duplicate()
				normals := m.PointNormals()
				na := m.PointAttribs.Float3(attrib.Normal)
				parallel.For(len(normals), func(lo, hi int) {
					for i := lo; i < hi; i++ {
						na.SetVec3(i, normals[i])
					}
				})
				return m, nil
			})
		},
	}
}
