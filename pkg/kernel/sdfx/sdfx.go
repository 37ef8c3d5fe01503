// Package sdfx implements kernel.Kernel with the github.com/deadsy/sdfx
// signed-distance-field library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/procmesh/pkg/kernel"
)

var _ kernel.Kernel = (*Kernel)(nil)

// DefaultCells is the marching cubes resolution used when ToMesh is
// given a non-positive cell count.
const DefaultCells = 64

type solid struct {
	s sdf.SDF3
}

func (s *solid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// Kernel implements kernel.Kernel using sdfx.
type Kernel struct{}

// New returns a new Kernel.
func New() *Kernel {
	return &Kernel{}
}

func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*solid).s
}

func wrap(s sdf.SDF3) kernel.Solid {
	return &solid{s: s}
}

// Box returns an origin-centred box with edge lengths x, y, z and the
// given corner rounding radius.
func (k *Kernel) Box(x, y, z, round float64) (kernel.Solid, error) {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, round)
	if err != nil {
		return nil, fmt.Errorf("sdfx box: %w", err)
	}
	return wrap(s), nil
}

// Sphere returns an origin-centred sphere.
func (k *Kernel) Sphere(radius float64) (kernel.Solid, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx sphere: %w", err)
	}
	return wrap(s), nil
}

// Cylinder returns a cylinder along Z, centred on the origin.
func (k *Kernel) Cylinder(height, radius, round float64) (kernel.Solid, error) {
	s, err := sdf.Cylinder3D(height, radius, round)
	if err != nil {
		return nil, fmt.Errorf("sdfx cylinder: %w", err)
	}
	return wrap(s), nil
}

// Union returns the union of two solids.
func (k *Kernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns a minus b.
func (k *Kernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Intersection returns the intersection of two solids.
func (k *Kernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Intersect3D(unwrap(a), unwrap(b)))
}

// Translate moves a solid by (x, y, z).
func (k *Kernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Rotate rotates a solid by Euler angles in degrees, applied X then Y
// then Z.
func (k *Kernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.RotateZ(radians(z)).Mul(sdf.RotateY(radians(y))).Mul(sdf.RotateX(radians(x)))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// ToMesh tessellates s with uniform marching cubes. Each triangle gets
// its own three vertices carrying the face normal. Zero-area triangles
// have no normal and are dropped.
func (k *Kernel) ToMesh(s kernel.Solid, cells int) (*kernel.Mesh, error) {
	if cells <= 0 {
		cells = DefaultCells
	}
	tris := render.ToTriangles(unwrap(s), render.NewMarchingCubesUniform(cells))

	out := &kernel.Mesh{
		Vertices: make([]float32, 0, len(tris)*9),
		Normals:  make([]float32, 0, len(tris)*9),
		Indices:  make([]uint32, 0, len(tris)*3),
	}
	for _, tri := range tris {
		n := tri.Normal()
		if degenerate(n) {
			continue
		}
		for _, v := range tri {
			out.Indices = append(out.Indices, uint32(len(out.Vertices)/3))
			out.Vertices = append(out.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			out.Normals = append(out.Normals, float32(n.X), float32(n.Y), float32(n.Z))
		}
	}
	if out.IsEmpty() {
		return nil, kernel.ErrEmpty
	}
	return out, nil
}

func degenerate(n v3.Vec) bool {
	for _, c := range [3]float64{n.X, n.Y, n.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return true
		}
	}
	return n.X == 0 && n.Y == 0 && n.Z == 0
}
