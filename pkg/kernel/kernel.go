// Package kernel defines the solid-modeling backend used by the sdf node
// and the flat triangle buffers handed to external renderers.
package kernel

import "errors"

// ErrEmpty is returned when a solid produces no triangles at the
// requested resolution.
var ErrEmpty = errors.New("kernel: solid produced no triangles")

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel builds and tessellates solids. Primitives are centred on the
// origin. Constructors return an error for non-positive dimensions.
type Kernel interface {
	Box(x, y, z, round float64) (Solid, error)
	Sphere(radius float64) (Solid, error)
	Cylinder(height, radius, round float64) (Solid, error)

	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// ToMesh tessellates s into a triangle soup on a grid with cells
	// cells along the longest bounding box side.
	ToMesh(s Solid, cells int) (*Mesh, error)
}
