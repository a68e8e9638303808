// Package kernel defines the abstract geometry kernel interface used to
// build cutter solids and synthetic phantom surfaces. The sdfx backend
// provides signed-distance solids behind this interface.
package kernel

import "gonum.org/v1/gonum/spatial/r3"

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() r3.Box
	// Evaluate returns the signed distance from p to the solid surface,
	// negative inside.
	Evaluate(p r3.Vec) float64
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives, centred at the origin.
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64) Solid // axis along Z
	Sphere(radius float64) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// ToMesh tessellates the solid surface. cells is the number of
	// marching-cubes cells along the longest bounding-box axis; zero
	// selects the backend default.
	ToMesh(s Solid, cells int) (*Soup, error)
}
