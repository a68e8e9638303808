package kernel

import (
	"github.com/chazu/cardiomesh/pkg/surface"
	"gonum.org/v1/gonum/spatial/r3"
)

// Soup is an unindexed triangle list as produced by a tessellator.
// Triangles are wound so their normals point out of the solid.
type Soup struct {
	Triangles [][3]r3.Vec
}

// TriangleCount returns the number of triangles.
func (s *Soup) TriangleCount() int {
	return len(s.Triangles)
}

// IsEmpty returns true if the soup has no geometry.
func (s *Soup) IsEmpty() bool {
	return len(s.Triangles) == 0
}

// Bounds returns the bounding box of every triangle corner.
func (s *Soup) Bounds() r3.Box {
	if s.IsEmpty() {
		return r3.Box{}
	}
	b := r3.Box{Min: s.Triangles[0][0], Max: s.Triangles[0][0]}
	for _, t := range s.Triangles {
		for _, p := range t {
			b.Min = r3.Vec{X: min(b.Min.X, p.X), Y: min(b.Min.Y, p.Y), Z: min(b.Min.Z, p.Z)}
			b.Max = r3.Vec{X: max(b.Max.X, p.X), Y: max(b.Max.Y, p.Y), Z: max(b.Max.Z, p.Z)}
		}
	}
	return b
}

// Surface welds the soup into an indexed mesh. Corners closer than tol
// are merged and every face gets the given label. The result is wound
// outward.
func (s *Soup) Surface(tol float64, label int) *surface.Mesh {
	m := surface.Weld(s.Triangles, tol, label)
	if m.Volume() < 0 {
		m = surface.Reverse(m)
	}
	return m
}
