// Package surface defines the labeled triangle surface mesh that every
// pipeline stage consumes and produces. A Mesh is treated as a value:
// operations return a new mesh and never modify their input.
package surface

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrMalformed reports a mesh that violates the triangle-only or index
// invariants. It is fatal for the anatomy being processed.
var ErrMalformed = errors.New("malformed mesh")

// RegionAttribute is the name of the per-face region label array in
// exported files.
const RegionAttribute = "ModelFaceID"

// DefaultLabel is assigned to faces created without an explicit label.
const DefaultLabel = 1

// Face is a triangle given as three point indices.
type Face [3]int

// Mesh is a triangle surface with one integer region label per face.
type Mesh struct {
	Points []r3.Vec
	Faces  []Face
	Labels []int
}

// New copies the given arrays into a validated mesh. A nil labels slice
// labels every face with DefaultLabel.
func New(points []r3.Vec, faces []Face, labels []int) (*Mesh, error) {
	m := &Mesh{
		Points: append([]r3.Vec(nil), points...),
		Faces:  append([]Face(nil), faces...),
	}
	if labels == nil {
		m.Labels = make([]int, len(faces))
		for i := range m.Labels {
			m.Labels[i] = DefaultLabel
		}
	} else {
		m.Labels = append([]int(nil), labels...)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// FromPolygons builds a mesh from generic polygons. Anything that is not a
// triangle is rejected.
func FromPolygons(points []r3.Vec, polys [][]int, labels []int) (*Mesh, error) {
	faces := make([]Face, len(polys))
	for i, p := range polys {
		if len(p) != 3 {
			return nil, fmt.Errorf("surface: polygon %d has %d vertices: %w", i, len(p), ErrMalformed)
		}
		faces[i] = Face{p[0], p[1], p[2]}
	}
	return New(points, faces, labels)
}

// Validate checks that every face index is in range and that there is one
// label per face.
func (m *Mesh) Validate() error {
	if len(m.Labels) != len(m.Faces) {
		return fmt.Errorf("surface: %d labels for %d faces: %w", len(m.Labels), len(m.Faces), ErrMalformed)
	}
	n := len(m.Points)
	for i, f := range m.Faces {
		for _, id := range f {
			if id < 0 || id >= n {
				return fmt.Errorf("surface: face %d references point %d of %d: %w", i, id, n, ErrMalformed)
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	return &Mesh{
		Points: append([]r3.Vec(nil), m.Points...),
		Faces:  append([]Face(nil), m.Faces...),
		Labels: append([]int(nil), m.Labels...),
	}
}

// PointCount returns the number of points.
func (m *Mesh) PointCount() int {
	return len(m.Points)
}

// FaceCount returns the number of triangles.
func (m *Mesh) FaceCount() int {
	return len(m.Faces)
}

// IsEmpty returns true if the mesh has no faces.
func (m *Mesh) IsEmpty() bool {
	return len(m.Faces) == 0
}

// Bounds returns the axis-aligned bounding box of the points.
func (m *Mesh) Bounds() r3.Box {
	if len(m.Points) == 0 {
		return r3.Box{}
	}
	b := r3.Box{Min: m.Points[0], Max: m.Points[0]}
	for _, p := range m.Points[1:] {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Min.Z = math.Min(b.Min.Z, p.Z)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
		b.Max.Z = math.Max(b.Max.Z, p.Z)
	}
	return b
}

// Diagonal returns the length of the bounding box diagonal.
func (m *Mesh) Diagonal() float64 {
	b := m.Bounds()
	return r3.Norm(r3.Sub(b.Max, b.Min))
}

// Centroid returns the mean of all points.
func (m *Mesh) Centroid() r3.Vec {
	return Mean(m.Points)
}

// FaceNormal returns the (unnormalized) normal of face i. Its length is
// twice the face area.
func (m *Mesh) FaceNormal(i int) r3.Vec {
	f := m.Faces[i]
	a, b, c := m.Points[f[0]], m.Points[f[1]], m.Points[f[2]]
	return r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
}

// FaceArea returns the area of face i.
func (m *Mesh) FaceArea(i int) float64 {
	return r3.Norm(m.FaceNormal(i)) / 2
}

// Volume returns the signed enclosed volume. It is only meaningful for a
// closed, consistently oriented surface.
func (m *Mesh) Volume() float64 {
	var v float64
	for _, f := range m.Faces {
		a, b, c := m.Points[f[0]], m.Points[f[1]], m.Points[f[2]]
		v += r3.Dot(a, r3.Cross(b, c))
	}
	return v / 6
}

// LabelSet returns the distinct face labels in ascending order.
func (m *Mesh) LabelSet() []int {
	seen := make(map[int]bool)
	var out []int
	for _, l := range m.Labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Ints(out)
	return out
}

// PointsAt returns the coordinates of the given point ids.
func (m *Mesh) PointsAt(ids []int) []r3.Vec {
	out := make([]r3.Vec, len(ids))
	for i, id := range ids {
		out[i] = m.Points[id]
	}
	return out
}

// Mean returns the arithmetic mean of pts, or the zero vector for none.
func Mean(pts []r3.Vec) r3.Vec {
	var sum r3.Vec
	if len(pts) == 0 {
		return sum
	}
	for _, p := range pts {
		sum = r3.Add(sum, p)
	}
	return r3.Scale(1/float64(len(pts)), sum)
}
