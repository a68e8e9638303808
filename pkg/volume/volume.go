// Package volume defines the tetrahedral mesh produced by the external
// volume mesher.
package volume

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Tet is a tetrahedron given as four point indices.
type Tet [4]int

// Mesh is a tetrahedral volume mesh with an optional region id per cell.
type Mesh struct {
	Points  []r3.Vec
	Tets    []Tet
	Regions []int
}

// TetCount returns the number of tetrahedra.
func (m *Mesh) TetCount() int {
	return len(m.Tets)
}

// IsEmpty returns true if the mesh has no cells.
func (m *Mesh) IsEmpty() bool {
	return len(m.Tets) == 0
}

// Validate checks point indices and the region array length.
func (m *Mesh) Validate() error {
	if m.Regions != nil && len(m.Regions) != len(m.Tets) {
		return fmt.Errorf("volume: %d regions for %d tets", len(m.Regions), len(m.Tets))
	}
	for i, t := range m.Tets {
		for _, id := range t {
			if id < 0 || id >= len(m.Points) {
				return fmt.Errorf("volume: tet %d references point %d of %d", i, id, len(m.Points))
			}
		}
	}
	return nil
}

// Volume returns the sum of absolute tetrahedron volumes.
func (m *Mesh) Volume() float64 {
	var v float64
	for _, t := range m.Tets {
		a := m.Points[t[0]]
		d := r3.Dot(r3.Sub(m.Points[t[1]], a), r3.Cross(r3.Sub(m.Points[t[2]], a), r3.Sub(m.Points[t[3]], a)))
		if d < 0 {
			d = -d
		}
		v += d / 6
	}
	return v
}
