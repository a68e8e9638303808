// Package capping closes open boundary loops with triangulated patches.
// Hole filling patches small artifacts and keeps the surrounding label;
// capping closes every remaining opening under a new region label.
package capping

import (
	"errors"
	"fmt"

	"github.com/chazu/cardiomesh/pkg/boundary"
	"github.com/chazu/cardiomesh/pkg/surface"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDegenerateLoop is returned for loops with fewer than 3 distinct points.
var ErrDegenerateLoop = errors.New("degenerate boundary loop")

// DefaultFirstLabel is the label given to the first cap.
const DefaultFirstLabel = 2

// ringFactor is the loop radius, in edge sizes, above which concentric
// rings are inserted between the loop and the centre.
const ringFactor = 1.5

// Options configures CapOpenings.
type Options struct {
	// FirstLabel is the label of the first cap; later caps count up from
	// it in discovery order. Zero means DefaultFirstLabel.
	FirstLabel int
	// EdgeSize is the target edge length of cap faces. Zero closes every
	// loop with a single fan.
	EdgeSize float64
}

// FillHoles closes every loop whose radius (largest distance from its
// centroid) is at most maxRadius. Patch faces take the label of the face
// along the loop. It returns the patched mesh and the number of loops
// closed.
func FillHoles(m *surface.Mesh, maxRadius float64) (*surface.Mesh, int, error) {
	loops, err := boundary.Extract(m)
	if err != nil {
		return nil, 0, fmt.Errorf("capping: %w", err)
	}
	ef := m.EdgeFaces()
	out := m.Clone()
	filled := 0
	for _, l := range loops {
		if boundary.Radius(l) > maxRadius {
			continue
		}
		label := surface.DefaultLabel
		if owners := ef[surface.MakeEdge(l.IDs[0], l.IDs[1])]; len(owners) > 0 {
			label = m.Labels[owners[0]]
		}
		if err := closeLoop(out, l, 0, label); err != nil {
			return nil, 0, err
		}
		filled++
	}
	return out, filled, nil
}

// CapOpenings closes every open loop of m. Labels are handed out in loop
// discovery order starting at opts.FirstLabel and returned in that order.
func CapOpenings(m *surface.Mesh, opts Options) (*surface.Mesh, []int, error) {
	first := opts.FirstLabel
	if first == 0 {
		first = DefaultFirstLabel
	}
	loops, err := boundary.Extract(m)
	if err != nil {
		return nil, nil, fmt.Errorf("capping: %w", err)
	}
	out := m.Clone()
	labels := make([]int, 0, len(loops))
	for i, l := range loops {
		label := first + i
		if err := closeLoop(out, l, opts.EdgeSize, label); err != nil {
			return nil, nil, err
		}
		labels = append(labels, label)
	}
	return out, labels, nil
}

// closeLoop appends a patch over l to m. The loop must run in the
// direction of the faces that own its edges; patch faces use each loop
// edge the other way round so the result stays consistently oriented.
func closeLoop(m *surface.Mesh, l boundary.Loop, edgeSize float64, label int) error {
	distinct := make(map[int]bool, len(l.IDs))
	for _, id := range l.IDs {
		distinct[id] = true
	}
	if len(distinct) < 3 {
		return fmt.Errorf("capping: loop of %d points: %w", len(distinct), ErrDegenerateLoop)
	}

	add := func(a, b, c int) {
		m.Faces = append(m.Faces, surface.Face{a, b, c})
		m.Labels = append(m.Labels, label)
	}
	centre := boundary.Centroid(l)
	n := len(l.IDs)

	rings := 0
	if r := boundary.Radius(l); edgeSize > 0 && r > ringFactor*edgeSize {
		rings = int(r/edgeSize) - 1
	}
	outer := l.IDs
	for k := 1; k <= rings; k++ {
		scale := 1 - float64(k)/float64(rings+1)
		inner := make([]int, n)
		for i, p := range l.Points {
			inner[i] = len(m.Points)
			m.Points = append(m.Points, r3.Add(centre, r3.Scale(scale, r3.Sub(p, centre))))
		}
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			add(outer[j], outer[i], inner[i])
			add(outer[j], inner[i], inner[j])
		}
		outer = inner
	}

	c := len(m.Points)
	m.Points = append(m.Points, centre)
	for i := 0; i < n; i++ {
		add(outer[(i+1)%n], outer[i], c)
	}
	return nil
}
