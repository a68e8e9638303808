// Package cut trims surface meshes with implicit cutting volumes.
//
// A cutter is any signed field that is negative inside the material to
// remove. An optional plane limits the cut to the half-space its normal
// points into, so tissue behind the plane is always kept.
package cut

import (
	"math"

	"github.com/chazu/cardiomesh/pkg/plane"
	"github.com/chazu/cardiomesh/pkg/surface"
	"gonum.org/v1/gonum/spatial/r3"
)

// Cutter is a signed field, negative inside the region to remove.
type Cutter interface {
	Evaluate(p r3.Vec) float64
}

// Func adapts a plain function to the Cutter interface.
type Func func(p r3.Vec) float64

// Evaluate calls f(p).
func (f Func) Evaluate(p r3.Vec) float64 {
	return f(p)
}

// Step is one named cut applied during wall processing.
type Step struct {
	Name   string
	Cutter Cutter
	// Plane, if set, restricts removal to the side its normal points to.
	Plane *plane.Plane
}

// Apply cuts m with the step's cutter and plane.
func (s Step) Apply(m *surface.Mesh) *surface.Mesh {
	return Cut(m, s.Cutter, s.Plane)
}

// keepField combines the cutter and the optional plane into one field
// that is negative exactly where material is removed.
func keepField(c Cutter, pl *plane.Plane) func(r3.Vec) float64 {
	if pl == nil {
		return c.Evaluate
	}
	p := *pl
	return func(x r3.Vec) float64 {
		return math.Max(c.Evaluate(x), -p.SignedDistance(x))
	}
}

// Cut removes the part of m inside c (and in front of pl, when given).
// Faces straddling the cut are clipped along the zero level, sharing one
// intersection point per edge so the new opening is a single closed loop.
// Only the largest connected piece is kept. When nothing is removed m is
// returned as is.
func Cut(m *surface.Mesh, c Cutter, pl *plane.Plane) *surface.Mesh {
	g := keepField(c, pl)
	f := make([]float64, len(m.Points))
	removed := false
	for i, p := range m.Points {
		f[i] = g(p)
		if f[i] < 0 {
			removed = true
		}
	}
	if !removed {
		return m
	}

	out := &surface.Mesh{Points: append([]r3.Vec(nil), m.Points...)}
	crossing := make(map[surface.Edge]int)
	split := func(a, b int) int {
		e := surface.MakeEdge(a, b)
		if id, ok := crossing[e]; ok {
			return id
		}
		lo, hi := e[0], e[1]
		t := f[lo] / (f[lo] - f[hi])
		p := r3.Add(m.Points[lo], r3.Scale(t, r3.Sub(m.Points[hi], m.Points[lo])))
		id := len(out.Points)
		out.Points = append(out.Points, p)
		crossing[e] = id
		return id
	}
	emit := func(a, b, c, label int) {
		if a == b || b == c || a == c {
			return
		}
		out.Faces = append(out.Faces, surface.Face{a, b, c})
		out.Labels = append(out.Labels, label)
	}

	for fi, face := range m.Faces {
		label := m.Labels[fi]
		kept := 0
		for _, id := range face {
			if f[id] >= 0 {
				kept++
			}
		}
		switch kept {
		case 3:
			emit(face[0], face[1], face[2], label)
			continue
		case 0:
			continue
		}

		poly := make([]int, 0, 4)
		for j := 0; j < 3; j++ {
			a, b := face[j], face[(j+1)%3]
			if f[a] >= 0 {
				poly = append(poly, a)
			}
			if (f[a] > 0 && f[b] < 0) || (f[a] < 0 && f[b] > 0) {
				poly = append(poly, split(a, b))
			}
		}
		for k := 1; k+1 < len(poly); k++ {
			emit(poly[0], poly[k], poly[k+1], label)
		}
	}

	compact, _ := surface.Compact(surface.LargestComponent(out))
	return compact
}
