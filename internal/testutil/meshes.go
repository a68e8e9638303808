// Package testutil builds small analytic meshes shared by package tests.
package testutil

import (
	"math"

	"github.com/chazu/cardiomesh/pkg/surface"
	"gonum.org/v1/gonum/spatial/r3"
)

// Sphere returns a closed, outward-oriented UV sphere centred at the
// origin. rings is the number of latitude bands; an odd value keeps every
// latitude circle off the z = 0 plane.
func Sphere(radius float64, segments, rings int) *surface.Mesh {
	m := &surface.Mesh{}
	m.Points = append(m.Points, r3.Vec{Z: radius})
	for i := 1; i < rings; i++ {
		theta := math.Pi * float64(i) / float64(rings)
		for j := 0; j < segments; j++ {
			phi := 2 * math.Pi * float64(j) / float64(segments)
			m.Points = append(m.Points, r3.Vec{
				X: radius * math.Sin(theta) * math.Cos(phi),
				Y: radius * math.Sin(theta) * math.Sin(phi),
				Z: radius * math.Cos(theta),
			})
		}
	}
	south := len(m.Points)
	m.Points = append(m.Points, r3.Vec{Z: -radius})

	ring := func(i, j int) int { return 1 + (i-1)*segments + (j % segments) }
	add := func(a, b, c int) {
		m.Faces = append(m.Faces, surface.Face{a, b, c})
		m.Labels = append(m.Labels, surface.DefaultLabel)
	}
	for j := 0; j < segments; j++ {
		add(0, ring(1, j), ring(1, j+1))
	}
	for i := 1; i < rings-1; i++ {
		for j := 0; j < segments; j++ {
			add(ring(i, j), ring(i+1, j), ring(i+1, j+1))
			add(ring(i, j), ring(i+1, j+1), ring(i, j+1))
		}
	}
	for j := 0; j < segments; j++ {
		add(south, ring(rings-1, j+1), ring(rings-1, j))
	}
	return m
}

// WithoutFace returns m with face i removed. Points are kept.
func WithoutFace(m *surface.Mesh, i int) *surface.Mesh {
	out := m.Clone()
	out.Faces = append(out.Faces[:i:i], out.Faces[i+1:]...)
	out.Labels = append(out.Labels[:i:i], out.Labels[i+1:]...)
	return out
}

// LowerHemisphere returns the part of a UV sphere below z = 0, cut along
// the latitude circle closest to the equator. The result has exactly one
// boundary loop of the given segment count.
func LowerHemisphere(radius float64, segments, rings int) *surface.Mesh {
	s := Sphere(radius, segments, 2*rings)
	sub, _ := surface.Subset(s, func(i int) bool {
		f := s.Faces[i]
		for _, id := range f {
			if s.Points[id].Z > 1e-9 {
				return false
			}
		}
		return true
	})
	return sub
}

// Disk returns a flat triangulated disk in the z = 0 plane with one
// boundary loop of n points.
func Disk(radius float64, n int) *surface.Mesh {
	m := &surface.Mesh{Points: []r3.Vec{{}}}
	for j := 0; j < n; j++ {
		phi := 2 * math.Pi * float64(j) / float64(n)
		m.Points = append(m.Points, r3.Vec{X: radius * math.Cos(phi), Y: radius * math.Sin(phi)})
	}
	for j := 0; j < n; j++ {
		m.Faces = append(m.Faces, surface.Face{0, 1 + j, 1 + (j+1)%n})
		m.Labels = append(m.Labels, surface.DefaultLabel)
	}
	return m
}
