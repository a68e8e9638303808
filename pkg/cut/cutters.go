package cut

import (
	"fmt"
	"math"

	"github.com/chazu/cardiomesh/pkg/kernel"
	"github.com/chazu/cardiomesh/pkg/surface"
	"gonum.org/v1/gonum/spatial/r3"
)

// SolidCutter cuts with a kernel solid.
type SolidCutter struct {
	kernel.Solid
}

// SurfaceCutter cuts with the volume enclosed by a closed triangle mesh.
// Its field is the distance to the nearest face, negative inside.
type SurfaceCutter struct {
	mesh *surface.Mesh
}

// NewSurfaceCutter returns a cutter bounded by m, which must be closed.
func NewSurfaceCutter(m *surface.Mesh) (*SurfaceCutter, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("cut: %w", err)
	}
	if m.IsEmpty() {
		return nil, fmt.Errorf("cut: empty cutting surface: %w", surface.ErrMalformed)
	}
	if n := len(m.FreeEdges()); n > 0 {
		return nil, fmt.Errorf("cut: cutting surface has %d free edges: %w", n, surface.ErrMalformed)
	}
	return &SurfaceCutter{mesh: m}, nil
}

// Evaluate returns the signed distance from p to the cutting surface.
func (s *SurfaceCutter) Evaluate(p r3.Vec) float64 {
	d := math.Inf(1)
	var winding float64
	for _, f := range s.mesh.Faces {
		a, b, c := s.mesh.Points[f[0]], s.mesh.Points[f[1]], s.mesh.Points[f[2]]
		if dd := r3.Norm(r3.Sub(p, closestOnTriangle(p, a, b, c))); dd < d {
			d = dd
		}
		winding += solidAngle(p, a, b, c)
	}
	if math.Abs(winding/(4*math.Pi)) > 0.5 {
		return -d
	}
	return d
}

// solidAngle returns the signed solid angle of triangle abc seen from p
// (Van Oosterom and Strackee).
func solidAngle(p, a, b, c r3.Vec) float64 {
	a, b, c = r3.Sub(a, p), r3.Sub(b, p), r3.Sub(c, p)
	la, lb, lc := r3.Norm(a), r3.Norm(b), r3.Norm(c)
	num := r3.Dot(a, r3.Cross(b, c))
	den := la*lb*lc + r3.Dot(a, b)*lc + r3.Dot(a, c)*lb + r3.Dot(b, c)*la
	return 2 * math.Atan2(num, den)
}

// closestOnTriangle returns the point of triangle abc closest to p, by
// Voronoi region of the triangle features.
func closestOnTriangle(p, a, b, c r3.Vec) r3.Vec {
	ab, ac, ap := r3.Sub(b, a), r3.Sub(c, a), r3.Sub(p, a)
	d1, d2 := r3.Dot(ab, ap), r3.Dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}
	bp := r3.Sub(p, b)
	d3, d4 := r3.Dot(ab, bp), r3.Dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return r3.Add(a, r3.Scale(d1/(d1-d3), ab))
	}
	cp := r3.Sub(p, c)
	d5, d6 := r3.Dot(ab, cp), r3.Dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return r3.Add(a, r3.Scale(d2/(d2-d6), ac))
	}
	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return r3.Add(b, r3.Scale(w, r3.Sub(c, b)))
	}
	denom := 1 / (va + vb + vc)
	v, w := vb*denom, vc*denom
	return r3.Add(a, r3.Add(r3.Scale(v, ab), r3.Scale(w, ac)))
}
