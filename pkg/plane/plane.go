// Package plane fits least-squares planes to point sets and flattens mesh
// openings onto them.
package plane

import (
	"errors"
	"fmt"

	"github.com/chazu/cardiomesh/pkg/surface"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// ErrDegenerate is returned when a point set does not span a plane.
var ErrDegenerate = errors.New("degenerate point set")

// colinearRatio is the smallest allowed ratio of the middle to the largest
// covariance eigenvalue.
const colinearRatio = 1e-10

// Plane is given by a point on it and a unit normal.
type Plane struct {
	Origin r3.Vec
	Normal r3.Vec
}

// SignedDistance returns the distance from p to the plane, positive on the
// side the normal points to.
func (pl Plane) SignedDistance(p r3.Vec) float64 {
	return r3.Dot(r3.Sub(p, pl.Origin), pl.Normal)
}

// Project returns the orthogonal projection of p onto the plane.
func (pl Plane) Project(p r3.Vec) r3.Vec {
	return r3.Sub(p, r3.Scale(pl.SignedDistance(p), pl.Normal))
}

// Flip returns the same plane with the normal reversed.
func (pl Plane) Flip() Plane {
	return Plane{Origin: pl.Origin, Normal: r3.Scale(-1, pl.Normal)}
}

// New returns the plane through origin with the given normal direction.
func New(origin, normal r3.Vec) (Plane, error) {
	if r3.Norm(normal) == 0 {
		return Plane{}, fmt.Errorf("plane: zero normal: %w", ErrDegenerate)
	}
	return Plane{Origin: origin, Normal: r3.Unit(normal)}, nil
}

// Fit returns the least-squares plane through pts. The normal is the
// principal axis of least variance of the centred points.
func Fit(pts []r3.Vec) (Plane, error) {
	if len(pts) < 3 {
		return Plane{}, fmt.Errorf("plane: %d points: %w", len(pts), ErrDegenerate)
	}
	data := mat.NewDense(len(pts), 3, nil)
	for i, p := range pts {
		data.SetRow(i, []float64{p.X, p.Y, p.Z})
	}
	origin := r3.Vec{
		X: stat.Mean(mat.Col(nil, 0, data), nil),
		Y: stat.Mean(mat.Col(nil, 1, data), nil),
		Z: stat.Mean(mat.Col(nil, 2, data), nil),
	}

	cov := mat.NewSymDense(3, nil)
	stat.CovarianceMatrix(cov, data, nil)
	var es mat.EigenSym
	if !es.Factorize(cov, true) {
		return Plane{}, fmt.Errorf("plane: eigen decomposition failed: %w", ErrDegenerate)
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	lo, hi := 0, 0
	for i, v := range vals {
		if v < vals[lo] {
			lo = i
		}
		if v > vals[hi] {
			hi = i
		}
	}
	mid := 3 - lo - hi
	if lo == hi {
		mid = (lo + 1) % 3
	}
	if vals[hi] <= 0 || vals[mid] <= colinearRatio*vals[hi] {
		return Plane{}, fmt.Errorf("plane: points are colinear: %w", ErrDegenerate)
	}

	normal := r3.Vec{X: vecs.At(0, lo), Y: vecs.At(1, lo), Z: vecs.At(2, lo)}
	return New(origin, normal)
}

// MaxDistance returns the largest absolute distance from pts to the plane.
func (pl Plane) MaxDistance(pts []r3.Vec) float64 {
	var max float64
	for _, p := range pts {
		d := pl.SignedDistance(p)
		if d < 0 {
			d = -d
		}
		if d > max {
			max = d
		}
	}
	return max
}

// ProjectOpening fits a plane to ref and moves the points ids of m onto it.
// One-ring neighbours of the opening that end up beyond the plane, or
// closer to it than a quarter of edgeSize, are pulled back inside so the
// faces next to the opening keep a usable shape. No other point moves.
// The returned plane's normal points away from the body of the mesh.
func ProjectOpening(m *surface.Mesh, ids []int, ref []r3.Vec, edgeSize float64) (*surface.Mesh, Plane, error) {
	pl, err := Fit(ref)
	if err != nil {
		return nil, Plane{}, err
	}
	if pl.SignedDistance(m.Centroid()) > 0 {
		pl = pl.Flip()
	}

	out := m.Clone()
	named := make(map[int]bool, len(ids))
	for _, id := range ids {
		if id < 0 || id >= len(out.Points) {
			return nil, Plane{}, fmt.Errorf("plane: opening point %d of %d: %w", id, len(out.Points), surface.ErrMalformed)
		}
		named[id] = true
		out.Points[id] = pl.Project(out.Points[id])
	}

	margin := edgeSize / 4
	nbrs := m.PointNeighbors()
	for _, id := range ids {
		for _, n := range nbrs[id] {
			if named[n] {
				continue
			}
			if d := pl.SignedDistance(out.Points[n]); d > -margin {
				out.Points[n] = r3.Sub(pl.Project(out.Points[n]), r3.Scale(margin, pl.Normal))
			}
		}
	}
	return out, pl, nil
}
