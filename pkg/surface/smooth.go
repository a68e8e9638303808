package surface

import "gonum.org/v1/gonum/spatial/r3"

// Taubin smoothing factors. The negative pass undoes the shrinkage of the
// positive one.
const (
	smoothLambda = 0.5
	smoothMu     = -0.53
)

// Smooth applies iterations of Taubin smoothing to the interior points.
// Points on free edges stay fixed, so planar openings remain planar.
func Smooth(m *Mesh, iterations int) *Mesh {
	out := m.Clone()
	if iterations <= 0 {
		return out
	}
	pinned := m.BoundaryPoints()
	nbrs := m.PointNeighbors()
	next := make([]r3.Vec, len(out.Points))
	step := func(factor float64) {
		for i, p := range out.Points {
			if pinned[i] || len(nbrs[i]) == 0 {
				next[i] = p
				continue
			}
			var avg r3.Vec
			for _, n := range nbrs[i] {
				avg = r3.Add(avg, out.Points[n])
			}
			avg = r3.Scale(1/float64(len(nbrs[i])), avg)
			next[i] = r3.Add(p, r3.Scale(factor, r3.Sub(avg, p)))
		}
		out.Points, next = next, out.Points
	}
	for it := 0; it < iterations; it++ {
		step(smoothLambda)
		step(smoothMu)
	}
	return out
}
