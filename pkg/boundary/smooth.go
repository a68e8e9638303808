package boundary

import "gonum.org/v1/gonum/spatial/r3"

// smoothFactor is the fraction of the way each point moves toward the mean
// of its neighbours per iteration. At one half an alternating pattern is
// removed in a single step and no loop collapses onto its centroid.
const smoothFactor = 0.5

// Smooth relaxes every loop point toward the mean of its two loop
// neighbours, iterations times. Ids and point count are unchanged, and
// zero iterations returns an identical copy.
func Smooth(l Loop, iterations int) Loop {
	out := Loop{
		IDs:    append([]int(nil), l.IDs...),
		Points: append([]r3.Vec(nil), l.Points...),
	}
	n := len(out.Points)
	if n < 3 {
		return out
	}
	next := make([]r3.Vec, n)
	for it := 0; it < iterations; it++ {
		for i, p := range out.Points {
			prev, succ := out.Points[(i+n-1)%n], out.Points[(i+1)%n]
			avg := r3.Scale(0.5, r3.Add(prev, succ))
			next[i] = r3.Add(p, r3.Scale(smoothFactor, r3.Sub(avg, p)))
		}
		out.Points, next = next, out.Points
	}
	return out
}
