// Package boundary finds the open boundary loops of a surface mesh and
// relaxes them along their own 1-D topology.
package boundary

import (
	"fmt"
	"sort"

	"github.com/chazu/cardiomesh/pkg/surface"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrOpenChain reports free edges that cannot be walked into closed loops.
var ErrOpenChain = fmt.Errorf("free-edge chain does not close: %w", surface.ErrMalformed)

// Loop is a closed boundary polyline. IDs index the source mesh; Points
// holds the matching coordinates. The first point is not repeated.
type Loop struct {
	IDs    []int
	Points []r3.Vec
}

// Len returns the number of points in the loop.
func (l Loop) Len() int {
	return len(l.IDs)
}

// Extract returns every boundary loop of m. Loops are discovered from the
// lowest unvisited point index and run in the direction of the faces that
// own their edges, so the result is stable across runs.
func Extract(m *surface.Mesh) ([]Loop, error) {
	free := m.FreeEdges()
	if len(free) == 0 {
		return nil, nil
	}

	adj := make(map[int][]int)
	for _, e := range free {
		adj[e[0]] = append(adj[e[0]], e[1])
		adj[e[1]] = append(adj[e[1]], e[0])
	}
	succ := directedSuccessors(m, free)

	vertices := make([]int, 0, len(adj))
	for v, nbs := range adj {
		if len(nbs)%2 != 0 {
			return nil, fmt.Errorf("boundary: point %d has %d free edges: %w", v, len(nbs), ErrOpenChain)
		}
		sort.Ints(nbs)
		vertices = append(vertices, v)
	}
	sort.Ints(vertices)

	used := make(map[surface.Edge]bool, len(free))
	next := func(cur int) (int, bool) {
		for _, nb := range succ[cur] {
			if !used[surface.MakeEdge(cur, nb)] {
				return nb, true
			}
		}
		for _, nb := range adj[cur] {
			if !used[surface.MakeEdge(cur, nb)] {
				return nb, true
			}
		}
		return 0, false
	}

	var loops []Loop
	emit := func(ids []int) {
		l := Loop{IDs: append([]int(nil), ids...)}
		l.Points = m.PointsAt(l.IDs)
		loops = append(loops, l)
	}

	for _, start := range vertices {
		for {
			first, ok := next(start)
			if !ok {
				break
			}
			used[surface.MakeEdge(start, first)] = true
			path := []int{start}
			pos := map[int]int{start: 0}
			cur := first
			for cur != start {
				if k, seen := pos[cur]; seen {
					// The walk pinched at a non-manifold point: split off the
					// sub-loop and keep walking from the pinch.
					emit(path[k:])
					for _, v := range path[k+1:] {
						delete(pos, v)
					}
					path = path[:k+1]
				} else {
					pos[cur] = len(path)
					path = append(path, cur)
				}
				nb, ok := next(cur)
				if !ok {
					return nil, fmt.Errorf("boundary: walk stopped at point %d: %w", cur, ErrOpenChain)
				}
				used[surface.MakeEdge(cur, nb)] = true
				cur = nb
			}
			emit(path)
		}
	}
	return loops, nil
}

// directedSuccessors maps every boundary point to the points that follow
// it along a free edge in the orientation of the owning face.
func directedSuccessors(m *surface.Mesh, free []surface.Edge) map[int][]int {
	isFree := make(map[surface.Edge]bool, len(free))
	for _, e := range free {
		isFree[e] = true
	}
	succ := make(map[int][]int)
	for _, f := range m.Faces {
		for j := 0; j < 3; j++ {
			a, b := f[j], f[(j+1)%3]
			if isFree[surface.MakeEdge(a, b)] {
				succ[a] = append(succ[a], b)
			}
		}
	}
	for _, s := range succ {
		sort.Ints(s)
	}
	return succ
}

// Perimeter returns the closed length of the loop.
func Perimeter(l Loop) float64 {
	var sum float64
	n := len(l.Points)
	for i := 0; i < n; i++ {
		sum += r3.Norm(r3.Sub(l.Points[(i+1)%n], l.Points[i]))
	}
	return sum
}

// Centroid returns the mean of the loop points.
func Centroid(l Loop) r3.Vec {
	return surface.Mean(l.Points)
}

// Radius returns the largest distance from the loop centroid to a loop
// point, the radius of the sphere around the centroid enclosing the hole.
func Radius(l Loop) float64 {
	c := Centroid(l)
	var r float64
	for _, p := range l.Points {
		if d := r3.Norm(r3.Sub(p, c)); d > r {
			r = d
		}
	}
	return r
}
