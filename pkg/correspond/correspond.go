// Package correspond matches points between two versions of a surface by
// nearest Euclidean neighbour.
package correspond

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// Index answers nearest-point queries against a fixed point set.
type Index struct {
	tree *kdtree.Tree
	n    int
}

// NewIndex builds a k-d tree over target. target is not modified.
func NewIndex(target []r3.Vec) *Index {
	pts := make(points, len(target))
	for i, p := range target {
		pts[i] = point{Vec: p, id: i}
	}
	idx := &Index{n: len(target)}
	if len(pts) > 0 {
		idx.tree = kdtree.New(pts, false)
	}
	return idx
}

// Len returns the number of indexed points.
func (x *Index) Len() int {
	return x.n
}

// Nearest returns the id of the indexed point closest to q and the
// distance to it. It returns -1 when the index is empty.
func (x *Index) Nearest(q r3.Vec) (int, float64) {
	if x.tree == nil {
		return -1, 0
	}
	c, d2 := x.tree.Nearest(point{Vec: q, id: -1})
	return c.(point).id, math.Sqrt(d2)
}

// Match returns, for every point of pts, the id of the nearest point of
// target. Several points may map to the same target; see Duplicates.
func Match(pts, target []r3.Vec) []int {
	idx := NewIndex(target)
	out := make([]int, len(pts))
	for i, p := range pts {
		out[i], _ = idx.Nearest(p)
	}
	return out
}

// Duplicates returns the target ids that appear more than once in
// matches, in ascending order.
func Duplicates(matches []int) []int {
	seen := make(map[int]int, len(matches))
	for _, id := range matches {
		seen[id]++
	}
	var dup []int
	for id, n := range seen {
		if n > 1 && id >= 0 {
			dup = append(dup, id)
		}
	}
	sort.Ints(dup)
	return dup
}

// point is a kdtree.Comparable carrying its index in the target set.
type point struct {
	r3.Vec
	id int
}

func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(point)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	}
	panic("correspond: illegal dimension")
}

func (p point) Dims() int { return 3 }

// Distance returns the squared distance, as kdtree expects.
func (p point) Distance(c kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(p.Vec, c.(point).Vec))
}

type points []point

func (p points) Index(i int) kdtree.Comparable { return p[i] }
func (p points) Len() int                       { return len(p) }
func (p points) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

// Pivot partitions the list along dimension d.
func (p points) Pivot(d kdtree.Dim) int {
	a := axis{dim: d, points: p}
	return kdtree.Partition(a, kdtree.MedianOfMedians(a))
}

type axis struct {
	dim    kdtree.Dim
	points points
}

func (a axis) Less(i, j int) bool {
	return a.points[i].Compare(a.points[j], a.dim) < 0
}
func (a axis) Swap(i, j int) {
	a.points[i], a.points[j] = a.points[j], a.points[i]
}
func (a axis) Len() int {
	return len(a.points)
}
func (a axis) Slice(start, end int) kdtree.SortSlicer {
	a.points = a.points[start:end]
	return a
}
