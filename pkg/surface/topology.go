package surface

import "sort"

// Edge is an undirected edge stored with the smaller index first.
type Edge [2]int

// MakeEdge returns the canonical edge between a and b.
func MakeEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{a, b}
}

// EdgeFaces maps every edge to the faces that use it.
func (m *Mesh) EdgeFaces() map[Edge][]int {
	ef := make(map[Edge][]int, len(m.Faces)*3/2)
	for i, f := range m.Faces {
		for j := 0; j < 3; j++ {
			e := MakeEdge(f[j], f[(j+1)%3])
			ef[e] = append(ef[e], i)
		}
	}
	return ef
}

// FreeEdges returns the edges used by exactly one face, sorted.
func (m *Mesh) FreeEdges() []Edge {
	var out []Edge
	for e, faces := range m.EdgeFaces() {
		if len(faces) == 1 {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

// BoundaryPoints reports, per point, whether it lies on a free edge.
func (m *Mesh) BoundaryPoints() []bool {
	on := make([]bool, len(m.Points))
	for _, e := range m.FreeEdges() {
		on[e[0]] = true
		on[e[1]] = true
	}
	return on
}

// PointNeighbors returns the sorted one-ring of every point.
func (m *Mesh) PointNeighbors() [][]int {
	sets := make([]map[int]bool, len(m.Points))
	for _, f := range m.Faces {
		for j := 0; j < 3; j++ {
			a, b := f[j], f[(j+1)%3]
			if a == b {
				continue
			}
			if sets[a] == nil {
				sets[a] = make(map[int]bool)
			}
			if sets[b] == nil {
				sets[b] = make(map[int]bool)
			}
			sets[a][b] = true
			sets[b][a] = true
		}
	}
	out := make([][]int, len(m.Points))
	for i, s := range sets {
		for n := range s {
			out[i] = append(out[i], n)
		}
		sort.Ints(out[i])
	}
	return out
}

// Components groups faces into edge-connected components. Components are
// ordered by their lowest face index.
func (m *Mesh) Components() [][]int {
	ef := m.EdgeFaces()
	comp := make([]int, len(m.Faces))
	for i := range comp {
		comp[i] = -1
	}
	var out [][]int
	for start := range m.Faces {
		if comp[start] >= 0 {
			continue
		}
		id := len(out)
		comp[start] = id
		group := []int{start}
		for k := 0; k < len(group); k++ {
			f := m.Faces[group[k]]
			for j := 0; j < 3; j++ {
				for _, nb := range ef[MakeEdge(f[j], f[(j+1)%3])] {
					if comp[nb] < 0 {
						comp[nb] = id
						group = append(group, nb)
					}
				}
			}
		}
		sort.Ints(group)
		out = append(out, group)
	}
	return out
}
