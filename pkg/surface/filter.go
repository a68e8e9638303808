package surface

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Subset returns the mesh made of the faces for which keep returns true,
// with unreferenced points dropped. The second result maps every old point
// index to its new index, or -1 if the point was dropped.
func Subset(m *Mesh, keep func(face int) bool) (*Mesh, []int) {
	remap := make([]int, len(m.Points))
	for i := range remap {
		remap[i] = -1
	}
	out := &Mesh{}
	for i, f := range m.Faces {
		if !keep(i) {
			continue
		}
		var nf Face
		for j, id := range f {
			if remap[id] < 0 {
				remap[id] = len(out.Points)
				out.Points = append(out.Points, m.Points[id])
			}
			nf[j] = remap[id]
		}
		out.Faces = append(out.Faces, nf)
		out.Labels = append(out.Labels, m.Labels[i])
	}
	return out, remap
}

// Compact drops points no face references, preserving the relative order
// of the surviving points.
func Compact(m *Mesh) (*Mesh, []int) {
	used := make([]bool, len(m.Points))
	for _, f := range m.Faces {
		for _, id := range f {
			used[id] = true
		}
	}
	remap := make([]int, len(m.Points))
	out := &Mesh{Labels: append([]int(nil), m.Labels...)}
	for i, p := range m.Points {
		if !used[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(out.Points)
		out.Points = append(out.Points, p)
	}
	out.Faces = make([]Face, len(m.Faces))
	for i, f := range m.Faces {
		out.Faces[i] = Face{remap[f[0]], remap[f[1]], remap[f[2]]}
	}
	return out, remap
}

// SplitRegion returns the faces whose label lies in [lo, hi]. The source
// mesh is not modified. Point order is preserved so splitting twice by
// the same range yields the same mesh.
func SplitRegion(m *Mesh, lo, hi int) *Mesh {
	sub, _ := Subset(m, func(i int) bool {
		return m.Labels[i] >= lo && m.Labels[i] <= hi
	})
	compact, _ := Compact(sub)
	return compact
}

// Clean merges points closer than tol (exact duplicates when tol is 0),
// drops faces that collapse as a result and removes unused points.
func Clean(m *Mesh, tol float64) *Mesh {
	type key [3]float64
	quantize := func(p r3.Vec) key {
		if tol <= 0 {
			return key{p.X, p.Y, p.Z}
		}
		return key{math.Round(p.X / tol), math.Round(p.Y / tol), math.Round(p.Z / tol)}
	}
	index := make(map[key]int, len(m.Points))
	merged := make([]int, len(m.Points))
	var pts []r3.Vec
	for i, p := range m.Points {
		k := quantize(p)
		id, ok := index[k]
		if !ok {
			id = len(pts)
			index[k] = id
			pts = append(pts, p)
		}
		merged[i] = id
	}
	out := &Mesh{Points: pts}
	seen := make(map[[3]int]bool, len(m.Faces))
	for i, f := range m.Faces {
		nf := Face{merged[f[0]], merged[f[1]], merged[f[2]]}
		if nf[0] == nf[1] || nf[1] == nf[2] || nf[0] == nf[2] {
			continue
		}
		k := sortedTriple(nf)
		if seen[k] {
			continue
		}
		seen[k] = true
		out.Faces = append(out.Faces, nf)
		out.Labels = append(out.Labels, m.Labels[i])
	}
	compact, _ := Compact(out)
	return compact
}

// Weld builds a mesh from a triangle soup, merging vertices that fall in
// the same tol-sized cell. Degenerate triangles are dropped.
func Weld(tris [][3]r3.Vec, tol float64, label int) *Mesh {
	soup := &Mesh{
		Points: make([]r3.Vec, 0, len(tris)*3),
		Faces:  make([]Face, 0, len(tris)),
		Labels: make([]int, 0, len(tris)),
	}
	for _, t := range tris {
		base := len(soup.Points)
		soup.Points = append(soup.Points, t[0], t[1], t[2])
		soup.Faces = append(soup.Faces, Face{base, base + 1, base + 2})
		soup.Labels = append(soup.Labels, label)
	}
	return Clean(soup, tol)
}

func sortedTriple(f Face) [3]int {
	a, b, c := f[0], f[1], f[2]
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return [3]int{a, b, c}
}

// Reverse returns m with every face wound the other way.
func Reverse(m *Mesh) *Mesh {
	out := m.Clone()
	for i, f := range out.Faces {
		out.Faces[i] = Face{f[0], f[2], f[1]}
	}
	return out
}

// LargestComponent keeps the biggest edge-connected group of faces. Ties
// go to the group holding the lowest face index. Points are not compacted.
func LargestComponent(m *Mesh) *Mesh {
	comps := m.Components()
	if len(comps) < 2 {
		return m
	}
	best := 0
	for i, c := range comps {
		if len(c) > len(comps[best]) {
			best = i
		}
	}
	out := &Mesh{Points: m.Points}
	for _, fi := range comps[best] {
		out.Faces = append(out.Faces, m.Faces[fi])
		out.Labels = append(out.Labels, m.Labels[fi])
	}
	return out
}
