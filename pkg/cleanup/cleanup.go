// Package cleanup removes faces that would break downstream meshing:
// degenerate triangles, dangling fins and stray components.
package cleanup

import (
	"fmt"

	"github.com/chazu/cardiomesh/pkg/surface"
)

// areaTolerance is the smallest face area kept, relative to the squared
// bounding-box diagonal.
const areaTolerance = 1e-12

// Result is the outcome of RemoveFreeCells.
type Result struct {
	Mesh *surface.Mesh
	// Remap maps every input point index to its output index, or -1.
	Remap []int
	// Protected holds the surviving protected ids, remapped, in input order.
	Protected []int
	// Invalid holds the input protected ids that no longer exist.
	Invalid []int
}

// RemoveFreeCells drops degenerate faces, fins (faces with two or more free
// edges) and every face outside the largest edge-connected component, then
// compacts the points. A fin is kept when removing it would leave one of
// the protected points without a face.
func RemoveFreeCells(m *surface.Mesh, protected []int) (Result, error) {
	if err := m.Validate(); err != nil {
		return Result{}, fmt.Errorf("cleanup: %w", err)
	}
	isProtected := make(map[int]bool, len(protected))
	for _, id := range protected {
		isProtected[id] = true
	}

	keep := dropDegenerate(m)
	keep = dropFins(m, keep, isProtected)

	work := &surface.Mesh{Points: m.Points}
	for i, ok := range keep {
		if ok {
			work.Faces = append(work.Faces, m.Faces[i])
			work.Labels = append(work.Labels, m.Labels[i])
		}
	}
	work = surface.LargestComponent(work)

	out, remap := surface.Compact(work)
	res := Result{Mesh: out, Remap: remap}
	for _, id := range protected {
		if id < 0 || id >= len(remap) || remap[id] < 0 {
			res.Invalid = append(res.Invalid, id)
			continue
		}
		res.Protected = append(res.Protected, remap[id])
	}
	return res, nil
}

func dropDegenerate(m *surface.Mesh) []bool {
	diag := m.Diagonal()
	minArea := areaTolerance * diag * diag
	keep := make([]bool, len(m.Faces))
	for i, f := range m.Faces {
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			continue
		}
		keep[i] = m.FaceArea(i) > minArea
	}
	return keep
}

func dropFins(m *surface.Mesh, keep []bool, protected map[int]bool) []bool {
	edgeUse := make(map[surface.Edge]int)
	faceCount := make([]int, len(m.Points))
	for i, f := range m.Faces {
		if !keep[i] {
			continue
		}
		for j := 0; j < 3; j++ {
			edgeUse[surface.MakeEdge(f[j], f[(j+1)%3])]++
			faceCount[f[j]]++
		}
	}

	out := append([]bool(nil), keep...)
	for i, f := range m.Faces {
		if !keep[i] {
			continue
		}
		free := 0
		for j := 0; j < 3; j++ {
			if edgeUse[surface.MakeEdge(f[j], f[(j+1)%3])] == 1 {
				free++
			}
		}
		if free < 2 {
			continue
		}
		orphans := false
		for _, id := range f {
			if protected[id] && faceCount[id] == 1 {
				orphans = true
			}
		}
		if orphans {
			continue
		}
		out[i] = false
		for _, id := range f {
			faceCount[id]--
		}
	}
	return out
}
