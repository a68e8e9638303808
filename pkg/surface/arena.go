package surface

import "fmt"

// Version is a handle to one mesh stored in an Arena.
type Version int

// NoVersion is the handle of an empty arena.
const NoVersion Version = -1

// Arena keeps every mesh version produced while processing one anatomy.
// Stored meshes are never modified, so a Version can be shared freely.
type Arena struct {
	meshes []*Mesh
	steps  []string
}

// Push stores m as the result of the named step and returns its handle.
func (a *Arena) Push(step string, m *Mesh) Version {
	a.meshes = append(a.meshes, m)
	a.steps = append(a.steps, step)
	return Version(len(a.meshes) - 1)
}

// Get returns the mesh stored under v.
func (a *Arena) Get(v Version) (*Mesh, error) {
	if v < 0 || int(v) >= len(a.meshes) {
		return nil, fmt.Errorf("surface: no mesh version %d", v)
	}
	return a.meshes[v], nil
}

// Step returns the name of the step that produced v.
func (a *Arena) Step(v Version) string {
	if v < 0 || int(v) >= len(a.steps) {
		return ""
	}
	return a.steps[v]
}

// Len returns the number of stored versions.
func (a *Arena) Len() int {
	return len(a.meshes)
}

// Steps returns the step names in the order they were pushed.
func (a *Arena) Steps() []string {
	return append([]string(nil), a.steps...)
}
