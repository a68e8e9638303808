package capping

import (
	"errors"
	"testing"

	"github.com/chazu/cardiomesh/pkg/boundary"
	"github.com/chazu/cardiomesh/pkg/surface"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestCloseLoopDegenerate(t *testing.T) {
	m := &surface.Mesh{Points: []r3.Vec{{}, {X: 1}, {Y: 1}}}
	tests := []struct {
		name string
		ids  []int
	}{
		{"two points", []int{0, 1}},
		{"repeated point", []int{0, 1, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := boundary.Loop{IDs: tt.ids, Points: m.PointsAt(tt.ids)}
			if err := closeLoop(m.Clone(), l, 0, 2); !errors.Is(err, ErrDegenerateLoop) {
				t.Fatalf("closeLoop() error = %v, want %v", err, ErrDegenerateLoop)
			}
		})
	}
}

func TestCloseLoopTriangle(t *testing.T) {
	m := &surface.Mesh{Points: []r3.Vec{{}, {X: 1}, {Y: 1}}}
	l := boundary.Loop{IDs: []int{0, 1, 2}, Points: m.PointsAt([]int{0, 1, 2})}
	if err := closeLoop(m, l, 0, 3); err != nil {
		t.Fatalf("closeLoop() error = %v", err)
	}
	if got := m.FaceCount(); got != 3 {
		t.Fatalf("FaceCount() = %d, want 3", got)
	}
	if got := m.PointCount(); got != 4 {
		t.Fatalf("PointCount() = %d, want 4", got)
	}
	want := surface.Face{1, 0, 3}
	if m.Faces[0] != want {
		t.Errorf("first face = %v, want %v", m.Faces[0], want)
	}
}
