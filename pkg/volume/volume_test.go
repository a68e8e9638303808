package volume

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func unitTet() *Mesh {
	return &Mesh{
		Points: []r3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}},
		Tets:   []Tet{{0, 1, 2, 3}},
	}
}

func TestVolume(t *testing.T) {
	m := unitTet()
	if got := m.Volume(); math.Abs(got-1.0/6.0) > 1e-12 {
		t.Errorf("Volume() = %f, want %f", got, 1.0/6.0)
	}
	m.Tets[0] = Tet{0, 2, 1, 3}
	if got := m.Volume(); math.Abs(got-1.0/6.0) > 1e-12 {
		t.Errorf("Volume() of inverted tet = %f, want %f", got, 1.0/6.0)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Mesh)
		wantErr bool
	}{
		{"valid", func(*Mesh) {}, false},
		{"bad index", func(m *Mesh) { m.Tets[0][3] = 9 }, true},
		{"region mismatch", func(m *Mesh) { m.Regions = []int{1, 2} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := unitTet()
			tt.mutate(m)
			if err := m.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
