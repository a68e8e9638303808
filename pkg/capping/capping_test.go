package capping_test

import (
	"testing"

	"github.com/chazu/cardiomesh/internal/testutil"
	"github.com/chazu/cardiomesh/pkg/boundary"
	"github.com/chazu/cardiomesh/pkg/capping"
	"github.com/chazu/cardiomesh/pkg/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertClosedAndOriented checks that every edge is shared by two faces
// which use it in opposite directions.
func assertClosedAndOriented(t *testing.T, m *surface.Mesh) {
	t.Helper()
	loops, err := boundary.Extract(m)
	require.NoError(t, err)
	assert.Empty(t, loops)
	directed := map[[2]int]int{}
	for _, f := range m.Faces {
		for j := 0; j < 3; j++ {
			directed[[2]int{f[j], f[(j+1)%3]}]++
		}
	}
	for e, n := range directed {
		assert.Equal(t, 1, n, "directed edge %v used %d times", e, n)
		assert.Equal(t, 1, directed[[2]int{e[1], e[0]}], "edge %v has no twin", e)
	}
}

func TestCapHemisphere(t *testing.T) {
	h := testutil.LowerHemisphere(10, 24, 4)
	out, labels, err := capping.CapOpenings(h, capping.Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, labels)
	assertClosedAndOriented(t, out)
	assert.Greater(t, out.Volume(), 0.0)

	lid := surface.SplitRegion(out, 2, 2)
	assert.Equal(t, 24, lid.FaceCount())
	for _, p := range lid.Points {
		assert.InDelta(t, 0, p.Z, 1e-9)
	}
	// The input is untouched.
	assert.Equal(t, testutil.LowerHemisphere(10, 24, 4), h)
}

func TestCapWithRings(t *testing.T) {
	h := testutil.LowerHemisphere(10, 24, 4)
	out, _, err := capping.CapOpenings(h, capping.Options{FirstLabel: 5, EdgeSize: 2})
	require.NoError(t, err)
	assertClosedAndOriented(t, out)
	// Four rings of 24 quads plus the central fan.
	assert.Equal(t, h.FaceCount()+24*2*4+24, out.FaceCount())
	assert.Equal(t, []int{1, 5}, out.LabelSet())
}

func TestCapLabelsFollowDiscoveryOrder(t *testing.T) {
	s := testutil.Sphere(10, 16, 9)
	m := testutil.WithoutFace(testutil.WithoutFace(s, 100), 3)
	out, labels, err := capping.CapOpenings(m, capping.Options{FirstLabel: 7})
	require.NoError(t, err)
	assert.Equal(t, []int{7, 8}, labels)
	assertClosedAndOriented(t, out)

	// The hole next to the north pole (point 0) is discovered first.
	first := out.Faces[m.FaceCount()]
	assert.Contains(t, first[:], 0)
	assert.Equal(t, 7, out.Labels[m.FaceCount()])
}

func TestFillHolesBySize(t *testing.T) {
	s := testutil.Sphere(10, 16, 9)
	m := testutil.WithoutFace(s, 40)
	m.Labels = make([]int, len(m.Faces))
	for i := range m.Labels {
		m.Labels[i] = 4
	}

	out, n, err := capping.FillHoles(m, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, m, out)

	out, n, err = capping.FillHoles(m, 25)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assertClosedAndOriented(t, out)
	assert.Equal(t, []int{4}, out.LabelSet())
}

func TestFillHolesLeavesLargeOpenings(t *testing.T) {
	h := testutil.LowerHemisphere(10, 24, 4)
	withSmall := testutil.WithoutFace(h, h.FaceCount()-1)
	out, n, err := capping.FillHoles(withSmall, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	loops, err := boundary.Extract(out)
	require.NoError(t, err)
	require.Len(t, loops, 1)
	assert.Equal(t, 24, loops[0].Len())
}
