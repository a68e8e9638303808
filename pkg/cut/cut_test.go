package cut_test

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/cardiomesh/internal/testutil"
	"github.com/chazu/cardiomesh/pkg/boundary"
	"github.com/chazu/cardiomesh/pkg/cut"
	"github.com/chazu/cardiomesh/pkg/kernel/sdfx"
	"github.com/chazu/cardiomesh/pkg/plane"
	"github.com/chazu/cardiomesh/pkg/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// upperHalf removes everything above z = 0.
var upperHalf = cut.Func(func(p r3.Vec) float64 { return -p.Z })

func TestCutHalfSpace(t *testing.T) {
	s := testutil.Sphere(10, 24, 9)
	out := cut.Cut(s, upperHalf, nil)
	require.NoError(t, out.Validate())
	for _, p := range out.Points {
		assert.LessOrEqual(t, p.Z, 1e-9)
	}

	loops, err := boundary.Extract(out)
	require.NoError(t, err)
	require.Len(t, loops, 1)
	// Every meridian edge and every quad diagonal crossing the equator
	// contributes one point.
	assert.Equal(t, 48, loops[0].Len())
	for _, p := range loops[0].Points {
		assert.InDelta(t, 0, p.Z, 1e-9)
	}
}

func TestCutPlaneLimitsRemoval(t *testing.T) {
	s := testutil.Sphere(10, 24, 9)
	// A huge cutter limited by the plane removes the same material as the
	// plain half-space.
	everything := cut.Func(func(p r3.Vec) float64 { return r3.Norm(p) - 100 })
	pl, err := plane.New(r3.Vec{}, r3.Vec{Z: 1})
	require.NoError(t, err)

	got := cut.Step{Name: "top", Cutter: everything, Plane: &pl}.Apply(s)
	want := cut.Cut(s, upperHalf, nil)
	assert.Equal(t, want, got)
}

func TestCutMissReturnsInput(t *testing.T) {
	s := testutil.Sphere(10, 16, 9)
	far := cut.Func(func(p r3.Vec) float64 { return r3.Norm(r3.Sub(p, r3.Vec{X: 100})) - 5 })
	out := cut.Cut(s, far, nil)
	assert.Same(t, s, out)

	// A plane facing away from the cutter keeps everything too.
	inside := cut.Func(func(p r3.Vec) float64 { return p.Z - 9 })
	pl, err := plane.New(r3.Vec{Z: 20}, r3.Vec{Z: 1})
	require.NoError(t, err)
	assert.Same(t, s, cut.Cut(s, inside, &pl))
}

func TestCutKeepsLargestPiece(t *testing.T) {
	s := testutil.Sphere(10, 24, 9)
	slab := cut.Func(func(p r3.Vec) float64 { return math.Abs(p.Z-2) - 1 })
	out := cut.Cut(s, slab, nil)
	for _, p := range out.Points {
		assert.LessOrEqual(t, p.Z, 1+1e-9)
	}
	loops, err := boundary.Extract(out)
	require.NoError(t, err)
	assert.Len(t, loops, 1)
}

func TestSolidCutter(t *testing.T) {
	k := sdfx.New()
	polar := cut.SolidCutter{Solid: k.Translate(k.Sphere(6), 0, 0, 10)}
	s := testutil.Sphere(10, 24, 9)
	out := cut.Cut(s, polar, nil)
	assert.Less(t, out.FaceCount(), s.FaceCount())
	loops, err := boundary.Extract(out)
	require.NoError(t, err)
	assert.Len(t, loops, 1)
	assert.Greater(t, polar.Evaluate(r3.Vec{}), 0.0)
}

func TestSurfaceCutter(t *testing.T) {
	ball := testutil.Sphere(5, 24, 9)
	c, err := cut.NewSurfaceCutter(ball)
	require.NoError(t, err)

	assert.InDelta(t, -5, c.Evaluate(r3.Vec{}), 0.5)
	assert.InDelta(t, 15, c.Evaluate(r3.Vec{X: 20}), 0.5)
	assert.Less(t, c.Evaluate(r3.Vec{Z: 4}), 0.0)
	assert.Greater(t, c.Evaluate(r3.Vec{Z: 6}), 0.0)

	// Shift the ball onto the north pole of a bigger sphere and cut with it.
	moved := ball.Clone()
	for i := range moved.Points {
		moved.Points[i] = r3.Add(moved.Points[i], r3.Vec{Z: 10})
	}
	mc, err := cut.NewSurfaceCutter(moved)
	require.NoError(t, err)
	out := cut.Cut(testutil.Sphere(10, 24, 9), mc, nil)
	loops, err := boundary.Extract(out)
	require.NoError(t, err)
	assert.Len(t, loops, 1)
}

func TestNewSurfaceCutterRejectsOpenMesh(t *testing.T) {
	_, err := cut.NewSurfaceCutter(testutil.LowerHemisphere(5, 12, 3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, surface.ErrMalformed))
}
