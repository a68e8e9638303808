package tessellate

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/cardiomesh/internal/testutil"
	"github.com/chazu/cardiomesh/pkg/cut"
	"github.com/chazu/cardiomesh/pkg/kernel/sdfx"
	"github.com/chazu/cardiomesh/pkg/plane"
	"github.com/chazu/cardiomesh/pkg/scene"
	"github.com/chazu/cardiomesh/pkg/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func newTessellator(files map[string]*surface.Mesh) *Tessellator {
	return &Tessellator{
		Kernel:     sdfx.New(),
		Resolution: 40,
		Load: func(path string) (*surface.Mesh, error) {
			m, ok := files[path]
			if !ok {
				return nil, errors.New("no such file")
			}
			return m, nil
		},
	}
}

func TestPhantomSurface(t *testing.T) {
	tess := newTessellator(nil)
	m, err := tess.Surface(scene.Sphere(10))
	require.NoError(t, err)
	assert.Empty(t, m.FreeEdges())
	assert.Equal(t, []int{surface.DefaultLabel}, m.LabelSet())
	want := 4.0 / 3.0 * math.Pi * 1000
	assert.InEpsilon(t, want, m.Volume(), 0.05)
}

func TestHollowPhantom(t *testing.T) {
	tess := newTessellator(nil)
	shell := scene.Combine(scene.ShapeDifference,
		scene.Sphere(10),
		scene.Translate(scene.Sphere(6), r3.Vec{Z: 1}),
	)
	solid, err := tess.Solid(shell)
	require.NoError(t, err)
	assert.Greater(t, solid.Evaluate(r3.Vec{Z: 1}), 0.0, "cavity is outside")
	assert.Less(t, solid.Evaluate(r3.Vec{X: 8}), 0.0, "wall is inside")
}

func TestSurfaceLeafTransforms(t *testing.T) {
	tet := testutil.Sphere(1, 4, 3)
	tess := newTessellator(map[string]*surface.Mesh{"lv.vtp": tet})

	// Translate first, then rotate a quarter turn about Z.
	shape := scene.Rotate(scene.Translate(scene.Surface("lv.vtp"), r3.Vec{X: 5}), r3.Vec{Z: 90})
	m, err := tess.Surface(shape)
	require.NoError(t, err)
	require.Equal(t, tet.PointCount(), m.PointCount())
	north := m.Points[0]
	assert.InDelta(t, 0, north.X, 1e-9)
	assert.InDelta(t, 5, north.Y, 1e-9)
	assert.InDelta(t, 1, north.Z, 1e-9)
	assert.Equal(t, r3.Vec{Z: 1}, tet.Points[0], "loaded mesh is not modified")

	plain, err := tess.Surface(scene.Surface("lv.vtp"))
	require.NoError(t, err)
	assert.Same(t, tet, plain)

	_, err = tess.Surface(scene.Surface("missing.vtp"))
	assert.Error(t, err)
}

func TestCutterKinds(t *testing.T) {
	tess := newTessellator(map[string]*surface.Mesh{"ball.vtp": testutil.Sphere(5, 16, 9)})

	c, err := tess.Cutter(scene.Translate(scene.Sphere(3), r3.Vec{Z: 10}))
	require.NoError(t, err)
	assert.IsType(t, cut.SolidCutter{}, c)
	assert.InDelta(t, -3, c.Evaluate(r3.Vec{Z: 10}), 1e-9)

	c, err = tess.Cutter(scene.Translate(scene.Surface("ball.vtp"), r3.Vec{X: 20}))
	require.NoError(t, err)
	assert.IsType(t, &cut.SurfaceCutter{}, c)
	assert.Less(t, c.Evaluate(r3.Vec{X: 20}), 0.0)
	assert.Greater(t, c.Evaluate(r3.Vec{}), 0.0)

	_, err = tess.Cutter(scene.Combine(scene.ShapeUnion, scene.Sphere(1), scene.Surface("ball.vtp")))
	assert.ErrorIs(t, err, ErrMixedShape)
}

func TestCuts(t *testing.T) {
	tess := newTessellator(nil)
	sc := scene.New()
	sc.AddCut(scene.Cut{Name: "mitral", Shape: scene.Sphere(5)})
	sc.AddCut(scene.Cut{
		Shape: scene.Box(r3.Vec{X: 10, Y: 10, Z: 10}),
		Plane: &scene.Plane{Origin: r3.Vec{Z: 1}, Normal: r3.Vec{Z: 2}},
	})

	steps, err := tess.Cuts(sc)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "mitral", steps[0].Name)
	assert.Nil(t, steps[0].Plane)
	assert.Equal(t, "1", steps[1].Name)
	require.NotNil(t, steps[1].Plane)
	assert.InDelta(t, 1, steps[1].Plane.Normal.Z, 1e-12)

	sc.Cuts[1].Plane.Normal = r3.Vec{}
	_, err = tess.Cuts(sc)
	assert.ErrorIs(t, err, plane.ErrDegenerate)
}

func TestTransformStackOrder(t *testing.T) {
	ts := &transformStack{}
	ts.push(rotation(r3.Vec{Z: 90}))
	ts.push(translation(r3.Vec{X: 1}))
	got := ts.apply(r3.Vec{})
	assert.InDelta(t, 0, got.X, 1e-12)
	assert.InDelta(t, 1, got.Y, 1e-12)
	ts.pop()
	ts.pop()
	ts.pop()
	assert.Equal(t, r3.Vec{X: 2}, ts.apply(r3.Vec{X: 2}))
}
