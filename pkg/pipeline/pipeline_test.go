package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/cardiomesh/internal/testutil"
	"github.com/chazu/cardiomesh/pkg/anatomy"
	"github.com/chazu/cardiomesh/pkg/cut"
	"github.com/chazu/cardiomesh/pkg/mesher"
	"github.com/chazu/cardiomesh/pkg/surface"
	"github.com/chazu/cardiomesh/pkg/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

const leftHeartCase = `
;; sphere cut open at the equator
(anatomy "left-heart" :edge-size 4)
(input (surface "lv.vtp"))
(cut "aortic" (translate (box 200 200 120) (vec3 0 0 60)))
`

type fakeVolume struct {
	surface *surface.Mesh
	volume  *volume.Mesh
	input   string
}

func (f *fakeVolume) Mesh(_ context.Context, path string, _ mesher.Options, _ mesher.OutputPaths) (*surface.Mesh, *volume.Mesh, error) {
	f.input = path
	return f.surface, f.volume, nil
}

func tet() *volume.Mesh {
	return &volume.Mesh{
		Points: []r3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}},
		Tets:   []volume.Tet{{0, 1, 2, 3}},
	}
}

func sphereLoader(path string) (*surface.Mesh, error) {
	if filepath.Base(path) != "lv.vtp" {
		return nil, os.ErrNotExist
	}
	return testutil.Sphere(40, 24, 9), nil
}

func TestRunSourceCapsWithoutMesher(t *testing.T) {
	r := &Runner{Load: sphereLoader}

	res, err := r.RunSource(context.Background(), leftHeartCase, "")
	require.NoError(t, err)
	require.NotNil(t, res.Anatomy)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "left-heart", res.Scene.Anatomy)
	assert.Equal(t, anatomy.StateCapProcessed, res.Anatomy.State())
	assert.Equal(t, 4.0, res.Anatomy.EdgeSize())
	assert.Empty(t, res.Anatomy.Surface().FreeEdges())
	assert.Equal(t, []int{1, 2}, res.Anatomy.Surface().LabelSet())
	assert.Nil(t, res.Anatomy.Volume())
	assert.Empty(t, res.Written)
}

func TestRunScriptExportsMeshComplete(t *testing.T) {
	caseDir := t.TempDir()
	script := filepath.Join(caseDir, "case.zy")
	require.NoError(t, os.WriteFile(script, []byte(leftHeartCase), 0o644))

	out := t.TempDir()
	fv := &fakeVolume{volume: tet()}
	r := &Runner{
		Load:      sphereLoader,
		Mesher:    &mesher.Orchestrator{Volume: fv},
		OutputDir: out,
	}
	res, err := r.RunScript(context.Background(), script)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(out, CappedFile), fv.input)
	assert.FileExists(t, fv.input)
	assert.Equal(t, mesher.Produced{Volume: true}, res.Produced)
	want := []string{
		anatomy.ExteriorFile,
		anatomy.VolumeFile,
		anatomy.WallsFile,
		filepath.Join(anatomy.SurfacesDir, "wall_1.vtp"),
		filepath.Join(anatomy.SurfacesDir, "aortic_2.vtp"),
	}
	assert.Equal(t, want, res.Written)
	for _, f := range want {
		assert.FileExists(t, filepath.Join(out, f))
	}
}

func TestRunWithoutVolumeFailsExport(t *testing.T) {
	out := t.TempDir()
	r := &Runner{
		Mesher:    &mesher.Orchestrator{Volume: &fakeVolume{}},
		OutputDir: out,
		WorkDir:   t.TempDir(),
	}
	job := Job{
		Profile:  anatomy.LeftHeart(),
		Input:    testutil.Sphere(40, 24, 9),
		Cuts:     []cut.Step{{Name: "top", Cutter: cut.Func(func(p r3.Vec) float64 { return -p.Z })}},
		EdgeSize: 4,
	}
	res, err := r.Run(context.Background(), job)
	assert.ErrorIs(t, err, anatomy.ErrMissingVolume)
	require.NotNil(t, res)
	assert.Equal(t, anatomy.StateCapProcessed, res.Anatomy.State())
	assert.NoFileExists(t, filepath.Join(out, anatomy.ExteriorFile))
}

func TestRunExportsExteriorWithoutMesher(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested")
	r := &Runner{OutputDir: out}
	job := Job{
		Profile: anatomy.LeftHeart(),
		Input:   testutil.Sphere(40, 24, 9),
		Cuts:    []cut.Step{{Name: "top", Cutter: cut.Func(func(p r3.Vec) float64 { return -p.Z })}},
	}
	res, err := r.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, []string{anatomy.ExteriorFile}, res.Written)
	assert.FileExists(t, filepath.Join(out, anatomy.ExteriorFile))
	assert.Equal(t, anatomy.DefaultEdgeSize, res.Anatomy.EdgeSize())
}

func TestRunStopsOnWrongCutCount(t *testing.T) {
	r := &Runner{}
	job := Job{Profile: anatomy.LeftVentricle(), Input: testutil.Sphere(40, 24, 9)}
	res, err := r.Run(context.Background(), job)
	assert.ErrorIs(t, err, anatomy.ErrCutCount)
	require.NotNil(t, res)
	assert.Equal(t, anatomy.StateRaw, res.Anatomy.State())
}

func TestFillHoleRadiusOverride(t *testing.T) {
	r := &Runner{FillHoleRadius: 30}
	job := Job{
		Profile: anatomy.LeftHeart(),
		Input:   testutil.Sphere(40, 24, 9),
		Cuts:    []cut.Step{{Name: "top", Cutter: cut.Func(func(p r3.Vec) float64 { return -p.Z })}},
	}
	res, err := r.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 30.0, res.Anatomy.Profile().FillHoleRadius)
}

func TestRunSourceScriptErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `(anatomy "left-heart"`},
		{"no input", `(anatomy "left-heart")`},
		{"no anatomy", `(input (sphere 10))`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := (&Runner{}).RunSource(context.Background(), tt.src, "")
			var se *ScriptError
			if !errors.As(err, &se) {
				t.Fatalf("RunSource() error = %v, want *ScriptError", err)
			}
			if len(se.Errors) == 0 {
				t.Error("ScriptError has no errors")
			}
			if res != nil {
				t.Errorf("RunSource() result = %+v, want nil", res)
			}
		})
	}
}

func TestRunScriptNamesTheFile(t *testing.T) {
	script := filepath.Join(t.TempDir(), "broken.zy")
	require.NoError(t, os.WriteFile(script, []byte(`(anatomy "left-heart")`), 0o644))

	_, err := (&Runner{}).RunScript(context.Background(), script)
	var se *ScriptError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, script, se.Path)
	assert.Contains(t, err.Error(), "broken.zy")
}

func TestJobFromSceneOpeningOverrides(t *testing.T) {
	src := `
(anatomy "left-ventricle")
(input (surface "lv.vtp"))
(cut "mitral" (sphere 5))
(cut "aortic" (sphere 5))
(opening "aortic" 7)
`
	r := &Runner{Load: sphereLoader}
	ev, err := r.engineFor().EvaluateAndValidate(src)
	require.NoError(t, err)
	require.True(t, ev.OK(), "errors: %v", ev.Errors)

	job, err := r.JobFromScene(ev.Scene)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"mitral": 2, "aortic": 7}, job.Profile.Openings)
	assert.Len(t, job.Cuts, 2)
	assert.Equal(t, "mitral", job.Cuts[0].Name)
	assert.Equal(t, map[string]int{"mitral": 2, "aortic": 3}, anatomy.LeftVentricle().Openings)
}

func TestJobFromSceneUnknownAnatomy(t *testing.T) {
	r := &Runner{Load: sphereLoader}
	ev, err := r.engineFor().EvaluateAndValidate(`(anatomy "right-atrium") (input (surface "lv.vtp"))`)
	require.NoError(t, err)
	require.True(t, ev.OK())

	_, err = r.JobFromScene(ev.Scene)
	assert.Error(t, err)
}
