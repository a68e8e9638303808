// Package pipeline runs a whole case end to end: case script, scene
// validation, tessellation, wall and cap processing, optional volume
// meshing and export.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/cardiomesh/pkg/anatomy"
	"github.com/chazu/cardiomesh/pkg/cut"
	"github.com/chazu/cardiomesh/pkg/engine"
	"github.com/chazu/cardiomesh/pkg/kernel"
	"github.com/chazu/cardiomesh/pkg/kernel/sdfx"
	"github.com/chazu/cardiomesh/pkg/mesher"
	"github.com/chazu/cardiomesh/pkg/meshio"
	"github.com/chazu/cardiomesh/pkg/scene"
	"github.com/chazu/cardiomesh/pkg/surface"
	"github.com/chazu/cardiomesh/pkg/tessellate"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CappedFile is the surface handed to the volume mesher, written to the
// work directory.
const CappedFile = "capped.vtp"

// ScriptError carries the evaluation errors of a case script.
type ScriptError struct {
	Path   string
	Errors []engine.EvalError
}

func (e *ScriptError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ee := range e.Errors {
		msgs[i] = ee.Error()
	}
	where := e.Path
	if where == "" {
		where = "case script"
	}
	return fmt.Sprintf("pipeline: %s: %s", where, strings.Join(msgs, "; "))
}

// Job is one case ready for processing.
type Job struct {
	Profile  anatomy.Profile
	Input    *surface.Mesh
	Cuts     []cut.Step
	EdgeSize float64 // zero uses anatomy.DefaultEdgeSize
}

// Result is the outcome of a run.
type Result struct {
	RunID    string
	Scene    *scene.Scene // nil for runs that did not start from a script
	Warnings []engine.EvalWarning
	Anatomy  *anatomy.Anatomy
	Produced mesher.Produced
	// Written lists the files exported to the output directory.
	Written []string
}

// Runner holds the collaborators of a run. The zero value evaluates,
// processes and caps but neither meshes nor exports.
type Runner struct {
	Engine *engine.Engine // nil uses a fresh engine per script
	Kernel kernel.Kernel  // nil uses sdfx
	Load   tessellate.Loader
	// Mesher volume-meshes the capped surface; nil stops after capping.
	Mesher *mesher.Orchestrator
	// OutputDir receives the exported meshes; empty skips export.
	OutputDir string
	// WorkDir holds the mesher input. Empty uses OutputDir, or a
	// temporary directory when that is empty too.
	WorkDir string
	// FillHoleRadius overrides the profile's hole-fill radius when set.
	FillHoleRadius float64
	// EdgeSize overrides the job's edge size when set.
	EdgeSize float64
	// Openings overrides individual opening labels of the profile.
	Openings map[string]int
	Logger   *zap.Logger
}

func (r *Runner) log() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Runner) engineFor() *engine.Engine {
	if r.Engine != nil {
		return r.Engine
	}
	return engine.NewEngine()
}

// RunScript evaluates the case script at path and runs it. Relative
// surface paths in the script resolve against the script's directory.
func (r *Runner) RunScript(ctx context.Context, path string) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: reading case: %w", err)
	}
	res, err := r.RunSource(ctx, string(src), filepath.Dir(path))
	var se *ScriptError
	if errors.As(err, &se) {
		se.Path = path
	}
	return res, err
}

// RunSource evaluates case-script source and runs the resulting scene.
func (r *Runner) RunSource(ctx context.Context, source, baseDir string) (*Result, error) {
	eng := r.engineFor()
	eng.BaseDir = baseDir

	ev, err := eng.EvaluateAndValidate(source)
	if err != nil {
		return nil, fmt.Errorf("pipeline: evaluate: %w", err)
	}
	if !ev.OK() {
		return nil, &ScriptError{Errors: ev.Errors}
	}
	for _, w := range ev.Warnings {
		r.log().Warn("case script", zap.String("finding", w.String()))
	}

	job, err := r.JobFromScene(ev.Scene)
	if err != nil {
		return nil, err
	}
	res, err := r.Run(ctx, job)
	if res != nil {
		res.Scene = ev.Scene
		res.Warnings = ev.Warnings
	}
	return res, err
}

// JobFromScene resolves a validated scene into a Job: the built-in
// profile named by the scene with its opening overrides, the tessellated
// input surface and the cut steps.
func (r *Runner) JobFromScene(s *scene.Scene) (Job, error) {
	p, err := anatomy.ProfileByName(s.Anatomy)
	if err != nil {
		return Job{}, fmt.Errorf("pipeline: %w", err)
	}
	if len(s.Openings) > 0 {
		p.Openings = mergeOpenings(p.Openings, s.Openings)
	}

	k := r.Kernel
	if k == nil {
		k = sdfx.New()
	}
	tess := &tessellate.Tessellator{
		Kernel:     k,
		Load:       r.Load,
		Resolution: s.Resolution,
		Logger:     r.Logger,
	}
	input, err := tess.Surface(s.Input)
	if err != nil {
		return Job{}, fmt.Errorf("pipeline: input surface: %w", err)
	}
	cuts, err := tess.Cuts(s)
	if err != nil {
		return Job{}, fmt.Errorf("pipeline: %w", err)
	}
	return Job{Profile: p, Input: input, Cuts: cuts, EdgeSize: s.EdgeSize}, nil
}

// Run processes one job. On error the partial Result is still returned
// when the anatomy was created, so callers can inspect its history.
func (r *Runner) Run(ctx context.Context, job Job) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	log := r.log().With(zap.String("run", res.RunID), zap.String("profile", job.Profile.Name))

	p := job.Profile
	if r.FillHoleRadius > 0 {
		p.FillHoleRadius = r.FillHoleRadius
	}
	if len(r.Openings) > 0 {
		p.Openings = mergeOpenings(p.Openings, r.Openings)
	}
	edge := job.EdgeSize
	if r.EdgeSize > 0 {
		edge = r.EdgeSize
	}
	opts := []anatomy.Option{anatomy.WithLogger(log)}
	if edge > 0 {
		opts = append(opts, anatomy.WithEdgeSize(edge))
	}
	a, err := anatomy.New(job.Input, p, opts...)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	res.Anatomy = a

	log.Info("processing wall", zap.Int("cuts", len(job.Cuts)), zap.Int("faces", job.Input.FaceCount()))
	if err := a.ProcessWall(job.Cuts); err != nil {
		return res, fmt.Errorf("pipeline: %w", err)
	}
	if err := a.ProcessCap(); err != nil {
		return res, fmt.Errorf("pipeline: %w", err)
	}

	if r.Mesher != nil {
		dir, cleanup, err := r.workDir()
		if err != nil {
			return res, err
		}
		defer cleanup()
		paths := mesher.Paths{Input: filepath.Join(dir, CappedFile)}
		res.Produced, err = a.Remesh(ctx, r.Mesher, paths)
		if err != nil {
			return res, fmt.Errorf("pipeline: %w", err)
		}
	}

	if r.OutputDir == "" {
		log.Info("run complete", zap.Strings("history", a.History()))
		return res, nil
	}
	written, err := r.export(a)
	res.Written = written
	if err != nil {
		return res, err
	}
	log.Info("run complete",
		zap.Strings("history", a.History()),
		zap.String("output", r.OutputDir),
		zap.Int("files", len(written)))
	return res, nil
}

// export writes the complete mesh set when a volume mesh exists and the
// capped exterior surface alone otherwise.
func (r *Runner) export(a *anatomy.Anatomy) ([]string, error) {
	if a.Volume() != nil {
		if err := a.WriteMeshComplete(r.OutputDir); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		return completeFiles(a), nil
	}
	if r.Mesher != nil {
		return nil, fmt.Errorf("pipeline: exporting to %s: %w", r.OutputDir, anatomy.ErrMissingVolume)
	}
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	path := filepath.Join(r.OutputDir, anatomy.ExteriorFile)
	if err := meshio.WritePolyData(path, a.Surface()); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return []string{anatomy.ExteriorFile}, nil
}

// mergeOpenings returns base with the labels of over replacing its own.
func mergeOpenings(base, over map[string]int) map[string]int {
	out := make(map[string]int, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

func completeFiles(a *anatomy.Anatomy) []string {
	files := []string{anatomy.ExteriorFile, anatomy.VolumeFile, anatomy.WallsFile}
	p := a.Profile()
	for _, label := range a.Surface().LabelSet() {
		files = append(files, filepath.Join(anatomy.SurfacesDir, p.SurfaceFile(label)))
	}
	return files
}

func (r *Runner) workDir() (string, func(), error) {
	dir := r.WorkDir
	if dir == "" {
		dir = r.OutputDir
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", nil, fmt.Errorf("pipeline: work dir: %w", err)
		}
		return dir, func() {}, nil
	}
	tmp, err := os.MkdirTemp("", "cardiomesh-")
	if err != nil {
		return "", nil, fmt.Errorf("pipeline: work dir: %w", err)
	}
	return tmp, func() { os.RemoveAll(tmp) }, nil
}
