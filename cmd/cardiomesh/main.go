// Command cardiomesh turns a segmented heart surface into capped,
// simulation-ready meshes.
//
// Usage:
//
//	cardiomesh [flags] case.zy
//	cardiomesh [flags] surface.vtp
//	cardiomesh update [flags] case.zy deformed.vtp out.vtp
//
// A case script names the anatomy, the input surface and the cuts. A bare
// surface is treated as already cut and processed with the configured
// anatomy profile.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chazu/cardiomesh/internal/config"
	"github.com/chazu/cardiomesh/internal/logger"
	"github.com/chazu/cardiomesh/pkg/anatomy"
	"github.com/chazu/cardiomesh/pkg/mesher"
	"github.com/chazu/cardiomesh/pkg/mesher/mmg"
	"github.com/chazu/cardiomesh/pkg/mesher/tetgen"
	"github.com/chazu/cardiomesh/pkg/meshio"
	"github.com/chazu/cardiomesh/pkg/pipeline"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SceneFile is the scene dump written with -dump-scene.
const SceneFile = "scene.yaml"

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := "run"
	if len(args) > 0 && args[0] == "update" {
		cmd, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet("cardiomesh "+cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintln(stderr, "cardiomesh:", err)
		return 1
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileConfig(cfg), stderr); err != nil {
		fmt.Fprintln(stderr, "cardiomesh:", err)
		return 1
	}
	defer logger.Sync()

	switch cmd {
	case "update":
		err = update(ctx, cfg, fs.Args(), stdout)
	default:
		err = process(ctx, cfg, fs.Args(), stdout)
	}
	if errors.Is(err, errUsage) {
		fmt.Fprintf(stderr, "cardiomesh: %v\n", err)
		fs.Usage()
		return 2
	}
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		fmt.Fprintln(stderr, "cardiomesh:", err)
		return 1
	}
	return 0
}

func fileConfig(cfg *config.Config) logger.FileConfig {
	if cfg.Logging.LogFile == "" {
		return logger.FileConfig{}
	}
	return logger.DefaultFileConfig(cfg.Logging.LogFile)
}

// newRunner wires the configured collaborators into a pipeline runner.
func newRunner(cfg *config.Config) *pipeline.Runner {
	r := &pipeline.Runner{
		OutputDir:      cfg.Output.Dir,
		WorkDir:        cfg.Mesher.WorkDir,
		FillHoleRadius: cfg.Pipeline.FillHoleRadius,
		EdgeSize:       cfg.Pipeline.EdgeSize,
		Openings:       cfg.Pipeline.Openings,
		Logger:         logger.Named("pipeline"),
	}
	if !cfg.Mesher.Enabled {
		return r
	}
	log := logger.Named("mesher")
	tg := tetgen.New(log)
	tg.Binary = cfg.Mesher.TetGen
	tg.RadiusEdgeRatio = cfg.Mesher.RadiusEdgeRatio
	tg.WorkDir = cfg.Mesher.WorkDir
	o := &mesher.Orchestrator{Volume: tg, Remesh: cfg.RemeshOptions(), Logger: log}
	if cfg.Mesher.Remesh {
		rm := mmg.New(log)
		rm.Binary = cfg.Mesher.MMG
		rm.WorkDir = cfg.Mesher.WorkDir
		o.Remesher = rm
	}
	r.Mesher = o
	return r
}

func isScript(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zy", ".lisp":
		return true
	}
	return false
}

// process runs one case and writes its outputs.
func process(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: expected one case script or surface file", errUsage)
	}
	r := newRunner(cfg)

	var (
		res *pipeline.Result
		err error
	)
	if isScript(args[0]) {
		res, err = r.RunScript(ctx, args[0])
	} else {
		res, err = runSurface(ctx, cfg, r, args[0])
	}
	if err != nil {
		return err
	}

	if cfg.Output.DumpScene && res.Scene != nil {
		if err := dumpScene(cfg.Output.Dir, res); err != nil {
			return err
		}
		res.Written = append(res.Written, SceneFile)
	}
	if cfg.Output.CapPoints && res.Anatomy.Profile().Kind == anatomy.KindVentricle {
		files, err := writeCapPoints(cfg.Output.Dir, res.Anatomy)
		if err != nil {
			return err
		}
		res.Written = append(res.Written, files...)
	}
	report(stdout, res)
	return nil
}

// runSurface processes a surface that was cut before it reached us.
func runSurface(ctx context.Context, cfg *config.Config, r *pipeline.Runner, path string) (*pipeline.Result, error) {
	p, err := cfg.Profile()
	if err != nil {
		return nil, err
	}
	p.Cuts = 0
	m, err := meshio.ReadPolyData(path)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, pipeline.Job{Profile: p, Input: m})
}

func dumpScene(dir string, res *pipeline.Result) error {
	data, err := yaml.Marshal(res.Scene)
	if err != nil {
		return fmt.Errorf("encoding scene: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, SceneFile), data, 0o644)
}

// writeCapPoints writes the surface points of every tracked opening as a
// point cloud, one file per opening.
func writeCapPoints(dir string, a *anatomy.Anatomy) ([]string, error) {
	ids, err := a.CapPointIDs()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var files []string
	for i, name := range a.Profile().Tracked {
		file := name + "_cap_points.txt"
		if err := meshio.WritePointCloud(filepath.Join(dir, file), a.Surface().PointsAt(ids[i])); err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

// update runs a ventricle case up to capping, re-planarizes the openings
// of a deformed copy of its surface and writes the result.
func update(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: update expects a case script, a deformed surface and an output file", errUsage)
	}
	deformed, err := meshio.ReadPolyData(args[1])
	if err != nil {
		return err
	}
	r := newRunner(cfg)
	r.Mesher = nil
	r.OutputDir = ""
	res, err := r.RunScript(ctx, args[0])
	if err != nil {
		return err
	}
	out, err := res.Anatomy.Update(deformed)
	if err != nil {
		return err
	}
	if err := meshio.WritePolyData(args[2], out); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "run %s: wrote %s\n", res.RunID, args[2])
	return nil
}

func report(w io.Writer, res *pipeline.Result) {
	a := res.Anatomy
	fmt.Fprintf(w, "run %s: %s %s\n", res.RunID, a.Profile().Name, a.State())
	fmt.Fprintf(w, "  steps: %s\n", strings.Join(a.History(), ", "))
	fmt.Fprintf(w, "  surface: %d points, %d faces, labels %v\n",
		a.Surface().PointCount(), a.Surface().FaceCount(), a.Surface().LabelSet())
	if v := a.Volume(); v != nil {
		fmt.Fprintf(w, "  volume: %d tetrahedra\n", v.TetCount())
	}
	for _, f := range res.Written {
		fmt.Fprintf(w, "  wrote %s\n", f)
	}
}
