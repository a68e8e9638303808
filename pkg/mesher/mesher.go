// Package mesher drives the external tools that turn a capped surface
// into a simulation mesh: an optional uniform surface remesher followed by
// a tetrahedral volume mesher.
package mesher

import (
	"context"
	"errors"
	"fmt"

	"github.com/chazu/cardiomesh/pkg/meshio"
	"github.com/chazu/cardiomesh/pkg/surface"
	"github.com/chazu/cardiomesh/pkg/volume"
	"go.uber.org/zap"
)

// ErrNoVolumeMesher is returned by Run when no volume mesher is set.
var ErrNoVolumeMesher = errors.New("no volume mesher configured")

// Options is the configuration handed to a volume mesher.
type Options struct {
	SurfaceMesh    bool    // produce the boundary surface
	VolumeMesh     bool    // produce the tetrahedral mesh
	GlobalEdgeSize float64 // target edge length
}

// OutputPaths are optional files the volume mesher also writes its
// results to. Empty paths are skipped.
type OutputPaths struct {
	Surface string
	Volume  string
}

// RemeshOptions bounds the edge lengths of a remeshed surface. Zero
// fields are left to the tool's defaults.
type RemeshOptions struct {
	HMin  float64
	HMax  float64
	Hausd float64
}

// DefaultRemeshOptions returns the edge bounds used when none are given.
func DefaultRemeshOptions() RemeshOptions {
	return RemeshOptions{HMin: 1.0, HMax: 1.5}
}

// Remesher regularizes triangle size on a surface.
type Remesher interface {
	Remesh(ctx context.Context, m *surface.Mesh, opts RemeshOptions) (*surface.Mesh, error)
}

// VolumeMesher fills the surface stored at surfacePath with tetrahedra.
// Either returned mesh may be nil when it was not requested or the tool
// did not produce it.
type VolumeMesher interface {
	Mesh(ctx context.Context, surfacePath string, opts Options, out OutputPaths) (*surface.Mesh, *volume.Mesh, error)
}

// SurfaceWriter stores a surface where the volume mesher can read it.
type SurfaceWriter func(path string, m *surface.Mesh) error

// Paths names the files of one orchestrated run.
type Paths struct {
	// Input is where the surface handed to the volume mesher is written.
	Input  string
	Output OutputPaths
}

// Produced reports which meshes a run returned.
type Produced struct {
	Surface bool
	Volume  bool
}

// Result is the outcome of a run. Nil meshes were not produced.
type Result struct {
	Surface  *surface.Mesh
	Volume   *volume.Mesh
	Produced Produced
}

// Orchestrator runs the remesh and volume-mesh steps in order.
type Orchestrator struct {
	Remesher Remesher // nil skips remeshing
	Volume   VolumeMesher
	Writer   SurfaceWriter // nil uses meshio.WritePolyData
	Remesh   RemeshOptions
	Logger   *zap.Logger
}

// Run remeshes m when a remesher is set, writes it to paths.Input and
// volume-meshes it with the given global edge size. Missing outputs are
// not an error; they are reported in Result.Produced.
func (o *Orchestrator) Run(ctx context.Context, m *surface.Mesh, edgeSize float64, paths Paths) (Result, error) {
	if o.Volume == nil {
		return Result{}, ErrNoVolumeMesher
	}
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	write := o.Writer
	if write == nil {
		write = meshio.WritePolyData
	}

	input := m
	if o.Remesher != nil {
		opts := o.Remesh
		if opts == (RemeshOptions{}) {
			opts = DefaultRemeshOptions()
		}
		log.Info("remeshing surface",
			zap.Int("faces", m.FaceCount()),
			zap.Float64("hmin", opts.HMin),
			zap.Float64("hmax", opts.HMax))
		r, err := o.Remesher.Remesh(ctx, m, opts)
		if err != nil {
			return Result{}, fmt.Errorf("mesher: remesh: %w", err)
		}
		if r != nil {
			input = r
		} else {
			log.Warn("remesher returned no surface, meshing the input as is")
		}
	}

	if err := write(paths.Input, input); err != nil {
		return Result{}, fmt.Errorf("mesher: writing %s: %w", paths.Input, err)
	}

	opts := Options{SurfaceMesh: true, VolumeMesh: true, GlobalEdgeSize: edgeSize}
	log.Info("volume meshing", zap.String("input", paths.Input), zap.Float64("edge_size", edgeSize))
	s, v, err := o.Volume.Mesh(ctx, paths.Input, opts, paths.Output)
	if err != nil {
		return Result{}, fmt.Errorf("mesher: volume mesh: %w", err)
	}

	res := Result{Surface: s, Volume: v, Produced: Produced{Surface: s != nil, Volume: v != nil}}
	if !res.Produced.Surface || !res.Produced.Volume {
		log.Warn("volume mesher returned partial output",
			zap.Bool("surface", res.Produced.Surface),
			zap.Bool("volume", res.Produced.Volume))
	} else {
		log.Info("volume mesh ready",
			zap.Int("surface_faces", s.FaceCount()),
			zap.Int("tets", v.TetCount()))
	}
	return res, nil
}
