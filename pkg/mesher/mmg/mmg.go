// Package mmg remeshes surfaces to a uniform edge length with the MMG
// surface remesher (mmgs).
package mmg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/chazu/cardiomesh/pkg/mesher"
	"github.com/chazu/cardiomesh/pkg/surface"
	"go.uber.org/zap"
)

var _ mesher.Remesher = (*Remesher)(nil)

// DefaultBinary is the executable looked up on PATH.
const DefaultBinary = "mmgs_O3"

// Remesher implements mesher.Remesher with mmgs.
type Remesher struct {
	Binary string
	Runner mesher.Runner
	Logger *zap.Logger
	// WorkDir holds the intermediate files. Empty uses a fresh temporary
	// directory that is removed afterwards.
	WorkDir string
}

// New returns a Remesher with default settings.
func New(logger *zap.Logger) *Remesher {
	return &Remesher{
		Binary: DefaultBinary,
		Runner: mesher.ExecRunner{Logger: logger},
		Logger: logger,
	}
}

// Args returns the mmgs arguments for remeshing in into out.
func Args(in, out string, opts mesher.RemeshOptions) []string {
	args := []string{in, "-o", out}
	add := func(flag string, v float64) {
		if v > 0 {
			args = append(args, flag, strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	add("-hmin", opts.HMin)
	add("-hmax", opts.HMax)
	add("-hausd", opts.Hausd)
	return args
}

// Remesh writes m as a Medit mesh, runs mmgs over it and reads the result
// back. Face labels are carried through as triangle references.
func (r *Remesher) Remesh(ctx context.Context, m *surface.Mesh, opts mesher.RemeshOptions) (*surface.Mesh, error) {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	dir := r.WorkDir
	if dir == "" {
		var err error
		if dir, err = os.MkdirTemp("", "mmg-"); err != nil {
			return nil, fmt.Errorf("mmg: %w", err)
		}
		defer os.RemoveAll(dir)
	}
	in := filepath.Join(dir, "surface.mesh")
	out := filepath.Join(dir, "surface.o.mesh")

	f, err := os.Create(in)
	if err != nil {
		return nil, fmt.Errorf("mmg: %w", err)
	}
	if err := WriteMedit(f, m); err != nil {
		f.Close()
		return nil, fmt.Errorf("mmg: writing %s: %w", in, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("mmg: %w", err)
	}

	binary := r.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	runner := r.Runner
	if runner == nil {
		runner = mesher.ExecRunner{Logger: log}
	}
	if _, err := runner.Run(ctx, dir, binary, Args(in, out, opts)...); err != nil {
		return nil, fmt.Errorf("mmg: %w", err)
	}

	rf, err := os.Open(out)
	if err != nil {
		return nil, fmt.Errorf("mmg: %w", err)
	}
	defer rf.Close()
	res, err := ReadMedit(rf)
	if err != nil {
		return nil, err
	}
	log.Info("remeshed surface",
		zap.Int("faces_before", m.FaceCount()),
		zap.Int("faces_after", res.FaceCount()))
	return res, nil
}
