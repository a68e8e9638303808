// Package tetgen fills closed surfaces with tetrahedra by running the
// TetGen command line tool.
package tetgen

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/cardiomesh/pkg/mesher"
	"github.com/chazu/cardiomesh/pkg/meshio"
	"github.com/chazu/cardiomesh/pkg/surface"
	"github.com/chazu/cardiomesh/pkg/volume"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

var _ mesher.VolumeMesher = (*Mesher)(nil)

const (
	// DefaultBinary is the executable looked up on PATH.
	DefaultBinary = "tetgen"
	// DefaultRadiusEdgeRatio bounds the tetrahedron quality.
	DefaultRadiusEdgeRatio = 1.414
)

// Mesher implements mesher.VolumeMesher with TetGen.
type Mesher struct {
	Binary          string
	RadiusEdgeRatio float64
	Runner          mesher.Runner
	Logger          *zap.Logger
	// WorkDir holds the intermediate files. Empty uses a fresh temporary
	// directory that is removed afterwards.
	WorkDir string
}

// New returns a Mesher with default settings.
func New(logger *zap.Logger) *Mesher {
	return &Mesher{
		Binary:          DefaultBinary,
		RadiusEdgeRatio: DefaultRadiusEdgeRatio,
		Runner:          mesher.ExecRunner{Logger: logger},
		Logger:          logger,
	}
}

// MaxVolume returns the volume of a regular tetrahedron with the given
// edge length, used as the per-element volume bound.
func MaxVolume(edge float64) float64 {
	return edge * edge * edge / (6 * math.Sqrt2)
}

// Switches returns the TetGen command line switches for opts.
func (t *Mesher) Switches(opts mesher.Options) string {
	q := t.RadiusEdgeRatio
	if q <= 0 {
		q = DefaultRadiusEdgeRatio
	}
	s := fmt.Sprintf("-pq%g", q)
	if opts.GlobalEdgeSize > 0 {
		s += fmt.Sprintf("a%g", MaxVolume(opts.GlobalEdgeSize))
	}
	return s + "Q"
}

// Mesh reads the surface at surfacePath, runs TetGen over it and returns
// the boundary surface and the tetrahedra that were requested.
func (t *Mesher) Mesh(ctx context.Context, surfacePath string, opts mesher.Options, out mesher.OutputPaths) (*surface.Mesh, *volume.Mesh, error) {
	log := t.Logger
	if log == nil {
		log = zap.NewNop()
	}
	in, err := meshio.ReadPolyData(surfacePath)
	if err != nil {
		return nil, nil, fmt.Errorf("tetgen: %w", err)
	}

	dir := t.WorkDir
	if dir == "" {
		if dir, err = os.MkdirTemp("", "tetgen-"); err != nil {
			return nil, nil, fmt.Errorf("tetgen: %w", err)
		}
		defer os.RemoveAll(dir)
	}
	base := filepath.Join(dir, strings.TrimSuffix(filepath.Base(surfacePath), filepath.Ext(surfacePath)))
	if err := writeFile(base+".smesh", in); err != nil {
		return nil, nil, err
	}

	binary := t.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	runner := t.Runner
	if runner == nil {
		runner = mesher.ExecRunner{Logger: log}
	}
	switches := t.Switches(opts)
	log.Info("running tetgen", zap.String("switches", switches), zap.Int("facets", in.FaceCount()))
	if _, err := runner.Run(ctx, dir, binary, switches, base+".smesh"); err != nil {
		return nil, nil, fmt.Errorf("tetgen: %w", err)
	}

	pts, first, err := readNodesFile(base + ".1.node")
	if err != nil {
		return nil, nil, err
	}
	var s *surface.Mesh
	var v *volume.Mesh
	if opts.SurfaceMesh {
		if s, err = readFacesFile(base+".1.face", pts, first); err != nil {
			return nil, nil, err
		}
		if out.Surface != "" {
			if err := meshio.WritePolyData(out.Surface, s); err != nil {
				return nil, nil, fmt.Errorf("tetgen: %w", err)
			}
		}
	}
	if opts.VolumeMesh {
		if v, err = readElementsFile(base+".1.ele", pts, first); err != nil {
			return nil, nil, err
		}
		if out.Volume != "" {
			if err := meshio.WriteUnstructuredGrid(out.Volume, v); err != nil {
				return nil, nil, fmt.Errorf("tetgen: %w", err)
			}
		}
	}
	return s, v, nil
}

func writeFile(path string, m *surface.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tetgen: %w", err)
	}
	if err := WriteSmesh(f, m); err != nil {
		f.Close()
		return fmt.Errorf("tetgen: writing %s: %w", path, err)
	}
	return f.Close()
}

func readNodesFile(path string) ([]r3.Vec, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("tetgen: %w", err)
	}
	defer f.Close()
	return ReadNodes(f)
}

func readFacesFile(path string, pts []r3.Vec, first int) (*surface.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tetgen: %w", err)
	}
	defer f.Close()
	return ReadFaces(f, pts, first)
}

func readElementsFile(path string, pts []r3.Vec, first int) (*volume.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tetgen: %w", err)
	}
	defer f.Close()
	return ReadElements(f, pts, first)
}
