package anatomy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/cardiomesh/pkg/meshio"
	"go.uber.org/zap"
)

// Names of the files in a mesh-complete directory.
const (
	ExteriorFile = "mesh-complete.exterior.vtp"
	VolumeFile   = "mesh-complete.mesh.vtu"
	WallsFile    = "walls_combined.vtp"
	SurfacesDir  = "mesh-surfaces"
)

// SurfaceFile returns the mesh-surfaces file name of a labelled region.
func (p Profile) SurfaceFile(label int) string {
	return fmt.Sprintf("%s_%d.vtp", p.LabelName(label), label)
}

// WriteMeshComplete writes the exterior surface, the volume mesh, the
// combined wall and one file per region into dir. Nothing is written when
// there is no volume mesh.
func (a *Anatomy) WriteMeshComplete(dir string) error {
	if a.volume == nil {
		return fmt.Errorf("anatomy: writing %s: %w", dir, ErrMissingVolume)
	}
	m := a.Surface()
	surfaces := filepath.Join(dir, SurfacesDir)
	if err := os.MkdirAll(surfaces, 0o755); err != nil {
		return fmt.Errorf("anatomy: %w", err)
	}

	write := func(name string, fn func(string) error) error {
		path := filepath.Join(dir, name)
		if err := fn(path); err != nil {
			return fmt.Errorf("anatomy: %w", err)
		}
		a.log.Debug("wrote mesh file", zap.String("path", path))
		return nil
	}
	if err := write(ExteriorFile, func(p string) error { return meshio.WritePolyData(p, m) }); err != nil {
		return err
	}
	if err := write(VolumeFile, func(p string) error { return meshio.WriteUnstructuredGrid(p, a.volume) }); err != nil {
		return err
	}
	walls := a.SplitRegion(a.profile.WallLabel)
	if err := write(WallsFile, func(p string) error { return meshio.WritePolyData(p, walls) }); err != nil {
		return err
	}
	labels := m.LabelSet()
	for _, label := range labels {
		region := a.SplitRegion(label)
		name := filepath.Join(SurfacesDir, a.profile.SurfaceFile(label))
		if err := write(name, func(p string) error { return meshio.WritePolyData(p, region) }); err != nil {
			return err
		}
	}
	a.log.Info("wrote mesh-complete",
		zap.String("dir", dir),
		zap.Int("regions", len(labels)))
	return nil
}
