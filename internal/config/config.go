// Package config handles cardiomesh configuration loading and management.
package config

import (
	"fmt"
	"sort"

	"github.com/chazu/cardiomesh/pkg/anatomy"
	"github.com/chazu/cardiomesh/pkg/mesher"
	"github.com/chazu/cardiomesh/pkg/mesher/mmg"
	"github.com/chazu/cardiomesh/pkg/mesher/tetgen"
)

// Config holds all settings of a run.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Mesher   MesherConfig   `yaml:"mesher"`
	Output   OutputConfig   `yaml:"output"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// PipelineConfig holds the wall and cap processing settings. Zero values
// keep what the case script or the built-in profile says.
type PipelineConfig struct {
	// Anatomy selects the built-in profile for runs without a script.
	Anatomy  string  `yaml:"anatomy"`
	EdgeSize float64 `yaml:"edge_size"`
	// FillHoleRadius is the largest loop radius patched as a cutting
	// artifact, in mesh units.
	FillHoleRadius float64 `yaml:"fill_hole_radius"`
	// Openings overrides the opening name to cap label mapping.
	Openings map[string]int `yaml:"openings"`
}

// MesherConfig holds the external tool settings.
type MesherConfig struct {
	// Enabled runs volume meshing after capping.
	Enabled bool   `yaml:"enabled"`
	TetGen  string `yaml:"tetgen"`
	// RadiusEdgeRatio is the TetGen quality bound.
	RadiusEdgeRatio float64 `yaml:"radius_edge_ratio"`
	// Remesh runs the surface remesher before volume meshing.
	Remesh bool    `yaml:"remesh"`
	MMG    string  `yaml:"mmg"`
	HMin   float64 `yaml:"hmin"`
	HMax   float64 `yaml:"hmax"`
	Hausd  float64 `yaml:"hausd"`
	// WorkDir keeps the intermediate tool files; empty uses a temporary
	// directory.
	WorkDir string `yaml:"work_dir"`
}

// OutputConfig holds where results go.
type OutputConfig struct {
	Dir string `yaml:"dir"`
	// CapPoints writes the tracked cap points of ventricles as point
	// clouds for registration.
	CapPoints bool `yaml:"cap_points"`
	// DumpScene writes the evaluated scene as YAML next to the outputs.
	DumpScene bool `yaml:"dump_scene"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	remesh := mesher.DefaultRemeshOptions()
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Pipeline: PipelineConfig{
			Anatomy: anatomy.LeftVentricle().Name,
		},
		Mesher: MesherConfig{
			Enabled:         false,
			TetGen:          tetgen.DefaultBinary,
			RadiusEdgeRatio: tetgen.DefaultRadiusEdgeRatio,
			Remesh:          true,
			MMG:             mmg.DefaultBinary,
			HMin:            remesh.HMin,
			HMax:            remesh.HMax,
		},
		Output: OutputConfig{
			Dir: "mesh-complete",
		},
	}
}

// Validate reports settings no run can use.
func (c *Config) Validate() error {
	if c.Pipeline.EdgeSize < 0 {
		return fmt.Errorf("config: pipeline.edge_size must not be negative")
	}
	if c.Pipeline.FillHoleRadius < 0 {
		return fmt.Errorf("config: pipeline.fill_hole_radius must not be negative")
	}
	if c.Mesher.HMin > 0 && c.Mesher.HMax > 0 && c.Mesher.HMin > c.Mesher.HMax {
		return fmt.Errorf("config: mesher.hmin %g exceeds hmax %g", c.Mesher.HMin, c.Mesher.HMax)
	}
	names := make([]string, 0, len(c.Pipeline.Openings))
	for name := range c.Pipeline.Openings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if l := c.Pipeline.Openings[name]; l < 2 {
			return fmt.Errorf("config: opening %s: label %d is reserved for the wall", name, l)
		}
	}
	return nil
}

// Profile returns the configured built-in profile with the overrides
// applied.
func (c *Config) Profile() (anatomy.Profile, error) {
	p, err := anatomy.ProfileByName(c.Pipeline.Anatomy)
	if err != nil {
		return anatomy.Profile{}, fmt.Errorf("config: %w", err)
	}
	if c.Pipeline.FillHoleRadius > 0 {
		p.FillHoleRadius = c.Pipeline.FillHoleRadius
	}
	for name, label := range c.Pipeline.Openings {
		p.Openings[name] = label
	}
	if err := p.Validate(); err != nil {
		return anatomy.Profile{}, fmt.Errorf("config: %w", err)
	}
	return p, nil
}

// RemeshOptions returns the remesher edge bounds.
func (c *Config) RemeshOptions() mesher.RemeshOptions {
	return mesher.RemeshOptions{HMin: c.Mesher.HMin, HMax: c.Mesher.HMax, Hausd: c.Mesher.Hausd}
}
