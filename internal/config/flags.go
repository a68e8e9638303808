package config

import "flag"

// Flags are the command-line overrides. Zero values leave the config
// untouched.
type Flags struct {
	ConfigPath     string
	Debug          bool
	LogFile        string
	Anatomy        string
	EdgeSize       float64
	FillHoleRadius float64
	Output         string
	Mesh           bool
	NoRemesh       bool
	CapPoints      bool
	DumpScene      bool
}

// RegisterFlags defines the flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.ConfigPath, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.LogFile, "log-file", "", "Also write JSON logs to this file")
	fs.StringVar(&f.Anatomy, "anatomy", "", "Anatomy profile for surface inputs (left-heart, left-ventricle)")
	fs.Float64Var(&f.EdgeSize, "edge-size", 0, "Target edge length")
	fs.Float64Var(&f.FillHoleRadius, "fill-hole-radius", 0, "Largest hole radius patched as a cutting artifact")
	fs.StringVar(&f.Output, "o", "", "Output directory")
	fs.BoolVar(&f.Mesh, "mesh", false, "Volume mesh the capped surface")
	fs.BoolVar(&f.NoRemesh, "no-remesh", false, "Skip surface remeshing before volume meshing")
	fs.BoolVar(&f.CapPoints, "cap-points", false, "Write tracked cap points as point clouds")
	fs.BoolVar(&f.DumpScene, "dump-scene", false, "Write the evaluated scene as YAML")
	return f
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.Anatomy != "" {
		cfg.Pipeline.Anatomy = f.Anatomy
	}
	if f.EdgeSize > 0 {
		cfg.Pipeline.EdgeSize = f.EdgeSize
	}
	if f.FillHoleRadius > 0 {
		cfg.Pipeline.FillHoleRadius = f.FillHoleRadius
	}
	if f.Output != "" {
		cfg.Output.Dir = f.Output
	}
	if f.Mesh {
		cfg.Mesher.Enabled = true
	}
	if f.NoRemesh {
		cfg.Mesher.Remesh = false
	}
	if f.CapPoints {
		cfg.Output.CapPoints = true
	}
	if f.DumpScene {
		cfg.Output.DumpScene = true
	}
}
