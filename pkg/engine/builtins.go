package engine

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chazu/cardiomesh/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
	"gonum.org/v1/gonum/spatial/r3"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpShape wraps a shape tree so it can flow between shape builtins.
type sexpShape struct {
	shape *scene.Shape
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string { return s.shape.String() }
func (s *sexpShape) Type() *zygo.RegisteredType             { return nil }

// sexpVec3 wraps an r3.Vec.
type sexpVec3 struct {
	vec r3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpPlane wraps a scene.Plane.
type sexpPlane struct {
	plane scene.Plane
}

func (p *sexpPlane) SexpString(ps *zygo.PrintState) string {
	o, n := p.plane.Origin, p.plane.Normal
	return fmt.Sprintf("(plane :origin (vec3 %g %g %g) :normal (vec3 %g %g %g))", o.X, o.Y, o.Z, n.X, n.Y, n.Z)
}
func (p *sexpPlane) Type() *zygo.RegisteredType { return nil }

// sexpCutRef is returned by (cut ...) so scripts can print it.
type sexpCutRef struct {
	name  string
	index int
}

func (c *sexpCutRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(cutref %q %d)", c.name, c.index)
}
func (c *sexpCutRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string and returns the
// keyword name without its prefix.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds a mixed positional and keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			// Trailing keyword with no value.
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// number returns the keyword argument name, or else the positional
// argument at pos, as a float.
func (a kwArgs) number(name string, pos int) (float64, bool, error) {
	v, ok := a.kw[name]
	if !ok {
		if pos < 0 || pos >= len(a.positional) {
			return 0, false, nil
		}
		v = a.positional[pos]
	}
	f, err := toFloat64(v)
	return f, true, err
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer from a SexpInt.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts an r3.Vec from a sexpVec3.
func toVec3(s zygo.Sexp) (r3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return r3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toShape extracts a shape tree from a sexpShape.
func toShape(s zygo.Sexp) (*scene.Shape, error) {
	if sh, ok := s.(*sexpShape); ok {
		return sh.shape, nil
	}
	return nil, fmt.Errorf("expected shape, got %T (%s)", s, s.SexpString(nil))
}

// toPlane extracts a plane from a sexpPlane.
func toPlane(s zygo.Sexp) (scene.Plane, error) {
	if p, ok := s.(*sexpPlane); ok {
		return p.plane, nil
	}
	return scene.Plane{}, fmt.Errorf("expected plane, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtin = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// registerBuiltins installs the case-script builtins into a zygomys
// environment. They populate s during evaluation; surface paths are
// resolved against baseDir.
//
// Source must be preprocessed with preprocessSource so :keyword tokens
// arrive as recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, s *scene.Scene, baseDir string) {

	// (anatomy "left-ventricle" :edge-size 1.2 :resolution 96)
	env.AddFunction("anatomy", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("anatomy requires a profile name")
		}
		profile, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("anatomy: name: %w", err)
		}
		s.Anatomy = profile
		if edge, ok, err := pa.number("edge-size", -1); err != nil {
			return zygo.SexpNull, fmt.Errorf("anatomy: edge-size: %w", err)
		} else if ok {
			s.EdgeSize = edge
		}
		if v, ok := pa.kw["resolution"]; ok {
			n, err := toInt(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("anatomy: resolution: %w", err)
			}
			s.Resolution = n
		}
		return zygo.SexpNull, nil
	})

	// (input (difference (sphere 40) (sphere 35)))
	env.AddFunction("input", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("input requires exactly one shape, got %d arguments", len(args))
		}
		sh, err := toShape(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("input: %w", err)
		}
		if s.Input != nil {
			return zygo.SexpNull, fmt.Errorf("input: already set to %s", s.Input)
		}
		s.Input = sh
		return args[0], nil
	})

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			xyz[i] = f
		}
		return &sexpVec3{vec: r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
	})

	// (sphere :radius 10) or (sphere 10)
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		r, ok, err := pa.number("radius", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: radius: %w", err)
		}
		if !ok {
			return zygo.SexpNull, fmt.Errorf("sphere requires a radius")
		}
		return &sexpShape{shape: scene.Sphere(r)}, nil
	})

	// (box :size (vec3 10 20 30)) or (box 10 20 30)
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if v, ok := pa.kw["size"]; ok {
			size, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: size: %w", err)
			}
			return &sexpShape{shape: scene.Box(size)}, nil
		}
		if len(pa.positional) != 3 {
			return zygo.SexpNull, fmt.Errorf("box requires :size or three dimensions")
		}
		var xyz [3]float64
		for i, a := range pa.positional {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: %c: %w", "xyz"[i], err)
			}
			xyz[i] = f
		}
		return &sexpShape{shape: scene.Box(r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]})}, nil
	})

	// (cylinder :radius 5 :height 20)
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		r, okR, err := pa.number("radius", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: radius: %w", err)
		}
		h, okH, err := pa.number("height", 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: height: %w", err)
		}
		if !okR || !okH {
			return zygo.SexpNull, fmt.Errorf("cylinder requires a radius and a height")
		}
		return &sexpShape{shape: scene.Cylinder(r, h)}, nil
	})

	// (surface "cutters/aorta.vtp")
	env.AddFunction("surface", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("surface requires a file path")
		}
		path, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("surface: path: %w", err)
		}
		if baseDir != "" && path != "" && !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		return &sexpShape{shape: scene.Surface(path)}, nil
	})

	// (translate shape (vec3 0 0 10)) and (rotate shape (vec3 0 90 0))
	transform := func(label string, build func(*scene.Shape, r3.Vec) *scene.Shape) builtin {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if len(pa.positional) < 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires a shape", label)
			}
			child, err := toShape(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", label, err)
			}
			var vecArg zygo.Sexp
			switch {
			case pa.kw["by"] != nil:
				vecArg = pa.kw["by"]
			case len(pa.positional) == 2:
				vecArg = pa.positional[1]
			default:
				return zygo.SexpNull, fmt.Errorf("%s requires a vec3", label)
			}
			v, err := toVec3(vecArg)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", label, err)
			}
			return &sexpShape{shape: build(child, v)}, nil
		}
	}
	env.AddFunction("translate", transform("translate", scene.Translate))
	env.AddFunction("rotate", transform("rotate", scene.Rotate))

	// (union a b ...), (difference a b ...), (intersection a b ...)
	boolean := func(kind scene.ShapeKind) builtin {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) < 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires at least two shapes, got %d", kind, len(args))
			}
			children := make([]*scene.Shape, len(args))
			for i, a := range args {
				sh, err := toShape(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: shape %d: %w", kind, i, err)
				}
				children[i] = sh
			}
			return &sexpShape{shape: scene.Combine(kind, children...)}, nil
		}
	}
	env.AddFunction("union", boolean(scene.ShapeUnion))
	env.AddFunction("difference", boolean(scene.ShapeDifference))
	env.AddFunction("intersection", boolean(scene.ShapeIntersection))

	// (plane :origin (vec3 0 0 20) :normal (vec3 0 0 1))
	env.AddFunction("plane", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var pl scene.Plane
		for _, field := range []struct {
			kw  string
			dst *r3.Vec
		}{{"origin", &pl.Origin}, {"normal", &pl.Normal}} {
			v, ok := pa.kw[field.kw]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("plane requires :%s", field.kw)
			}
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("plane: %s: %w", field.kw, err)
			}
			*field.dst = vec
		}
		return &sexpPlane{plane: pl}, nil
	})

	// (cut "mitral" shape :plane (plane ...))
	env.AddFunction("cut", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("cut requires a name and a cutter shape")
		}
		cutName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cut: name: %w", err)
		}
		sh, err := toShape(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cut %s: %w", cutName, err)
		}
		c := scene.Cut{Name: cutName, Shape: sh}
		if v, ok := pa.kw["plane"]; ok {
			pl, err := toPlane(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cut %s: plane: %w", cutName, err)
			}
			c.Plane = &pl
		}
		s.AddCut(c)
		return &sexpCutRef{name: cutName, index: s.CutCount() - 1}, nil
	})

	// (opening "mitral" 2)
	env.AddFunction("opening", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("opening requires a name and a label")
		}
		openingName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("opening: name: %w", err)
		}
		label, err := toInt(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("opening %s: label: %w", openingName, err)
		}
		s.Openings[openingName] = label
		return zygo.SexpNull, nil
	})
}
