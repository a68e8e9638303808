// Package tessellate turns a scene into the concrete inputs of wall
// processing: the input surface and the ordered cut steps. Solid shape
// trees are built with a geometry kernel; surface leaves are read from
// disk and transformed point by point.
package tessellate

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/cardiomesh/pkg/cut"
	"github.com/chazu/cardiomesh/pkg/kernel"
	"github.com/chazu/cardiomesh/pkg/meshio"
	"github.com/chazu/cardiomesh/pkg/plane"
	"github.com/chazu/cardiomesh/pkg/scene"
	"github.com/chazu/cardiomesh/pkg/surface"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrMixedShape is returned for shape trees that combine surface files
// with kernel booleans.
var ErrMixedShape = errors.New("surface files cannot take part in booleans")

// Loader reads a surface file.
type Loader func(path string) (*surface.Mesh, error)

// Tessellator resolves shapes with a kernel and a surface loader.
type Tessellator struct {
	Kernel kernel.Kernel
	Load   Loader // nil uses meshio.ReadPolyData
	// Resolution is the marching-cubes resolution for phantom surfaces;
	// zero uses the kernel default.
	Resolution int
	Logger     *zap.Logger
}

func (t *Tessellator) log() *zap.Logger {
	if t.Logger == nil {
		return zap.NewNop()
	}
	return t.Logger
}

func (t *Tessellator) load(path string) (*surface.Mesh, error) {
	if t.Load != nil {
		return t.Load(path)
	}
	return meshio.ReadPolyData(path)
}

// transformStack accumulates the transforms above a surface leaf. The
// innermost transform is applied first.
type transformStack struct {
	ops []func(r3.Vec) r3.Vec
}

func (ts *transformStack) push(op func(r3.Vec) r3.Vec) {
	ts.ops = append(ts.ops, op)
}

func (ts *transformStack) pop() {
	if len(ts.ops) > 0 {
		ts.ops = ts.ops[:len(ts.ops)-1]
	}
}

func (ts *transformStack) apply(p r3.Vec) r3.Vec {
	for i := len(ts.ops) - 1; i >= 0; i-- {
		p = ts.ops[i](p)
	}
	return p
}

func translation(v r3.Vec) func(r3.Vec) r3.Vec {
	return func(p r3.Vec) r3.Vec { return r3.Add(p, v) }
}

// rotation matches the kernel's Euler convention: X, then Y, then Z.
func rotation(degrees r3.Vec) func(r3.Vec) r3.Vec {
	rx := r3.NewRotation(degrees.X*math.Pi/180, r3.Vec{X: 1})
	ry := r3.NewRotation(degrees.Y*math.Pi/180, r3.Vec{Y: 1})
	rz := r3.NewRotation(degrees.Z*math.Pi/180, r3.Vec{Z: 1})
	return func(p r3.Vec) r3.Vec { return rz.Rotate(ry.Rotate(rx.Rotate(p))) }
}

// Solid builds the kernel solid of a shape tree without surface leaves.
func (t *Tessellator) Solid(s *scene.Shape) (kernel.Solid, error) {
	k := t.Kernel
	switch s.Kind {
	case scene.ShapeSphere:
		return k.Sphere(s.Radius), nil
	case scene.ShapeBox:
		return k.Box(s.Size.X, s.Size.Y, s.Size.Z), nil
	case scene.ShapeCylinder:
		return k.Cylinder(s.Height, s.Radius), nil
	case scene.ShapeSurface:
		return nil, fmt.Errorf("tessellate: %s: %w", s, ErrMixedShape)
	case scene.ShapeTranslate, scene.ShapeRotate:
		if len(s.Children) != 1 {
			return nil, fmt.Errorf("tessellate: %s takes one shape, got %d", s.Kind, len(s.Children))
		}
		child, err := t.Solid(s.Children[0])
		if err != nil {
			return nil, err
		}
		if s.Kind == scene.ShapeTranslate {
			return k.Translate(child, s.Vector.X, s.Vector.Y, s.Vector.Z), nil
		}
		return k.Rotate(child, s.Vector.X, s.Vector.Y, s.Vector.Z), nil
	case scene.ShapeUnion, scene.ShapeDifference, scene.ShapeIntersection:
		if len(s.Children) == 0 {
			return nil, fmt.Errorf("tessellate: empty %s", s.Kind)
		}
		acc, err := t.Solid(s.Children[0])
		if err != nil {
			return nil, err
		}
		for _, c := range s.Children[1:] {
			next, err := t.Solid(c)
			if err != nil {
				return nil, err
			}
			switch s.Kind {
			case scene.ShapeUnion:
				acc = k.Union(acc, next)
			case scene.ShapeDifference:
				acc = k.Difference(acc, next)
			default:
				acc = k.Intersection(acc, next)
			}
		}
		return acc, nil
	}
	return nil, fmt.Errorf("tessellate: unknown shape kind %v", s.Kind)
}

// surfaceLeaf walks transforms down to a surface leaf and returns the
// transformed mesh. ok is false when the tree contains no surface.
func (t *Tessellator) surfaceLeaf(s *scene.Shape, ts *transformStack) (*surface.Mesh, bool, error) {
	switch {
	case s.Kind == scene.ShapeSurface:
		m, err := t.load(s.Path)
		if err != nil {
			return nil, true, fmt.Errorf("tessellate: loading %s: %w", s.Path, err)
		}
		if len(ts.ops) == 0 {
			return m, true, nil
		}
		out := m.Clone()
		for i, p := range out.Points {
			out.Points[i] = ts.apply(p)
		}
		return out, true, nil
	case s.Kind.IsTransform() && len(s.Children) == 1:
		if s.Kind == scene.ShapeTranslate {
			ts.push(translation(s.Vector))
		} else {
			ts.push(rotation(s.Vector))
		}
		defer ts.pop()
		return t.surfaceLeaf(s.Children[0], ts)
	case s.HasSurface():
		return nil, true, fmt.Errorf("tessellate: %s: %w", s, ErrMixedShape)
	}
	return nil, false, nil
}

// Surface resolves the input shape to a closed, outward-oriented surface
// labelled with the wall label.
func (t *Tessellator) Surface(s *scene.Shape) (*surface.Mesh, error) {
	if s == nil {
		return nil, errors.New("tessellate: no input shape")
	}
	if m, ok, err := t.surfaceLeaf(s, &transformStack{}); ok {
		return m, err
	}
	solid, err := t.Solid(s)
	if err != nil {
		return nil, err
	}
	soup, err := t.Kernel.ToMesh(solid, t.Resolution)
	if err != nil {
		return nil, fmt.Errorf("tessellate: meshing input: %w", err)
	}
	b := soup.Bounds()
	tol := 1e-9 * r3.Norm(r3.Sub(b.Max, b.Min))
	m := soup.Surface(tol, surface.DefaultLabel)
	t.log().Info("tessellated phantom input",
		zap.Int("triangles", soup.TriangleCount()),
		zap.Int("points", m.PointCount()),
		zap.Int("faces", m.FaceCount()))
	return m, nil
}

// Cutter resolves a cutter shape. Surface trees become winding-number
// cutters; everything else is evaluated as a kernel solid.
func (t *Tessellator) Cutter(s *scene.Shape) (cut.Cutter, error) {
	m, ok, err := t.surfaceLeaf(s, &transformStack{})
	if ok {
		if err != nil {
			return nil, err
		}
		c, err := cut.NewSurfaceCutter(m)
		if err != nil {
			return nil, fmt.Errorf("tessellate: %w", err)
		}
		return c, nil
	}
	solid, err := t.Solid(s)
	if err != nil {
		return nil, err
	}
	return cut.SolidCutter{Solid: solid}, nil
}

// Cuts resolves every cut of the scene in order.
func (t *Tessellator) Cuts(sc *scene.Scene) ([]cut.Step, error) {
	steps := make([]cut.Step, 0, len(sc.Cuts))
	for i, c := range sc.Cuts {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("%d", i)
		}
		if c.Shape == nil {
			return nil, fmt.Errorf("tessellate: cut %s has no shape", name)
		}
		cutter, err := t.Cutter(c.Shape)
		if err != nil {
			return nil, fmt.Errorf("tessellate: cut %s: %w", name, err)
		}
		step := cut.Step{Name: name, Cutter: cutter}
		if c.Plane != nil {
			pl, err := plane.New(c.Plane.Origin, c.Plane.Normal)
			if err != nil {
				return nil, fmt.Errorf("tessellate: cut %s: %w", name, err)
			}
			step.Plane = &pl
		}
		steps = append(steps, step)
	}
	return steps, nil
}
