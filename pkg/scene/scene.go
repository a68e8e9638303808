// Package scene defines the case description produced by evaluating a
// case script: which anatomy to process, the input surface, and the
// ordered cuts applied during wall processing.
package scene

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// DefaultResolution is the marching-cubes resolution for phantom inputs.
const DefaultResolution = 96

// ShapeKind enumerates the nodes of a shape tree.
type ShapeKind int

const (
	ShapeSphere       ShapeKind = iota // Radius
	ShapeBox                           // Size, centred
	ShapeCylinder                      // Radius, Height, axis along Z
	ShapeSurface                       // Path to a VTK PolyData file
	ShapeTranslate                     // Vector, one child
	ShapeRotate                        // Vector (degrees), one child
	ShapeUnion                         // two or more children
	ShapeDifference                    // first child minus the rest
	ShapeIntersection                  // two or more children
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeSphere:
		return "sphere"
	case ShapeBox:
		return "box"
	case ShapeCylinder:
		return "cylinder"
	case ShapeSurface:
		return "surface"
	case ShapeTranslate:
		return "translate"
	case ShapeRotate:
		return "rotate"
	case ShapeUnion:
		return "union"
	case ShapeDifference:
		return "difference"
	case ShapeIntersection:
		return "intersection"
	default:
		return "unknown"
	}
}

// MarshalYAML writes the kind by name.
func (k ShapeKind) MarshalYAML() (interface{}, error) {
	if k < ShapeSphere || k > ShapeIntersection {
		return nil, fmt.Errorf("scene: unknown shape kind %d", int(k))
	}
	return k.String(), nil
}

// UnmarshalYAML reads a kind written by MarshalYAML.
func (k *ShapeKind) UnmarshalYAML(n *yaml.Node) error {
	var name string
	if err := n.Decode(&name); err != nil {
		return err
	}
	for c := ShapeSphere; c <= ShapeIntersection; c++ {
		if c.String() == name {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("scene: line %d: unknown shape kind %q", n.Line, name)
}

// IsTransform reports whether the kind wraps a single child.
func (k ShapeKind) IsTransform() bool {
	return k == ShapeTranslate || k == ShapeRotate
}

// IsBoolean reports whether the kind combines several children.
func (k ShapeKind) IsBoolean() bool {
	return k == ShapeUnion || k == ShapeDifference || k == ShapeIntersection
}

// Shape is a node of a shape tree. Which fields are meaningful depends on
// Kind.
type Shape struct {
	Kind     ShapeKind `yaml:"kind"`
	Radius   float64   `yaml:"radius,omitempty"`
	Height   float64   `yaml:"height,omitempty"`
	Size     r3.Vec    `yaml:"size,omitempty"`
	Vector   r3.Vec    `yaml:"vector,omitempty"`
	Path     string    `yaml:"path,omitempty"`
	Children []*Shape  `yaml:"children,omitempty"`
}

func (s *Shape) String() string {
	if s == nil {
		return "<nil>"
	}
	switch s.Kind {
	case ShapeSphere:
		return fmt.Sprintf("(sphere %g)", s.Radius)
	case ShapeBox:
		return fmt.Sprintf("(box %g %g %g)", s.Size.X, s.Size.Y, s.Size.Z)
	case ShapeCylinder:
		return fmt.Sprintf("(cylinder %g %g)", s.Radius, s.Height)
	case ShapeSurface:
		return fmt.Sprintf("(surface %q)", s.Path)
	}
	return fmt.Sprintf("(%s ...%d)", s.Kind, len(s.Children))
}

// HasSurface reports whether any leaf of the tree is a surface file.
func (s *Shape) HasSurface() bool {
	if s == nil {
		return false
	}
	if s.Kind == ShapeSurface {
		return true
	}
	for _, c := range s.Children {
		if c.HasSurface() {
			return true
		}
	}
	return false
}

// Sphere returns a sphere shape.
func Sphere(radius float64) *Shape { return &Shape{Kind: ShapeSphere, Radius: radius} }

// Box returns a centred box shape.
func Box(size r3.Vec) *Shape { return &Shape{Kind: ShapeBox, Size: size} }

// Cylinder returns a Z-aligned cylinder shape.
func Cylinder(radius, height float64) *Shape {
	return &Shape{Kind: ShapeCylinder, Radius: radius, Height: height}
}

// Surface returns a shape read from a VTK PolyData file.
func Surface(path string) *Shape { return &Shape{Kind: ShapeSurface, Path: path} }

// Translate moves child by v.
func Translate(child *Shape, v r3.Vec) *Shape {
	return &Shape{Kind: ShapeTranslate, Vector: v, Children: []*Shape{child}}
}

// Rotate turns child by Euler angles in degrees, X first.
func Rotate(child *Shape, degrees r3.Vec) *Shape {
	return &Shape{Kind: ShapeRotate, Vector: degrees, Children: []*Shape{child}}
}

// Combine builds a boolean node.
func Combine(kind ShapeKind, children ...*Shape) *Shape {
	return &Shape{Kind: kind, Children: children}
}

// Plane is an oriented plane given by a point and a normal.
type Plane struct {
	Origin r3.Vec `yaml:"origin"`
	Normal r3.Vec `yaml:"normal"`
}

// Cut is one named cut. When Plane is set, only material on the side its
// normal points to is removed.
type Cut struct {
	Name  string `yaml:"name"`
	Shape *Shape `yaml:"shape"`
	Plane *Plane `yaml:"plane,omitempty"`
}

// Scene is the full case description. It is built once per evaluation
// and treated as read-only afterwards.
type Scene struct {
	Anatomy    string  `yaml:"anatomy"`
	EdgeSize   float64 `yaml:"edge_size,omitempty"`
	Resolution int     `yaml:"resolution,omitempty"`
	Input      *Shape  `yaml:"input"`
	Cuts       []Cut   `yaml:"cuts"`
	// Openings overrides the profile's opening labels.
	Openings map[string]int `yaml:"openings,omitempty"`
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{
		Resolution: DefaultResolution,
		Openings:   make(map[string]int),
	}
}

// AddCut appends a cut. Cut order is significant.
func (s *Scene) AddCut(c Cut) {
	s.Cuts = append(s.Cuts, c)
}

// Lookup returns the cut with the given name, or nil.
func (s *Scene) Lookup(name string) *Cut {
	for i := range s.Cuts {
		if s.Cuts[i].Name == name {
			return &s.Cuts[i]
		}
	}
	return nil
}

// CutCount returns the number of cuts.
func (s *Scene) CutCount() int {
	return len(s.Cuts)
}
