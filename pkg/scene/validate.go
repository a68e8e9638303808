package scene

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// ValidationSeverity indicates whether a finding blocks the run or is
// merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks the run
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Where    string // "input", "cut mitral", ... (empty if scene-level)
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.Where == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Where, e.Message)
}

// minResolution is the resolution below which phantoms come out too coarse
// to carry openings.
const minResolution = 16

// Validate checks the scene and returns every finding. An empty result
// means the scene can be run. The scene is not modified.
func Validate(s *Scene) []ValidationError {
	var errs []ValidationError
	add := func(sev ValidationSeverity, where, format string, args ...any) {
		errs = append(errs, ValidationError{Where: where, Message: fmt.Sprintf(format, args...), Severity: sev})
	}

	if s.Anatomy == "" {
		add(SeverityError, "", "no anatomy selected")
	}
	if s.EdgeSize < 0 {
		add(SeverityError, "", "negative edge size %g", s.EdgeSize)
	}
	if s.Resolution > 0 && s.Resolution < minResolution {
		add(SeverityWarning, "", "resolution %d is coarse; openings may not survive meshing", s.Resolution)
	}

	if s.Input == nil {
		add(SeverityError, "input", "no input surface")
	} else {
		errs = append(errs, validateShape(s.Input, "input")...)
	}

	seen := make(map[string]bool, len(s.Cuts))
	for i, c := range s.Cuts {
		where := fmt.Sprintf("cut %d", i)
		if c.Name == "" {
			add(SeverityWarning, where, "unnamed cut")
		} else {
			where = "cut " + c.Name
			if seen[c.Name] {
				add(SeverityError, where, "duplicate cut name")
			}
			seen[c.Name] = true
		}
		if c.Shape == nil {
			add(SeverityError, where, "cut has no cutter shape")
		} else {
			errs = append(errs, validateShape(c.Shape, where)...)
		}
		if c.Plane != nil && r3.Norm(c.Plane.Normal) == 0 {
			add(SeverityError, where, "plane normal is zero")
		}
	}

	labels := make(map[int]string, len(s.Openings))
	for name, label := range s.Openings {
		if label < 2 {
			add(SeverityError, "opening "+name, "label %d collides with the wall", label)
		}
		if other, dup := labels[label]; dup {
			add(SeverityError, "opening "+name, "label %d already used by %s", label, other)
		}
		labels[label] = name
	}
	return errs
}

func validateShape(s *Shape, where string) []ValidationError {
	var errs []ValidationError
	add := func(format string, args ...any) {
		errs = append(errs, ValidationError{Where: where, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
	}
	if s == nil {
		add("missing shape")
		return errs
	}
	switch s.Kind {
	case ShapeSphere:
		if s.Radius <= 0 {
			add("sphere radius must be positive, got %g", s.Radius)
		}
	case ShapeBox:
		if s.Size.X <= 0 || s.Size.Y <= 0 || s.Size.Z <= 0 {
			add("box size must be positive, got %v", s.Size)
		}
	case ShapeCylinder:
		if s.Radius <= 0 || s.Height <= 0 {
			add("cylinder radius and height must be positive, got %g and %g", s.Radius, s.Height)
		}
	case ShapeSurface:
		if s.Path == "" {
			add("surface has no path")
		}
	case ShapeTranslate, ShapeRotate:
		if len(s.Children) != 1 {
			add("%s takes one shape, got %d", s.Kind, len(s.Children))
		}
	case ShapeUnion, ShapeDifference, ShapeIntersection:
		if len(s.Children) < 2 {
			add("%s needs at least two shapes, got %d", s.Kind, len(s.Children))
		}
		for _, c := range s.Children {
			if c != nil && c.HasSurface() {
				add("%s cannot combine surface files", s.Kind)
				break
			}
		}
	default:
		add("unknown shape kind %d", int(s.Kind))
	}
	for _, c := range s.Children {
		errs = append(errs, validateShape(c, where)...)
	}
	return errs
}

// Errors returns only the blocking findings.
func Errors(findings []ValidationError) []ValidationError {
	var out []ValidationError
	for _, f := range findings {
		if f.Severity == SeverityError {
			out = append(out, f)
		}
	}
	return out
}

// Warnings returns only the informational findings.
func Warnings(findings []ValidationError) []ValidationError {
	var out []ValidationError
	for _, f := range findings {
		if f.Severity == SeverityWarning {
			out = append(out, f)
		}
	}
	return out
}
