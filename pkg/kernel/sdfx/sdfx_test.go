package sdfx

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestSphereEvaluate(t *testing.T) {
	k := New()
	s := k.Sphere(10)
	tests := []struct {
		p    r3.Vec
		want float64
	}{
		{r3.Vec{}, -10},
		{r3.Vec{X: 10}, 0},
		{r3.Vec{Y: 15}, 5},
	}
	for _, tt := range tests {
		if got := s.Evaluate(tt.p); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Evaluate(%v) = %f, want %f", tt.p, got, tt.want)
		}
	}
}

func TestSphereToMesh(t *testing.T) {
	k := New()
	soup, err := k.ToMesh(k.Sphere(10), 32)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if soup.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	b := soup.Bounds()
	if b.Max.X < 9 || b.Max.X > 11 || b.Min.Z > -9 || b.Min.Z < -11 {
		t.Errorf("sphere bounds = %v, want about +-10", b)
	}
	m := soup.Surface(1e-6, 1)
	if m.Volume() <= 0 {
		t.Errorf("Volume() = %f, want positive", m.Volume())
	}
	t.Logf("sphere: %d triangles, %d points after weld", soup.TriangleCount(), m.PointCount())
}

func TestCylinder(t *testing.T) {
	k := New()
	cyl := k.Cylinder(50, 10)
	if got := cyl.Evaluate(r3.Vec{}); got >= 0 {
		t.Errorf("Evaluate(origin) = %f, want negative", got)
	}
	if got := cyl.Evaluate(r3.Vec{Z: 30}); got <= 0 {
		t.Errorf("Evaluate(above) = %f, want positive", got)
	}
	soup, err := k.ToMesh(cyl, 0)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if soup.TriangleCount() == 0 {
		t.Fatal("expected non-zero triangle count")
	}
}

func TestDifference(t *testing.T) {
	k := New()
	box := k.Box(100, 100, 100)
	cyl := k.Cylinder(120, 20)
	diff := k.Difference(box, cyl)
	if got := diff.Evaluate(r3.Vec{}); got <= 0 {
		t.Errorf("Evaluate(origin) of box minus cylinder = %f, want positive", got)
	}
	if got := diff.Evaluate(r3.Vec{X: 40}); got >= 0 {
		t.Errorf("Evaluate(wall) = %f, want negative", got)
	}
}

func TestUnionIntersection(t *testing.T) {
	k := New()
	a := k.Sphere(10)
	b := k.Translate(k.Sphere(10), 15, 0, 0)
	u := k.Union(a, b)
	in := k.Intersection(a, b)

	p := r3.Vec{X: -5}
	if u.Evaluate(p) >= 0 {
		t.Errorf("union should contain %v", p)
	}
	if in.Evaluate(p) <= 0 {
		t.Errorf("intersection should not contain %v", p)
	}
	mid := r3.Vec{X: 7.5}
	if in.Evaluate(mid) >= 0 {
		t.Errorf("intersection should contain %v", mid)
	}
}

func TestTranslate(t *testing.T) {
	k := New()
	box := k.Box(10, 10, 10)
	translated := k.Translate(box, 100, 200, 300)
	bb := translated.BoundingBox()

	const tol = 0.5
	expectMin := r3.Vec{X: 95, Y: 195, Z: 295}
	expectMax := r3.Vec{X: 105, Y: 205, Z: 305}
	if r3.Norm(r3.Sub(bb.Min, expectMin)) > tol {
		t.Errorf("min = %v, expected ~%v", bb.Min, expectMin)
	}
	if r3.Norm(r3.Sub(bb.Max, expectMax)) > tol {
		t.Errorf("max = %v, expected ~%v", bb.Max, expectMax)
	}
}

func TestRotate(t *testing.T) {
	k := New()
	box := k.Box(100, 10, 10)

	// A long box along X rotated 90 degrees around Z extends along Y instead.
	bb := k.Rotate(box, 0, 0, 90).BoundingBox()
	xExtent := bb.Max.X - bb.Min.X
	yExtent := bb.Max.Y - bb.Min.Y

	const tol = 1.0
	if math.Abs(xExtent-10) > tol {
		t.Errorf("rotated X extent = %f, expected ~10", xExtent)
	}
	if math.Abs(yExtent-100) > tol {
		t.Errorf("rotated Y extent = %f, expected ~100", yExtent)
	}
}
