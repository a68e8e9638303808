package anatomy

import (
	"fmt"
	"sort"
)

// Kind tags the anatomy variants. Only ventricles support Update.
type Kind int

const (
	KindChamber Kind = iota
	KindVentricle
)

func (k Kind) String() string {
	switch k {
	case KindChamber:
		return "chamber"
	case KindVentricle:
		return "ventricle"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Profile holds everything that differs between anatomies.
type Profile struct {
	Name string
	Kind Kind
	// Cuts is the number of cuts ProcessWall expects.
	Cuts int
	// FillHoleRadius is the largest loop radius, in mesh units, treated as
	// a cutting artifact and patched during wall processing.
	FillHoleRadius     float64
	BoundaryIterations int
	SurfaceIterations  int
	CleanTolerance     float64
	WallLabel          int
	FirstCapLabel      int
	// Openings names the cap labels. Caps are labelled in discovery
	// order, so cuts must be ordered to match.
	Openings map[string]int
	// Tracked lists the openings Update keeps planar.
	Tracked []string
}

// LeftHeart returns the profile of a left heart cut at the ascending
// aorta.
func LeftHeart() Profile {
	return Profile{
		Name:               "left-heart",
		Kind:               KindChamber,
		Cuts:               1,
		FillHoleRadius:     25,
		BoundaryIterations: 5,
		SurfaceIterations:  50,
		WallLabel:          1,
		FirstCapLabel:      2,
		Openings:           map[string]int{"aortic": 2},
	}
}

// LeftVentricle returns the profile of a left ventricle cut at the mitral
// and aortic valves, in that order.
func LeftVentricle() Profile {
	return Profile{
		Name:               "left-ventricle",
		Kind:               KindVentricle,
		Cuts:               2,
		FillHoleRadius:     15,
		BoundaryIterations: 5,
		SurfaceIterations:  50,
		WallLabel:          1,
		FirstCapLabel:      2,
		Openings:           map[string]int{"mitral": 2, "aortic": 3},
		Tracked:            []string{"mitral", "aortic"},
	}
}

// Profiles returns the built-in profiles by name.
func Profiles() map[string]Profile {
	return map[string]Profile{
		"left-heart":     LeftHeart(),
		"left-ventricle": LeftVentricle(),
	}
}

// ProfileByName returns a built-in profile.
func ProfileByName(name string) (Profile, error) {
	p, ok := Profiles()[name]
	if !ok {
		names := make([]string, 0, 2)
		for n := range Profiles() {
			names = append(names, n)
		}
		sort.Strings(names)
		return Profile{}, fmt.Errorf("anatomy: unknown profile %q (have %v)", name, names)
	}
	return p, nil
}

// Validate checks the profile for inconsistent labels and names.
func (p Profile) Validate() error {
	if p.Cuts < 0 {
		return fmt.Errorf("anatomy: profile %s: negative cut count", p.Name)
	}
	if p.FillHoleRadius < 0 {
		return fmt.Errorf("anatomy: profile %s: negative hole-fill radius", p.Name)
	}
	if p.FirstCapLabel <= p.WallLabel {
		return fmt.Errorf("anatomy: profile %s: first cap label %d must exceed wall label %d", p.Name, p.FirstCapLabel, p.WallLabel)
	}
	seen := make(map[int]string, len(p.Openings))
	for name, label := range p.Openings {
		if label == p.WallLabel {
			return fmt.Errorf("anatomy: profile %s: opening %s uses the wall label", p.Name, name)
		}
		if other, dup := seen[label]; dup {
			return fmt.Errorf("anatomy: profile %s: openings %s and %s share label %d", p.Name, name, other, label)
		}
		seen[label] = name
	}
	for _, name := range p.Tracked {
		if _, ok := p.Openings[name]; !ok {
			return fmt.Errorf("anatomy: profile %s: tracked opening %s has no label", p.Name, name)
		}
	}
	return nil
}

// LabelName returns the file name stem used for a region label.
func (p Profile) LabelName(label int) string {
	if label == p.WallLabel {
		return "wall"
	}
	for name, l := range p.Openings {
		if l == label {
			return name
		}
	}
	return "noname"
}

func (p Profile) clone() Profile {
	c := p
	c.Openings = make(map[string]int, len(p.Openings))
	for k, v := range p.Openings {
		c.Openings[k] = v
	}
	c.Tracked = append([]string(nil), p.Tracked...)
	return c
}
