// Package anatomy drives one anatomical surface through wall processing,
// capping, remeshing and export.
package anatomy

import (
	"context"
	"errors"
	"fmt"

	"github.com/chazu/cardiomesh/pkg/boundary"
	"github.com/chazu/cardiomesh/pkg/capping"
	"github.com/chazu/cardiomesh/pkg/cleanup"
	"github.com/chazu/cardiomesh/pkg/correspond"
	"github.com/chazu/cardiomesh/pkg/cut"
	"github.com/chazu/cardiomesh/pkg/mesher"
	"github.com/chazu/cardiomesh/pkg/plane"
	"github.com/chazu/cardiomesh/pkg/surface"
	"github.com/chazu/cardiomesh/pkg/volume"
	"go.uber.org/zap"
)

var (
	// ErrInvalidState is returned when a step runs before its prerequisite.
	ErrInvalidState = errors.New("invalid processing state")
	// ErrMissingVolume is returned when exporting before a volume mesh
	// exists.
	ErrMissingVolume = errors.New("no volume mesh")
	// ErrUnsupported is returned by operations the anatomy kind lacks.
	ErrUnsupported = errors.New("operation not supported")
	// ErrCutCount is returned when ProcessWall gets the wrong number of
	// cuts for the profile.
	ErrCutCount = errors.New("wrong number of cuts")
)

// DefaultEdgeSize is the target edge length when none is configured.
const DefaultEdgeSize = 1.0

// State is the processing stage of an anatomy.
type State int

const (
	StateRaw State = iota
	StateWallProcessed
	StateCapProcessed
)

func (s State) String() string {
	switch s {
	case StateRaw:
		return "raw"
	case StateWallProcessed:
		return "wall-processed"
	case StateCapProcessed:
		return "cap-processed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Processor is the contract shared by every anatomy.
type Processor interface {
	ProcessWall(cuts []cut.Step) error
	ProcessCap() error
	SplitRegion(label int) *surface.Mesh
	Remesh(ctx context.Context, o *mesher.Orchestrator, paths mesher.Paths) (mesher.Produced, error)
	WriteMeshComplete(dir string) error
	State() State
	Surface() *surface.Mesh
	Volume() *volume.Mesh
}

var _ Processor = (*Anatomy)(nil)

// Option configures an Anatomy.
type Option func(*Anatomy)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(a *Anatomy) {
		if l != nil {
			a.log = l
		}
	}
}

// WithEdgeSize sets the target edge length used for caps and opening
// projection.
func WithEdgeSize(e float64) Option {
	return func(a *Anatomy) {
		if e > 0 {
			a.edgeSize = e
		}
	}
}

// Anatomy owns the mesh history of one anatomical model. Instances share
// no state.
type Anatomy struct {
	profile  Profile
	edgeSize float64
	log      *zap.Logger

	arena surface.Arena
	head  surface.Version
	state State

	volume *volume.Mesh
	// capIDs caches the point ids of each tracked opening on the head
	// mesh. It is filled on the first Update and dropped when the head
	// changes shape.
	capIDs [][]int
}

// New wraps a validated surface in a new anatomy.
func New(m *surface.Mesh, p Profile, opts ...Option) (*Anatomy, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("anatomy: %w", err)
	}
	if m.IsEmpty() {
		return nil, fmt.Errorf("anatomy: empty surface: %w", surface.ErrMalformed)
	}
	a := &Anatomy{
		profile:  p.clone(),
		edgeSize: DefaultEdgeSize,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With(zap.String("anatomy", p.Name))
	a.head = a.arena.Push("input", m.Clone())
	return a, nil
}

// Profile returns a copy of the anatomy's profile.
func (a *Anatomy) Profile() Profile { return a.profile.clone() }

// EdgeSize returns the target edge length.
func (a *Anatomy) EdgeSize() float64 { return a.edgeSize }

// State returns the processing stage.
func (a *Anatomy) State() State { return a.state }

// WallProcessed reports whether ProcessWall has completed.
func (a *Anatomy) WallProcessed() bool { return a.state >= StateWallProcessed }

// CapProcessed reports whether ProcessCap has completed.
func (a *Anatomy) CapProcessed() bool { return a.state >= StateCapProcessed }

// Surface returns the current surface. It is shared with the arena and
// must not be modified.
func (a *Anatomy) Surface() *surface.Mesh {
	m, _ := a.arena.Get(a.head)
	return m
}

// Volume returns the volume mesh, or nil before a successful Remesh.
func (a *Anatomy) Volume() *volume.Mesh { return a.volume }

// Version returns the handle of the current surface.
func (a *Anatomy) Version() surface.Version { return a.head }

// At returns an earlier surface version.
func (a *Anatomy) At(v surface.Version) (*surface.Mesh, error) { return a.arena.Get(v) }

// History returns the names of the steps that produced each version.
func (a *Anatomy) History() []string { return a.arena.Steps() }

func (a *Anatomy) push(step string, m *surface.Mesh) {
	a.head = a.arena.Push(step, m)
	a.log.Debug("surface updated",
		zap.String("step", step),
		zap.Int("version", int(a.head)),
		zap.Int("points", m.PointCount()),
		zap.Int("faces", m.FaceCount()))
}

// ProcessWall applies the cuts in order, patches small holes, then makes
// every remaining opening planar and smooths the wall. It runs once;
// later calls are no-ops. On failure the current surface is the one the
// call started from, so the whole step can be retried.
func (a *Anatomy) ProcessWall(cuts []cut.Step) error {
	if a.WallProcessed() {
		a.log.Info("wall already processed")
		return nil
	}
	if len(cuts) != a.profile.Cuts {
		return fmt.Errorf("anatomy: %s takes %d cuts, got %d: %w", a.profile.Name, a.profile.Cuts, len(cuts), ErrCutCount)
	}
	a.log.Info("processing wall", zap.Int("cuts", len(cuts)))

	start := a.head
	if err := a.processWall(cuts); err != nil {
		a.head = start
		a.log.Warn("wall processing failed, surface restored",
			zap.Int("version", int(start)),
			zap.Error(err))
		return err
	}
	return nil
}

func (a *Anatomy) processWall(cuts []cut.Step) error {
	m := a.Surface()
	for i, c := range cuts {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("%d", i)
		}
		m = c.Apply(m)
		if m.IsEmpty() {
			return fmt.Errorf("anatomy: cut %s removed the whole surface: %w", name, surface.ErrMalformed)
		}
		a.push("cut:"+name, m)
	}

	m, filled, err := capping.FillHoles(m, a.profile.FillHoleRadius)
	if err != nil {
		return fmt.Errorf("anatomy: %w", err)
	}
	if filled > 0 {
		a.log.Info("filled small holes", zap.Int("holes", filled))
		a.push("fill-holes", m)
	}

	loops, err := boundary.Extract(m)
	if err != nil {
		return fmt.Errorf("anatomy: %w", err)
	}
	ids := make([][]int, len(loops))
	for i, l := range loops {
		ids[i] = l.IDs
	}
	for i := range ids {
		if len(ids[i]) < 3 {
			a.log.Warn("opening lost to cleanup", zap.Int("opening", i))
			continue
		}
		ref := boundary.Smooth(boundary.Loop{IDs: ids[i], Points: m.PointsAt(ids[i])}, a.profile.BoundaryIterations)
		projected, pl, err := plane.ProjectOpening(m, ids[i], ref.Points, a.edgeSize)
		if err != nil {
			return fmt.Errorf("anatomy: opening %d: %w", i, err)
		}
		res, err := cleanup.RemoveFreeCells(projected, flatten(ids))
		if err != nil {
			return fmt.Errorf("anatomy: opening %d: %w", i, err)
		}
		if len(res.Invalid) > 0 {
			a.log.Warn("boundary points removed by cleanup",
				zap.Int("opening", i),
				zap.Ints("ids", res.Invalid))
		}
		for j := range ids {
			ids[j] = remap(ids[j], res.Remap)
		}
		m = res.Mesh
		a.log.Debug("opening projected",
			zap.Int("opening", i),
			zap.Int("points", len(ids[i])),
			zap.Float64("origin_x", pl.Origin.X),
			zap.Float64("origin_y", pl.Origin.Y),
			zap.Float64("origin_z", pl.Origin.Z))
		a.push(fmt.Sprintf("project-opening:%d", i), m)
	}

	m = surface.Clean(m, a.profile.CleanTolerance)
	m = surface.Smooth(m, a.profile.SurfaceIterations)
	a.push("smooth", m)

	a.state = StateWallProcessed
	a.capIDs = nil
	a.log.Info("wall processed",
		zap.Int("openings", len(loops)),
		zap.Int("faces", m.FaceCount()))
	return nil
}

func flatten(lists [][]int) []int {
	var out []int
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

func remap(ids, table []int) []int {
	out := ids[:0:0]
	for _, id := range ids {
		if id >= 0 && id < len(table) && table[id] >= 0 {
			out = append(out, table[id])
		}
	}
	return out
}

// ProcessCap closes every opening with a labelled cap. It needs a
// processed wall and runs once.
func (a *Anatomy) ProcessCap() error {
	if a.CapProcessed() {
		a.log.Info("caps already processed")
		return nil
	}
	if !a.WallProcessed() {
		return fmt.Errorf("anatomy: capping before wall processing: %w", ErrInvalidState)
	}
	m, labels, err := capping.CapOpenings(a.Surface(), capping.Options{
		FirstLabel: a.profile.FirstCapLabel,
		EdgeSize:   a.edgeSize,
	})
	if err != nil {
		return fmt.Errorf("anatomy: %w", err)
	}
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = a.profile.LabelName(l)
	}
	a.push("cap", m)
	a.state = StateCapProcessed
	a.log.Info("caps processed",
		zap.Ints("labels", labels),
		zap.Strings("names", names))
	return nil
}

// SplitRegion returns the faces of the current surface carrying label.
func (a *Anatomy) SplitRegion(label int) *surface.Mesh {
	return surface.SplitRegion(a.Surface(), label, label)
}

// Opening returns the cap region of a named opening.
func (a *Anatomy) Opening(name string) (*surface.Mesh, error) {
	label, ok := a.profile.Openings[name]
	if !ok {
		return nil, fmt.Errorf("anatomy: %s has no opening %q: %w", a.profile.Name, name, ErrUnsupported)
	}
	return a.SplitRegion(label), nil
}

// CapPointIDs returns the point ids of every tracked opening on the
// current surface, in Tracked order. The result is cached until the
// surface changes.
func (a *Anatomy) CapPointIDs() ([][]int, error) {
	if !a.CapProcessed() {
		return nil, fmt.Errorf("anatomy: cap ids before capping: %w", ErrInvalidState)
	}
	if a.capIDs != nil {
		return a.capIDs, nil
	}
	cur := a.Surface()
	idx := correspond.NewIndex(cur.Points)
	out := make([][]int, len(a.profile.Tracked))
	for i, name := range a.profile.Tracked {
		region := a.SplitRegion(a.profile.Openings[name])
		ids := make([]int, len(region.Points))
		for j, p := range region.Points {
			ids[j], _ = idx.Nearest(p)
		}
		if dups := correspond.Duplicates(ids); len(dups) > 0 {
			a.log.Warn("cap points share a nearest point",
				zap.String("opening", name),
				zap.Ints("ids", dups))
		}
		out[i] = ids
	}
	a.capIDs = out
	return out, nil
}

// Update projects the tracked openings of newMesh onto their best-fit
// planes and returns the result. newMesh is a deformed copy of the
// current surface. Cap ids are used as they are only when newMesh has the
// same points and faces by index; otherwise they are carried over by
// nearest point. The anatomy itself is unchanged.
func (a *Anatomy) Update(newMesh *surface.Mesh) (*surface.Mesh, error) {
	if a.profile.Kind != KindVentricle {
		return nil, fmt.Errorf("anatomy: update on a %s: %w", a.profile.Kind, ErrUnsupported)
	}
	if err := newMesh.Validate(); err != nil {
		return nil, fmt.Errorf("anatomy: %w", err)
	}
	capIDs, err := a.CapPointIDs()
	if err != nil {
		return nil, err
	}
	cur := a.Surface()
	sameTopology := newMesh.PointCount() == cur.PointCount() && sameFaces(cur.Faces, newMesh.Faces)
	if !sameTopology {
		a.log.Debug("matching cap points by nearest point",
			zap.Int("points", newMesh.PointCount()))
	}

	out := newMesh
	for i, ids := range capIDs {
		mapped := ids
		if !sameTopology {
			mapped = correspond.Match(cur.PointsAt(ids), newMesh.Points)
		}
		var pl plane.Plane
		out, pl, err = plane.ProjectOpening(out, mapped, out.PointsAt(mapped), a.edgeSize)
		if err != nil {
			return nil, fmt.Errorf("anatomy: update %s: %w", a.profile.Tracked[i], err)
		}
		a.log.Debug("opening updated",
			zap.String("opening", a.profile.Tracked[i]),
			zap.Float64("normal_x", pl.Normal.X),
			zap.Float64("normal_y", pl.Normal.Y),
			zap.Float64("normal_z", pl.Normal.Z))
	}
	return out, nil
}

func sameFaces(a, b []surface.Face) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Remesh runs the orchestrator over the capped surface and adopts every
// mesh it produced. Meshes it failed to produce keep their previous value.
func (a *Anatomy) Remesh(ctx context.Context, o *mesher.Orchestrator, paths mesher.Paths) (mesher.Produced, error) {
	if !a.CapProcessed() {
		return mesher.Produced{}, fmt.Errorf("anatomy: remeshing before capping: %w", ErrInvalidState)
	}
	res, err := o.Run(ctx, a.Surface(), a.edgeSize, paths)
	if err != nil {
		return mesher.Produced{}, fmt.Errorf("anatomy: %w", err)
	}
	if res.Surface != nil {
		a.push("remesh", res.Surface)
		a.capIDs = nil
	}
	if res.Volume != nil {
		a.volume = res.Volume
	}
	a.log.Info("remeshed",
		zap.Bool("surface", res.Produced.Surface),
		zap.Bool("volume", res.Produced.Volume))
	return res.Produced, nil
}
