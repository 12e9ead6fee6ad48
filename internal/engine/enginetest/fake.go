// Package enginetest provides an in-memory engine double that records every
// port call, for tests of the controllers built on top of package engine.
package enginetest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/philipparndt/gomol/internal/engine"
	"github.com/philipparndt/gomol/pkg/geometry"
	"github.com/philipparndt/gomol/pkg/loci"
)

// Rep is a representation attached to a fake component
type Rep struct {
	Kind  engine.RepresentationKind
	Theme engine.ColorTheme
}

// Commit is a measurement handed to Measurements.Add
type Commit struct {
	Kind  engine.MeasurementKind
	Atoms []loci.Loci
}

type component struct {
	ref  engine.ComponentRef
	reps []Rep
}

// Fake implements engine.Engine. Exported fields configure failures and may
// be set before use.
type Fake struct {
	mu sync.Mutex

	// RemapFunc overrides Remap. The default maps a Loci onto its own
	// structure and returns empty otherwise.
	RemapFunc func(l loci.Loci, target engine.StructureRef) loci.Loci

	FindOrCreateErr map[engine.Scope]error
	EmptyScopes     map[engine.Scope]bool
	AddRepErr       error
	ParseErr        error
	PresetErr       error
	RemoveErr       error
	CommitErr       error
	// AutoFrame moves the camera on every representation Add, the way an
	// engine re-frames a freshly added visual.
	AutoFrame bool

	calls         []string
	structures    []engine.StructureRef
	components    map[loci.StructureID][]*component
	nextComponent int
	nextParse     int
	camera        engine.CameraState
	granularity   engine.Granularity
	handlers      map[int]func(engine.PickEvent)
	nextHandler   int
	activeLoops   int
	loopConfigs   []engine.AnimationConfig
	commits       []Commit
	trajectories  map[loci.StructureID]engine.TrajectoryInfo
	pending       map[string]engine.Trajectory
}

// New returns an empty fake with residue granularity and a unit camera
func New() *Fake {
	return &Fake{
		components:   make(map[loci.StructureID][]*component),
		handlers:     make(map[int]func(engine.PickEvent)),
		trajectories: make(map[loci.StructureID]engine.TrajectoryInfo),
		pending:      make(map[string]engine.Trajectory),
		granularity:  engine.GranularityResidue,
		camera: engine.CameraState{
			Position: geometry.NewVector3(0, 0, 50),
			Up:       geometry.NewVector3(0, 1, 0),
			FOV:      0.78,
		},
	}
}

var _ engine.Engine = (*Fake)(nil)

func (f *Fake) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

// Calls returns the ordered port call log
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// ResetCalls clears the call log
func (f *Fake) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// AddStructure registers a loaded structure
func (f *Fake) AddStructure(id loci.StructureID) engine.StructureRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := engine.StructureRef{ID: id, Label: string(id)}
	f.structures = append(f.structures, ref)
	return ref
}

// AddComponent registers a component with the given representations
func (f *Fake) AddComponent(structure loci.StructureID, scope engine.Scope, reps ...Rep) engine.ComponentRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addComponentLocked(structure, scope, reps...).ref
}

func (f *Fake) addComponentLocked(structure loci.StructureID, scope engine.Scope, reps ...Rep) *component {
	f.nextComponent++
	c := &component{
		ref:  engine.ComponentRef{ID: fmt.Sprintf("c%d", f.nextComponent), Structure: structure, Scope: scope},
		reps: append([]Rep(nil), reps...),
	}
	f.components[structure] = append(f.components[structure], c)
	return c
}

// SetTrajectoryInfo sets the trajectory metadata reported for a structure
func (f *Fake) SetTrajectoryInfo(id loci.StructureID, info engine.TrajectoryInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trajectories[id] = info
}

// Reps returns the representations of every component of a structure
func (f *Fake) Reps(structure loci.StructureID) []Rep {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Rep
	for _, c := range f.components[structure] {
		out = append(out, c.reps...)
	}
	return out
}

// Click dispatches a pick event to every subscriber
func (f *Fake) Click(ev engine.PickEvent) {
	f.mu.Lock()
	handlers := make([]func(engine.PickEvent), 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Subscribers returns the number of live click subscriptions
func (f *Fake) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

// ActiveLoops returns how many animation loops are running
func (f *Fake) ActiveLoops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeLoops
}

// LoopConfigs returns every config passed to PlayLoop
func (f *Fake) LoopConfigs() []engine.AnimationConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.AnimationConfig(nil), f.loopConfigs...)
}

// Commits returns every measurement handed to Add
func (f *Fake) Commits() []Commit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Commit(nil), f.commits...)
}

// SetCamera replaces the current camera state
func (f *Fake) SetCamera(state engine.CameraState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.camera = state
}

type subscription struct {
	f  *Fake
	id int
}

func (s subscription) Unsubscribe() {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	delete(s.f.handlers, s.id)
	s.f.record("picker.unsubscribe")
}

// SubscribeClicks implements engine.Picker
func (f *Fake) SubscribeClicks(handler func(engine.PickEvent)) engine.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextHandler
	f.nextHandler++
	f.handlers[id] = handler
	f.record("picker.subscribe")
	return subscription{f: f, id: id}
}

// Remap implements engine.Remapper
func (f *Fake) Remap(l loci.Loci, target engine.StructureRef) loci.Loci {
	if f.RemapFunc != nil {
		return f.RemapFunc(l, target)
	}
	if l.Structure == target.ID {
		return l
	}
	return loci.Loci{Structure: target.ID}
}

// Current implements engine.Structures
func (f *Fake) Current() []engine.StructureRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.StructureRef(nil), f.structures...)
}

// RemoveStructures implements engine.Structures
func (f *Fake) RemoveStructures(_ context.Context, refs []engine.StructureRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("structures.remove %d", len(refs))
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	for _, ref := range refs {
		delete(f.components, ref.ID)
		delete(f.trajectories, ref.ID)
		for i, s := range f.structures {
			if s.ID == ref.ID {
				f.structures = append(f.structures[:i], f.structures[i+1:]...)
				break
			}
		}
	}
	return nil
}

// ParseTrajectory implements engine.Structures
func (f *Fake) ParseTrajectory(_ context.Context, data engine.RawData, format engine.Format) (engine.Trajectory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("structures.parse %s binary=%t", format, data.Binary)
	if f.ParseErr != nil {
		return engine.Trajectory{}, f.ParseErr
	}
	f.nextParse++
	t := engine.Trajectory{Ref: fmt.Sprintf("t%d", f.nextParse), Label: data.Label, FrameCount: 1}
	f.pending[t.Ref] = t
	return t, nil
}

// ApplyDefaultPreset implements engine.Structures. It adds a structure with
// one polymer component showing a cartoon.
func (f *Fake) ApplyDefaultPreset(_ context.Context, t engine.Trajectory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("structures.preset %s", t.Ref)
	if f.PresetErr != nil {
		return f.PresetErr
	}
	if _, ok := f.pending[t.Ref]; !ok {
		return errors.New("unknown trajectory")
	}
	delete(f.pending, t.Ref)

	id := loci.StructureID("s-" + t.Ref)
	f.structures = append(f.structures, engine.StructureRef{ID: id, Label: t.Label})
	f.addComponentLocked(id, engine.ScopePolymer, Rep{Kind: engine.Cartoon, Theme: engine.ChainID})
	return nil
}

// TrajectoryInfo implements engine.Structures
func (f *Fake) TrajectoryInfo(ref engine.StructureRef) (engine.TrajectoryInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.trajectories[ref.ID]
	return info, ok
}

// ListFor implements engine.Components
func (f *Fake) ListFor(ref engine.StructureRef) []engine.ComponentRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []engine.ComponentRef
	for _, c := range f.components[ref.ID] {
		out = append(out, c.ref)
	}
	return out
}

// FindOrCreate implements engine.Components
func (f *Fake) FindOrCreate(_ context.Context, ref engine.StructureRef, scope engine.Scope) (engine.ComponentRef, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("components.findOrCreate %s", scope)
	if err := f.FindOrCreateErr[scope]; err != nil {
		return engine.ComponentRef{}, false, err
	}
	if f.EmptyScopes[scope] {
		return engine.ComponentRef{}, false, nil
	}
	for _, c := range f.components[ref.ID] {
		if c.ref.Scope == scope {
			return c.ref, true, nil
		}
	}
	return f.addComponentLocked(ref.ID, scope).ref, true, nil
}

// RemoveComponents implements engine.Components
func (f *Fake) RemoveComponents(_ context.Context, components ...engine.ComponentRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, target := range components {
		f.record("components.remove %s", target.ID)
		list := f.components[target.Structure]
		for i, c := range list {
			if c.ref.ID == target.ID {
				f.components[target.Structure] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (f *Fake) findLocked(ref engine.ComponentRef) *component {
	for _, c := range f.components[ref.Structure] {
		if c.ref.ID == ref.ID {
			return c
		}
	}
	return nil
}

// AddRepresentation implements engine.Representations
func (f *Fake) AddRepresentation(_ context.Context, ref engine.ComponentRef, kind engine.RepresentationKind, theme engine.ColorTheme) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("representations.add %s %s %s", ref.ID, kind, theme)
	if f.AddRepErr != nil {
		return f.AddRepErr
	}
	c := f.findLocked(ref)
	if c == nil {
		return fmt.Errorf("component %s not found", ref.ID)
	}
	c.reps = append(c.reps, Rep{Kind: kind, Theme: theme})
	if f.AutoFrame {
		f.camera.Position = f.camera.Position.Add(geometry.NewVector3(1, 2, 3))
		f.camera.Target = f.camera.Target.Add(geometry.NewVector3(0.5, 0.5, 0.5))
	}
	return nil
}

// RemoveRepresentations implements engine.Representations
func (f *Fake) RemoveRepresentations(_ context.Context, ref engine.ComponentRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("representations.removeAll %s", ref.ID)
	if c := f.findLocked(ref); c != nil {
		c.reps = nil
	}
	return nil
}

// UpdateTheme implements engine.Representations
func (f *Fake) UpdateTheme(_ context.Context, components []engine.ComponentRef, theme engine.ColorTheme) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("representations.updateTheme %d %s", len(components), theme)
	for _, ref := range components {
		if c := f.findLocked(ref); c != nil {
			for i := range c.reps {
				c.reps[i].Theme = theme
			}
		}
	}
	return nil
}

// Snapshot implements engine.Camera
func (f *Fake) Snapshot() engine.CameraState {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("camera.snapshot")
	return f.camera
}

// Restore implements engine.Camera
func (f *Fake) Restore(state engine.CameraState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("camera.restore")
	f.camera = state
}

// Camera returns the current camera state without recording a call
func (f *Fake) Camera() engine.CameraState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.camera
}

// Stop implements engine.Animation
func (f *Fake) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("animation.stop")
	f.activeLoops = 0
	return nil
}

// PlayLoop implements engine.Animation. It does not stop a running loop, so
// callers that forget to stop first end up with more than one active loop.
func (f *Fake) PlayLoop(_ context.Context, cfg engine.AnimationConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("animation.playLoop")
	f.activeLoops++
	f.loopConfigs = append(f.loopConfigs, cfg)
	return nil
}

// SetGranularity implements engine.Interactivity
func (f *Fake) SetGranularity(g engine.Granularity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("interactivity.granularity %s", g)
	f.granularity = g
}

// Granularity implements engine.Interactivity
func (f *Fake) Granularity() engine.Granularity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.granularity
}

// AddMeasurement implements engine.Measurements
func (f *Fake) AddMeasurement(_ context.Context, kind engine.MeasurementKind, atoms ...loci.Loci) (engine.Measurement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("measurements.add %s %d", kind, len(atoms))
	if f.CommitErr != nil {
		return engine.Measurement{}, f.CommitErr
	}
	f.commits = append(f.commits, Commit{Kind: kind, Atoms: append([]loci.Loci(nil), atoms...)})
	var structure loci.StructureID
	if len(atoms) > 0 {
		structure = atoms[0].Structure
	}
	return engine.Measurement{
		ID:        fmt.Sprintf("m%d", len(f.commits)),
		Kind:      kind,
		Structure: structure,
		Value:     float64(len(f.commits)),
	}, nil
}

// ClearMeasurements implements engine.Measurements
func (f *Fake) ClearMeasurements(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("measurements.clear")
	f.commits = nil
	return nil
}

// MemoryData implements engine.Data over in-memory maps
type MemoryData struct {
	mu     sync.Mutex
	Remote map[string][]byte
	Local  map[string][]byte
	Err    error
	Calls  []string
}

// FetchRemote implements engine.Data
func (d *MemoryData) FetchRemote(_ context.Context, url string, binary bool) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls = append(d.Calls, fmt.Sprintf("remote %s binary=%t", url, binary))
	if d.Err != nil {
		return nil, d.Err
	}
	b, ok := d.Remote[url]
	if !ok {
		return nil, fmt.Errorf("%s: 404 Not Found", url)
	}
	return b, nil
}

// ReadLocal implements engine.Data
func (d *MemoryData) ReadLocal(_ context.Context, path string, binary bool) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls = append(d.Calls, fmt.Sprintf("local %s binary=%t", path, binary))
	if d.Err != nil {
		return nil, d.Err
	}
	b, ok := d.Local[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file or directory", path)
	}
	return b, nil
}
