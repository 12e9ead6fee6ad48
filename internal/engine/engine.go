package engine

import (
	"context"

	"github.com/philipparndt/gomol/pkg/loci"
)

// Subscription is returned by event subscriptions
type Subscription interface {
	Unsubscribe()
}

// Picker emits click events
type Picker interface {
	SubscribeClicks(handler func(PickEvent)) Subscription
}

// Remapper projects a Loci onto another structure instance. It returns an
// empty Loci when no correspondence exists.
type Remapper interface {
	Remap(l loci.Loci, target StructureRef) loci.Loci
}

// Structures manages the loaded structure hierarchy
type Structures interface {
	Current() []StructureRef
	RemoveStructures(ctx context.Context, refs []StructureRef) error
	ParseTrajectory(ctx context.Context, data RawData, format Format) (Trajectory, error)
	ApplyDefaultPreset(ctx context.Context, t Trajectory) error
	TrajectoryInfo(ref StructureRef) (TrajectoryInfo, bool)
}

// Components manages the components of a structure. FindOrCreate reports
// ok=false when the scope selects nothing in the structure.
type Components interface {
	ListFor(ref StructureRef) []ComponentRef
	FindOrCreate(ctx context.Context, ref StructureRef, scope Scope) (ComponentRef, bool, error)
	RemoveComponents(ctx context.Context, components ...ComponentRef) error
}

// Representations manages the visuals attached to components
type Representations interface {
	AddRepresentation(ctx context.Context, c ComponentRef, kind RepresentationKind, theme ColorTheme) error
	RemoveRepresentations(ctx context.Context, c ComponentRef) error
	UpdateTheme(ctx context.Context, components []ComponentRef, theme ColorTheme) error
}

// Camera snapshots and restores the camera
type Camera interface {
	Snapshot() CameraState
	Restore(state CameraState)
}

// Animation controls the animation manager
type Animation interface {
	Stop(ctx context.Context) error
	PlayLoop(ctx context.Context, cfg AnimationConfig) error
}

// Data fetches raw structure bytes
type Data interface {
	FetchRemote(ctx context.Context, url string, binary bool) ([]byte, error)
	ReadLocal(ctx context.Context, path string, binary bool) ([]byte, error)
}

// Interactivity controls picking behaviour
type Interactivity interface {
	SetGranularity(g Granularity)
	Granularity() Granularity
}

// Measurements creates and clears measurement objects in the scene
type Measurements interface {
	AddMeasurement(ctx context.Context, kind MeasurementKind, atoms ...loci.Loci) (Measurement, error)
	ClearMeasurements(ctx context.Context) error
}

// Engine is the full set of scene ports the viewer consumes
type Engine interface {
	Picker
	Remapper
	Structures
	Components
	Representations
	Camera
	Animation
	Interactivity
	Measurements
}
