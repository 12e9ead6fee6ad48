// Package engine declares the contracts of the rendering engine this viewer
// drives. The engine owns the scene graph and every live Loci; the viewer
// only holds captured copies and its own session state.
package engine

import (
	"fmt"
	"strings"

	"github.com/philipparndt/gomol/pkg/geometry"
	"github.com/philipparndt/gomol/pkg/loci"
)

// StructureRef is a stable handle to a loaded root structure, compared by ID
type StructureRef struct {
	ID    loci.StructureID
	Label string
}

// ComponentRef is a stable handle to a scene component, compared by ID
type ComponentRef struct {
	ID        string
	Structure loci.StructureID
	Scope     Scope
}

// Scope is the atom subset a component is bound to
type Scope string

const (
	ScopePolymer Scope = "polymer"
	ScopeAll     Scope = "all"
	ScopeLigand  Scope = "ligand"
)

// RepresentationKind is a visual style
type RepresentationKind string

const (
	Cartoon          RepresentationKind = "cartoon"
	BallAndStick     RepresentationKind = "ball-and-stick"
	MolecularSurface RepresentationKind = "molecular-surface"
	GaussianSurface  RepresentationKind = "gaussian-surface"
)

// RepresentationKinds lists the supported styles in menu order
var RepresentationKinds = []RepresentationKind{Cartoon, BallAndStick, MolecularSurface, GaussianSurface}

// ParseRepresentationKind accepts the canonical names and "ball-stick"
func ParseRepresentationKind(s string) (RepresentationKind, error) {
	switch k := RepresentationKind(strings.ToLower(strings.TrimSpace(s))); k {
	case Cartoon, BallAndStick, MolecularSurface, GaussianSurface:
		return k, nil
	case "ball-stick", "ballandstick":
		return BallAndStick, nil
	}
	return "", fmt.Errorf("unknown representation %q", s)
}

// ColorTheme names a coloring scheme
type ColorTheme string

const (
	ChainID        ColorTheme = "chain-id"
	ElementSymbol  ColorTheme = "element-symbol"
	Rainbow        ColorTheme = "rainbow"
	Hydrophobicity ColorTheme = "hydrophobicity"
)

// ColorThemes lists the supported themes in menu order
var ColorThemes = []ColorTheme{ChainID, ElementSymbol, Rainbow, Hydrophobicity}

// ParseColorTheme validates a theme name
func ParseColorTheme(s string) (ColorTheme, error) {
	switch t := ColorTheme(strings.ToLower(strings.TrimSpace(s))); t {
	case ChainID, ElementSymbol, Rainbow, Hydrophobicity:
		return t, nil
	}
	return "", fmt.Errorf("unknown color theme %q", s)
}

// Granularity is the picking granularity of the interactivity layer
type Granularity string

const (
	GranularityElement Granularity = "element"
	GranularityResidue Granularity = "residue"
)

// PickKind discriminates what a click hit
type PickKind int

const (
	PickNone PickKind = iota
	PickElement
	PickOther
)

func (k PickKind) String() string {
	switch k {
	case PickNone:
		return "none"
	case PickElement:
		return "element"
	default:
		return "other"
	}
}

// PickEvent is emitted once per click. Loci is transient and only valid for
// the duration of the handler call.
type PickEvent struct {
	Kind PickKind
	Loci loci.Loci
}

// CameraState is an opaque snapshot of the camera
type CameraState struct {
	Position geometry.Vector3
	Target   geometry.Vector3
	Up       geometry.Vector3
	FOV      float64 // radians
}

// LoopMode and Direction configure an animation
type (
	LoopMode  string
	Direction string
)

const (
	LoopModeLoop   LoopMode  = "loop"
	LoopModeOnce   LoopMode  = "once"
	DirectionFwd   Direction = "forward"
	DirectionBwd   Direction = "backward"
	AnimModelIndex           = "model-index"
)

// AnimationConfig describes an animation to play
type AnimationConfig struct {
	Target    string
	TargetFPS int
	Mode      LoopMode
	Direction Direction
}

// Format is the structure file format handed to the parser
type Format string

const (
	FormatMMCIF Format = "mmcif"
	FormatPDB   Format = "pdb"
)

// RawData is the payload of a fetch or file read
type RawData struct {
	Bytes  []byte
	Binary bool
	Label  string
}

// Trajectory is a parsed, not yet presented, set of models
type Trajectory struct {
	Ref        string
	Label      string
	FrameCount int
}

// TrajectoryInfo is the trajectory metadata of a model
type TrajectoryInfo struct {
	Index int
	Size  int
}

// MeasurementKind is a geometric relationship between clicked atoms
type MeasurementKind string

const (
	Distance MeasurementKind = "distance"
	Angle    MeasurementKind = "angle"
	Dihedral MeasurementKind = "dihedral"
)

// Required returns how many atoms the measurement needs, 0 for unknown kinds
func (k MeasurementKind) Required() int {
	switch k {
	case Distance:
		return 2
	case Angle:
		return 3
	case Dihedral:
		return 4
	}
	return 0
}

// ParseMeasurementKind validates a measurement kind name
func ParseMeasurementKind(s string) (MeasurementKind, error) {
	k := MeasurementKind(strings.ToLower(strings.TrimSpace(s)))
	if k.Required() == 0 {
		return "", fmt.Errorf("unknown measurement %q", s)
	}
	return k, nil
}

// Measurement is a committed measurement as reported by the engine
type Measurement struct {
	ID        string
	Kind      MeasurementKind
	Structure loci.StructureID
	Value     float64
	Unit      string
	Atoms     []string
}
