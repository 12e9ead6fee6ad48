// Package scene is an in-process implementation of the engine ports. It keeps
// parsed structures, their components and representations, a camera and an
// animation clock in memory, and turns front-end clicks into pick events.
package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/philipparndt/gomol/internal/engine"
	"github.com/philipparndt/gomol/pkg/geometry"
	"github.com/philipparndt/gomol/pkg/loci"
	"github.com/philipparndt/gomol/pkg/structure"
)

var (
	// ErrUnknownStructure is returned for references to structures that are not loaded
	ErrUnknownStructure = errors.New("unknown structure")

	// ErrUnknownComponent is returned for references to removed components
	ErrUnknownComponent = errors.New("unknown component")

	// ErrAnimationActive is returned by PlayLoop while another loop runs
	ErrAnimationActive = errors.New("animation already running")
)

// instanceSuffix marks the rendered instance of a root structure. Pick events
// are reported against the instance and must be remapped to the root.
const instanceSuffix = "#instance"

// Rep is a representation attached to a component
type Rep struct {
	Kind  engine.RepresentationKind
	Theme engine.ColorTheme
}

type unit struct {
	id    loci.UnitID
	chain string
	atoms []int // indices into the model atom list
}

type atomRef struct {
	unit  int
	local int
}

type component struct {
	ref   engine.ComponentRef
	atoms []int
	reps  []Rep
}

type entry struct {
	ref        engine.StructureRef
	data       *structure.Structure
	units      []unit
	atomUnits  []atomRef
	frame      int
	components []*component
}

func (e *entry) instanceID() loci.StructureID {
	return e.ref.ID + instanceSuffix
}

// position returns the atom position in the current frame
func (e *entry) position(atom int) geometry.Vector3 {
	if e.frame < len(e.data.Models) {
		if atoms := e.data.Models[e.frame].Atoms; atom < len(atoms) {
			return atoms[atom].Position
		}
	}
	return e.data.Models[0].Atoms[atom].Position
}

func (e *entry) atom(atom int) structure.Atom {
	return e.data.Models[0].Atoms[atom]
}

func (e *entry) component(id string) *component {
	for _, c := range e.components {
		if c.ref.ID == id {
			return c
		}
	}
	return nil
}

// Engine implements engine.Engine in memory
type Engine struct {
	logger *slog.Logger

	mu          sync.Mutex
	entries     []*entry
	pending     map[string]*structure.Structure
	nextID      int
	camera      engine.CameraState
	granularity engine.Granularity
	handlers    map[int]func(engine.PickEvent)
	nextHandler int
	listeners   map[int]func()
	measures    []record
	anim        *animation

	// scratch backs the Loci of dispatched pick events
	clickMu sync.Mutex
	scratch loci.Loci
}

var _ engine.Engine = (*Engine)(nil)

// New creates an empty scene
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		logger:      logger,
		pending:     make(map[string]*structure.Structure),
		handlers:    make(map[int]func(engine.PickEvent)),
		listeners:   make(map[int]func()),
		granularity: engine.GranularityResidue,
		camera:      defaultCamera(),
	}
}

func (s *Engine) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *Engine) entry(id loci.StructureID) *entry {
	for _, e := range s.entries {
		if e.ref.ID == id {
			return e
		}
	}
	return nil
}

// OnChange registers fn to be called after every visible change of the
// scene. The returned function removes the listener.
func (s *Engine) OnChange(fn func()) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextHandler
	s.nextHandler++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// changed must be called without holding mu
func (s *Engine) changed() {
	s.mu.Lock()
	listeners := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Structure returns the parsed data of a loaded structure
func (s *Engine) Structure(id loci.StructureID) (*structure.Structure, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.entry(id); e != nil {
		return e.data, true
	}
	return nil, false
}

// Frame returns the model index currently shown for a structure
func (s *Engine) Frame(id loci.StructureID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.entry(id); e != nil {
		return e.frame
	}
	return 0
}

// Representations returns the representations of every component of a
// structure in component order
func (s *Engine) Representations(id loci.StructureID) []Rep {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(id)
	if e == nil {
		return nil
	}
	var out []Rep
	for _, c := range e.components {
		out = append(out, c.reps...)
	}
	return out
}

// Granularity implements engine.Interactivity
func (s *Engine) Granularity() engine.Granularity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.granularity
}

// SetGranularity implements engine.Interactivity
func (s *Engine) SetGranularity(g engine.Granularity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.granularity = g
}
