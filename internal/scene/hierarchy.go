package scene

import (
	"context"
	"errors"
	"fmt"

	"github.com/philipparndt/gomol/internal/engine"
	"github.com/philipparndt/gomol/pkg/geometry"
	"github.com/philipparndt/gomol/pkg/loci"
	"github.com/philipparndt/gomol/pkg/structure"
)

// Current implements engine.Structures
func (s *Engine) Current() []engine.StructureRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]engine.StructureRef, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.ref
	}
	return out
}

// RemoveStructures implements engine.Structures. Measurements on removed
// structures are dropped with them.
func (s *Engine) RemoveStructures(ctx context.Context, refs []engine.StructureRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	for _, ref := range refs {
		for i, e := range s.entries {
			if e.ref.ID == ref.ID {
				s.entries = append(s.entries[:i], s.entries[i+1:]...)
				break
			}
		}
		kept := s.measures[:0]
		for _, m := range s.measures {
			if m.Structure != ref.ID {
				kept = append(kept, m)
			}
		}
		s.measures = kept
	}
	s.mu.Unlock()

	s.changed()
	return nil
}

// ParseTrajectory implements engine.Structures
func (s *Engine) ParseTrajectory(ctx context.Context, data engine.RawData, format engine.Format) (engine.Trajectory, error) {
	if err := ctx.Err(); err != nil {
		return engine.Trajectory{}, err
	}
	if data.Binary {
		return engine.Trajectory{}, errors.New("binary CIF is not supported")
	}

	parsed, err := structure.Parse(data.Bytes, structure.Format(format), data.Label)
	if err != nil {
		return engine.Trajectory{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ref := s.id("trajectory")
	s.pending[ref] = parsed
	label := data.Label
	if label == "" {
		label = parsed.Name
	}
	return engine.Trajectory{Ref: ref, Label: label, FrameCount: parsed.FrameCount()}, nil
}

// ApplyDefaultPreset implements engine.Structures. The polymer is drawn as a
// cartoon and non-water ligands as ball-and-stick; structures without a
// polymer are drawn as ball-and-stick entirely. The camera frames the result.
func (s *Engine) ApplyDefaultPreset(ctx context.Context, t engine.Trajectory) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	parsed, ok := s.pending[t.Ref]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("trajectory %s: %w", t.Ref, ErrUnknownStructure)
	}
	delete(s.pending, t.Ref)

	e := &entry{
		ref:  engine.StructureRef{ID: loci.StructureID(s.id("structure")), Label: t.Label},
		data: parsed,
	}
	e.buildUnits()

	if polymer := e.selectScope(engine.ScopePolymer); len(polymer) > 0 {
		s.addComponentLocked(e, engine.ScopePolymer, polymer, Rep{Kind: engine.Cartoon, Theme: engine.ChainID})
		if ligand := e.selectScope(engine.ScopeLigand); len(ligand) > 0 {
			s.addComponentLocked(e, engine.ScopeLigand, ligand, Rep{Kind: engine.BallAndStick, Theme: engine.ChainID})
		}
	} else {
		s.addComponentLocked(e, engine.ScopeAll, e.selectScope(engine.ScopeAll), Rep{Kind: engine.BallAndStick, Theme: engine.ChainID})
	}
	s.entries = append(s.entries, e)
	s.camera = frame(s.camera, parsed.Models[0].BoundingBox())
	s.mu.Unlock()

	s.logger.Debug("preset applied", "structure", e.ref.ID, "atoms", parsed.AtomCount(), "units", len(e.units))
	s.changed()
	return nil
}

// TrajectoryInfo implements engine.Structures
func (s *Engine) TrajectoryInfo(ref engine.StructureRef) (engine.TrajectoryInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(ref.ID)
	if e == nil {
		return engine.TrajectoryInfo{}, false
	}
	return engine.TrajectoryInfo{Index: e.frame, Size: e.data.FrameCount()}, true
}

func (e *entry) buildUnits() {
	atoms := e.data.Models[0].Atoms
	e.atomUnits = make([]atomRef, len(atoms))
	byChain := make(map[string]int)
	for i, atom := range atoms {
		u, ok := byChain[atom.Chain]
		if !ok {
			u = len(e.units)
			byChain[atom.Chain] = u
			e.units = append(e.units, unit{id: loci.UnitID(u), chain: atom.Chain})
		}
		e.atomUnits[i] = atomRef{unit: u, local: len(e.units[u].atoms)}
		e.units[u].atoms = append(e.units[u].atoms, i)
	}
}

func (e *entry) selectScope(scope engine.Scope) []int {
	var out []int
	for i, atom := range e.data.Models[0].Atoms {
		switch scope {
		case engine.ScopePolymer:
			if !atom.IsPolymer() {
				continue
			}
		case engine.ScopeLigand:
			if atom.IsPolymer() || atom.IsWater() {
				continue
			}
		}
		out = append(out, i)
	}
	return out
}

func (s *Engine) addComponentLocked(e *entry, scope engine.Scope, atoms []int, reps ...Rep) *component {
	c := &component{
		ref:   engine.ComponentRef{ID: s.id("component"), Structure: e.ref.ID, Scope: scope},
		atoms: atoms,
		reps:  reps,
	}
	e.components = append(e.components, c)
	return c
}

// ListFor implements engine.Components
func (s *Engine) ListFor(ref engine.StructureRef) []engine.ComponentRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(ref.ID)
	if e == nil {
		return nil
	}
	out := make([]engine.ComponentRef, len(e.components))
	for i, c := range e.components {
		out[i] = c.ref
	}
	return out
}

// FindOrCreate implements engine.Components
func (s *Engine) FindOrCreate(ctx context.Context, ref engine.StructureRef, scope engine.Scope) (engine.ComponentRef, bool, error) {
	if err := ctx.Err(); err != nil {
		return engine.ComponentRef{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(ref.ID)
	if e == nil {
		return engine.ComponentRef{}, false, fmt.Errorf("%s: %w", ref.ID, ErrUnknownStructure)
	}
	for _, c := range e.components {
		if c.ref.Scope == scope {
			return c.ref, true, nil
		}
	}
	atoms := e.selectScope(scope)
	if len(atoms) == 0 {
		return engine.ComponentRef{}, false, nil
	}
	return s.addComponentLocked(e, scope, atoms).ref, true, nil
}

// RemoveComponents implements engine.Components
func (s *Engine) RemoveComponents(ctx context.Context, components ...engine.ComponentRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	for _, target := range components {
		e := s.entry(target.Structure)
		if e == nil {
			continue
		}
		for i, c := range e.components {
			if c.ref.ID == target.ID {
				e.components = append(e.components[:i], e.components[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()

	s.changed()
	return nil
}

// AddRepresentation implements engine.Representations. Like most engines
// the camera re-frames the component it draws.
func (s *Engine) AddRepresentation(ctx context.Context, ref engine.ComponentRef, kind engine.RepresentationKind, theme engine.ColorTheme) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	e := s.entry(ref.Structure)
	if e == nil {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", ref.Structure, ErrUnknownStructure)
	}
	c := e.component(ref.ID)
	if c == nil {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", ref.ID, ErrUnknownComponent)
	}
	c.reps = append(c.reps, Rep{Kind: kind, Theme: theme})

	box := geometry.NewBoundingBox()
	for _, atom := range c.atoms {
		box.Extend(e.position(atom))
	}
	s.camera = frame(s.camera, box)
	s.mu.Unlock()

	s.changed()
	return nil
}

// RemoveRepresentations implements engine.Representations
func (s *Engine) RemoveRepresentations(ctx context.Context, ref engine.ComponentRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	e := s.entry(ref.Structure)
	var c *component
	if e != nil {
		c = e.component(ref.ID)
	}
	if c == nil {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", ref.ID, ErrUnknownComponent)
	}
	c.reps = nil
	s.mu.Unlock()

	s.changed()
	return nil
}

// UpdateTheme implements engine.Representations
func (s *Engine) UpdateTheme(ctx context.Context, components []engine.ComponentRef, theme engine.ColorTheme) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	for _, ref := range components {
		e := s.entry(ref.Structure)
		if e == nil {
			continue
		}
		if c := e.component(ref.ID); c != nil {
			for i := range c.reps {
				c.reps[i].Theme = theme
			}
		}
	}
	s.mu.Unlock()

	s.changed()
	return nil
}
