package scene

import (
	"fmt"
	"strings"

	"github.com/philipparndt/gomol/internal/engine"
	"github.com/philipparndt/gomol/pkg/geometry"
	"github.com/philipparndt/gomol/pkg/loci"
)

type subscription struct {
	s  *Engine
	id int
}

func (sub subscription) Unsubscribe() {
	sub.s.mu.Lock()
	defer sub.s.mu.Unlock()
	delete(sub.s.handlers, sub.id)
}

// SubscribeClicks implements engine.Picker
func (s *Engine) SubscribeClicks(handler func(engine.PickEvent)) engine.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextHandler
	s.nextHandler++
	s.handlers[id] = handler
	return subscription{s: s, id: id}
}

// Remap implements engine.Remapper. Pick events name the rendered instance of
// a structure; remapping onto its root keeps the unit and atom indices.
func (s *Engine) Remap(l loci.Loci, target engine.StructureRef) loci.Loci {
	if l.Structure == target.ID {
		return l
	}
	if l.Structure != target.ID+instanceSuffix {
		return loci.Loci{Structure: target.ID}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(target.ID)
	if e == nil {
		return loci.Loci{Structure: target.ID}
	}
	out := loci.Loci{Structure: target.ID}
	for _, el := range l.Elements {
		if int(el.Unit) < 0 || int(el.Unit) >= len(e.units) {
			continue
		}
		out.Elements = append(out.Elements, el)
	}
	return out
}

// ClickEmpty dispatches a click that hit nothing
func (s *Engine) ClickEmpty() {
	s.dispatch(engine.PickEvent{Kind: engine.PickNone})
}

// ClickOther dispatches a click on a scene object that is not an atom, such
// as a measurement label
func (s *Engine) ClickOther() {
	s.dispatch(engine.PickEvent{Kind: engine.PickOther})
}

// ClickAtom dispatches a click on an atom of a loaded structure. At residue
// granularity the event carries every atom of the residue.
func (s *Engine) ClickAtom(id loci.StructureID, atom int) error {
	s.clickMu.Lock()
	defer s.clickMu.Unlock()

	s.mu.Lock()
	e := s.entry(id)
	if e == nil {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", id, ErrUnknownStructure)
	}
	if atom < 0 || atom >= len(e.atomUnits) {
		s.mu.Unlock()
		return fmt.Errorf("atom %d out of range", atom)
	}

	ref := e.atomUnits[atom]
	indices := s.scratchIndices()
	if s.granularity == engine.GranularityResidue {
		clicked := e.atom(atom)
		for local, global := range e.units[ref.unit].atoms {
			a := e.atom(global)
			if a.ResSeq == clicked.ResSeq && a.ResName == clicked.ResName {
				indices = append(indices, local)
			}
		}
	} else {
		indices = append(indices, ref.local)
	}
	s.scratch.Structure = e.instanceID()
	s.scratch.Elements = append(s.scratch.Elements[:0], loci.Element{Unit: e.units[ref.unit].id, Indices: indices})
	ev := engine.PickEvent{Kind: engine.PickElement, Loci: s.scratch}
	s.mu.Unlock()

	s.dispatch(ev)

	// Pick Loci are only valid during dispatch.
	s.mu.Lock()
	for i := range s.scratch.Elements {
		for j := range s.scratch.Elements[i].Indices {
			s.scratch.Elements[i].Indices[j] = -1
		}
		s.scratch.Elements[i].Unit = -1
	}
	s.mu.Unlock()
	return nil
}

func (s *Engine) scratchIndices() []int {
	if len(s.scratch.Elements) > 0 {
		return s.scratch.Elements[0].Indices[:0]
	}
	return nil
}

func (s *Engine) dispatch(ev engine.PickEvent) {
	s.mu.Lock()
	handlers := make([]func(engine.PickEvent), 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// AtomIndexBySerial finds an atom by its serial number in the file
func (s *Engine) AtomIndexBySerial(id loci.StructureID, serial int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(id)
	if e == nil {
		return 0, false
	}
	for i, atom := range e.data.Models[0].Atoms {
		if atom.Serial == serial {
			return i, true
		}
	}
	return 0, false
}

// RenderedAtom is an atom drawn by at least one representation
type RenderedAtom struct {
	Structure loci.StructureID
	Index     int
	Position  geometry.Vector3
	Element   string
	Chain     string
	ResName   string
	ResSeq    int
	Trace     bool
	Kind      engine.RepresentationKind
	Theme     engine.ColorTheme
}

// RenderedAtoms lists every drawn atom in the current frame. An atom in more
// than one component is reported with the representation drawn last.
func (s *Engine) RenderedAtoms() []RenderedAtom {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []RenderedAtom
	for _, e := range s.entries {
		seen := make(map[int]int)
		for _, c := range e.components {
			if len(c.reps) == 0 {
				continue
			}
			rep := c.reps[len(c.reps)-1]
			for _, i := range c.atoms {
				atom := e.atom(i)
				ra := RenderedAtom{
					Structure: e.ref.ID,
					Index:     i,
					Position:  e.position(i),
					Element:   strings.ToUpper(atom.Element),
					Chain:     atom.Chain,
					ResName:   atom.ResName,
					ResSeq:    atom.ResSeq,
					Trace:     atom.IsBackbone(),
					Kind:      rep.Kind,
					Theme:     rep.Theme,
				}
				if at, ok := seen[i]; ok {
					out[at] = ra
					continue
				}
				seen[i] = len(out)
				out = append(out, ra)
			}
		}
	}
	return out
}
