// Package capture turns transient click events into owned, root-structure
// selections that can be kept across events.
package capture

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/philipparndt/gomol/internal/engine"
	"github.com/philipparndt/gomol/pkg/loci"
)

var (
	// ErrIgnored is returned for clicks on empty space or on nothing that
	// carries atoms. Callers drop these silently.
	ErrIgnored = errors.New("click ignored")

	// ErrInvalidSelection is the base of every rejected selection
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrNotElement is returned when the click hit something other than atoms
	ErrNotElement = fmt.Errorf("%w: not an atom", ErrInvalidSelection)

	// ErrMultiAtomSelection is returned when the click selected more than one atom
	ErrMultiAtomSelection = fmt.Errorf("%w: more than one atom", ErrInvalidSelection)

	// ErrDuplicate is returned when the click repeats the previous atom
	ErrDuplicate = errors.New("duplicate selection")
)

// StructureLister returns the root structures currently loaded
type StructureLister interface {
	Current() []engine.StructureRef
}

// Capturer validates click events and captures the atom they hit
type Capturer struct {
	remapper engine.Remapper
	roots    StructureLister
	logger   *slog.Logger
}

// New creates a Capturer
func New(remapper engine.Remapper, roots StructureLister, logger *slog.Logger) *Capturer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Capturer{remapper: remapper, roots: roots, logger: logger}
}

// Capture validates ev and returns an owned copy of the clicked atom, expressed
// in the coordinates of a loaded root structure. last is the most recently
// captured atom of the current session, or nil.
//
// The returned Loci never aliases ev.Loci.
func (c *Capturer) Capture(ev engine.PickEvent, last *loci.Loci) (loci.Loci, error) {
	switch ev.Kind {
	case engine.PickNone:
		return loci.Loci{}, ErrIgnored
	case engine.PickElement:
	default:
		return loci.Loci{}, ErrNotElement
	}

	// Repeated indices or units name one atom.
	picked := ev.Loci.Normalize()
	switch n := picked.Size(); {
	case n == 0:
		return loci.Loci{}, ErrIgnored
	case n > 1:
		c.logger.Debug("multi-atom click rejected", "structure", ev.Loci.Structure, "atoms", n)
		return loci.Loci{}, ErrMultiAtomSelection
	}

	captured := c.toRoot(picked)
	if last != nil && loci.AreEqual(captured, *last) {
		return loci.Loci{}, ErrDuplicate
	}
	return captured, nil
}

// toRoot remaps l onto the first root structure that has a correspondence.
// Without one, l is kept as it came in.
func (c *Capturer) toRoot(l loci.Loci) loci.Loci {
	for _, root := range c.roots.Current() {
		if root.ID == l.Structure {
			return l.Clone()
		}
		remapped := c.remapper.Remap(l, root)
		if !remapped.IsEmpty() {
			c.logger.Debug("remapped click", "from", l.Structure, "to", root.ID)
			return remapped.Clone()
		}
	}
	return l.Clone()
}
