// Package loci models selections of atoms inside a loaded structure.
//
// A Loci handed out by a rendering engine during a pick event is transient:
// the engine may recycle its backing slices once the event handler returns.
// Anything that keeps a Loci beyond the current event must Clone it first.
package loci

import (
	"fmt"
	"slices"
	"strings"
)

// StructureID identifies a structure instance inside the engine
type StructureID string

// UnitID identifies a unit (a chain or an operator copy) within a structure
type UnitID int

// Element is a set of unit-local atom indices belonging to one unit
type Element struct {
	Unit    UnitID
	Indices []int // sorted, unique
}

// Loci references zero or more atoms of one structure
type Loci struct {
	Structure StructureID
	Elements  []Element
}

// New builds a Loci from the given elements without copying them
func New(structure StructureID, elements ...Element) Loci {
	return Loci{Structure: structure, Elements: elements}
}

// Single builds a Loci referencing exactly one atom
func Single(structure StructureID, unit UnitID, index int) Loci {
	return Loci{Structure: structure, Elements: []Element{{Unit: unit, Indices: []int{index}}}}
}

// IsEmpty reports whether the Loci references no atom at all
func (l Loci) IsEmpty() bool {
	for _, e := range l.Elements {
		if len(e.Indices) > 0 {
			return false
		}
	}
	return true
}

// Size returns the number of atoms referenced
func (l Loci) Size() int {
	n := 0
	for _, e := range l.Elements {
		n += len(e.Indices)
	}
	return n
}

// First returns the first referenced atom
func (l Loci) First() (UnitID, int, bool) {
	for _, e := range l.Elements {
		if len(e.Indices) > 0 {
			return e.Unit, e.Indices[0], true
		}
	}
	return 0, 0, false
}

// Clone returns an independently owned deep copy. Every index set is
// rebuilt from a freshly materialized sorted slice, so the result shares no
// storage with l.
func (l Loci) Clone() Loci {
	out := Loci{Structure: l.Structure}
	if l.Elements == nil {
		return out
	}
	out.Elements = make([]Element, len(l.Elements))
	for i, e := range l.Elements {
		indices := make([]int, len(e.Indices))
		copy(indices, e.Indices)
		slices.Sort(indices)
		out.Elements[i] = Element{Unit: e.Unit, Indices: slices.Compact(indices)}
	}
	return out
}

// Normalize returns the canonical form used for equality: empty elements
// dropped, elements of the same unit merged, units and indices sorted.
func (l Loci) Normalize() Loci {
	byUnit := make(map[UnitID][]int)
	var units []UnitID
	for _, e := range l.Elements {
		if len(e.Indices) == 0 {
			continue
		}
		if _, ok := byUnit[e.Unit]; !ok {
			units = append(units, e.Unit)
		}
		byUnit[e.Unit] = append(byUnit[e.Unit], e.Indices...)
	}
	slices.Sort(units)

	out := Loci{Structure: l.Structure}
	for _, u := range units {
		indices := slices.Clone(byUnit[u])
		slices.Sort(indices)
		out.Elements = append(out.Elements, Element{Unit: u, Indices: slices.Compact(indices)})
	}
	return out
}

// AreEqual reports whether a and b denote the same atoms of the same
// structure instance.
func AreEqual(a, b Loci) bool {
	if a.Structure != b.Structure {
		return false
	}
	na, nb := a.Normalize(), b.Normalize()
	if len(na.Elements) != len(nb.Elements) {
		return false
	}
	for i := range na.Elements {
		if na.Elements[i].Unit != nb.Elements[i].Unit {
			return false
		}
		if !slices.Equal(na.Elements[i].Indices, nb.Elements[i].Indices) {
			return false
		}
	}
	return true
}

func (l Loci) String() string {
	var b strings.Builder
	b.WriteString(string(l.Structure))
	b.WriteString("[")
	for i, e := range l.Elements {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "u%d:%v", e.Unit, e.Indices)
	}
	b.WriteString("]")
	return b.String()
}
